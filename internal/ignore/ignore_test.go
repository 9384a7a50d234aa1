package ignore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/ickyicky/folder-observer/internal/errors"
)

func TestMatcher_Match(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		path    string
		isDir   bool
		want    bool
	}{
		{"extension anywhere", "*.iso", "images/big.iso", false, true},
		{"extension miss", "*.iso", "images/big.img", false, false},
		{"plain name matches any segment", "node_modules", "a/node_modules/x.js", false, true},
		{"dir only matches dir", "tmp/", "tmp", true, true},
		{"dir only skips file", "tmp/", "tmp", false, false},
		{"dir only matches contents", "tmp/", "work/tmp/a.txt", false, true},
		{"anchored at root", "/build", "build/out.bin", false, true},
		{"anchored not nested", "/build", "src/build", true, false},
		{"inner slash anchors", "docs/drafts", "docs/drafts/a.md", false, true},
		{"double star prefix", "**/cache", "x/y/cache", true, true},
		{"double star middle", "a/**/z.txt", "a/b/c/z.txt", false, true},
		{"question mark", "file?.txt", "file1.txt", false, true},
		{"question mark no slash", "a?b", "a/b", false, false},
		{"character class", "[abc].txt", "b.txt", false, true},
		{"negated class", "[!abc].txt", "d.txt", false, true},
		{"dots are literal", "a.b", "axb", false, false},
		{"escaped bang", `\!keep`, "!keep", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Match(tt.path, tt.isDir))
		})
	}
}

func TestMatcher_NegationLastWins(t *testing.T) {
	m, err := New("*.log", "!keep.log")
	require.NoError(t, err)

	assert.True(t, m.Match("debug.log", false))
	assert.False(t, m.Match("keep.log", false))
}

func TestMatcher_CommentsAndBlanksSkipped(t *testing.T) {
	m, err := New("", "  ", "# comment")
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestMatcher_RootNeverMatches(t *testing.T) {
	m, err := New("**")
	require.NoError(t, err)
	assert.False(t, m.Match(".", true))
	assert.False(t, m.Match("", true))
}

func TestMatcher_NilIsEmpty(t *testing.T) {
	var m *Matcher
	assert.False(t, m.Match("a", false))
	assert.Equal(t, 0, m.Len())
}

func TestNew_InvalidPattern(t *testing.T) {
	_, err := New("[z-a]")
	require.Error(t, err)
	assert.True(t, oerrors.HasCode(err, oerrors.ErrCodeInvalidPattern))
}
