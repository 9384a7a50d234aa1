package category

import (
	"path/filepath"
	"strings"
)

// Extension returns the extension used for classification of a file name.
//
// The base name is lowercased and stripped of leading dots; the extension is
// everything after the first remaining dot. "archive.tar.gz" yields "tar.gz",
// while "README" and ".bashrc" have no extension.
func Extension(name string) string {
	base := strings.ToLower(filepath.Base(name))
	base = strings.TrimLeft(base, ".")

	idx := strings.IndexByte(base, '.')
	if idx < 0 {
		return ""
	}
	return base[idx+1:]
}

// NormalizeExtension lowercases ext and strips leading dots.
func NormalizeExtension(ext string) string {
	return strings.TrimLeft(strings.ToLower(strings.TrimSpace(ext)), ".")
}

var labelReplacer = strings.NewReplacer(" ", "", ".", "", "/", "", "\\", "")

// NormalizeLabel removes spaces and periods from a category label. Path
// separators are dropped too so a label always names a single directory.
func NormalizeLabel(label string) string {
	return labelReplacer.Replace(strings.TrimSpace(label))
}
