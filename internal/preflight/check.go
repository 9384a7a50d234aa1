package preflight

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ickyicky/folder-observer/internal/category"
	"github.com/ickyicky/folder-observer/internal/config"
)

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed successfully.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical warning.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the status by name in JSON output.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical returns true if this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Checker performs preflight validation checks.
type Checker struct {
	offline bool
	verbose bool
	output  io.Writer
	lockDir string
	fetcher category.Fetcher
}

// Option configures a Checker.
type Option func(*Checker)

// WithOffline skips the lookup service check.
func WithOffline(offline bool) Option {
	return func(c *Checker) {
		c.offline = offline
	}
}

// WithVerbose enables verbose output.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) {
		c.verbose = verbose
	}
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) {
		c.output = w
	}
}

// WithLockDir sets where source locks live. Without it the lock check is
// skipped.
func WithLockDir(dir string) Option {
	return func(c *Checker) {
		c.lockDir = dir
	}
}

// WithFetcher replaces the HTTP client used for the lookup check.
func WithFetcher(f category.Fetcher) Option {
	return func(c *Checker) {
		c.fetcher = f
	}
}

// New creates a new Checker with the given options.
func New(opts ...Option) *Checker {
	c := &Checker{
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs all preflight checks for cfg and returns the results.
// cfg is expected to be normalized.
func (c *Checker) RunAll(ctx context.Context, cfg *config.Config) []CheckResult {
	var results []CheckResult

	results = append(results, c.CheckSource(cfg.Source))
	results = append(results, c.CheckWritePermissions(cfg.Destination))
	results = append(results, c.CheckSameFilesystem(cfg.Source, cfg.Destination))
	results = append(results, c.CheckDiskSpace(cfg.Destination))
	results = append(results, c.CheckFileDescriptors(cfg.Recursive))

	if c.lockDir != "" {
		results = append(results, c.CheckSourceLock(cfg.Source))
	}
	results = append(results, c.CheckJournal(ctx, cfg.Journal))
	if !c.offline {
		results = append(results, c.CheckLookup(ctx, cfg.Categories.Lookup))
	}

	return results
}

// HasCriticalFailures returns true if any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus returns a summary status string for the results.
func (c *Checker) SummaryStatus(results []CheckResult) string {
	hasWarnings := false
	hasCriticalFailure := false

	for _, r := range results {
		if r.IsCritical() {
			hasCriticalFailure = true
		}
		if r.Status == StatusWarn || (r.Status == StatusFail && !r.Required) {
			hasWarnings = true
		}
	}

	if hasCriticalFailure {
		return "failed"
	}
	if hasWarnings {
		return "ready_with_warnings"
	}
	return "ready"
}

// PrintResults prints check results to the configured output.
func (c *Checker) PrintResults(results []CheckResult) {
	_, _ = fmt.Fprintln(c.output, "Folder Observer System Check")
	_, _ = fmt.Fprintln(c.output, "============================")
	_, _ = fmt.Fprintln(c.output)

	for _, r := range results {
		_, _ = fmt.Fprintf(c.output, "[%s] %s: %s\n", r.Status, r.Name, r.Message)
		if c.verbose && r.Details != "" {
			_, _ = fmt.Fprintf(c.output, "       %s\n", r.Details)
		}
	}

	_, _ = fmt.Fprintln(c.output)
	_, _ = fmt.Fprintf(c.output, "Status: %s\n", strings.ToUpper(c.SummaryStatus(results)))

	var warnings, errors []string
	for _, r := range results {
		if r.IsCritical() {
			errors = append(errors, r.Name+": "+r.Message)
		} else if r.Status != StatusPass {
			warnings = append(warnings, r.Name+": "+r.Message)
		}
	}

	if len(errors) > 0 {
		_, _ = fmt.Fprintln(c.output)
		_, _ = fmt.Fprintf(c.output, "%d error(s):\n", len(errors))
		for _, e := range errors {
			_, _ = fmt.Fprintf(c.output, "  - %s\n", e)
		}
	}

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(c.output)
		_, _ = fmt.Fprintf(c.output, "%d warning(s):\n", len(warnings))
		for _, w := range warnings {
			_, _ = fmt.Fprintf(c.output, "  - %s\n", w)
		}
	}
}

// CheckSource checks that the watched directory exists.
func (c *Checker) CheckSource(path string) CheckResult {
	result := CheckResult{
		Name:     "source",
		Required: true,
	}

	info, err := os.Stat(path)
	switch {
	case err != nil:
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s: %v", path, err)
	case !info.IsDir():
		result.Status = StatusFail
		result.Message = path + " is not a directory"
	default:
		result.Status = StatusPass
		result.Message = path
	}
	return result
}

// CheckWritePermissions checks that category folders can be created under
// the destination. A destination that does not exist yet is probed at its
// nearest existing parent.
func (c *Checker) CheckWritePermissions(path string) CheckResult {
	result := CheckResult{
		Name:     "destination_writable",
		Required: true,
	}

	dir := existingAncestor(path)
	if dir != path {
		result.Details = fmt.Sprintf("%s does not exist yet, probed %s", path, dir)
	}

	f, err := os.CreateTemp(dir, ".folder-observer-preflight-*")
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("permission denied: %v", err)
		return result
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)

	result.Status = StatusPass
	result.Message = "OK"
	return result
}

// existingAncestor returns path or its closest parent that exists.
func existingAncestor(path string) string {
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}
