package preflight

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/ickyicky/folder-observer/internal/category"
	"github.com/ickyicky/folder-observer/internal/config"
	oerrors "github.com/ickyicky/folder-observer/internal/errors"
	"github.com/ickyicky/folder-observer/internal/journal"
	"github.com/ickyicky/folder-observer/internal/lock"
)

// ProbeExtension is looked up to test the lookup service.
const ProbeExtension = "pdf"

// CheckSourceLock reports whether another observer already holds source.
func (c *Checker) CheckSourceLock(source string) CheckResult {
	result := CheckResult{
		Name: "source_lock",
	}

	l := lock.ForSource(c.lockDir, source)
	if err := l.Acquire(); err != nil {
		result.Status = StatusWarn
		result.Message = "another observer is watching this source"
		if oerr, ok := oerrors.As(err); ok && oerr.Details["holder"] != "" {
			result.Details = oerr.Details["holder"]
		}
		return result
	}
	_ = l.Release()

	result.Status = StatusPass
	result.Message = "free"
	return result
}

// CheckJournal opens the journal and reports its size.
func (c *Checker) CheckJournal(ctx context.Context, cfg config.JournalConfig) CheckResult {
	result := CheckResult{
		Name: "journal",
	}

	if !cfg.Enabled {
		result.Status = StatusPass
		result.Message = "disabled"
		return result
	}
	if _, err := os.Stat(cfg.Path); os.IsNotExist(err) {
		result.Status = StatusPass
		result.Message = "not created yet"
		result.Details = cfg.Path
		return result
	}

	store, err := journal.Open(cfg.Path)
	if err != nil {
		result.Status = StatusWarn
		result.Message = err.Error()
		return result
	}
	defer store.Close()

	counts, err := store.Counts(ctx)
	if err != nil {
		result.Status = StatusWarn
		result.Message = err.Error()
		return result
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	open, err := store.Failed(ctx, 0)
	if err != nil {
		result.Status = StatusWarn
		result.Message = err.Error()
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s entries", humanize.Comma(int64(total)))
	result.Details = cfg.Path
	if len(open) > 0 {
		result.Status = StatusWarn
		result.Message += fmt.Sprintf(", %d failed relocation(s) not retried", len(open))
		result.Details = "Run 'folder-observer retry' to re-drive them"
	}
	return result
}

// CheckLookup fetches a well-known extension and checks that the category
// pattern still matches. Lookups are optional, so failures only warn.
func (c *Checker) CheckLookup(ctx context.Context, cfg config.LookupConfig) CheckResult {
	result := CheckResult{
		Name: "lookup",
	}

	if cfg.URL == "" {
		result.Status = StatusPass
		result.Message = "disabled"
		return result
	}

	pattern, err := regexp.Compile(cfg.Pattern)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("invalid pattern: %v", err)
		return result
	}

	fetcher := c.fetcher
	if fetcher == nil {
		fetcher = category.NewHTTPFetcher(cfg.Timeout.Std())
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout.Std())
		defer cancel()
	}

	target := strings.TrimRight(cfg.URL, "/") + "/" + ProbeExtension
	result.Details = target

	body, err := fetcher.Fetch(ctx, target)
	if err != nil {
		result.Status = StatusWarn
		result.Message = err.Error()
		return result
	}
	if !pattern.Match(body) {
		result.Status = StatusWarn
		result.Message = "response did not match the category pattern"
		return result
	}

	result.Status = StatusPass
	result.Message = "OK"
	return result
}
