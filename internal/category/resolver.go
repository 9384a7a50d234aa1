package category

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	oerrors "github.com/ickyicky/folder-observer/internal/errors"
)

// DefaultCategory is used when no better answer is available.
const DefaultCategory = "other"

// Source tells where a Resolution came from.
type Source string

const (
	// SourceSeed is a hit on the startup seed table.
	SourceSeed Source = "seed"
	// SourceCache is a hit on a value resolved earlier in this process.
	SourceCache Source = "cache"
	// SourceRemote is a fresh answer from the lookup service.
	SourceRemote Source = "remote"
	// SourceFallback means the default category was used.
	SourceFallback Source = "fallback"
)

// Resolution is the outcome of resolving one extension.
type Resolution struct {
	// Extension is the normalized extension that was resolved.
	Extension string
	// Category is the directory label to sort into. Never empty.
	Category string
	// Source is where Category came from.
	Source Source
	// Err explains a fallback. Nil for every other source, and for
	// extensionless files which fall back without trying a lookup.
	Err error
}

// FellBack reports whether the default category was used.
func (r Resolution) FellBack() bool {
	return r.Source == SourceFallback
}

// Options configures a Resolver.
type Options struct {
	// BaseURL is joined with the extension to build the lookup URL.
	// Empty disables remote lookups.
	BaseURL string
	// Pattern extracts the label from the lookup document. When it has a
	// capture group, the first group is used.
	Pattern string
	// Default is the fallback category (default: "other").
	Default string
	// Timeout bounds a single lookup request (default: 10s).
	Timeout time.Duration
	// Retry configures retries of failed lookups (default: no retries).
	Retry *oerrors.RetryConfig
	// BreakerFailures consecutive failures open the circuit (default: 5, <0 disables).
	BreakerFailures int
	// BreakerReset is how long the circuit stays open (default: 30s).
	BreakerReset time.Duration
	// Fetcher overrides the HTTP client.
	Fetcher Fetcher
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Resolver maps extensions to categories with mandatory memoization: at
// most one remote lookup is made per distinct extension per process.
type Resolver struct {
	cache    *Cache
	baseURL  string
	pattern  *regexp.Regexp
	fallback string
	timeout  time.Duration
	retry    oerrors.RetryConfig
	fetcher  Fetcher
	breaker  *oerrors.CircuitBreaker
	group    singleflight.Group
	logger   *slog.Logger

	lookups atomic.Int64
}

// NewResolver creates a resolver backed by cache.
// A nil cache starts empty.
func NewResolver(cache *Cache, opts Options) (*Resolver, error) {
	if cache == nil {
		cache = NewCache(nil)
	}
	if opts.Default == "" {
		opts.Default = DefaultCategory
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerReset <= 0 {
		opts.BreakerReset = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	r := &Resolver{
		cache:    cache,
		baseURL:  opts.BaseURL,
		fallback: opts.Default,
		timeout:  opts.Timeout,
		retry:    oerrors.DefaultRetryConfig(),
		fetcher:  opts.Fetcher,
		logger:   opts.Logger,
		breaker: oerrors.NewCircuitBreaker("category-lookup",
			oerrors.WithMaxFailures(opts.BreakerFailures),
			oerrors.WithResetTimeout(opts.BreakerReset),
		),
	}
	if opts.Retry != nil {
		r.retry = *opts.Retry
	}
	if r.fetcher == nil {
		r.fetcher = NewHTTPFetcher(opts.Timeout)
	}

	if opts.Pattern != "" {
		re, err := regexp.Compile(opts.Pattern)
		if err != nil {
			return nil, oerrors.New(oerrors.ErrCodeInvalidPattern,
				fmt.Sprintf("invalid category pattern %q", opts.Pattern), err)
		}
		r.pattern = re
	}

	return r, nil
}

// Cache returns the resolver's cache.
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// Default returns the fallback category.
func (r *Resolver) Default() string {
	return r.fallback
}

// Lookups returns how many remote lookups have been attempted.
func (r *Resolver) Lookups() int64 {
	return r.lookups.Load()
}

// Resolve returns the category for ext. It never fails: any lookup problem
// yields the default category, and that answer is memoized as well.
func (r *Resolver) Resolve(ctx context.Context, ext string) Resolution {
	ext = NormalizeExtension(ext)

	if res, ok := r.cached(ext); ok {
		return res
	}

	if ext == "" {
		// Not cached: an empty key would show up as a blank extension.
		return Resolution{Category: r.fallback, Source: SourceFallback}
	}
	if r.baseURL == "" || r.pattern == nil {
		res := Resolution{Extension: ext, Category: r.fallback, Source: SourceFallback}
		r.cache.Set(ext, res.Category)
		return res
	}

	v, _, _ := r.group.Do(ext, func() (any, error) {
		// Another caller may have finished between the cache miss and here.
		if res, ok := r.cached(ext); ok {
			return res, nil
		}
		res := r.lookup(ctx, ext)
		r.cache.Set(ext, res.Category)
		return res, nil
	})

	return v.(Resolution)
}

func (r *Resolver) cached(ext string) (Resolution, bool) {
	cat, ok := r.cache.Get(ext)
	if !ok {
		return Resolution{}, false
	}
	src := SourceCache
	if r.cache.IsSeeded(ext) {
		src = SourceSeed
	}
	return Resolution{Extension: ext, Category: cat, Source: src}, true
}

// lookup asks the remote service for ext. Failures fall back to the default.
func (r *Resolver) lookup(ctx context.Context, ext string) Resolution {
	target := strings.TrimRight(r.baseURL, "/") + "/" + url.PathEscape(ext)

	body, err := oerrors.CircuitCall(r.breaker, func() ([]byte, error) {
		return oerrors.RetryWithResult(ctx, r.retry, func() ([]byte, error) {
			r.lookups.Add(1)
			reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()
			return r.fetcher.Fetch(reqCtx, target)
		})
	})
	if err != nil {
		return r.fallbackFor(ext, classifyLookupError(err, target))
	}

	label, err := r.extract(body)
	if err != nil {
		return r.fallbackFor(ext, oerrors.New(oerrors.ErrCodeLookupNoMatch, err.Error(), nil).
			WithDetail("url", target))
	}

	r.logger.Debug("category resolved",
		slog.String("extension", ext),
		slog.String("category", label),
		slog.String("source", string(SourceRemote)))

	return Resolution{Extension: ext, Category: label, Source: SourceRemote}
}

func (r *Resolver) extract(body []byte) (string, error) {
	m := r.pattern.FindSubmatch(body)
	if m == nil {
		return "", errors.New("lookup response did not match category pattern")
	}

	raw := m[0]
	if len(m) > 1 {
		raw = m[1]
	}

	label := NormalizeLabel(html.UnescapeString(string(raw)))
	if label == "" {
		return "", errors.New("lookup response contained an empty category")
	}
	return label, nil
}

func (r *Resolver) fallbackFor(ext string, err error) Resolution {
	attrs := append([]any{
		slog.String("extension", ext),
		slog.String("category", r.fallback),
	}, oerrors.LogAttrs(err)...)
	r.logger.Warn("category lookup failed, using default", attrs...)

	return Resolution{Extension: ext, Category: r.fallback, Source: SourceFallback, Err: err}
}

func classifyLookupError(err error, target string) error {
	if errors.Is(err, oerrors.ErrCircuitOpen) {
		return oerrors.New(oerrors.ErrCodeLookupCircuitOpen, "lookup service marked unavailable", err).
			WithDetail("url", target)
	}
	if _, ok := oerrors.As(err); ok {
		return err
	}
	return oerrors.New(oerrors.ErrCodeLookupTransport, "lookup failed", err).
		WithDetail("url", target)
}
