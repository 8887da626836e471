package fetcher

import (
	"context"
	"encoding/json"
	"os"

	"geckofetcher/pkg/coingecko"
	"geckofetcher/pkg/config"
	errs "geckofetcher/pkg/errors"
	"geckofetcher/pkg/logger"
	"geckofetcher/pkg/ratelimit"
)

// Params describes which pages to request and how
type Params struct {
	PerPage   int
	MaxPages  int
	Sparkline bool
	Periods   string
	Currency  string
	Order     string
	BaseURL   string
	Endpoint  string
}

// ParamsFromConfig maps the configuration onto request parameters using the
// public API root, USD prices and market-cap ordering
func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		PerPage:   int(cfg.NumEntriesPerPage),
		MaxPages:  int(cfg.PMax),
		Sparkline: bool(cfg.Spark),
		Periods:   cfg.ChangePeriods,
		Currency:  coingecko.DefaultCurrency,
		Order:     coingecko.DefaultOrder,
		BaseURL:   coingecko.BaseURL,
		Endpoint:  coingecko.MarketsEndpoint,
	}
}

// URL returns the request URL for page
func (p Params) URL(page int) string {
	return coingecko.MarketsURL(p.BaseURL, p.Endpoint, coingecko.MarketsQuery{
		Currency:  p.Currency,
		Order:     p.Order,
		PerPage:   p.PerPage,
		Page:      page,
		Sparkline: p.Sparkline,
		Periods:   p.Periods,
	})
}

// PageOutcome is the result of requesting one page. Err is nil on success.
type PageOutcome struct {
	Page    int
	Entries int
	Err     error
}

// OK reports whether the page contributed its entries
func (o PageOutcome) OK() bool {
	return o.Err == nil
}

// Result is the merged output of one pass over all pages
type Result struct {
	Entries []json.RawMessage
	Pages   []PageOutcome
}

// FailedPages lists the page numbers that contributed nothing
func (r *Result) FailedPages() []int {
	var failed []int
	for _, p := range r.Pages {
		if !p.OK() {
			failed = append(failed, p.Page)
		}
	}
	return failed
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithLimiter paces page requests
func WithLimiter(l ratelimit.Limiter) Option {
	return func(f *Fetcher) { f.limiter = l }
}

// WithInterrupts abandons the in-flight page whenever a value arrives on ch.
// The fetch then moves on to the next page.
func WithInterrupts(ch <-chan os.Signal) Option {
	return func(f *Fetcher) { f.interrupts = ch }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// Fetcher requests the markets listing page by page
type Fetcher struct {
	client     MarketsClient
	params     Params
	limiter    ratelimit.Limiter
	interrupts <-chan os.Signal
	logger     logger.Logger
}

// New creates a Fetcher
func New(client MarketsClient, params Params, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  client,
		params:  params,
		limiter: ratelimit.Unlimited{},
		logger:  logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Params returns the parameters the fetcher was built with
func (f *Fetcher) Params() Params {
	return f.params
}

// FetchAll requests every page in order and concatenates the entries of the
// pages that succeeded. Page failures never produce an error; the only error
// is ctx's, returned together with whatever was gathered before it ended.
func (f *Fetcher) FetchAll(ctx context.Context) (*Result, error) {
	result := &Result{
		Entries: make([]json.RawMessage, 0, f.params.PerPage*f.params.MaxPages),
		Pages:   make([]PageOutcome, 0, f.params.MaxPages),
	}

	for page := 1; page <= f.params.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		entries, err := f.FetchPage(ctx, page)
		if err != nil && ctx.Err() != nil {
			return result, ctx.Err()
		}

		outcome := PageOutcome{Page: page, Entries: len(entries), Err: err}
		result.Pages = append(result.Pages, outcome)
		if err != nil {
			logger.LogPageFailure(f.logger, page, err)
			continue
		}
		result.Entries = append(result.Entries, entries...)
	}

	return result, nil
}

// FetchPage requests and decodes a single page
func (f *Fetcher) FetchPage(ctx context.Context, page int) ([]json.RawMessage, error) {
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	defer close(done)
	go f.watchInterrupt(reqCtx, cancel, done, page)

	if err := f.limiter.Wait(reqCtx); err != nil {
		return nil, f.pageError(errs.Wrap(errs.ErrorTypeInterrupted, "wait for request slot", err), page)
	}

	url := f.params.URL(page)
	f.logger.DebugWithFields("Requesting page", map[string]interface{}{
		"page": page,
		"url":  url,
	})

	body, err := f.client.Fetch(reqCtx, url)
	if err != nil {
		return nil, f.pageError(err, page)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: "response is not a JSON array",
			Page:    page,
			Err:     err,
		}
	}

	f.logger.DebugWithFields("Got response", map[string]interface{}{
		"page":    page,
		"entries": len(entries),
	})
	return entries, nil
}

// watchInterrupt cancels the page request when an interrupt arrives before
// the page is done
func (f *Fetcher) watchInterrupt(ctx context.Context, cancel context.CancelFunc, done <-chan struct{}, page int) {
	if f.interrupts == nil {
		return
	}
	select {
	case sig := <-f.interrupts:
		f.logger.WithField("page", page).WithField("signal", sig.String()).Warn("Interrupt received, abandoning page")
		cancel()
	case <-done:
	case <-ctx.Done():
	}
}

// pageError stamps page onto a typed error, wrapping untyped ones as network
// failures
func (f *Fetcher) pageError(err error, page int) error {
	typed := &errs.Error{}
	if e, ok := err.(*errs.Error); ok {
		*typed = *e
	} else {
		typed = errs.Wrap(errs.TypeOf(err), "request failed", err)
		if typed.Type == errs.ErrorTypeUnknown {
			typed.Type = errs.ErrorTypeNetwork
		}
	}
	typed.Page = page
	return typed
}
