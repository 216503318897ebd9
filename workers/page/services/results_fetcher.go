package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/samsterpiece/nostalgiasite/workers/page/dom"
	"github.com/samsterpiece/nostalgiasite/workers/page/domain"
)

const DefaultRequestTimeout = 10 * time.Second

// Consumer-side interfaces
type ResultsAPI interface {
	FetchResults(ctx context.Context, year int, category string) (*domain.ResultsPayload, error)
}

// PageConfig is the page context the components are built with.
type PageConfig struct {
	Year    int
	PageURL string
}

// Validate fails with a *domain.ConfigError when the graduation year is missing.
func (c PageConfig) Validate() error {
	if c.Year <= 0 {
		return &domain.ConfigError{Field: domain.PageVarGradYear}
	}
	return nil
}

// ResultsView holds the elements the fetcher drives.
type ResultsView struct {
	FactsContainer *dom.Element
	FactsList      *dom.Element
	Loading        *dom.Element
	EventsList     *dom.Element
	ReadingList    *dom.Element
	ErrorMessage   *dom.Element
}

// FetchOutcome describes a fetch that was allowed to update the page.
type FetchOutcome struct {
	Category string
	Payload  *domain.ResultsPayload
	Err      error
}

// ResultsFetcher loads the results of the page's year for a category and renders them.
// All methods must run on the page's event loop.
type ResultsFetcher struct {
	cfg      PageConfig
	api      ResultsAPI
	loop     *EventLoop
	renderer *ResultRenderer
	view     ResultsView
	parent   context.Context
	timeout  time.Duration
	logger   *zap.Logger
	observer func(FetchOutcome)

	seq    uint64
	cancel context.CancelFunc
}

type FetcherOption func(*ResultsFetcher)

func WithFetchTimeout(d time.Duration) FetcherOption {
	return func(f *ResultsFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithFetchContext bounds every request; cancelling ctx aborts an in-flight fetch.
func WithFetchContext(ctx context.Context) FetcherOption {
	return func(f *ResultsFetcher) {
		if ctx != nil {
			f.parent = ctx
		}
	}
}

func WithFetchLogger(l *zap.Logger) FetcherOption {
	return func(f *ResultsFetcher) { f.logger = l }
}

// WithFetchObserver is called on the loop after every fetch that updated the page.
func WithFetchObserver(fn func(FetchOutcome)) FetcherOption {
	return func(f *ResultsFetcher) { f.observer = fn }
}

func NewResultsFetcher(cfg PageConfig, api ResultsAPI, loop *EventLoop, renderer *ResultRenderer, view ResultsView, opts ...FetcherOption) *ResultsFetcher {
	if view.FactsList == nil {
		view.FactsList = view.FactsContainer
	}
	f := &ResultsFetcher{
		cfg:      cfg,
		api:      api,
		loop:     loop,
		renderer: renderer,
		view:     view,
		parent:   context.Background(),
		timeout:  DefaultRequestTimeout,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchData starts loading the results for category ("" means all). It returns a
// *domain.ConfigError straight away, without any request, when the year is missing; every
// other failure is reported on the page once the request completes.
//
// Each call supersedes the previous one: the older request is cancelled and, should its
// answer still arrive, it is dropped without touching the page.
func (f *ResultsFetcher) FetchData(category string) error {
	if category == "" {
		category = domain.CategoryAll
	}
	if err := f.cfg.Validate(); err != nil {
		f.logger.Error("grad_year is not defined", zap.Error(err))
		f.showError(domain.MsgGradYearMissing)
		return err
	}

	if f.cancel != nil {
		f.cancel()
	}
	f.seq++
	token := f.seq
	ctx, cancel := context.WithTimeout(f.parent, f.timeout)
	f.cancel = cancel

	f.showLoading(true)
	year := f.cfg.Year
	f.logger.Info("fetching results", zap.Int("year", year), zap.String("category", category), zap.Uint64("seq", token))

	f.loop.Spawn(func() func() {
		payload, err := f.api.FetchResults(ctx, year, category)
		return func() {
			cancel()
			if token != f.seq {
				f.logger.Debug("discarding superseded results",
					zap.String("category", category), zap.Uint64("seq", token), zap.Uint64("latest", f.seq))
				return
			}
			f.cancel = nil
			f.complete(category, payload, err)
		}
	})
	return nil
}

func (f *ResultsFetcher) complete(category string, payload *domain.ResultsPayload, err error) {
	f.showLoading(false)
	if err != nil {
		// Previously rendered results stay in place under the error message.
		f.logger.Error("failed to fetch results", zap.String("category", category), zap.Error(err))
		f.showError(domain.MsgFetchFailedPrefix + reason(err))
		f.notify(FetchOutcome{Category: category, Err: err})
		return
	}

	f.hideError()
	f.renderer.PopulateFacts(f.view.FactsList, payload.Facts)
	f.renderer.PopulateEvents(f.view.EventsList, payload.SignificantEvents)
	f.renderer.PopulateReading(f.view.ReadingList, payload.RecommendedReading)
	f.logger.Info("results rendered",
		zap.String("category", category),
		zap.Int("facts", len(payload.Facts)),
		zap.Int("significant_events", len(payload.SignificantEvents)),
		zap.Int("recommended_reading", len(payload.RecommendedReading)),
	)
	f.notify(FetchOutcome{Category: category, Payload: payload})
}

func (f *ResultsFetcher) notify(o FetchOutcome) {
	if f.observer != nil {
		f.observer(o)
	}
}

func (f *ResultsFetcher) showLoading(show bool) {
	f.view.Loading.SetDisplay(show)
	f.view.FactsContainer.SetDisplay(!show)
}

func (f *ResultsFetcher) showError(message string) {
	f.view.ErrorMessage.SetText(message)
	f.view.ErrorMessage.SetDisplay(true)
}

func (f *ResultsFetcher) hideError() {
	f.view.ErrorMessage.Clear()
	f.view.ErrorMessage.SetDisplay(false)
}

// reason is the part of an error worth showing to a visitor.
func reason(err error) string {
	var netErr *domain.NetworkError
	if errors.As(err, &netErr) && errors.Is(netErr.Cause, context.DeadlineExceeded) {
		return "request timed out"
	}
	return err.Error()
}
