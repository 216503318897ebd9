package services

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/samsterpiece/nostalgiasite/workers/page/dom"
	"github.com/samsterpiece/nostalgiasite/workers/page/domain"
)

// PageAPI is everything the page components need from the backend.
type PageAPI interface {
	ResultsAPI
	SubmissionAPI
}

// Page is one loaded results page with its components bound to the document.
type Page struct {
	doc *dom.Document
	cfg PageConfig

	Renderer   *ResultRenderer
	Results    *ResultsFetcher
	Categories *CategorySelector
	Submission *FactSubmissionController
}

type pageOptions struct {
	ctx                context.Context
	logger             *zap.Logger
	notifier           Notifier
	timeout            time.Duration
	fetchObserver      func(FetchOutcome)
	submissionObserver func(SubmissionOutcome)
}

type PageOption func(*pageOptions)

func WithLogger(l *zap.Logger) PageOption {
	return func(o *pageOptions) { o.logger = l }
}

// WithParentContext ties the page's requests to ctx, typically the job that loaded the page.
func WithParentContext(ctx context.Context) PageOption {
	return func(o *pageOptions) { o.ctx = ctx }
}

func WithNotifier(n Notifier) PageOption {
	return func(o *pageOptions) { o.notifier = n }
}

func WithRequestTimeout(d time.Duration) PageOption {
	return func(o *pageOptions) { o.timeout = d }
}

func WithPageFetchObserver(fn func(FetchOutcome)) PageOption {
	return func(o *pageOptions) { o.fetchObserver = fn }
}

func WithPageSubmissionObserver(fn func(SubmissionOutcome)) PageOption {
	return func(o *pageOptions) { o.submissionObserver = fn }
}

// ConfigFromDocument reads the page context injected by the server. A missing or
// non-numeric grad_year leaves Year at zero; it is reported when the page starts.
func ConfigFromDocument(doc *dom.Document, pageURL string) PageConfig {
	cfg := PageConfig{PageURL: pageURL}
	if raw, ok := doc.ScriptVar(domain.PageVarGradYear); ok {
		if year, err := strconv.Atoi(raw); err == nil {
			cfg.Year = year
		}
	}
	return cfg
}

// NewPage binds the components to doc. The results elements are required; the fact form
// is optional and Submission stays nil without it.
func NewPage(doc *dom.Document, cfg PageConfig, api PageAPI, loop *EventLoop, opts ...PageOption) (*Page, error) {
	o := pageOptions{ctx: context.Background(), logger: zap.NewNop(), timeout: DefaultRequestTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.notifier == nil {
		o.notifier = NewLogNotifier(o.logger)
	}

	view := ResultsView{
		FactsContainer: doc.ByID(domain.IDFactsContainer),
		FactsList:      doc.ByID(domain.IDFactsList),
		Loading:        doc.ByID(domain.IDLoading),
		EventsList:     doc.ByID(domain.IDSignificantEventsList),
		ReadingList:    doc.ByID(domain.IDRecommendedReadingList),
		ErrorMessage:   doc.ByID(domain.IDErrorMessage),
	}
	required := map[string]*dom.Element{
		domain.IDFactsContainer:         view.FactsContainer,
		domain.IDLoading:                view.Loading,
		domain.IDSignificantEventsList:  view.EventsList,
		domain.IDRecommendedReadingList: view.ReadingList,
		domain.IDErrorMessage:           view.ErrorMessage,
	}
	for id, el := range required {
		if el == nil {
			return nil, fmt.Errorf("page is missing element #%s", id)
		}
	}

	p := &Page{doc: doc, cfg: cfg}
	p.Renderer = NewResultRenderer(doc)
	p.Results = NewResultsFetcher(cfg, api, loop, p.Renderer, view,
		WithFetchContext(o.ctx),
		WithFetchTimeout(o.timeout),
		WithFetchLogger(o.logger.Named("results")),
		WithFetchObserver(o.fetchObserver),
	)
	p.Categories = NewCategorySelector(doc.ByClass(domain.ClassCategoryButton), p.Results, o.logger.Named("categories"))

	if form := doc.ByID(domain.IDFactSubmissionForm); form != nil {
		fields := doc.First(domain.ClassNotificationFields)
		if fields == nil {
			return nil, fmt.Errorf("page is missing .%s", domain.ClassNotificationFields)
		}
		p.Submission = NewFactSubmissionController(SubmissionView{
			Form:               form,
			NotifyYes:          doc.ByID(domain.IDNotifyYes),
			NotificationFields: fields,
		}, cfg.PageURL, api, loop, o.notifier,
			WithSubmitContext(o.ctx),
			WithSubmitTimeout(o.timeout),
			WithSubmitLogger(o.logger.Named("submission")),
			WithSubmissionObserver(o.submissionObserver),
		)
	}
	return p, nil
}

// Start is the DOMContentLoaded handler: it settles the notification fields and loads the
// unfiltered results. It must run on the loop.
func (p *Page) Start() error {
	if p.Submission != nil {
		p.Submission.Init()
	}
	return p.Results.FetchData(domain.CategoryAll)
}

func (p *Page) Config() PageConfig { return p.cfg }

func (p *Page) Document() *dom.Document { return p.doc }

// Render writes the current document. It must run on the loop.
func (p *Page) Render(w io.Writer) error {
	return p.doc.Render(w)
}
