package services

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/samsterpiece/nostalgiasite/workers/page/dom"
	"github.com/samsterpiece/nostalgiasite/workers/page/domain"
)

// Consumer-side interfaces
type SQSClient interface {
	SendMessage(ctx context.Context, queueURL string, messageBody interface{}) error
}

type RedisClient interface {
	IncrBy(ctx context.Context, key string, value int64) (int64, error)
	SAdd(ctx context.Context, key string, members ...interface{}) (int64, error)
}

type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*http.Response, error)
}

type SnapshotStore interface {
	UploadBytes(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error)
}

// BackendAPI is the page API plus URL resolution against the backend.
type BackendAPI interface {
	PageAPI
	ResolveURL(ref string) (string, error)
}

// PrerenderService drives results pages headlessly: it loads the page for a year, lets the
// page components run to completion, and publishes what the visitor would have seen.
type PrerenderService struct {
	sqsClient      SQSClient
	redisClient    RedisClient
	pageFetcher    PageFetcher
	snapshots      SnapshotStore
	api            BackendAPI
	writerQueueURL string
	indexQueueURL  string
	bucket         string
	requestTimeout time.Duration
	logger         *zap.Logger
	newID          func() string
	now            func() time.Time
}

// Functional Options Pattern
type PrerenderOption func(*PrerenderService)

func WithSQSClient(c SQSClient) PrerenderOption {
	return func(s *PrerenderService) { s.sqsClient = c }
}

func WithRedisClient(c RedisClient) PrerenderOption {
	return func(s *PrerenderService) { s.redisClient = c }
}

func WithPageFetcher(c PageFetcher) PrerenderOption {
	return func(s *PrerenderService) { s.pageFetcher = c }
}

func WithSnapshotStore(st SnapshotStore, bucket string) PrerenderOption {
	return func(s *PrerenderService) {
		s.snapshots = st
		s.bucket = bucket
	}
}

func WithBackendAPI(api BackendAPI) PrerenderOption {
	return func(s *PrerenderService) { s.api = api }
}

func WithWriterQueue(url string) PrerenderOption {
	return func(s *PrerenderService) { s.writerQueueURL = url }
}

// WithIndexerQueue makes prerenders publish their records for search. Unset, nothing is indexed.
func WithIndexerQueue(url string) PrerenderOption {
	return func(s *PrerenderService) { s.indexQueueURL = url }
}

func WithPageRequestTimeout(d time.Duration) PrerenderOption {
	return func(s *PrerenderService) { s.requestTimeout = d }
}

func WithServiceLogger(l *zap.Logger) PrerenderOption {
	return func(s *PrerenderService) { s.logger = l }
}

func WithIDGenerator(fn func() string) PrerenderOption {
	return func(s *PrerenderService) { s.newID = fn }
}

func NewPrerenderService(opts ...PrerenderOption) *PrerenderService {
	s := &PrerenderService{
		requestTimeout: DefaultRequestTimeout,
		logger:         zap.NewNop(),
		newID:          func() string { return uuid.New().String() },
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// session is one headless page run.
type session struct {
	page      *Page
	loop      *EventLoop
	stop      context.CancelFunc
	fetched   *FetchOutcome
	submitted *SubmissionOutcome
}

func (s *PrerenderService) ProcessMessage(ctx context.Context, msg domain.PageMessage) error {
	if msg.Year <= 0 {
		return fmt.Errorf("invalid year %d in page message", msg.Year)
	}
	if msg.Category == "" {
		msg.Category = domain.CategoryAll
	}
	log := s.logger.With(zap.Int("year", msg.Year), zap.String("category", msg.Category), zap.String("action", msg.Action))
	log.Info("processing page message")

	sess, err := s.open(ctx, msg.Year, log)
	if err != nil {
		return err
	}
	defer sess.stop()

	switch msg.Action {
	case domain.ActionPrerender, "":
		return s.prerender(ctx, sess, msg, log)
	case domain.ActionSubmitFact:
		return s.submitFact(ctx, sess, msg, log)
	default:
		return fmt.Errorf("unknown page action %q", msg.Action)
	}
}

// open loads the results page for year and starts its components.
func (s *PrerenderService) open(ctx context.Context, year int, log *zap.Logger) (*session, error) {
	pageURL, err := s.api.ResolveURL(fmt.Sprintf("/results/%d/", year))
	if err != nil {
		return nil, err
	}

	resp, err := s.pageFetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("non-200 status code for page %s: %d", pageURL, resp.StatusCode)
	}

	doc, err := dom.Parse(resp.Body)
	if err != nil {
		return nil, err
	}

	loopCtx, stop := context.WithCancel(context.Background())
	loop := NewEventLoop(log)
	go loop.Run(loopCtx)

	sess := &session{loop: loop, stop: stop}
	page, err := NewPage(doc, ConfigFromDocument(doc, pageURL), s.api, loop,
		WithParentContext(ctx),
		WithLogger(log),
		WithRequestTimeout(s.requestTimeout),
		WithPageFetchObserver(func(o FetchOutcome) { sess.fetched = &o }),
		WithPageSubmissionObserver(func(o SubmissionOutcome) { sess.submitted = &o }),
	)
	if err != nil {
		stop()
		return nil, err
	}
	sess.page = page

	var startErr error
	loop.Dispatch(func() { startErr = page.Start() })
	if startErr != nil {
		stop()
		return nil, fmt.Errorf("page %s did not start: %w", pageURL, startErr)
	}
	return sess, nil
}

func (s *PrerenderService) prerender(ctx context.Context, sess *session, msg domain.PageMessage, log *zap.Logger) error {
	if msg.Category != domain.CategoryAll {
		var selectErr error
		sess.loop.Dispatch(func() { selectErr = sess.page.Categories.SelectCategory(msg.Category) })
		if selectErr != nil {
			return selectErr
		}
	}
	sess.loop.Idle()

	if sess.fetched == nil {
		return fmt.Errorf("no results were rendered for %d/%s", msg.Year, msg.Category)
	}
	if sess.fetched.Err != nil {
		return fmt.Errorf("results for %d/%s: %w", msg.Year, msg.Category, sess.fetched.Err)
	}

	var buf bytes.Buffer
	var renderErr error
	sess.loop.Dispatch(func() { renderErr = sess.page.Render(&buf) })
	if renderErr != nil {
		return fmt.Errorf("failed to render page: %w", renderErr)
	}

	key := fmt.Sprintf("snapshots/%d/%s/%s.html", msg.Year, url.PathEscape(msg.Category), s.newID())
	s3Path, err := s.snapshots.UploadBytes(ctx, s.bucket, key, buf.Bytes(), "text/html; charset=utf-8")
	if err != nil {
		return err
	}
	log.Info("uploaded snapshot", zap.String("s3_path", s3Path))

	if _, err := s.redisClient.IncrBy(ctx, fmt.Sprintf(domain.RedisKeyRenders, msg.Year), 1); err != nil {
		log.Warn("failed to count render", zap.Error(err))
	}
	if _, err := s.redisClient.SAdd(ctx, fmt.Sprintf(domain.RedisKeyCategories, msg.Year), msg.Category); err != nil {
		log.Warn("failed to record category", zap.Error(err))
	}

	payload := sess.fetched.Payload
	writerMsg := domain.WriterMessage{
		Type:       domain.MsgTypeSnapshot,
		Year:       msg.Year,
		Category:   msg.Category,
		S3Path:     s3Path,
		Facts:      len(payload.Facts),
		Events:     len(payload.SignificantEvents),
		Books:      len(payload.RecommendedReading),
		RenderedAt: s.now().UTC().Format(time.RFC3339),
	}
	if err := s.sqsClient.SendMessage(ctx, s.writerQueueURL, writerMsg); err != nil {
		return fmt.Errorf("failed to send snapshot to writer: %w", err)
	}

	if s.indexQueueURL != "" {
		indexMsg := domain.NewIndexMessage(msg.Year, msg.Category, s3Path, *payload)
		if err := s.sqsClient.SendMessage(ctx, s.indexQueueURL, indexMsg); err != nil {
			log.Warn("failed to send records to indexer", zap.Error(err))
		}
	}
	return nil
}

func (s *PrerenderService) submitFact(ctx context.Context, sess *session, msg domain.PageMessage, log *zap.Logger) error {
	if sess.page.Submission == nil {
		return fmt.Errorf("page for %d has no fact submission form", msg.Year)
	}

	names := make([]string, 0, len(msg.Fields))
	for name := range msg.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var fillErr error
	sess.loop.Dispatch(func() {
		for _, name := range names {
			if err := sess.page.Submission.SetField(name, msg.Fields[name]); err != nil {
				fillErr = err
				return
			}
		}
		sess.page.Submission.Submit()
	})
	if fillErr != nil {
		return fillErr
	}
	sess.loop.Idle()

	if sess.submitted == nil {
		return fmt.Errorf("fact submission for %d did not complete", msg.Year)
	}
	outcome := sess.submitted
	log.Info("fact submission finished",
		zap.Bool("success", outcome.Success),
		zap.Bool("rejected", IsValidationError(outcome.Err)),
	)

	if outcome.Success {
		if _, err := s.redisClient.IncrBy(ctx, fmt.Sprintf(domain.RedisKeySubmissions, msg.Year), 1); err != nil {
			log.Warn("failed to count submission", zap.Error(err))
		}
	}

	writerMsg := domain.WriterMessage{
		Type:       domain.MsgTypeFactSubmission,
		Year:       msg.Year,
		Success:    outcome.Success,
		Message:    outcome.Message,
		RenderedAt: s.now().UTC().Format(time.RFC3339),
	}
	if err := s.sqsClient.SendMessage(ctx, s.writerQueueURL, writerMsg); err != nil {
		return fmt.Errorf("failed to send submission outcome to writer: %w", err)
	}
	return nil
}
