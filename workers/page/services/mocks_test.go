package services

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/samsterpiece/nostalgiasite/workers/page/dom"
	"github.com/samsterpiece/nostalgiasite/workers/page/domain"
)

// Mocks
type MockPageAPI struct {
	mock.Mock
}

func (m *MockPageAPI) FetchResults(ctx context.Context, year int, category string) (*domain.ResultsPayload, error) {
	args := m.Called(ctx, year, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResultsPayload), args.Error(1)
}

func (m *MockPageAPI) SubmitFact(ctx context.Context, action string, fields []dom.Field) (*domain.SubmissionResult, error) {
	args := m.Called(ctx, action, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SubmissionResult), args.Error(1)
}

type MockBackendAPI struct {
	MockPageAPI
}

func (m *MockBackendAPI) ResolveURL(ref string) (string, error) {
	args := m.Called(ref)
	return args.String(0), args.Error(1)
}

type MockSQSClient struct {
	mock.Mock
}

func (m *MockSQSClient) SendMessage(ctx context.Context, queueURL string, msg interface{}) error {
	args := m.Called(ctx, queueURL, msg)
	return args.Error(0)
}

type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) IncrBy(ctx context.Context, key string, value int64) (int64, error) {
	args := m.Called(ctx, key, value)
	return int64(args.Int(0)), args.Error(1)
}

func (m *MockRedisClient) SAdd(ctx context.Context, key string, members ...interface{}) (int64, error) {
	args := m.Called(ctx, key, members)
	return int64(args.Int(0)), args.Error(1)
}

type MockPageFetcher struct {
	mock.Mock
}

func (m *MockPageFetcher) Fetch(ctx context.Context, url string) (*http.Response, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*http.Response), args.Error(1)
}

type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) UploadBytes(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, bucket, key, data, contentType)
	return args.String(0), args.Error(1)
}

// gatedAPI answers FetchResults from canned payloads. A category with a gate blocks until
// the gate is closed, whatever happens to the request context.
type gatedAPI struct {
	mu       sync.Mutex
	calls    []string
	gates    map[string]chan struct{}
	payloads map[string]*domain.ResultsPayload
	errs     map[string]error
}

func newGatedAPI() *gatedAPI {
	return &gatedAPI{
		gates:    make(map[string]chan struct{}),
		payloads: make(map[string]*domain.ResultsPayload),
		errs:     make(map[string]error),
	}
}

func (g *gatedAPI) FetchResults(_ context.Context, _ int, category string) (*domain.ResultsPayload, error) {
	g.mu.Lock()
	g.calls = append(g.calls, category)
	gate := g.gates[category]
	payload, err := g.payloads[category], g.errs[category]
	g.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return payload, err
}

func (g *gatedAPI) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

const resultsPage = `<!DOCTYPE html>
<html>
<head><script>var grad_year = "{{YEAR}}";</script></head>
<body>
	<div class="categories">
		<button class="category-button" data-category="all">All</button>
		<button class="category-button" data-category="music">Music</button>
		<button class="category-button" data-category="sports">Sports</button>
	</div>
	<div id="error-message" style="display: none;"></div>
	<div id="loading" style="display: none;">Loading...</div>
	<div id="facts-container">
		<div id="facts-list"><p>Server rendered fact</p></div>
		<ul id="significant-events-list"></ul>
		<div id="recommended-reading-list"></div>
	</div>
	<form id="factSubmissionForm" action="/results/{{YEAR}}/submit/">
		<input type="hidden" name="csrfmiddlewaretoken" value="csrf123">
		<input type="text" name="title">
		<textarea name="description"></textarea>
		<input type="email" name="email">
		<input type="radio" id="notify_yes" name="want_notification" value="yes">
		<input type="radio" id="notify_no" name="want_notification" value="no" checked>
		<div class="notification-fields">
			<input type="text" name="notification_name">
		</div>
		<button type="submit">Submit</button>
	</form>
</body>
</html>`

func pageHTML(year string) string {
	return strings.ReplaceAll(resultsPage, "{{YEAR}}", year)
}

func parsePage(t *testing.T, year string) *dom.Document {
	t.Helper()
	doc, err := dom.Parse(strings.NewReader(pageHTML(year)))
	require.NoError(t, err)
	return doc
}

// startLoop runs a loop for the duration of the test.
func startLoop(t *testing.T) *EventLoop {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	loop := NewEventLoop(nil)
	go loop.Run(ctx)
	t.Cleanup(cancel)
	return loop
}

func samplePayload() *domain.ResultsPayload {
	return &domain.ResultsPayload{
		Facts: []domain.FactRecord{
			{Year: 1999, Title: "Y2K preparations", Description: "Everyone stocked up.", SourceURL: "https://example.com/y2k"},
			{Year: 1999, Title: "Napster launches", Description: "File sharing arrives.", SourceURL: "/facts/napster/"},
		},
		SignificantEvents: []domain.EventRecord{
			{Year: 1999, Title: "Euro introduced", Description: "Eleven countries adopt it.", SourceURL: "https://example.com/euro"},
		},
		RecommendedReading: []domain.BookRecord{
			{Title: "Harry Potter", Author: "J. K. Rowling", Categories: []string{"Fiction", "Fantasy"}, SourceURL: "https://example.com/hp"},
		},
	}
}
