package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/samsterpiece/nostalgiasite/workers/page/dom"
	"github.com/samsterpiece/nostalgiasite/workers/page/domain"
)

type prerenderMocks struct {
	sqs       *MockSQSClient
	redis     *MockRedisClient
	fetcher   *MockPageFetcher
	snapshots *MockSnapshotStore
	api       *MockBackendAPI
}

func newPrerenderService(t *testing.T) (*PrerenderService, *prerenderMocks) {
	t.Helper()
	m := &prerenderMocks{
		sqs:       new(MockSQSClient),
		redis:     new(MockRedisClient),
		fetcher:   new(MockPageFetcher),
		snapshots: new(MockSnapshotStore),
		api:       new(MockBackendAPI),
	}
	s := NewPrerenderService(
		WithSQSClient(m.sqs),
		WithRedisClient(m.redis),
		WithPageFetcher(m.fetcher),
		WithSnapshotStore(m.snapshots, "snapshots-bucket"),
		WithBackendAPI(m.api),
		WithWriterQueue("writer"),
		WithPageRequestTimeout(time.Second),
		WithIDGenerator(func() string { return "snap-1" }),
	)
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return s, m
}

func htmlResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func (m *prerenderMocks) servePage(year, body string) {
	url := "http://backend/results/" + year + "/"
	m.api.On("ResolveURL", "/results/"+year+"/").Return(url, nil)
	m.fetcher.On("Fetch", mock.Anything, url).Return(htmlResponse(http.StatusOK, body), nil)
}

func TestProcessMessage_PrerenderAll(t *testing.T) {
	s, m := newPrerenderService(t)
	m.servePage("1999", pageHTML("1999"))
	m.api.On("FetchResults", mock.Anything, 1999, "all").Return(samplePayload(), nil)

	m.snapshots.On("UploadBytes", mock.Anything, "snapshots-bucket", "snapshots/1999/all/snap-1.html",
		mock.MatchedBy(func(data []byte) bool {
			return bytes.Contains(data, []byte("Y2K preparations")) && bytes.Contains(data, []byte(`class="book-item"`))
		}), "text/html; charset=utf-8").
		Return("s3://snapshots-bucket/snapshots/1999/all/snap-1.html", nil)
	m.redis.On("IncrBy", mock.Anything, "nostalgia:1999:renders", int64(1)).Return(1, nil)
	m.redis.On("SAdd", mock.Anything, "nostalgia:1999:categories", []interface{}{"all"}).Return(1, nil)
	m.sqs.On("SendMessage", mock.Anything, "writer", domain.WriterMessage{
		Type:       domain.MsgTypeSnapshot,
		Year:       1999,
		Category:   "all",
		S3Path:     "s3://snapshots-bucket/snapshots/1999/all/snap-1.html",
		Facts:      2,
		Events:     1,
		Books:      1,
		RenderedAt: "2024-05-01T12:00:00Z",
	}).Return(nil)

	err := s.ProcessMessage(context.Background(), domain.PageMessage{Action: domain.ActionPrerender, Year: 1999})

	require.NoError(t, err)
	m.snapshots.AssertExpectations(t)
	m.redis.AssertExpectations(t)
	m.sqs.AssertExpectations(t)
}

func TestProcessMessage_PrerenderCategory(t *testing.T) {
	s, m := newPrerenderService(t)
	m.servePage("1999", pageHTML("1999"))
	m.api.On("FetchResults", mock.Anything, 1999, "all").Return(samplePayload(), nil)
	m.api.On("FetchResults", mock.Anything, 1999, "music").Return(&domain.ResultsPayload{
		Facts: []domain.FactRecord{{Year: 1999, Title: "Britney debuts", SourceURL: "https://example.com/britney"}},
	}, nil)

	m.snapshots.On("UploadBytes", mock.Anything, "snapshots-bucket", "snapshots/1999/music/snap-1.html",
		mock.MatchedBy(func(data []byte) bool {
			return bytes.Contains(data, []byte("Britney debuts")) &&
				!bytes.Contains(data, []byte("Y2K preparations")) &&
				bytes.Contains(data, []byte(`class="category-button active" data-category="music"`))
		}), mock.Anything).
		Return("s3://snapshots-bucket/snapshots/1999/music/snap-1.html", nil)
	m.redis.On("IncrBy", mock.Anything, mock.Anything, mock.Anything).Return(1, nil)
	m.redis.On("SAdd", mock.Anything, "nostalgia:1999:categories", []interface{}{"music"}).Return(1, nil)
	m.sqs.On("SendMessage", mock.Anything, "writer", mock.MatchedBy(func(msg domain.WriterMessage) bool {
		return msg.Category == "music" && msg.Facts == 1 && msg.Events == 0 && msg.Books == 0
	})).Return(nil)

	err := s.ProcessMessage(context.Background(), domain.PageMessage{Action: domain.ActionPrerender, Year: 1999, Category: "music"})

	require.NoError(t, err)
	m.snapshots.AssertExpectations(t)
	m.sqs.AssertExpectations(t)
}

func TestProcessMessage_RedisFailureIsNotFatal(t *testing.T) {
	s, m := newPrerenderService(t)
	m.servePage("1999", pageHTML("1999"))
	m.api.On("FetchResults", mock.Anything, 1999, "all").Return(samplePayload(), nil)
	m.snapshots.On("UploadBytes", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("s3://b/k", nil)
	m.redis.On("IncrBy", mock.Anything, mock.Anything, mock.Anything).Return(0, errors.New("redis down"))
	m.redis.On("SAdd", mock.Anything, mock.Anything, mock.Anything).Return(0, errors.New("redis down"))
	m.sqs.On("SendMessage", mock.Anything, "writer", mock.Anything).Return(nil)

	err := s.ProcessMessage(context.Background(), domain.PageMessage{Year: 1999})

	require.NoError(t, err)
	m.sqs.AssertExpectations(t)
}

func TestProcessMessage_FetchFailureSkipsSnapshot(t *testing.T) {
	s, m := newPrerenderService(t)
	m.servePage("1999", pageHTML("1999"))
	m.api.On("FetchResults", mock.Anything, 1999, "all").Return(nil, &domain.HTTPError{Status: 503})

	err := s.ProcessMessage(context.Background(), domain.PageMessage{Action: domain.ActionPrerender, Year: 1999})

	var httpErr *domain.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 503, httpErr.Status)
	m.snapshots.AssertNotCalled(t, "UploadBytes", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.sqs.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessMessage_PageWithoutYear(t *testing.T) {
	s, m := newPrerenderService(t)
	m.servePage("1999", pageHTML(""))

	err := s.ProcessMessage(context.Background(), domain.PageMessage{Year: 1999})

	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "did not start")
	m.api.AssertNotCalled(t, "FetchResults", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessMessage_Non200Page(t *testing.T) {
	s, m := newPrerenderService(t)
	m.api.On("ResolveURL", "/results/1999/").Return("http://backend/results/1999/", nil)
	m.fetcher.On("Fetch", mock.Anything, "http://backend/results/1999/").Return(htmlResponse(http.StatusNotFound, "missing"), nil)

	err := s.ProcessMessage(context.Background(), domain.PageMessage{Year: 1999})

	assert.EqualError(t, err, "non-200 status code for page http://backend/results/1999/: 404")
}

func TestProcessMessage_InvalidMessages(t *testing.T) {
	s, m := newPrerenderService(t)

	assert.EqualError(t, s.ProcessMessage(context.Background(), domain.PageMessage{Year: 0}), "invalid year 0 in page message")

	m.servePage("1999", pageHTML("1999"))
	m.api.On("FetchResults", mock.Anything, 1999, "all").Return(samplePayload(), nil)
	assert.EqualError(t, s.ProcessMessage(context.Background(), domain.PageMessage{Action: "delete", Year: 1999}), `unknown page action "delete"`)
}

func TestProcessMessage_UnknownCategory(t *testing.T) {
	s, m := newPrerenderService(t)
	m.servePage("1999", pageHTML("1999"))
	m.api.On("FetchResults", mock.Anything, 1999, "all").Return(samplePayload(), nil)

	err := s.ProcessMessage(context.Background(), domain.PageMessage{Year: 1999, Category: "cooking"})

	assert.EqualError(t, err, `no category button for "cooking"`)
	m.snapshots.AssertNotCalled(t, "UploadBytes", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessMessage_SubmitFact(t *testing.T) {
	s, m := newPrerenderService(t)
	m.servePage("1999", pageHTML("1999"))
	m.api.On("FetchResults", mock.Anything, 1999, "all").Return(samplePayload(), nil)
	m.api.On("SubmitFact", mock.Anything, "/results/1999/submit/", mock.MatchedBy(func(fields []dom.Field) bool {
		return dom.Get(fields, "csrfmiddlewaretoken") == "csrf123" &&
			dom.Get(fields, "title") == "Y2K" &&
			dom.Get(fields, "email") == "sam@example.com" &&
			dom.Get(fields, "want_notification") == "yes"
	})).Return(&domain.SubmissionResult{Success: true}, nil)
	m.redis.On("IncrBy", mock.Anything, "nostalgia:1999:submissions", int64(1)).Return(1, nil)
	m.sqs.On("SendMessage", mock.Anything, "writer", domain.WriterMessage{
		Type:       domain.MsgTypeFactSubmission,
		Year:       1999,
		Success:    true,
		Message:    domain.MsgSubmitSuccess,
		RenderedAt: "2024-05-01T12:00:00Z",
	}).Return(nil)

	err := s.ProcessMessage(context.Background(), domain.PageMessage{
		Action: domain.ActionSubmitFact,
		Year:   1999,
		Fields: map[string]string{
			"title":             "Y2K",
			"email":             "sam@example.com",
			"want_notification": "yes",
		},
	})

	require.NoError(t, err)
	m.api.AssertExpectations(t)
	m.redis.AssertExpectations(t)
	m.sqs.AssertExpectations(t)
}

func TestProcessMessage_SubmitFactRejected(t *testing.T) {
	s, m := newPrerenderService(t)
	m.servePage("1999", pageHTML("1999"))
	m.api.On("FetchResults", mock.Anything, 1999, "all").Return(samplePayload(), nil)
	m.api.On("SubmitFact", mock.Anything, mock.Anything, mock.Anything).Return(&domain.SubmissionResult{
		Error: domain.FieldErrors{{Field: "email", Messages: []string{"Invalid format"}}},
	}, nil)
	m.sqs.On("SendMessage", mock.Anything, "writer", mock.MatchedBy(func(msg domain.WriterMessage) bool {
		return msg.Type == domain.MsgTypeFactSubmission && !msg.Success &&
			strings.Contains(msg.Message, "email: Invalid format")
	})).Return(nil)

	err := s.ProcessMessage(context.Background(), domain.PageMessage{
		Action: domain.ActionSubmitFact,
		Year:   1999,
		Fields: map[string]string{"email": "nope"},
	})

	require.NoError(t, err)
	m.redis.AssertNotCalled(t, "IncrBy", mock.Anything, mock.Anything, mock.Anything)
	m.sqs.AssertExpectations(t)
}

func TestProcessMessage_SubmitFactUnknownField(t *testing.T) {
	s, m := newPrerenderService(t)
	m.servePage("1999", pageHTML("1999"))
	m.api.On("FetchResults", mock.Anything, 1999, "all").Return(samplePayload(), nil)

	err := s.ProcessMessage(context.Background(), domain.PageMessage{
		Action: domain.ActionSubmitFact,
		Year:   1999,
		Fields: map[string]string{"nickname": "x"},
	})

	assert.EqualError(t, err, `form has no field "nickname"`)
	m.api.AssertNotCalled(t, "SubmitFact", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessMessage_PrerenderPublishesRecordsForIndexing(t *testing.T) {
	s, m := newPrerenderService(t)
	WithIndexerQueue("indexer")(s)
	m.servePage("1999", pageHTML("1999"))
	m.api.On("FetchResults", mock.Anything, 1999, "all").Return(samplePayload(), nil)
	m.snapshots.On("UploadBytes", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("s3://snapshots-bucket/snapshots/1999/all/snap-1.html", nil)
	m.redis.On("IncrBy", mock.Anything, mock.Anything, mock.Anything).Return(1, nil)
	m.redis.On("SAdd", mock.Anything, mock.Anything, mock.Anything).Return(1, nil)
	m.sqs.On("SendMessage", mock.Anything, "writer", mock.Anything).Return(nil)
	m.sqs.On("SendMessage", mock.Anything, "indexer", domain.IndexMessage{
		Year:     1999,
		Category: "all",
		S3Path:   "s3://snapshots-bucket/snapshots/1999/all/snap-1.html",
		Records: []domain.ResultDocument{
			{Kind: "fact", Year: 1999, Title: "Y2K preparations", Description: "Everyone stocked up.", SourceURL: "https://example.com/y2k"},
			{Kind: "fact", Year: 1999, Title: "Napster launches", Description: "File sharing arrives.", SourceURL: "/facts/napster/"},
			{Kind: "event", Year: 1999, Title: "Euro introduced", Description: "Eleven countries adopt it.", SourceURL: "https://example.com/euro"},
			{Kind: "book", Year: 1999, Title: "Harry Potter", Author: "J. K. Rowling", Categories: []string{"Fiction", "Fantasy"}, SourceURL: "https://example.com/hp"},
		},
	}).Return(errors.New("queue unavailable"))

	err := s.ProcessMessage(context.Background(), domain.PageMessage{Action: domain.ActionPrerender, Year: 1999})

	// Indexing is best effort; the snapshot itself succeeded.
	require.NoError(t, err)
	m.sqs.AssertExpectations(t)
}
