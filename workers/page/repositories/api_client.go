package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/samsterpiece/nostalgiasite/workers/page/dom"
	"github.com/samsterpiece/nostalgiasite/workers/page/domain"
)

// APIClient talks to the results endpoint and to the fact submission endpoint.
type APIClient struct {
	baseURL *url.URL
	client  *http.Client
	now     func() time.Time
	logger  *zap.Logger
}

type APIOption func(*APIClient)

func WithHTTPClient(c *http.Client) APIOption {
	return func(a *APIClient) { a.client = c }
}

func WithClock(now func() time.Time) APIOption {
	return func(a *APIClient) { a.now = now }
}

func WithAPILogger(l *zap.Logger) APIOption {
	return func(a *APIClient) { a.logger = l }
}

func NewAPIClient(baseURL string, opts ...APIOption) (*APIClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL %q: %w", baseURL, err)
	}
	a := &APIClient{
		baseURL: u,
		client:  &http.Client{},
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// ResolveURL resolves ref (absolute, or relative like a form action) against the backend URL.
func (a *APIClient) ResolveURL(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid URL reference %q: %w", ref, err)
	}
	return a.baseURL.ResolveReference(u).String(), nil
}

// ResultsURL is /api/results/{year}/?category=..&timestamp=.. on the backend. The timestamp
// only defeats intermediate caches.
func (a *APIClient) ResultsURL(year int, category string) string {
	u := a.baseURL.ResolveReference(&url.URL{Path: fmt.Sprintf("/api/results/%d/", year)})
	q := url.Values{}
	q.Set("category", category)
	q.Set("timestamp", strconv.FormatInt(a.now().UnixMilli(), 10))
	u.RawQuery = q.Encode()
	return u.String()
}

// FetchResults performs one GET of the results endpoint. Failures come back as
// *domain.NetworkError, *domain.HTTPError or *domain.ParseError.
func (a *APIClient) FetchResults(ctx context.Context, year int, category string) (*domain.ResultsPayload, error) {
	target := a.ResultsURL(year, category)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &domain.NetworkError{Cause: err}
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("Fetching data", zap.String("url", target))
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &domain.NetworkError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &domain.HTTPError{Status: resp.StatusCode}
	}

	var payload domain.ResultsPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &domain.ParseError{Cause: err}
	}

	a.logger.Debug("Received data",
		zap.String("url", target),
		zap.Int("facts", len(payload.Facts)),
		zap.Int("significant_events", len(payload.SignificantEvents)),
		zap.Int("recommended_reading", len(payload.RecommendedReading)),
	)
	return &payload, nil
}

// SubmitFact posts the serialized form as multipart/form-data to action, duplicating the
// anti-forgery token into the X-CSRFToken header.
func (a *APIClient) SubmitFact(ctx context.Context, action string, fields []dom.Field) (*domain.SubmissionResult, error) {
	target, err := a.ResolveURL(action)
	if err != nil {
		return nil, &domain.NetworkError{Cause: err}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range fields {
		if err := mw.WriteField(f.Name, f.Value); err != nil {
			return nil, &domain.NetworkError{Cause: err}
		}
	}
	if err := mw.Close(); err != nil {
		return nil, &domain.NetworkError{Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &body)
	if err != nil {
		return nil, &domain.NetworkError{Cause: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	req.Header.Set(domain.HeaderCSRFToken, dom.Get(fields, domain.FieldCSRFToken))

	a.logger.Debug("Submitting fact", zap.String("url", target), zap.Int("fields", len(fields)))
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &domain.NetworkError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &domain.HTTPError{Status: resp.StatusCode}
	}

	var result domain.SubmissionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &domain.ParseError{Cause: err}
	}
	return &result, nil
}
