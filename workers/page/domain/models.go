package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FactRecord is a historical fact for a graduation year.
type FactRecord struct {
	Year        int    `json:"year"`
	Title       string `json:"title"`
	Description string `json:"description"`
	SourceURL   string `json:"source_url"`
}

// EventRecord has the same shape as FactRecord but lists significant events.
type EventRecord struct {
	Year        int    `json:"year"`
	Title       string `json:"title"`
	Description string `json:"description"`
	SourceURL   string `json:"source_url"`
}

// BookRecord is a reading recommendation. Description, Categories and CoverURL are optional.
type BookRecord struct {
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Description string   `json:"description,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	CoverURL    string   `json:"cover_url,omitempty"`
	SourceURL   string   `json:"source_url"`
}

// ResultsPayload is the body of GET /api/results/{year}/.
type ResultsPayload struct {
	Facts              []FactRecord  `json:"facts"`
	SignificantEvents  []EventRecord `json:"significant_events"`
	RecommendedReading []BookRecord  `json:"recommended_reading"`
}

// FieldErrors are the per-field messages of a rejected submission, in the order the server sent them.
type FieldErrors []FieldError

type FieldError struct {
	Field    string
	Messages []string
}

// UnmarshalJSON reads the object token by token so field order survives decoding.
func (fe *FieldErrors) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*fe = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("field errors: expected object, got %v", tok)
	}

	var out FieldErrors
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var messages []string
		if err := json.Unmarshal(raw, &messages); err != nil {
			// Some endpoints send a bare string instead of a list.
			var single string
			if err2 := json.Unmarshal(raw, &single); err2 != nil {
				return fmt.Errorf("field errors: %s: %w", key, err)
			}
			messages = []string{single}
		}
		out = append(out, FieldError{Field: key, Messages: messages})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*fe = out
	return nil
}

// SubmissionResult is the JSON answer of the fact submission endpoint.
type SubmissionResult struct {
	Success bool        `json:"success"`
	Error   FieldErrors `json:"error,omitempty"`
}

// PageMessage asks the page worker to render a results page, optionally submitting a fact on it.
type PageMessage struct {
	Action   string            `json:"action"` // "prerender" | "submit_fact"
	Year     int               `json:"year"`
	Category string            `json:"category,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// WriterMessage represents data sent to the writer worker
type WriterMessage struct {
	Type       string `json:"type"` // "snapshot" | "fact_submission"
	Year       int    `json:"year"`
	Category   string `json:"category,omitempty"`
	S3Path     string `json:"s3_path,omitempty"`
	Facts      int    `json:"facts,omitempty"`
	Events     int    `json:"events,omitempty"`
	Books      int    `json:"books,omitempty"`
	PageError  string `json:"page_error,omitempty"`
	Success    bool   `json:"success,omitempty"`
	Message    string `json:"message,omitempty"`
	RenderedAt string `json:"rendered_at,omitempty"`
}

// IndexMessage carries the records a prerendered page showed to the indexer worker.
type IndexMessage struct {
	Year     int              `json:"year"`
	Category string           `json:"category"`
	S3Path   string           `json:"s3_path,omitempty"`
	Records  []ResultDocument `json:"records"`
}

type ResultDocument struct {
	Kind        string   `json:"kind"` // "fact" | "event" | "book"
	Year        int      `json:"year"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Author      string   `json:"author,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	SourceURL   string   `json:"source_url,omitempty"`
}

// NewIndexMessage flattens a results payload. Books carry no year of their own and take the page's.
func NewIndexMessage(year int, category, s3Path string, p ResultsPayload) IndexMessage {
	msg := IndexMessage{Year: year, Category: category, S3Path: s3Path}
	orYear := func(y int) int {
		if y == 0 {
			return year
		}
		return y
	}
	for _, f := range p.Facts {
		msg.Records = append(msg.Records, ResultDocument{Kind: KindFact, Year: orYear(f.Year), Title: f.Title, Description: f.Description, SourceURL: f.SourceURL})
	}
	for _, e := range p.SignificantEvents {
		msg.Records = append(msg.Records, ResultDocument{Kind: KindEvent, Year: orYear(e.Year), Title: e.Title, Description: e.Description, SourceURL: e.SourceURL})
	}
	for _, b := range p.RecommendedReading {
		msg.Records = append(msg.Records, ResultDocument{
			Kind: KindBook, Year: year, Title: b.Title, Description: b.Description,
			Author: b.Author, Categories: b.Categories, SourceURL: b.SourceURL,
		})
	}
	return msg
}
