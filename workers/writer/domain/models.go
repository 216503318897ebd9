package domain

// WriterMessage is what the page worker reports after a page run.
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
