package domain

const (
	KindFact  = "fact"
	KindEvent = "event"
	KindBook  = "book"
)

// IndexMessage carries the records one prerendered results page showed.
type IndexMessage struct {
	Year     int              `json:"year"`
	Category string           `json:"category"`
	S3Path   string           `json:"s3_path,omitempty"`
	Records  []ResultDocument `json:"records"`
}

// ResultDocument is one fact, significant event or book as it is searched.
type ResultDocument struct {
	Kind        string   `json:"kind"`
	Year        int      `json:"year"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Author      string   `json:"author,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	SourceURL   string   `json:"source_url,omitempty"`
}
