package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/samsterpiece/nostalgiasite/workers/indexer/domain"
)

const DefaultIndex = "nostalgia_results"

type OpenSearchRepository struct {
	client *opensearch.Client
	index  string
	now    func() time.Time
}

func NewOpenSearchRepository(client *opensearch.Client, index string) *OpenSearchRepository {
	if index == "" {
		index = DefaultIndex
	}
	return &OpenSearchRepository{client: client, index: index, now: time.Now}
}

// DocumentID is stable for a record, so the same fact seen on several pages is stored once.
func DocumentID(doc domain.ResultDocument) string {
	key := fmt.Sprintf("%s|%d|%s|%s", doc.Kind, doc.Year, doc.Title, doc.SourceURL)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

func (r *OpenSearchRepository) IndexDocument(ctx context.Context, msg domain.IndexMessage, doc domain.ResultDocument) error {
	document := map[string]interface{}{
		"kind":          doc.Kind,
		"year":          doc.Year,
		"title":         doc.Title,
		"description":   doc.Description,
		"author":        doc.Author,
		"categories":    doc.Categories,
		"source_url":    doc.SourceURL,
		"page_category": msg.Category,
		"snapshot":      msg.S3Path,
		"indexed_at":    r.now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index:      r.index,
		DocumentID: DocumentID(doc),
		Body:       bytes.NewReader(body),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("failed to execute index request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing document: %s", res.String())
	}

	return nil
}
