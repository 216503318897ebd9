package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/samsterpiece/nostalgiasite/workers/indexer/domain"
)

type SQSRepository interface {
	ReceiveMessages(ctx context.Context) ([]domain.IndexMessage, []string, error)
	DeleteMessage(ctx context.Context, handle string) error
}

type OpenSearchRepository interface {
	IndexDocument(ctx context.Context, msg domain.IndexMessage, doc domain.ResultDocument) error
}

// IndexerService makes the records of prerendered pages searchable by title, description
// and author.
type IndexerService struct {
	sqsRepo        SQSRepository
	openSearchRepo OpenSearchRepository
	retryDelay     time.Duration
	logger         *zap.Logger
}

func NewIndexerService(sqsRepo SQSRepository, openSearchRepo OpenSearchRepository, logger *zap.Logger) *IndexerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IndexerService{
		sqsRepo:        sqsRepo,
		openSearchRepo: openSearchRepo,
		retryDelay:     5 * time.Second,
		logger:         logger,
	}
}

func (s *IndexerService) Start(ctx context.Context) {
	s.logger.Info("indexer service started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("indexer service stopping")
			return
		default:
			messages, handles, err := s.sqsRepo.ReceiveMessages(ctx)
			if err != nil {
				s.logger.Error("error receiving messages", zap.Error(err))
				time.Sleep(s.retryDelay)
				continue
			}

			for i, msg := range messages {
				if err := s.IndexPage(ctx, msg); err != nil {
					continue
				}
				if err := s.sqsRepo.DeleteMessage(ctx, handles[i]); err != nil {
					s.logger.Error("error deleting message", zap.String("handle", handles[i]), zap.Error(err))
				}
			}
		}
	}
}

// IndexPage indexes every record of one page. The first failure stops the page so the
// message is redelivered; already indexed records are overwritten on the next attempt.
func (s *IndexerService) IndexPage(ctx context.Context, msg domain.IndexMessage) error {
	log := s.logger.With(zap.Int("year", msg.Year), zap.String("category", msg.Category))
	for _, doc := range msg.Records {
		if err := s.openSearchRepo.IndexDocument(ctx, msg, doc); err != nil {
			log.Error("error indexing record", zap.String("kind", doc.Kind), zap.String("title", doc.Title), zap.Error(err))
			return err
		}
	}
	log.Info("indexed page records", zap.Int("records", len(msg.Records)))
	return nil
}
