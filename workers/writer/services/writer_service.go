package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/samsterpiece/nostalgiasite/workers/writer/domain"
)

// Consumer-side interfaces
type DBRepository interface {
	InsertBatch(ctx context.Context, snapshots, submissions []domain.WriterMessage) error
}

type SnapshotIndex interface {
	UpdateLatestSnapshot(ctx context.Context, msg domain.WriterMessage) error
	RecordSubmission(ctx context.Context, year int, success bool) error
}

type WriterService struct {
	dbRepo DBRepository
	index  SnapshotIndex
	logger *zap.Logger
}

// Functional Options Pattern
type WriterOption func(*WriterService)

func WithDBRepository(r DBRepository) WriterOption {
	return func(s *WriterService) { s.dbRepo = r }
}

func WithSnapshotIndex(i SnapshotIndex) WriterOption {
	return func(s *WriterService) { s.index = i }
}

func WithLogger(l *zap.Logger) WriterOption {
	return func(s *WriterService) { s.logger = l }
}

func NewWriterService(opts ...WriterOption) *WriterService {
	s := &WriterService{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *WriterService) ProcessMessage(ctx context.Context, msg domain.WriterMessage) error {
	return s.ProcessBatch(ctx, []domain.WriterMessage{msg})
}

// ProcessBatch persists a batch of page worker reports. Postgres is the source of truth:
// the batch is inserted atomically and a failed insert fails the whole batch, while
// DynamoDB sync failures are only logged.
func (s *WriterService) ProcessBatch(ctx context.Context, msgs []domain.WriterMessage) error {
	var snapshots, submissions []domain.WriterMessage
	for _, msg := range msgs {
		switch msg.Type {
		case domain.MsgTypeSnapshot:
			snapshots = append(snapshots, msg)
		case domain.MsgTypeFactSubmission:
			submissions = append(submissions, msg)
		default:
			s.logger.Warn("ignoring writer message", zap.String("type", msg.Type), zap.Int("year", msg.Year))
		}
	}

	if len(snapshots) == 0 && len(submissions) == 0 {
		return nil
	}
	if err := s.dbRepo.InsertBatch(ctx, snapshots, submissions); err != nil {
		return fmt.Errorf("failed to persist writer batch: %w", err)
	}

	// DynamoDB only mirrors committed rows.
	if s.index != nil {
		for _, msg := range snapshots {
			if err := s.index.UpdateLatestSnapshot(ctx, msg); err != nil {
				s.logger.Error("error syncing snapshot to DynamoDB",
					zap.Int("year", msg.Year), zap.String("category", msg.Category), zap.Error(err))
			}
		}
		for _, msg := range submissions {
			if err := s.index.RecordSubmission(ctx, msg.Year, msg.Success); err != nil {
				s.logger.Error("error syncing submission to DynamoDB", zap.Int("year", msg.Year), zap.Error(err))
			}
		}
	}

	s.logger.Info("processed writer batch",
		zap.Int("snapshots", len(snapshots)),
		zap.Int("fact_submissions", len(submissions)),
	)
	return nil
}
