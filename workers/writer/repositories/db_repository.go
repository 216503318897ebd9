package repositories

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/samsterpiece/nostalgiasite/workers/writer/domain"
	"github.com/samsterpiece/nostalgiasite/workers/writer/models"
)

type PostgresDBRepository struct {
	db        *gorm.DB
	batchSize int
	now       func() time.Time
	logger    *zap.Logger
}

func NewDBRepository(db *gorm.DB, batchSize int, logger *zap.Logger) *PostgresDBRepository {
	if batchSize <= 0 {
		batchSize = 100 // Default
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresDBRepository{
		db:        db,
		batchSize: batchSize,
		now:       time.Now,
		logger:    logger,
	}
}

// Migrate creates or updates the tables the writer owns.
func (repo *PostgresDBRepository) Migrate() error {
	return repo.db.AutoMigrate(&models.Snapshot{}, &models.FactSubmission{})
}

// InsertBatch writes snapshots and fact submissions in one transaction, so a batch is either
// fully stored or not at all and can be redelivered without duplicates.
func (repo *PostgresDBRepository) InsertBatch(ctx context.Context, snapshots, submissions []domain.WriterMessage) error {
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(snapshots) > 0 {
			if err := repo.insertSnapshots(tx, snapshots); err != nil {
				return err
			}
		}
		if len(submissions) > 0 {
			if err := repo.insertFactSubmissions(tx, submissions); err != nil {
				return err
			}
		}
		return nil
	})
}

func (repo *PostgresDBRepository) insertSnapshots(db *gorm.DB, msgs []domain.WriterMessage) error {
	rows := make([]models.Snapshot, 0, len(msgs))
	for _, msg := range msgs {
		rows = append(rows, models.Snapshot{
			Year:       msg.Year,
			Category:   msg.Category,
			S3Path:     msg.S3Path,
			Facts:      msg.Facts,
			Events:     msg.Events,
			Books:      msg.Books,
			RenderedAt: repo.timestamp(msg.RenderedAt),
		})
	}

	if err := db.CreateInBatches(rows, repo.batchSize).Error; err != nil {
		return fmt.Errorf("failed to insert page snapshots: %w", err)
	}
	repo.logger.Debug("inserted page snapshots", zap.Int("count", len(rows)))
	return nil
}

func (repo *PostgresDBRepository) insertFactSubmissions(db *gorm.DB, msgs []domain.WriterMessage) error {
	rows := make([]models.FactSubmission, 0, len(msgs))
	for _, msg := range msgs {
		rows = append(rows, models.FactSubmission{
			Year:        msg.Year,
			Success:     msg.Success,
			Message:     msg.Message,
			SubmittedAt: repo.timestamp(msg.RenderedAt),
		})
	}

	if err := db.CreateInBatches(rows, repo.batchSize).Error; err != nil {
		return fmt.Errorf("failed to insert fact submissions: %w", err)
	}
	repo.logger.Debug("inserted fact submissions", zap.Int("count", len(rows)))
	return nil
}

// timestamp parses an RFC 3339 time from the page worker, falling back to now.
func (repo *PostgresDBRepository) timestamp(raw string) time.Time {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	return repo.now().UTC()
}
