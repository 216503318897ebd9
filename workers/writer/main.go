package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	config_aws "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/samsterpiece/nostalgiasite/workers/writer/config"
	"github.com/samsterpiece/nostalgiasite/workers/writer/domain"
	"github.com/samsterpiece/nostalgiasite/workers/writer/repositories"
	"github.com/samsterpiece/nostalgiasite/workers/writer/services"
)

const (
	SQSMaxMessages = 10
	SQSWaitSeconds = 5
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("failed to load config", zap.Error(err))
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	// Connect DB using GORM
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		logger.Fatal("failed to connect to db", zap.Error(err))
	}
	dbRepo := repositories.NewDBRepository(db, cfg.BatchSize, logger.Named("db"))
	if cfg.AutoMigrate {
		if err := dbRepo.Migrate(); err != nil {
			logger.Fatal("failed to migrate schema", zap.Error(err))
		}
	}

	// Connect AWS
	awsOpts := []func(*config_aws.LoadOptions) error{config_aws.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" {
		awsOpts = append(awsOpts, config_aws.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, "")))
	}
	awsCfg, err := config_aws.LoadDefaultConfig(context.TODO(), awsOpts...)
	if err != nil {
		logger.Fatal("unable to load SDK config", zap.Error(err))
	}
	if cfg.AWSEndpointURL != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
	}

	sqsClient := repositories.NewSQSClient(sqs.NewFromConfig(awsCfg))
	dynamoClient := repositories.NewDynamoDBClient(dynamodb.NewFromConfig(awsCfg), cfg.DynamoDBTable, logger.Named("dynamodb"))
	writerService := services.NewWriterService(
		services.WithDBRepository(dbRepo),
		services.WithSnapshotIndex(dynamoClient),
		services.WithLogger(logger.Named("writer")),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received signal, initiating shutdown", zap.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("writer worker started", zap.Int("batch_size", cfg.BatchSize))

	for ctx.Err() == nil {
		msgOutput, err := sqsClient.ReceiveMessages(ctx, cfg.InputQueueURL, SQSMaxMessages, SQSWaitSeconds)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Error("failed to receive messages", zap.Error(err))
			time.Sleep(2 * time.Second)
			continue
		}
		if len(msgOutput.Messages) == 0 {
			continue
		}
		handleBatch(ctx, writerService, sqsClient, cfg.InputQueueURL, msgOutput.Messages, logger)
	}
	logger.Info("shutdown complete")
}

// handleBatch writes a received batch and deletes it only once the write succeeded, so a
// failed batch comes back after the visibility timeout. Unreadable bodies are deleted at once.
func handleBatch(ctx context.Context, svc *services.WriterService, client repositories.SQSClient, queueURL string, msgs []types.Message, logger *zap.Logger) {
	var bodies []domain.WriterMessage
	var processed, poison []types.DeleteMessageBatchRequestEntry
	for _, msg := range msgs {
		entry := types.DeleteMessageBatchRequestEntry{Id: msg.MessageId, ReceiptHandle: msg.ReceiptHandle}
		var body domain.WriterMessage
		if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &body); err != nil {
			logger.Error("failed to unmarshal writer message", zap.String("message_id", aws.ToString(msg.MessageId)), zap.Error(err))
			poison = append(poison, entry)
			continue
		}
		bodies = append(bodies, body)
		processed = append(processed, entry)
	}

	if err := svc.ProcessBatch(ctx, bodies); err != nil {
		logger.Error("failed to process writer batch", zap.Int("messages", len(bodies)), zap.Error(err))
		processed = nil
	}

	if err := client.DeleteMessageBatch(context.Background(), queueURL, append(processed, poison...)); err != nil {
		logger.Error("failed to delete batch", zap.Error(err))
	}
}

func newLogger(level string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		zcfg := zap.NewProductionConfig()
		if lvl, perr := zap.ParseAtomicLevel(level); perr == nil {
			zcfg.Level = lvl
		}
		logger, err = zcfg.Build()
	}
	if err != nil {
		return zap.NewExample()
	}
	return logger
}
