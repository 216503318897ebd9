package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	config_aws "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/samsterpiece/nostalgiasite/workers/page/config"
	"github.com/samsterpiece/nostalgiasite/workers/page/domain"
	"github.com/samsterpiece/nostalgiasite/workers/page/repositories"
	"github.com/samsterpiece/nostalgiasite/workers/page/services"
)

const (
	NumWorkers     = 8
	MaxBatchSize   = 10
	FlushInterval  = 1 * time.Second
	SQSMaxMessages = 10
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("failed to load config", zap.Error(err))
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

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
	// Local S3 emulators only serve path-style bucket addressing.
	s3Repo := repositories.NewS3Repository(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.AWSEndpointURL != ""
	})
	redisClient := repositories.NewRedisClient(cfg.RedisHost, cfg.RedisPort)
	pageFetcher := repositories.NewPageFetcher(cfg.RequestTimeout)
	apiClient, err := repositories.NewAPIClient(cfg.BackendURL, repositories.WithAPILogger(logger.Named("api")))
	if err != nil {
		logger.Fatal("failed to build backend client", zap.Error(err))
	}

	prerenderService := services.NewPrerenderService(
		services.WithSQSClient(sqsClient),
		services.WithRedisClient(redisClient),
		services.WithPageFetcher(pageFetcher),
		services.WithSnapshotStore(s3Repo, cfg.SnapshotBucket),
		services.WithBackendAPI(apiClient),
		services.WithWriterQueue(cfg.WriterQueueURL),
		services.WithIndexerQueue(cfg.IndexQueueURL),
		services.WithPageRequestTimeout(cfg.RequestTimeout),
		services.WithServiceLogger(logger.Named("page")),
	)

	logger.Info("page worker started", zap.Int("workers", NumWorkers), zap.Int("batch_size", MaxBatchSize))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobs := make(chan types.Message, NumWorkers*2)
	deletes := make(chan types.Message, NumWorkers*2)

	// workerWg tracks workers only, wg tracks workers and the deleter
	var workerWg sync.WaitGroup
	var wg sync.WaitGroup

	for i := 0; i < NumWorkers; i++ {
		workerWg.Add(1)
		wg.Add(1)
		go worker(ctx, &workerWg, &wg, prerenderService, jobs, deletes, logger.With(zap.Int("worker", i)))
	}

	wg.Add(1)
	go batchDeleter(ctx, &wg, sqsClient, cfg.InputQueueURL, deletes, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received signal, initiating shutdown", zap.String("signal", sig.String()))
		cancel()
	}()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		default:
			msgOutput, err := sqsClient.ReceiveMessages(ctx, cfg.InputQueueURL, SQSMaxMessages)
			if err != nil {
				if ctx.Err() != nil {
					break loop
				}
				logger.Error("failed to receive messages", zap.Error(err))
				time.Sleep(5 * time.Second)
				continue
			}

			for _, msg := range msgOutput.Messages {
				select {
				case jobs <- msg:
				case <-ctx.Done():
					break loop
				}
			}
		}
	}

	logger.Info("main loop exited, waiting for workers to finish")
	close(jobs)
	workerWg.Wait()
	close(deletes)
	wg.Wait()
	logger.Info("shutdown complete")
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

func worker(ctx context.Context, workerWg *sync.WaitGroup, wg *sync.WaitGroup, svc *services.PrerenderService, jobs <-chan types.Message, deletes chan<- types.Message, logger *zap.Logger) {
	defer workerWg.Done()
	defer wg.Done()
	for {
		select {
		case msg, ok := <-jobs:
			if !ok {
				return
			}
			// Messages are deleted whatever the outcome: page runs are never retried.
			var body domain.PageMessage
			if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &body); err != nil {
				logger.Error("failed to unmarshal page message", zap.Error(err))
			} else if err := svc.ProcessMessage(ctx, body); err != nil {
				logger.Error("failed to process page message",
					zap.Int("year", body.Year), zap.String("category", body.Category), zap.Error(err))
			}

			select {
			case deletes <- msg:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func batchDeleter(ctx context.Context, wg *sync.WaitGroup, client repositories.SQSClient, queueURL string, deletes <-chan types.Message, logger *zap.Logger) {
	defer wg.Done()
	var batch []types.DeleteMessageBatchRequestEntry
	ticker := time.NewTicker(FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) > 0 {
			if err := client.DeleteMessageBatch(context.Background(), queueURL, batch); err != nil {
				logger.Error("failed to delete batch", zap.Error(err))
			}
			batch = nil
		}
	}

	for {
		select {
		case msg, ok := <-deletes:
			if !ok {
				flush()
				return
			}
			batch = append(batch, types.DeleteMessageBatchRequestEntry{
				Id:            msg.MessageId,
				ReceiptHandle: msg.ReceiptHandle,
			})
			if len(batch) >= MaxBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			flush()
			return
		}
	}
}
