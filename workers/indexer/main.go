package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/opensearch-project/opensearch-go/v2"
	"go.uber.org/zap"

	indexerConfig "github.com/samsterpiece/nostalgiasite/workers/indexer/config"
	"github.com/samsterpiece/nostalgiasite/workers/indexer/repositories"
	"github.com/samsterpiece/nostalgiasite/workers/indexer/services"
)

func main() {
	cfg, err := indexerConfig.LoadConfig()
	if err != nil {
		zap.NewExample().Fatal("failed to load config", zap.Error(err))
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	// AWS/SQS Client
	awsOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" {
		awsOpts = append(awsOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(context.Background(), awsOpts...)
	if err != nil {
		logger.Fatal("unable to load SDK config", zap.Error(err))
	}
	if cfg.AWSEndpointURL != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
	}

	sqsClient := sqs.NewFromConfig(awsCfg)

	// OpenSearch Client
	osClient, err := opensearch.NewClient(opensearch.Config{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
		Addresses: []string{cfg.OpenSearchURL},
	})
	if err != nil {
		logger.Fatal("error creating OpenSearch client", zap.Error(err))
	}

	sqsRepo := repositories.NewSQSRepository(sqsClient, cfg.InputQueueURL, logger.Named("sqs"))
	osRepo := repositories.NewOpenSearchRepository(osClient, cfg.OpenSearchIdx)
	indexerService := services.NewIndexerService(sqsRepo, osRepo, logger.Named("indexer"))

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received signal, initiating shutdown", zap.String("signal", sig.String()))
		cancel()
	}()

	indexerService.Start(ctx)
}

func newLogger(level string) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		zcfg.Level = lvl
	}
	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewExample()
	}
	return logger
}
