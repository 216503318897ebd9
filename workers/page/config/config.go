package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	BackendURL     string        `validate:"required,url"`
	InputQueueURL  string        `validate:"required"`
	WriterQueueURL string        `validate:"required"`
	IndexQueueURL  string
	SnapshotBucket string        `validate:"required"`
	RedisHost      string        `validate:"required"`
	RedisPort      string        `validate:"required,numeric"`
	AWSRegion      string        `validate:"required"`
	AWSEndpointURL string        `validate:"omitempty,url"`
	AWSAccessKeyID string        `validate:"required_with=AWSSecretKey"`
	AWSSecretKey   string        `validate:"required_with=AWSAccessKeyID"`
	RequestTimeout time.Duration `validate:"gt=0"`
	LogLevel       string        `validate:"oneof=debug info warn error"`
}

var validate = validator.New()

func Load() (*Config, error) {
	timeout := 10 * time.Second
	if raw := os.Getenv("REQUEST_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("REQUEST_TIMEOUT is not a duration: %w", err)
		}
		timeout = d
	}

	cfg := &Config{
		BackendURL:     os.Getenv("BACKEND_URL"),
		InputQueueURL:  os.Getenv("INPUT_QUEUE_URL"),
		WriterQueueURL: os.Getenv("WRITER_QUEUE_URL"),
		IndexQueueURL:  os.Getenv("INDEXER_QUEUE_URL"),
		SnapshotBucket: getEnv("SNAPSHOT_BUCKET", "nostalgia-snapshots"),
		RedisHost:      getEnv("REDIS_HOST", "localhost"),
		RedisPort:      getEnv("REDIS_PORT", "6379"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: os.Getenv("AWS_ENDPOINT_URL"),
		AWSAccessKeyID: os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretKey:   os.Getenv("AWS_SECRET_ACCESS_KEY"),
		RequestTimeout: timeout,
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, formatValidationError(err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

var envNames = map[string]string{
	"BackendURL":     "BACKEND_URL",
	"InputQueueURL":  "INPUT_QUEUE_URL",
	"WriterQueueURL": "WRITER_QUEUE_URL",
	"SnapshotBucket": "SNAPSHOT_BUCKET",
	"RedisHost":      "REDIS_HOST",
	"RedisPort":      "REDIS_PORT",
	"AWSRegion":      "AWS_REGION",
	"AWSEndpointURL": "AWS_ENDPOINT_URL",
	"AWSAccessKeyID": "AWS_ACCESS_KEY_ID",
	"AWSSecretKey":   "AWS_SECRET_ACCESS_KEY",
	"RequestTimeout": "REQUEST_TIMEOUT",
	"LogLevel":       "LOG_LEVEL",
}

// formatValidationError reports failures by environment variable name.
func formatValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	var msgs []string
	for _, e := range verrs {
		name := envNames[e.Field()]
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", name))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", name, e.Tag()))
		}
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
