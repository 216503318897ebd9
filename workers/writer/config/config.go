package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	InputQueueURL  string `validate:"required"`
	DatabaseURL    string `validate:"required"`
	DynamoDBTable  string
	BatchSize      int    `validate:"gt=0"`
	AutoMigrate    bool
	AWSRegion      string `validate:"required"`
	AWSEndpointURL string `validate:"omitempty,url"`
	AWSAccessKeyID string `validate:"required_with=AWSSecretKey"`
	AWSSecretKey   string `validate:"required_with=AWSAccessKeyID"`
	LogLevel       string `validate:"oneof=debug info warn error"`
}

var validate = validator.New()

func Load() (*Config, error) {
	batchSize, _ := strconv.Atoi(os.Getenv("DB_BATCH_SIZE"))
	if batchSize <= 0 {
		batchSize = 25
	}
	autoMigrate, _ := strconv.ParseBool(os.Getenv("DB_AUTO_MIGRATE"))

	cfg := &Config{
		InputQueueURL:  os.Getenv("INPUT_QUEUE_URL"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DynamoDBTable:  os.Getenv("DYNAMODB_TABLE"),
		BatchSize:      batchSize,
		AutoMigrate:    autoMigrate,
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: os.Getenv("AWS_ENDPOINT_URL"),
		AWSAccessKeyID: os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretKey:   os.Getenv("AWS_SECRET_ACCESS_KEY"),
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
	"InputQueueURL":  "INPUT_QUEUE_URL",
	"DatabaseURL":    "DATABASE_URL",
	"BatchSize":      "DB_BATCH_SIZE",
	"AWSRegion":      "AWS_REGION",
	"AWSEndpointURL": "AWS_ENDPOINT_URL",
	"AWSAccessKeyID": "AWS_ACCESS_KEY_ID",
	"AWSSecretKey":   "AWS_SECRET_ACCESS_KEY",
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
