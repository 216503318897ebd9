package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	AWSEndpointURL string `validate:"omitempty,url"`
	AWSRegion      string `validate:"required"`
	AWSAccessKeyID string `validate:"required_with=AWSSecretKey"`
	AWSSecretKey   string `validate:"required_with=AWSAccessKeyID"`
	InputQueueURL  string `validate:"required"`
	OpenSearchURL  string `validate:"required,url"`
	OpenSearchIdx  string `validate:"required"`
	LogLevel       string `validate:"oneof=debug info warn error"`
}

var validate = validator.New()

func LoadConfig() (*Config, error) {
	cfg := &Config{
		AWSEndpointURL: os.Getenv("AWS_ENDPOINT_URL"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID: os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretKey:   os.Getenv("AWS_SECRET_ACCESS_KEY"),
		InputQueueURL:  os.Getenv("INPUT_QUEUE_URL"),
		OpenSearchURL:  getEnv("OPENSEARCH_URL", "http://localhost:9200"),
		OpenSearchIdx:  getEnv("OPENSEARCH_INDEX", "nostalgia_results"),
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
	"AWSEndpointURL": "AWS_ENDPOINT_URL",
	"AWSRegion":      "AWS_REGION",
	"AWSAccessKeyID": "AWS_ACCESS_KEY_ID",
	"AWSSecretKey":   "AWS_SECRET_ACCESS_KEY",
	"InputQueueURL":  "INPUT_QUEUE_URL",
	"OpenSearchURL":  "OPENSEARCH_URL",
	"OpenSearchIdx":  "OPENSEARCH_INDEX",
	"LogLevel":       "LOG_LEVEL",
}

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
