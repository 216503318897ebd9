package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	"github.com/samsterpiece/nostalgiasite/workers/indexer/domain"
)

type SQSRepository struct {
	client   *sqs.Client
	queueURL string
	logger   *zap.Logger
}

func NewSQSRepository(client *sqs.Client, queueURL string, logger *zap.Logger) *SQSRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQSRepository{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
	}
}

func (r *SQSRepository) ReceiveMessages(ctx context.Context) ([]domain.IndexMessage, []string, error) {
	output, err := r.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(r.queueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to receive messages: %w", err)
	}

	var messages []domain.IndexMessage
	var handles []string
	for _, msg := range output.Messages {
		var indexMsg domain.IndexMessage
		if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &indexMsg); err != nil {
			// Skip invalid messages but log them
			r.logger.Warn("received invalid message", zap.String("message_id", aws.ToString(msg.MessageId)), zap.Error(err))
			continue
		}
		messages = append(messages, indexMsg)
		handles = append(handles, aws.ToString(msg.ReceiptHandle))
	}

	return messages, handles, nil
}

func (r *SQSRepository) DeleteMessage(ctx context.Context, handle string) error {
	_, err := r.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(r.queueURL),
		ReceiptHandle: aws.String(handle),
	})
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}
