package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// ErrQueueURLRequired is returned when no queue URL is configured.
var ErrQueueURLRequired = errors.New("queue: queue URL is required")

// maxWaitTime is the longest long-poll SQS allows.
const maxWaitTime = 20 * time.Second

// SQSConfig holds the configuration for the SQS queue.
type SQSConfig struct {
	QueueURL        string
	Region          string
	Endpoint        string // Optional: for custom SQS-compatible endpoints
	AccessKeyID     string // Optional: AWS access key ID
	SecretAccessKey string // Optional: AWS secret access key
	// WaitTime bounds one long-poll Receive. Defaults to 10s, capped at
	// the SQS maximum of 20s.
	WaitTime time.Duration
}

// SQSQueue implements Queue against an SQS queue.
type SQSQueue struct {
	client   *sqs.Client
	queueURL string
	waitTime time.Duration
}

// Compile-time check that SQSQueue implements Queue.
var _ Queue = (*SQSQueue)(nil)

// NewSQSQueue creates a new SQSQueue instance.
func NewSQSQueue(ctx context.Context, cfg SQSConfig) (*SQSQueue, error) {
	if cfg.QueueURL == "" {
		return nil, ErrQueueURLRequired
	}
	if cfg.WaitTime <= 0 {
		cfg.WaitTime = 10 * time.Second
	}
	if cfg.WaitTime > maxWaitTime {
		cfg.WaitTime = maxWaitTime
	}

	var configOpts []func(*config.LoadOptions) error
	configOpts = append(configOpts, config.WithRegion(cfg.Region))

	// Use static credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var clientOpts []func(*sqs.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *sqs.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	return &SQSQueue{
		client:   sqs.NewFromConfig(awsCfg, clientOpts...),
		queueURL: cfg.QueueURL,
		waitTime: cfg.WaitTime,
	}, nil
}

// Send enqueues a message body.
func (q *SQSQueue) Send(ctx context.Context, body []byte) error {
	_, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// Receive long-polls for one message, returning (nil, nil) when the wait
// elapses without a delivery.
func (q *SQSQueue) Receive(ctx context.Context) (*Message, error) {
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     int32(q.waitTime / time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("receive message: %w", err)
	}
	if len(out.Messages) == 0 {
		return nil, nil
	}

	msg := out.Messages[0]
	return &Message{
		Body:          []byte(aws.ToString(msg.Body)),
		ReceiptHandle: aws.ToString(msg.ReceiptHandle),
	}, nil
}

// Delete acknowledges a delivery by receipt handle.
func (q *SQSQueue) Delete(ctx context.Context, receiptHandle string) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}
