package compliance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
	"github.com/wolfman30/crisis-guard/internal/crisis"
	"github.com/wolfman30/crisis-guard/pkg/logging"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSAuditSink publishes detection payloads to a queue for downstream review.
type SQSAuditSink struct {
	client   sqsAPI
	queueURL string
}

// NewSQSAuditSink builds a queue-backed sink.
func NewSQSAuditSink(client sqsAPI, queueURL string) *SQSAuditSink {
	if client == nil {
		panic("compliance: sqs client cannot be nil")
	}
	return &SQSAuditSink{client: client, queueURL: queueURL}
}

// RecordDetection sends the payload as a JSON message body.
func (s *SQSAuditSink) RecordDetection(ctx context.Context, p crisis.LogPayload) error {
	if s.queueURL == "" {
		return errors.New("compliance: audit queue url is empty")
	}
	event := EventFromPayload(p)
	// The id travels with the message so redeliveries insert once.
	event.ID = uuid.NewString()
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("compliance: marshal audit event: %w", err)
	}
	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"category": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(p.Category)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("compliance: send audit event: %w", err)
	}
	return nil
}

// LogAuditSink writes payloads to the structured log only.
type LogAuditSink struct {
	logger *logging.Logger
}

func NewLogAuditSink(logger *logging.Logger) *LogAuditSink {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogAuditSink{logger: logger}
}

func (s *LogAuditSink) RecordDetection(_ context.Context, p crisis.LogPayload) error {
	s.logger.Info("crisis audit",
		"event_type", EventSafetyResponseIssued,
		"category", p.Category,
		"country", p.Country,
		"language", p.Language,
		"timestamp", p.Timestamp,
	)
	return nil
}
