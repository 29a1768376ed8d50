// Package sqs forwards domain events to an Amazon SQS queue for off-site
// consumers such as accounting exports.
package sqs

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/cafe-pos/api/internal/events"
)

// SendAPI is the part of the SQS client the publisher calls.
type SendAPI interface {
	SendMessage(ctx context.Context, in *awssqs.SendMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.SendMessageOutput, error)
}

type Publisher struct {
	client   SendAPI
	queueURL string
}

// New loads the default AWS configuration for region and targets queueURL.
func New(ctx context.Context, region, queueURL string) (*Publisher, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewWithClient(awssqs.NewFromConfig(cfg), queueURL), nil
}

func NewWithClient(client SendAPI, queueURL string) *Publisher {
	return &Publisher{client: client, queueURL: queueURL}
}

// Publish sends the JSON envelope with the event type as a message attribute.
func (p *Publisher) Publish(ctx context.Context, e events.Event) error {
	body, err := e.Marshal()
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.Type, err)
	}
	_, err = p.client.SendMessage(ctx, &awssqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(e.Type),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sqs send %s: %w", e.Type, err)
	}
	return nil
}
