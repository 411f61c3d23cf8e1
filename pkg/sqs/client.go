package sqs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/smithy-go"

	"github.com/vaulttrove/labels-backend/pkg/config"
	"github.com/vaulttrove/labels-backend/pkg/logger"
)

// API is the subset of the SQS client used here.
type API interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
}

// Client publishes label events to an SQS queue.
type Client struct {
	api      API
	queueURL string
}

var errQueueURLRequired = errors.New("sqs labels queue url is required")

// NewClient loads the default AWS credential chain for the configured region.
func NewClient(ctx context.Context, cfg config.AWSConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.LabelsQueueURL) == "" {
		return nil, errQueueURLRequired
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	c := NewWithAPI(sqs.NewFromConfig(awsCfg), cfg.LabelsQueueURL)
	if logg != nil {
		logg.Info(logg.WithField(ctx, "region", region), "sqs client initialized")
	}
	return c, nil
}

// NewWithAPI wraps an existing API implementation.
func NewWithAPI(api API, queueURL string) *Client {
	return &Client{api: api, queueURL: strings.TrimSpace(queueURL)}
}

// QueueURL returns the default destination.
func (c *Client) QueueURL() string {
	if c == nil {
		return ""
	}
	return c.queueURL
}

// Publish sends body to queueURL, falling back to the configured queue.
// Attributes are sent as String message attributes.
func (c *Client) Publish(ctx context.Context, queueURL string, body []byte, attributes map[string]string) (string, error) {
	if c == nil || c.api == nil {
		return "", errors.New("sqs client not initialized")
	}
	target := strings.TrimSpace(queueURL)
	if target == "" {
		target = c.queueURL
	}
	if target == "" {
		return "", errQueueURLRequired
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    sdkaws.String(target),
		MessageBody: sdkaws.String(string(body)),
	}
	if len(attributes) > 0 {
		input.MessageAttributes = make(map[string]sqstypes.MessageAttributeValue, len(attributes))
		for k, v := range attributes {
			input.MessageAttributes[k] = sqstypes.MessageAttributeValue{
				DataType:    sdkaws.String("String"),
				StringValue: sdkaws.String(v),
			}
		}
	}

	out, err := c.api.SendMessage(ctx, input)
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return sdkaws.ToString(out.MessageId), nil
}

// Ping checks the queue is reachable with the current credentials.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.api == nil {
		return errors.New("sqs client not initialized")
	}
	_, err := c.api.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       sdkaws.String(c.queueURL),
		AttributeNames: []sqstypes.QueueAttributeName{sqstypes.QueueAttributeNameQueueArn},
	})
	if err != nil {
		return fmt.Errorf("get queue attributes: %w", err)
	}
	return nil
}

// IsPermanent reports whether err is an SQS fault that retrying cannot fix.
func IsPermanent(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.ErrorFault() == smithy.FaultServer {
		return false
	}
	switch apiErr.ErrorCode() {
	case "InvalidMessageContents", "AWS.SimpleQueueService.NonExistentQueue", "QueueDoesNotExist", "InvalidParameterValue", "AccessDenied":
		return true
	}
	return false
}
