package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/soulbloom/backend/internal/models"
)

// ErrStaleToken marks a device registration the push service no longer
// accepts; the gate deactivates it and moves on.
var ErrStaleToken = errors.New("device endpoint is no longer valid")

func isStaleToken(err error) bool {
	return errors.Is(err, ErrStaleToken)
}

// SNSTransport delivers push notifications through SNS platform endpoints.
type SNSTransport struct {
	client *sns.Client
}

func NewSNSTransport(ctx context.Context) (*SNSTransport, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %v", err)
	}
	return &SNSTransport{client: sns.NewFromConfig(cfg)}, nil
}

func (t *SNSTransport) SendToDevice(ctx context.Context, device models.DeviceToken, payload Payload) error {
	if device.EndpointARN == "" {
		return fmt.Errorf("%w: device %s has no endpoint", ErrStaleToken, device.ID)
	}

	message, err := buildPlatformMessage(payload)
	if err != nil {
		return fmt.Errorf("failed to build push message: %v", err)
	}

	_, err = t.client.Publish(ctx, &sns.PublishInput{
		TargetArn:        aws.String(device.EndpointARN),
		Message:          aws.String(message),
		MessageStructure: aws.String("json"),
	})
	if err != nil {
		var disabled *snstypes.EndpointDisabledException
		var notFound *snstypes.NotFoundException
		if errors.As(err, &disabled) || errors.As(err, &notFound) {
			return fmt.Errorf("%w: %v", ErrStaleToken, err)
		}
		return fmt.Errorf("failed to publish to endpoint: %v", err)
	}

	return nil
}

// RegisterEndpoint creates an SNS platform endpoint for a device token and
// returns its ARN.
func (t *SNSTransport) RegisterEndpoint(ctx context.Context, platform, token string) (string, error) {
	appARN, err := platformApplicationARN(platform)
	if err != nil {
		return "", err
	}

	out, err := t.client.CreatePlatformEndpoint(ctx, &sns.CreatePlatformEndpointInput{
		PlatformApplicationArn: aws.String(appARN),
		Token:                  aws.String(token),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create platform endpoint: %v", err)
	}

	return aws.ToString(out.EndpointArn), nil
}

func platformApplicationARN(platform string) (string, error) {
	var envVar string
	switch strings.ToLower(platform) {
	case "ios":
		envVar = "SNS_PLATFORM_APPLICATION_ARN_IOS"
	case "android":
		envVar = "SNS_PLATFORM_APPLICATION_ARN_ANDROID"
	default:
		return "", fmt.Errorf("unsupported platform %q", platform)
	}

	arn := os.Getenv(envVar)
	if arn == "" {
		return "", fmt.Errorf("%s environment variable is not set", envVar)
	}
	return arn, nil
}

// buildPlatformMessage wraps the payload in the per-platform envelopes SNS
// expects for MessageStructure "json".
func buildPlatformMessage(payload Payload) (string, error) {
	apns, err := json.Marshal(map[string]interface{}{
		"aps": map[string]interface{}{
			"alert": map[string]string{
				"title": payload.Title,
				"body":  payload.Body,
			},
		},
		"data": payload.Data,
	})
	if err != nil {
		return "", err
	}

	gcm, err := json.Marshal(map[string]interface{}{
		"notification": map[string]string{
			"title": payload.Title,
			"body":  payload.Body,
		},
		"data": payload.Data,
	})
	if err != nil {
		return "", err
	}

	outer, err := json.Marshal(map[string]string{
		"default":      payload.Body,
		"APNS":         string(apns),
		"APNS_SANDBOX": string(apns),
		"GCM":          string(gcm),
	})
	if err != nil {
		return "", err
	}

	return string(outer), nil
}
