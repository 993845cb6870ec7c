package cloud

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/rs/zerolog/log"

	"github.com/hidrotek/water-dispenser-system/internal/domain"
)

// SNSClient wraps AWS SNS for alert notifications.
type SNSClient struct {
	svc      *sns.Client
	topicArn string
	ctx      context.Context
}

func NewSNSClient(region, topicArn string) (*SNSClient, error) {
	ctx := context.Background()

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return &SNSClient{
		svc:      sns.NewFromConfig(cfg),
		topicArn: topicArn,
		ctx:      ctx,
	}, nil
}

// SendAlert publishes to the topic. The device id always rides along as
// a message attribute; push tokens are attached when provided so the
// mobile delivery worker downstream knows its targets.
func (c *SNSClient) SendAlert(subject, message, deviceID string, pushTokens []string) error {
	attrs := map[string]types.MessageAttributeValue{
		"device_id": {DataType: aws.String("String"), StringValue: aws.String(deviceID)},
	}
	if len(pushTokens) > 0 {
		attrs["push_tokens"] = types.MessageAttributeValue{
			DataType:    aws.String("String.Array"),
			StringValue: aws.String(`["` + strings.Join(pushTokens, `","`) + `"]`),
		}
	}

	input := &sns.PublishInput{
		TopicArn:          aws.String(c.topicArn),
		Subject:           aws.String(subject),
		Message:           aws.String(message),
		MessageAttributes: attrs,
	}

	result, err := c.svc.Publish(c.ctx, input)
	if err != nil {
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}

	log.Debug().Str("message_id", aws.ToString(result.MessageId)).Str("device_id", deviceID).Msg("alert published")
	return nil
}

// SNSNotifier adapts SNSClient to the service notifier contract. Every
// event is delivered on its own goroutine so callers never wait on AWS;
// failures are logged and dropped.
type SNSNotifier struct {
	sns    *SNSClient
	tokens tokenLookup // optional; adds push targets to the payload
}

type tokenLookup interface {
	TokensForDevice(deviceID string) ([]string, error)
}

func NewSNSNotifier(client *SNSClient, tokens tokenLookup) *SNSNotifier {
	return &SNSNotifier{sns: client, tokens: tokens}
}

func (n *SNSNotifier) PumpWarning(p *domain.Pump) {
	subject := fmt.Sprintf("Water Dispenser Warning: %s", p.DeviceID)
	message := fmt.Sprintf(
		"Pump Level Warning\n\n"+
			"Device: %s\n"+
			"Current Level: %.2f\n"+
			"Warning Threshold: %.2f\n"+
			"Time: %s\n\n"+
			"The tank is approaching capacity.",
		p.DeviceID, p.CurrentLevel, p.ThresholdWarning, time.Now().Format(time.RFC3339))
	go n.publish(subject, message, p.DeviceID)
}

func (n *SNSNotifier) PumpStop(p *domain.Pump) {
	subject := fmt.Sprintf("Water Dispenser Stop: %s", p.DeviceID)
	message := fmt.Sprintf(
		"Pump Stop Threshold Reached\n\n"+
			"Device: %s\n"+
			"Current Level: %.2f\n"+
			"Stop Threshold: %.2f\n"+
			"Time: %s\n\n"+
			"The pump will refuse to turn on until the level drops.",
		p.DeviceID, p.CurrentLevel, p.ThresholdStop, time.Now().Format(time.RFC3339))
	go n.publish(subject, message, p.DeviceID)
}

func (n *SNSNotifier) AnomaliesDetected(deviceID string, rep *domain.AnomalyReport) {
	subject := fmt.Sprintf("Flow Anomalies Detected: %s", deviceID)
	message := fmt.Sprintf(
		"Flow Anomaly Scan\n\n"+
			"Device: %s\n"+
			"Anomalous Readings: %d\n"+
			"Mean Flow Rate: %.2f\n"+
			"Expected Band: [%.2f, %.2f]\n"+
			"Time: %s\n\n"+
			"Inspect the sensor for blockage or leakage.",
		deviceID, rep.TotalAnomalies, rep.MeanFlowRate,
		rep.LowerBound, rep.UpperBound, time.Now().Format(time.RFC3339))
	go n.publish(subject, message, deviceID)
}

func (n *SNSNotifier) FillingCompleted(f *domain.Filling) {
	actual, efficiency := 0.0, 0.0
	if f.ActualVolume != nil {
		actual = *f.ActualVolume
	}
	if f.Efficiency != nil {
		efficiency = *f.Efficiency
	}
	subject := fmt.Sprintf("Filling Completed: %s", f.DeviceID)
	message := fmt.Sprintf(
		"Filling Session Completed\n\n"+
			"Device: %s\n"+
			"Session: %d\n"+
			"Dispensed: %.2f L of %.2f L target\n"+
			"Efficiency: %.2f%%\n",
		f.DeviceID, f.ID, actual, f.TargetVolume, efficiency)
	go n.publish(subject, message, f.DeviceID)
}

func (n *SNSNotifier) publish(subject, message, deviceID string) {
	var pushTokens []string
	if n.tokens != nil {
		toks, err := n.tokens.TokensForDevice(deviceID)
		if err != nil {
			log.Error().Err(err).Str("device_id", deviceID).Msg("push token lookup failed")
		} else {
			pushTokens = toks
		}
	}
	if err := n.sns.SendAlert(subject, message, deviceID, pushTokens); err != nil {
		log.Error().Err(err).Str("device_id", deviceID).Msg("notification failed")
	}
}
