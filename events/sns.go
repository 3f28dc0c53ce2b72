package events

import (
	"context"
	"encoding/json"
	"fmt"

	aws_pkg "storefront-service/pkg/aws"
)

// SNSPublisher fans events out through an SNS topic. The event type is set
// as the "event" message attribute for subscription filters.
type SNSPublisher struct {
	client   aws_pkg.SNSPublisher
	topicArn string
}

func NewSNSPublisher(client aws_pkg.SNSPublisher, topicArn string) *SNSPublisher {
	return &SNSPublisher{client: client, topicArn: topicArn}
}

func (p *SNSPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}
	return p.client.Publish(ctx, p.topicArn, body, map[string]string{"event": event.Type})
}
