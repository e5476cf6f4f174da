package messaging

import (
	"context"
	"encoding/json"
	"time"

	"example.com/merchkit/services/quotes/config"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"
)

// Quote lifecycle event types published to the queue.
const (
	EventQuoteSent     = "quote.sent"
	EventQuoteApproved = "quote.approved"
	EventQuoteRejected = "quote.rejected"
	EventQuoteExpired  = "quote.expired"
)

// QuoteEvent is the payload published for each lifecycle change, consumed
// by downstream systems (ERP, CRM).
type QuoteEvent struct {
	Type       string    `json:"type"`
	QuoteID    string    `json:"quote_id"`
	Number     string    `json:"number"`
	Kind       string    `json:"kind"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher sends quote lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, event QuoteEvent) error
	Close() error
}

// serviceBusPublisher implements Publisher over Azure Service Bus
type serviceBusPublisher struct {
	client    *azservicebus.Client
	sender    *azservicebus.Sender
	queueName string
}

// NewServiceBusPublisher creates a new Azure Service Bus publisher
func NewServiceBusPublisher(cfg config.AzureConfig) (Publisher, error) {
	if cfg.QueueConnStr == "" {
		return nil, errors.New("Azure Service Bus connection string is empty")
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.QueueConnStr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus client")
	}

	sender, err := client.NewSender(cfg.QueueName, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus sender")
	}

	return &serviceBusPublisher{
		client:    client,
		sender:    sender,
		queueName: cfg.QueueName,
	}, nil
}

// Publish sends one lifecycle event to the queue
func (p *serviceBusPublisher) Publish(ctx context.Context, event QuoteEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal quote event")
	}

	msg := &azservicebus.Message{
		Body: data,
		ApplicationProperties: map[string]interface{}{
			"event_type": event.Type,
			"time":       time.Now().UTC().Format(time.RFC3339),
		},
	}

	return p.sender.SendMessage(ctx, msg, nil)
}

// Close closes the Service Bus publisher
func (p *serviceBusPublisher) Close() error {
	if p.sender != nil {
		if err := p.sender.Close(context.Background()); err != nil {
			return err
		}
	}

	if p.client != nil {
		return p.client.Close(context.Background())
	}

	return nil
}
