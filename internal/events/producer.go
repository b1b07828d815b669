// Package events publishes ticket lifecycle events to Kafka so downstream
// reporting can follow outcomes and status progressions without polling the
// CRM.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// Outcome is the terminal record for one processed invoice.
type Outcome struct {
	Invoice     string    `json:"invoice"`
	TicketID    string    `json:"ticketId,omitempty"`
	TicketType  string    `json:"ticketType"`
	StoreID     string    `json:"storeId"`
	Technician  string    `json:"technician,omitempty"`
	FinalStatus string    `json:"finalStatus,omitempty"`
	Failure     string    `json:"failure,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Artifact    string    `json:"artifact,omitempty"`
	At          time.Time `json:"at"`
}

// StatusAdvance records one status step applied to a created ticket.
type StatusAdvance struct {
	TicketID string    `json:"ticketId"`
	Status   string    `json:"status"`
	Position int       `json:"position"`
	At       time.Time `json:"at"`
}

// Producer sends ticket events to Kafka. A nil Producer discards events,
// which keeps the runner usable without a broker.
type Producer struct {
	outcomeWriter *kafka.Writer
	statusWriter  *kafka.Writer
}

// NewProducer creates a producer for the outcome and status topics.
func NewProducer(brokers []string, outcomeTopic, statusTopic string) *Producer {
	return &Producer{
		outcomeWriter: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    outcomeTopic,
			Balancer: &kafka.LeastBytes{},
		},
		statusWriter: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    statusTopic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// SendOutcome publishes the terminal outcome keyed by invoice reference.
func (p *Producer) SendOutcome(ctx context.Context, outcome Outcome) error {
	if p == nil {
		return nil
	}
	data, err := json.Marshal(outcome)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(outcome.Invoice),
		Value: data,
	}

	if err := p.outcomeWriter.WriteMessages(ctx, msg); err != nil {
		return err
	}

	log.Printf("Sent outcome to Kafka: %s", outcome.Invoice)
	return nil
}

// SendStatusAdvance publishes one status step keyed by ticket ID.
func (p *Producer) SendStatusAdvance(ctx context.Context, adv StatusAdvance) error {
	if p == nil {
		return nil
	}
	data, err := json.Marshal(adv)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(adv.TicketID),
		Value: data,
	}

	if err := p.statusWriter.WriteMessages(ctx, msg); err != nil {
		return err
	}

	log.Printf("Sent status advance to Kafka: %s %s", adv.TicketID, adv.Status)
	return nil
}

// Close closes the Kafka writers.
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	if err := p.outcomeWriter.Close(); err != nil {
		return err
	}
	return p.statusWriter.Close()
}
