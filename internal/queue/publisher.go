package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"brrowbooking/internal/db"
)

const transactionsExchange = "brrow.transactions"

// Publisher emits transaction events to RabbitMQ. It satisfies the
// service layer's TransactionEvents observer.
type Publisher struct {
	channel *amqp.Channel
	log     *logrus.Logger
}

// NewPublisher opens a channel and declares the durable topic exchange.
func NewPublisher(conn *amqp.Connection, log *logrus.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.ExchangeDeclare(transactionsExchange, "topic", true, false, false, false, nil); err != nil {
		return nil, err
	}
	return &Publisher{channel: ch, log: log}, nil
}

func (p *Publisher) TransactionSucceeded(tx db.Transaction) {
	p.publish(RouteSucceeded, eventFrom(tx, ""))
}

func (p *Publisher) TransactionFailed(tx db.Transaction, reason string) {
	p.publish(RouteFailed, eventFrom(tx, reason))
}

func (p *Publisher) TransactionConfirmationFailed(tx db.Transaction) {
	p.publish(RouteConfirmationFailed, eventFrom(tx, ""))
}

func (p *Publisher) publish(routingKey string, ev TransactionEvent) {
	body, err := json.Marshal(ev)
	if err != nil {
		p.log.WithError(err).Error("could not marshal transaction event")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = p.channel.PublishWithContext(ctx, transactionsExchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.log.WithError(err).WithField("routing_key", routingKey).Error("could not publish transaction event")
	}
}

func eventFrom(tx db.Transaction, reason string) TransactionEvent {
	return TransactionEvent{
		TransactionID: tx.ID,
		ListingID:     tx.ListingID,
		BuyerID:       tx.BuyerID,
		SellerID:      tx.SellerID,
		Type:          tx.Type,
		State:         tx.State,
		AmountCents:   tx.AmountCents,
		Reason:        reason,
		OccurredAt:    time.Now().UTC(),
	}
}
