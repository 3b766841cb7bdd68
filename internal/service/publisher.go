package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/iliyamo/referral-service/internal/queue"
)

// AMQPPublisher publishes referral events to RabbitMQ. A circuit breaker
// stops dialing a broker that keeps failing so referrals are not slowed by
// repeated connection timeouts.
type AMQPPublisher struct {
	URL string
	cb  *gobreaker.CircuitBreaker
	log *logrus.Logger
}

func NewAMQPPublisher(url string, log *logrus.Logger) *AMQPPublisher {
	st := gobreaker.Settings{
		Name:        "rabbitmq-publisher",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
				Warn("circuit breaker state changed")
		},
	}
	return &AMQPPublisher{URL: url, cb: gobreaker.NewCircuitBreaker(st), log: log}
}

// PublishReferralProcessed publishes ev to the referral.processed queue as
// a persistent message. When the breaker is open it returns
// gobreaker.ErrOpenState without touching the network.
func (p *AMQPPublisher) PublishReferralProcessed(ctx context.Context, ev queue.ReferralProcessedEvent) error {
	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, p.publish(ctx, ev)
	})
	return err
}

func (p *AMQPPublisher) publish(ctx context.Context, ev queue.ReferralProcessedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}

	conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: amqp.DefaultDial(3 * time.Second)})
	if err != nil {
		return errors.Wrap(err, "rabbitmq dial")
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return errors.Wrap(err, "rabbitmq channel")
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue.ReferralProcessedQueue, true, false, false, false, nil); err != nil {
		return errors.Wrap(err, "rabbitmq queue declare")
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue.ReferralProcessedQueue, false, false, pub); err != nil {
		return errors.Wrap(err, "rabbitmq publish")
	}
	return nil
}
