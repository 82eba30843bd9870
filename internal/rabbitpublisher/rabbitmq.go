package rabbitpublisher

import (
	"context"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
	"github.com/wb-go/wbf/retry"

	"github.com/gatorlabs/labbot/internal/config"
)

// Publisher owns the AMQP connection to the chat gateway exchange. Each
// destination channel is a direct-exchange routing key with a durable queue
// bound to it, so reminders published before the gateway comes up are not
// lost.
type Publisher struct {
	conn          *amqp091.Connection
	channel       *amqp091.Channel
	exchange      string
	contentType   string
	retryStrategy retry.Strategy
}

// NewPublisher connects (with retries), declares the exchange and binds one
// queue per destination channel.
func NewPublisher(ctx context.Context, rabbitCfg config.RabbitMQConfig, strategy retry.Strategy, channels []string) (*Publisher, error) {
	var conn *amqp091.Connection
	var err error

	err = retry.DoContext(ctx, strategy, func() error {
		conn, err = amqp091.Dial(fmt.Sprintf(
			"amqp://%s:%s@%s:%d/%s",
			rabbitCfg.User,
			rabbitCfg.Password,
			rabbitCfg.Host,
			rabbitCfg.Port,
			rabbitCfg.VHost,
		))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error connecting to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("error creating channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		rabbitCfg.Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return nil, fmt.Errorf("error declaring exchange: %w", err)
	}

	for _, destination := range channels {
		queueName := "reminders." + destination
		if _, err := ch.QueueDeclare(
			queueName,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,
		); err != nil {
			return nil, fmt.Errorf("error declaring queue %q: %w", queueName, err)
		}
		if err := ch.QueueBind(queueName, destination, rabbitCfg.Exchange, false, nil); err != nil {
			return nil, fmt.Errorf("error binding queue %q: %w", queueName, err)
		}
	}

	return &Publisher{
		conn:          conn,
		channel:       ch,
		exchange:      rabbitCfg.Exchange,
		contentType:   "application/json",
		retryStrategy: strategy,
	}, nil
}

// PublishWithRetry publishes one message to the exchange under the given
// routing key, retrying per the configured strategy.
func (p *Publisher) PublishWithRetry(ctx context.Context, body []byte, routingKey string) error {
	return retry.DoContext(ctx, p.retryStrategy, func() error {
		return p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp091.Publishing{
			ContentType: p.contentType,
			Body:        body,
		})
	})
}

func (p *Publisher) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			return err
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
