package changefeed

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/streadway/amqp"
)

// AMQPConfig configures the RabbitMQ-backed change bus
type AMQPConfig struct {
	URL        string
	Exchange   string
	Queue      string
	RetryCount int
	RetryDelay time.Duration
}

// AMQPBus carries change events over a RabbitMQ topic exchange, for
// deployments where more than one process writes the same record store.
type AMQPBus struct {
	config     AMQPConfig
	connection *amqp.Connection
	channel    *amqp.Channel
	mu         sync.Mutex
	handlers   []func(Event)
	closed     bool
}

// NewAMQPBus connects to RabbitMQ and declares the change exchange,
// retrying the dial a configured number of times.
func NewAMQPBus(config AMQPConfig) (*AMQPBus, error) {
	if config.RetryCount <= 0 {
		config.RetryCount = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 5 * time.Second
	}

	bus := &AMQPBus{config: config}

	var err error
	for i := 0; i < config.RetryCount; i++ {
		bus.connection, err = amqp.Dial(config.URL)
		if err != nil {
			log.Printf("RabbitMQ connection error (attempt %d/%d): %v", i+1, config.RetryCount, err)
			if i < config.RetryCount-1 {
				time.Sleep(config.RetryDelay)
				continue
			}
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		break
	}

	bus.channel, err = bus.connection.Channel()
	if err != nil {
		bus.connection.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	err = bus.channel.ExchangeDeclare(
		config.Exchange, // name
		"topic",         // type
		true,            // durable
		false,           // auto-deleted
		false,           // internal
		false,           // no-wait
		nil,             // arguments
	)
	if err != nil {
		bus.channel.Close()
		bus.connection.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	if err := bus.startConsuming(); err != nil {
		bus.channel.Close()
		bus.connection.Close()
		return nil, err
	}

	log.Printf("Connected to RabbitMQ change feed on exchange %s", config.Exchange)
	return bus, nil
}

// Publish sends the event to the change exchange with a routing key of
// the form stock.<collection>.<kind>.
func (b *AMQPBus) Publish(event Event) error {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("event serialization error: %w", err)
	}

	routingKey := fmt.Sprintf("stock.%s.%s", event.Collection, event.Kind)
	err = b.channel.Publish(
		b.config.Exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.At,
		},
	)
	if err != nil {
		return fmt.Errorf("event publish error: %w", err)
	}
	return nil
}

// Subscribe registers a handler for events arriving from the queue
func (b *AMQPBus) Subscribe(handler func(Event)) func() {
	b.mu.Lock()
	b.handlers = append(b.handlers, handler)
	index := len(b.handlers) - 1
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.handlers[index] = nil
	}
}

func (b *AMQPBus) startConsuming() error {
	queue, err := b.channel.QueueDeclare(
		b.config.Queue, // name
		true,           // durable
		false,          // delete when unused
		false,          // exclusive
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("queue declare error: %w", err)
	}

	if err := b.channel.QueueBind(queue.Name, "stock.#", b.config.Exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind error: %w", err)
	}

	messages, err := b.channel.Consume(
		queue.Name,     // queue
		b.config.Queue, // consumer
		false,          // auto-ack
		false,          // exclusive
		false,          // no-local
		false,          // no-wait
		nil,            // args
	)
	if err != nil {
		return fmt.Errorf("consume start error: %w", err)
	}

	go func() {
		for msg := range messages {
			b.handleMessage(msg)
		}
	}()
	return nil
}

func (b *AMQPBus) handleMessage(msg amqp.Delivery) {
	var event Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		log.Printf("change event deserialize error: %v", err)
		msg.Nack(false, false)
		return
	}

	b.mu.Lock()
	handlers := make([]func(Event), len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.Unlock()

	for _, handler := range handlers {
		if handler != nil {
			handler(event)
		}
	}
	msg.Ack(false)
}

// Close shuts down the RabbitMQ channel and connection
func (b *AMQPBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var closeErr error
	if b.channel != nil {
		if err := b.channel.Close(); err != nil {
			closeErr = fmt.Errorf("channel close error: %w", err)
		}
	}
	if b.connection != nil {
		if err := b.connection.Close(); err != nil && closeErr == nil {
			closeErr = fmt.Errorf("connection close error: %w", err)
		}
	}
	return closeErr
}
