package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"catalog_sync/internal/domain"
)

var ErrClientClosed = errors.New("rpc client closed")

type ClientConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
	Timeout    time.Duration
}

// RPCClient sends listing upserts to the catalog ingestion service and waits for each reply.
type RPCClient struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	timeout    time.Duration
	logger     *slog.Logger

	publishMu sync.Mutex
	mu        sync.Mutex
	pending   map[string]chan amqp.Delivery
	closed    bool
	done      chan struct{}
}

func NewRPCClient(cfg ClientConfig, logger *slog.Logger) (*RPCClient, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	// Direct reply-to requires consuming in no-ack mode before the first publish.
	replies, err := ch.Consume(
		DirectReplyTo,
		"",
		true,
		true,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("consume replies: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"routing_key", cfg.RoutingKey,
	)

	c := &RPCClient{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		timeout:    timeout,
		logger:     logger,
		pending:    make(map[string]chan amqp.Delivery),
		done:       make(chan struct{}),
	}
	go c.routeReplies(replies)

	return c, nil
}

// Upsert implements the dispatcher used by the sync service.
func (c *RPCClient) Upsert(ctx context.Context, integrationID string, listing *domain.Listing) (*domain.UpsertResult, error) {
	body, err := json.Marshal(UpsertRequest{
		IntegrationID: integrationID,
		ListingData:   listing,
		Timestamp:     time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	reply, err := c.call(ctx, body)
	if err != nil {
		return nil, err
	}

	var resp UpsertResponse
	if err := json.Unmarshal(reply.Body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("ingestion rejected listing %s: %s", listing.ExternalID, resp.Error)
	}

	c.logger.Debug("upserted listing",
		"external_id", listing.ExternalID,
		"action", resp.Action,
		"listing_id", resp.ListingID,
	)

	return &domain.UpsertResult{Action: resp.Action, ListingID: resp.ListingID}, nil
}

func (c *RPCClient) call(ctx context.Context, body []byte) (amqp.Delivery, error) {
	corrID := uuid.NewString()
	replyCh := make(chan amqp.Delivery, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return amqp.Delivery{}, ErrClientClosed
	}
	c.pending[corrID] = replyCh
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, corrID)
		c.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.publishMu.Lock()
	err := c.channel.PublishWithContext(
		ctx,
		c.exchange,
		c.routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: corrID,
			ReplyTo:       DirectReplyTo,
			Expiration:    strconv.FormatInt(c.timeout.Milliseconds(), 10),
			Body:          body,
			Timestamp:     time.Now(),
		},
	)
	c.publishMu.Unlock()
	if err != nil {
		return amqp.Delivery{}, fmt.Errorf("publish request: %w", err)
	}

	select {
	case reply := <-replyCh:
		return reply, nil
	case <-c.done:
		return amqp.Delivery{}, ErrClientClosed
	case <-ctx.Done():
		return amqp.Delivery{}, fmt.Errorf("wait for reply: %w", ctx.Err())
	}
}

func (c *RPCClient) routeReplies(replies <-chan amqp.Delivery) {
	for d := range replies {
		c.mu.Lock()
		replyCh, ok := c.pending[d.CorrelationId]
		c.mu.Unlock()

		if !ok {
			c.logger.Warn("dropping reply without pending request", "correlation_id", d.CorrelationId)
			continue
		}
		select {
		case replyCh <- d:
		default:
		}
	}
	c.shutdown()
}

func (c *RPCClient) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
}

func (c *RPCClient) Close() error {
	c.shutdown()
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
