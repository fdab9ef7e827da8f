package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"catalog_sync/internal/domain"
)

// Syncer runs a sync for one integration.
type Syncer interface {
	SyncIntegration(ctx context.Context, integrationID string) (*domain.SyncResult, error)
}

type ServerConfig struct {
	URL   string
	Queue string
}

// TriggerServer consumes sync trigger requests and replies with the run's counts.
type TriggerServer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	syncer  Syncer
	logger  *slog.Logger
}

func NewTriggerServer(cfg ServerConfig, syncer Syncer, logger *slog.Logger) (*TriggerServer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		cfg.Queue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	// Sync runs are long; hand out one trigger at a time.
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	logger.Info("trigger server ready", "queue", cfg.Queue)

	return &TriggerServer{
		conn:    conn,
		channel: ch,
		queue:   cfg.Queue,
		syncer:  syncer,
		logger:  logger,
	}, nil
}

// Serve handles trigger requests until ctx is cancelled or the delivery channel closes.
func (s *TriggerServer) Serve(ctx context.Context) error {
	deliveries, err := s.channel.Consume(
		s.queue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume triggers: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("trigger delivery channel closed")
			}
			s.handle(ctx, d)
		}
	}
}

func (s *TriggerServer) handle(ctx context.Context, d amqp.Delivery) {
	resp := s.process(ctx, d.Body)

	if d.ReplyTo != "" {
		if err := s.reply(ctx, d, resp); err != nil {
			s.logger.Error("failed to reply to trigger", "correlation_id", d.CorrelationId, "error", err)
		}
	}

	if err := d.Ack(false); err != nil {
		s.logger.Error("failed to ack trigger", "error", err)
	}
}

func (s *TriggerServer) process(ctx context.Context, body []byte) TriggerResponse {
	var req TriggerRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return TriggerResponse{Error: fmt.Sprintf("invalid request: %v", err)}
	}
	if req.IntegrationID == "" {
		return TriggerResponse{Error: "integrationId is required"}
	}

	s.logger.Info("sync triggered", "integration_id", req.IntegrationID)

	result, err := s.syncer.SyncIntegration(ctx, req.IntegrationID)
	if err != nil {
		s.logger.Error("triggered sync failed", "integration_id", req.IntegrationID, "error", err)
		return TriggerResponse{Error: err.Error()}
	}

	return TriggerResponse{
		Created: result.Created,
		Updated: result.Updated,
		Skipped: result.Skipped,
	}
}

func (s *TriggerServer) reply(ctx context.Context, d amqp.Delivery, resp TriggerResponse) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}

	return s.channel.PublishWithContext(
		context.WithoutCancel(ctx),
		"",
		d.ReplyTo,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: d.CorrelationId,
			Body:          body,
			Timestamp:     time.Now(),
		},
	)
}

func (s *TriggerServer) Close() error {
	if s.channel != nil {
		s.channel.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
