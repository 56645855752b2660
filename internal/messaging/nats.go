package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	subjectVerificationRun       = "verification.run"
	subjectVerificationCompleted = "verification.completed"
)

// RunVerificationMessage asks a worker to verify one supplier. TaskID is the
// opaque handle returned to the API caller at trigger time.
type RunVerificationMessage struct {
	TaskID      string    `json:"task_id"`
	SupplierID  string    `json:"supplier_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// VerificationCompletedMessage announces a terminal run outcome.
type VerificationCompletedMessage struct {
	TaskID     string `json:"task_id"`
	CheckID    string `json:"check_id,omitempty"`
	SupplierID string `json:"supplier_id"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

type NATSClient interface {
	PublishVerificationRun(ctx context.Context, msg RunVerificationMessage) error
	SubscribeVerificationRuns(ctx context.Context, queue string, handler func(RunVerificationMessage)) error
	PublishVerificationCompleted(ctx context.Context, msg VerificationCompletedMessage) error
	SubscribeVerificationCompleted(ctx context.Context, handler func(VerificationCompletedMessage)) error
	Close()
}

// natsConnection is the slice of *nats.Conn the client uses; tests substitute
// a mock.
type natsConnection interface {
	Publish(subj string, data []byte) error
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
	QueueSubscribe(subj, queue string, cb nats.MsgHandler) (*nats.Subscription, error)
	Close()
}

type natsClient struct {
	conn   natsConnection
	logger *zap.Logger
}

func NewNATSClient(url string, logger *zap.Logger) (NATSClient, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("connected to NATS", zap.String("url", url))
	return &natsClient{conn: conn, logger: logger}, nil
}

func (c *natsClient) PublishVerificationRun(ctx context.Context, msg RunVerificationMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("failed to marshal verification run message", zap.Error(err))
		return fmt.Errorf("failed to marshal verification run message: %w", err)
	}

	if err := c.conn.Publish(subjectVerificationRun, data); err != nil {
		c.logger.Error("failed to publish verification run", zap.Error(err), zap.String("supplier_id", msg.SupplierID))
		return fmt.Errorf("failed to publish verification run: %w", err)
	}

	c.logger.Info("verification run published",
		zap.String("task_id", msg.TaskID),
		zap.String("supplier_id", msg.SupplierID))
	return nil
}

// SubscribeVerificationRuns joins the worker queue group, so each run message
// is delivered to exactly one worker (at-least-once across redeliveries).
func (c *natsClient) SubscribeVerificationRuns(ctx context.Context, queue string, handler func(RunVerificationMessage)) error {
	_, err := c.conn.QueueSubscribe(subjectVerificationRun, queue, func(msg *nats.Msg) {
		var runMsg RunVerificationMessage
		if err := json.Unmarshal(msg.Data, &runMsg); err != nil {
			c.logger.Error("failed to unmarshal verification run message", zap.Error(err))
			return
		}
		handler(runMsg)
	})
	if err != nil {
		c.logger.Error("failed to subscribe to verification runs", zap.Error(err))
		return fmt.Errorf("failed to subscribe to verification runs: %w", err)
	}

	c.logger.Info("subscribed to verification run messages", zap.String("queue", queue))
	return nil
}

func (c *natsClient) PublishVerificationCompleted(ctx context.Context, msg VerificationCompletedMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("failed to marshal verification completed message", zap.Error(err))
		return fmt.Errorf("failed to marshal verification completed message: %w", err)
	}

	if err := c.conn.Publish(subjectVerificationCompleted, data); err != nil {
		c.logger.Error("failed to publish verification completed", zap.Error(err), zap.String("supplier_id", msg.SupplierID))
		return fmt.Errorf("failed to publish verification completed: %w", err)
	}
	return nil
}

func (c *natsClient) SubscribeVerificationCompleted(ctx context.Context, handler func(VerificationCompletedMessage)) error {
	_, err := c.conn.Subscribe(subjectVerificationCompleted, func(msg *nats.Msg) {
		var completedMsg VerificationCompletedMessage
		if err := json.Unmarshal(msg.Data, &completedMsg); err != nil {
			c.logger.Error("failed to unmarshal verification completed message", zap.Error(err))
			return
		}

		handler(completedMsg)
		c.logger.Info("verification completed message processed",
			zap.String("supplier_id", completedMsg.SupplierID),
			zap.String("status", completedMsg.Status))
	})
	if err != nil {
		c.logger.Error("failed to subscribe to verification completed", zap.Error(err))
		return fmt.Errorf("failed to subscribe to verification completed: %w", err)
	}

	c.logger.Info("subscribed to verification completed messages")
	return nil
}

func (c *natsClient) Close() {
	if c.conn != nil {
		c.conn.Close()
		c.logger.Info("NATS connection closed")
	}
}
