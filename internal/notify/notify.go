// README: Push-delivery sink; the core decides when and what, delivery happens elsewhere.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Template names consumed by the delivery worker.
const (
	TemplateReservationRequested = "reservation_requested"
	TemplateReservationAccepted  = "reservation_accepted"
	TemplateReservationRejected  = "reservation_rejected"
	TemplateReservationCancelled = "reservation_cancelled"
	TemplatePaymentCaptured      = "payment_captured"
	TemplateCheckinComplete      = "checkin_complete"
	TemplateCheckoutComplete     = "checkout_complete"
	TemplateReportSubmitted      = "report_submitted"
	TemplateDisputeOpened        = "dispute_opened"
	TemplateDisputeResolved      = "dispute_resolved"
)

// Sink delivers a notification to a single user. Implementations must be
// safe to call from request handlers; failures are the caller's to log,
// never to propagate.
type Sink interface {
	Notify(ctx context.Context, userID, template string, data map[string]any) error
}

const queueKey = "notify:queue"

// RedisSink enqueues notifications onto a Redis list drained by the
// delivery worker.
type RedisSink struct {
	redis *redis.Client
}

func NewRedisSink(redis *redis.Client) *RedisSink {
	return &RedisSink{redis: redis}
}

type envelope struct {
	UserID    string         `json:"user_id"`
	Template  string         `json:"template"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func (s *RedisSink) Notify(ctx context.Context, userID, template string, data map[string]any) error {
	b, err := json.Marshal(envelope{
		UserID:    userID,
		Template:  template,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return s.redis.LPush(ctx, queueKey, b).Err()
}

// LogSink writes notifications to the log; used in tests and single-node
// deployments without Redis.
type LogSink struct {
	log *logrus.Logger
}

func NewLogSink(log *logrus.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Notify(ctx context.Context, userID, template string, data map[string]any) error {
	if s.log != nil {
		s.log.WithFields(logrus.Fields{"user_id": userID, "template": template}).Info("notify")
	}
	return nil
}
