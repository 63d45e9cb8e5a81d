package pub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Event types.
const (
	EventSyncCompleted      = "bank.sync.completed"
	EventTransactionMatched = "bank.transaction.matched"
)

// Event is the JSON payload published for downstream consumers such as
// dunning or dashboard refresh.
type Event struct {
	EventType       string    `json:"event_type"`
	OrganizationID  string    `json:"organization_id"`
	TransactionID   string    `json:"transaction_id,omitempty"`
	TenantID        string    `json:"tenant_id,omitempty"`
	LeaseID         string    `json:"lease_id,omitempty"`
	MatchStatus     string    `json:"match_status,omitempty"`
	ActorID         string    `json:"actor_id,omitempty"`
	NewTransactions int       `json:"new_transactions,omitempty"`
	Matched         int       `json:"matched,omitempty"`
	Accounts        int       `json:"accounts_processed,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// Publisher emits bank events. Publishing is best effort: callers log and
// continue on error.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NopPublisher drops events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// RedisPublisher publishes events on a redis pub/sub channel.
type RedisPublisher struct {
	rdb     redis.UniversalClient
	channel string
	logger  *zap.Logger
}

func NewRedisPublisher(rdb redis.UniversalClient, channel string, logger *zap.Logger) *RedisPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPublisher{rdb: rdb, channel: channel, logger: logger}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	p.logger.Debug("event published", zap.String("event_type", ev.EventType), zap.String("organization_id", ev.OrganizationID))
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.Events = append(r.Events, ev)
	return nil
}
