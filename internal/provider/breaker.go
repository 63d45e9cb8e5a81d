package provider

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig configures Breaker.
type BreakerConfig struct {
	Name                string
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration // how long the breaker stays open
	ConsecutiveFailures uint32
	CallTimeout         time.Duration // per-call deadline, 0 disables
}

// Breaker guards a Feed with a circuit breaker and per-call timeout. Once the
// breaker is open, calls fail fast with ErrUnavailable.
type Breaker struct {
	feed        Feed
	cb          *gobreaker.CircuitBreaker
	callTimeout time.Duration
	logger      *zap.Logger
}

func NewBreaker(feed Feed, cfg BreakerConfig, logger *zap.Logger) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Name == "" {
		cfg.Name = "bank-feed"
	}
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	b := &Breaker{feed: feed, callTimeout: cfg.CallTimeout, logger: logger}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return b
}

// State reports the breaker state, e.g. "closed" or "open".
func (b *Breaker) State() string { return b.cb.State().String() }

func (b *Breaker) FetchTransactions(ctx context.Context, acct Account) ([]RawTransaction, error) {
	res, err := b.execute(ctx, func(ctx context.Context) (interface{}, error) {
		return b.feed.FetchTransactions(ctx, acct)
	})
	if err != nil {
		return nil, err
	}
	return res.([]RawTransaction), nil
}

func (b *Breaker) FetchBalance(ctx context.Context, acct Account) (Balance, error) {
	res, err := b.execute(ctx, func(ctx context.Context) (interface{}, error) {
		return b.feed.FetchBalance(ctx, acct)
	})
	if err != nil {
		return Balance{}, err
	}
	return res.(Balance), nil
}

func (b *Breaker) execute(ctx context.Context, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	if b.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.callTimeout)
		defer cancel()
	}
	res, err := b.cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.logger.Warn("bank feed call rejected", zap.String("state", b.State()))
		return nil, ErrUnavailable
	}
	return res, err
}
