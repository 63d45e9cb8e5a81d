package pub

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisherSurfacesConnectionErrors(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	p := NewRedisPublisher(rdb, "bank_events", nil)
	err := p.Publish(ctx, Event{EventType: EventSyncCompleted, OrganizationID: "org-1"})
	require.ErrorContains(t, err, "publish event")
}

func TestRecorderAndNop(t *testing.T) {
	t.Parallel()

	var p Publisher = &Recorder{}
	require.NoError(t, p.Publish(context.Background(), Event{EventType: EventTransactionMatched}))
	require.Len(t, p.(*Recorder).Events, 1)
	require.NoError(t, NopPublisher{}.Publish(context.Background(), Event{}))
}
