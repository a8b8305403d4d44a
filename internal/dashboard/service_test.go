package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestaozabele/eventos/internal/config"
)

type fakeSource struct {
	mu     sync.Mutex
	counts map[uuid.UUID][2]int
	err    error
	calls  int
}

func (f *fakeSource) PendingCounts(context.Context) (map[uuid.UUID][2]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[uuid.UUID][2]int, len(f.counts))
	for k, v := range f.counts {
		out[k] = v
	}
	return out, nil
}

func (f *fakeSource) set(counts map[uuid.UUID][2]int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts = counts
	f.err = err
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRunOnceBuildsAndMirrorsSnapshot(t *testing.T) {
	ctx := context.Background()
	eventID := uuid.New()
	src := &fakeSource{counts: map[uuid.UUID][2]int{eventID: {2, 1}}}
	rdb := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: rdb.Addr()})
	defer client.Close()
	svc := NewService(src, client, config.DashboardConfig{Enabled: true, Interval: time.Minute}, zerolog.Nop())

	require.NoError(t, svc.RunOnce(ctx))
	b := svc.Badge(ctx, eventID)
	assert.Equal(t, 2, b.PendingCalls)
	assert.Equal(t, 1, b.PendingTelao)
	assert.Equal(t, 3, b.Total())
	assert.True(t, rdb.Exists(badgeKey(eventID)))
	assert.Equal(t, 3*time.Minute, rdb.TTL(badgeKey(eventID)))

	// outra instância sem snapshot em memória lê do Redis
	other := NewService(src, client, config.DashboardConfig{}, zerolog.Nop())
	assert.Equal(t, 3, other.Badge(ctx, eventID).Total())

	// evento zerado continua publicado com zero
	src.set(map[uuid.UUID][2]int{}, nil)
	require.NoError(t, svc.RunOnce(ctx))
	assert.Equal(t, 0, svc.Badge(ctx, eventID).Total())
	assert.Equal(t, 0, other.Badge(ctx, eventID).Total())

	assert.Equal(t, Badge{EventID: uuid.Nil}, NewService(src, nil, config.DashboardConfig{}, zerolog.Nop()).Badge(ctx, uuid.Nil))
}

func TestFailedTickKeepsPreviousSnapshot(t *testing.T) {
	ctx := context.Background()
	eventID := uuid.New()
	src := &fakeSource{counts: map[uuid.UUID][2]int{eventID: {1, 0}}}
	svc := NewService(src, nil, config.DashboardConfig{Enabled: true}, zerolog.Nop())

	require.NoError(t, svc.RunOnce(ctx))
	src.set(nil, errors.New("banco fora"))
	assert.Error(t, svc.RunOnce(ctx))
	assert.Equal(t, 1, svc.Badge(ctx, eventID).PendingCalls)
}

func TestLoopPollsUntilStopped(t *testing.T) {
	src := &fakeSource{counts: map[uuid.UUID][2]int{}}
	svc := NewService(src, nil, config.DashboardConfig{Enabled: true, Interval: 10 * time.Millisecond}, zerolog.Nop())

	svc.Start(context.Background())
	svc.Start(context.Background())
	assert.Eventually(t, func() bool { return src.callCount() >= 3 }, time.Second, 5*time.Millisecond)
	svc.Stop()

	after := src.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, src.callCount())
}

func TestDisabledLoopDoesNotStart(t *testing.T) {
	src := &fakeSource{}
	svc := NewService(src, nil, config.DashboardConfig{Enabled: false, Interval: time.Millisecond}, zerolog.Nop())
	svc.Start(context.Background())
	svc.Stop()
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, src.callCount())
}
