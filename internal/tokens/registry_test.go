package tokens

import (
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/webterm/internal/shared/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestConsumeIsSingleUse(t *testing.T) {
	r := NewRegistry(time.Minute)

	token, _ := r.Issue()
	require.NoError(t, r.Consume(token))
	assert.ErrorIs(t, r.Consume(token), ErrUnknown)
}

func TestConsumeUnknown(t *testing.T) {
	r := NewRegistry(time.Minute)
	assert.ErrorIs(t, r.Consume(id.NewToken()), ErrUnknown)
}

func TestTokensExpire(t *testing.T) {
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	r := NewRegistry(time.Minute, WithClock(c.Now))

	token, expires := r.Issue()
	assert.Equal(t, c.Now().Add(time.Minute), expires)
	assert.Equal(t, 1, r.Pending())

	c.advance(time.Minute)
	assert.ErrorIs(t, r.Consume(token), ErrExpired)
	assert.Equal(t, 0, r.Pending())
}

func TestPendingPrunesExpired(t *testing.T) {
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	r := NewRegistry(time.Minute, WithClock(c.Now))

	r.Issue()
	c.advance(30 * time.Second)
	r.Issue()
	assert.Equal(t, 2, r.Pending())

	c.advance(45 * time.Second)
	assert.Equal(t, 1, r.Pending())
}

func TestDefaultTTL(t *testing.T) {
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	r := NewRegistry(0, WithClock(c.Now))

	_, expires := r.Issue()
	assert.Equal(t, c.Now().Add(DefaultTTL), expires)
}
