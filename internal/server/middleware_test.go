package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPLimiter_EvictsIdleClients(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newIPLimiter(1, 1)
	l.now = func() time.Time { return now }
	l.lastSweep = now

	a := l.get("10.0.0.1")
	l.get("10.0.0.2")
	assert.Len(t, l.limiters, 2)

	now = now.Add(limiterIdleTTL / 2)
	assert.Same(t, a, l.get("10.0.0.1"), "an active client keeps its bucket")

	now = now.Add(limiterIdleTTL/2 + time.Second)
	l.get("10.0.0.3")

	assert.Len(t, l.limiters, 2)
	assert.Contains(t, l.limiters, "10.0.0.1")
	assert.Contains(t, l.limiters, "10.0.0.3")
	assert.NotContains(t, l.limiters, "10.0.0.2")
}

func TestIPLimiter_SweepsAtMostOncePerTTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newIPLimiter(1, 1)
	l.now = func() time.Time { return now }
	l.lastSweep = now

	l.get("10.0.0.1")
	now = now.Add(limiterIdleTTL + time.Second)
	l.get("10.0.0.2")
	assert.NotContains(t, l.limiters, "10.0.0.1")
	swept := l.lastSweep

	now = now.Add(time.Minute)
	l.get("10.0.0.3")
	assert.Equal(t, swept, l.lastSweep)
	assert.Len(t, l.limiters, 2)
}
