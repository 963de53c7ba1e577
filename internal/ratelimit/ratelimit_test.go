package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllow_BurstThenDeny(t *testing.T) {
	krl := New(1, 3, time.Minute)
	defer krl.Stop()

	for i := range 3 {
		assert.True(t, krl.Allow("10.0.0.1"), "request %d within burst", i)
	}
	assert.False(t, krl.Allow("10.0.0.1"))
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	krl := New(1, 1, time.Minute)
	defer krl.Stop()

	assert.True(t, krl.Allow("a"))
	assert.False(t, krl.Allow("a"))
	assert.True(t, krl.Allow("b"))
}

func TestWait_RespectsContext(t *testing.T) {
	krl := New(0.001, 1, time.Minute)
	defer krl.Stop()

	require.True(t, krl.Allow("k"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, krl.Wait(ctx, "k"))
}

func TestSweep_EvictsIdleKeys(t *testing.T) {
	krl := New(1, 1, time.Minute)
	defer krl.Stop()

	now := time.Now()
	krl.now = func() time.Time { return now }
	krl.Allow("old")

	now = now.Add(2 * time.Minute)
	krl.Allow("fresh")
	krl.sweep()

	assert.Equal(t, 1, krl.Len())
}

func TestPerMinute(t *testing.T) {
	krl := PerMinute(60, 2)
	defer krl.Stop()

	assert.True(t, krl.Allow("k"))
	assert.True(t, krl.Allow("k"))
	assert.False(t, krl.Allow("k"))
}
