package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGroup = "224.1.1.1:53507"

func TestNewBeaconDefaults(t *testing.T) {
	b, err := NewBeacon(DefaultGroup)
	require.NoError(t, err)

	assert.Equal(t, DefaultGroup, b.Group())
	assert.Equal(t, []byte(DefaultMessage), b.message)
	assert.Equal(t, DefaultInterval, b.interval)
	assert.Equal(t, DefaultTTL, b.ttl)
}

func TestNewBeaconOptions(t *testing.T) {
	b, err := NewBeacon(testGroup,
		WithMessage("HELLO"),
		WithInterval(time.Second),
		WithTTL(4),
		WithLogger(zerolog.Nop()),
	)
	require.NoError(t, err)

	assert.Equal(t, []byte("HELLO"), b.message)
	assert.Equal(t, time.Second, b.interval)
	assert.Equal(t, 4, b.ttl)

	// Zero values keep the defaults.
	b, err = NewBeacon(testGroup, WithMessage(""), WithInterval(0), WithTTL(0))
	require.NoError(t, err)
	assert.Equal(t, []byte(DefaultMessage), b.message)
	assert.Equal(t, DefaultInterval, b.interval)
	assert.Equal(t, DefaultTTL, b.ttl)
}

func TestInvalidGroup(t *testing.T) {
	tests := []string{
		"not an address",
		"127.0.0.1:5007",
		"10.0.0.1:5007",
	}

	for _, group := range tests {
		t.Run(group, func(t *testing.T) {
			_, err := NewBeacon(group)
			assert.True(t, errors.Is(err, ErrInvalidGroup), "got %v", err)

			_, err = Listen(context.Background(), group, DefaultMessage)
			assert.True(t, errors.Is(err, ErrInvalidGroup), "got %v", err)
		})
	}
}

func TestBeaconRunStopsOnCancel(t *testing.T) {
	b, err := NewBeacon(testGroup, WithInterval(10*time.Millisecond), WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestListenCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := Listen(ctx, "224.1.1.1:53508", DefaultMessage)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		t.Skipf("multicast not available: %v", err)
	}
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBeaconDiscovered(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	found := make(chan error, 1)
	go func() {
		addr, err := Listen(ctx, testGroup, "SIMON_TEST_BEACON")
		if err == nil && addr == nil {
			err = errors.New("nil address")
		}
		found <- err
	}()

	b, err := NewBeacon(testGroup,
		WithMessage("SIMON_TEST_BEACON"),
		WithInterval(20*time.Millisecond),
		WithLogger(zerolog.Nop()),
	)
	require.NoError(t, err)
	go b.Run(ctx)

	err = <-found
	if errors.Is(err, context.DeadlineExceeded) {
		t.Skip("multicast loopback not available in this environment")
	}
	if err != nil {
		t.Skipf("multicast not available: %v", err)
	}
}
