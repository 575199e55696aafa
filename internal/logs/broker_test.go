package logs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker(nil)

	s1 := b.Subscribe()
	s2 := b.Subscribe()
	assert.Equal(t, 2, b.SubscriberCount())

	b.Publish(7)
	assert.EqualValues(t, 7, <-s1.Ch)
	assert.EqualValues(t, 7, <-s2.Ch)

	b.Unsubscribe(s1)
	assert.Equal(t, 1, b.SubscriberCount())

	b.Publish(8)
	assert.EqualValues(t, 8, <-s2.Ch)

	// The removed subscriber's channel is closed.
	_, open := <-s1.Ch
	assert.False(t, open)

	b.Unsubscribe(s2)
	// Unsubscribing twice is harmless.
	b.Unsubscribe(s2)
}

func TestBrokerDropsWhenSubscriberIsSlow(t *testing.T) {
	b := NewBroker(nil)
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	// Fill the buffer and keep publishing; Publish must never block.
	for v := uint64(1); v <= 100; v++ {
		b.Publish(v)
	}

	require.EqualValues(t, 1, <-sub.Ch, "buffered updates arrive in order")
}
