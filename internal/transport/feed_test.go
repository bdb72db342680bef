// internal/transport/feed_test.go
package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFeed_KeepsLatestWhenFull(t *testing.T) {
	f := NewStatusFeed(2)

	assert.False(t, f.Publish(Event{Type: EventStatus, Status: StatusConnecting}))
	assert.False(t, f.Publish(Event{Type: EventStatus, Status: StatusOpen}))
	assert.True(t, f.Publish(Event{Type: EventStatus, Status: StatusClosed}))

	require.Len(t, f.C(), 2)
	assert.Equal(t, StatusOpen, (<-f.C()).Status)
	assert.Equal(t, StatusClosed, (<-f.C()).Status)
}

func TestStatusFeed_DefaultSize(t *testing.T) {
	f := NewStatusFeed(0)
	assert.Equal(t, DefaultStatusBuffer, cap(f.ch))
}
