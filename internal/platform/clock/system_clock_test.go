package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemClock_NowIsUTCMicroseconds(t *testing.T) {
	c := NewSystemClock()
	for i := 0; i < 50; i++ {
		now := c.Now()
		assert.Equal(t, time.UTC, now.Location())
		assert.Zero(t, now.Nanosecond()%int(time.Microsecond), "sub-microsecond digits leaked: %s", now.Format(time.RFC3339Nano))
	}
}

func TestManualClock_Advance(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("JST", 9*3600))
	c := NewManualClock(start)
	assert.Equal(t, time.UTC, c.Now().Location())

	c.Advance(90 * time.Second)
	assert.True(t, c.Now().Equal(start.Add(90*time.Second)))
}
