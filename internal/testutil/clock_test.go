package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock_Frozen(t *testing.T) {
	start := time.Unix(1000, 0)
	c := NewManualClock(start)

	assert.Equal(t, start, c.Now())
	assert.Equal(t, start, c.Now(), "time does not move on its own")
}

func TestManualClock_Advance(t *testing.T) {
	start := time.Unix(1000, 0)
	c := NewManualClock(start)

	c.Advance(30 * time.Second)
	assert.Equal(t, start.Add(30*time.Second), c.Now())

	c.Set(time.Unix(5000, 0))
	assert.Equal(t, time.Unix(5000, 0), c.Now())
}

func TestManualClock_ConcurrentAccess(t *testing.T) {
	c := NewManualClock(time.Unix(0, 0))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Advance(time.Second)
				_ = c.Now()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, time.Unix(1000, 0), c.Now())
}
