package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestRealClock(t *testing.T) {
	t.Parallel()
	var c Clock = RealClock{}
	start := c.Now()
	c.Sleep(time.Millisecond)
	assert.GreaterOrEqual(t, c.Since(start), time.Millisecond)

	tk := c.NewTicker(time.Millisecond)
	defer tk.Stop()
	select {
	case <-tk.C():
	case <-time.After(time.Second):
		t.Fatal("real ticker never fired")
	}
}

func TestMockClock_NowAndSince(t *testing.T) {
	t.Parallel()
	c := NewMockClock(epoch)
	assert.Equal(t, epoch, c.Now())

	c.Advance(50 * time.Millisecond)
	assert.Equal(t, 50*time.Millisecond, c.Since(epoch))
}

func TestMockClock_SleepAdvances(t *testing.T) {
	t.Parallel()
	c := NewMockClock(epoch)
	c.Sleep(30 * time.Millisecond)
	c.Sleep(20 * time.Millisecond)
	assert.Equal(t, 50*time.Millisecond, c.Slept())
	assert.Equal(t, epoch.Add(50*time.Millisecond), c.Now())
}

func TestMockTicker_FiresOnInterval(t *testing.T) {
	t.Parallel()
	c := NewMockClock(epoch)
	tk := c.NewTicker(time.Second)

	c.Advance(999 * time.Millisecond)
	select {
	case <-tk.C():
		t.Fatal("ticked early")
	default:
	}

	c.Advance(time.Millisecond)
	select {
	case got := <-tk.C():
		assert.Equal(t, epoch.Add(time.Second), got)
	default:
		t.Fatal("expected a tick at 1s")
	}
}

func TestMockTicker_DropsWhenReaderBehind(t *testing.T) {
	t.Parallel()
	c := NewMockClock(epoch)
	tk := c.NewTicker(time.Second)

	c.Advance(time.Second)
	c.Advance(time.Second)
	c.Advance(time.Second)

	require.Len(t, tk.C(), 1)
	<-tk.C()
	assert.Len(t, tk.C(), 0)

	// A single large jump schedules the next tick past now.
	c.Advance(5 * time.Second)
	<-tk.C()
	c.Advance(500 * time.Millisecond)
	assert.Len(t, tk.C(), 0)
}

func TestMockTicker_Stop(t *testing.T) {
	t.Parallel()
	c := NewMockClock(epoch)
	tk := c.NewTicker(time.Second)
	assert.Equal(t, 1, c.TickerCount())

	tk.Stop()
	assert.Equal(t, 0, c.TickerCount())
	c.Advance(2 * time.Second)
	assert.Len(t, tk.C(), 0)
}
