package gameserver

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerScheduler_Fires(t *testing.T) {
	s := NewTimerScheduler()
	defer s.Stop()

	fired := make(chan struct{})
	s.Schedule("AB12", 10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("callback did not fire")
	}
	assert.Eventually(t, func() bool { return s.Pending() == 0 }, time.Second, 5*time.Millisecond)
}

func TestTimerScheduler_RescheduleReplaces(t *testing.T) {
	s := NewTimerScheduler()
	defer s.Stop()

	var first, second atomic.Int32
	s.Schedule("AB12", 20*time.Millisecond, func() { first.Add(1) })
	s.Schedule("AB12", 40*time.Millisecond, func() { second.Add(1) })
	require.Equal(t, 1, s.Pending())

	assert.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
}

func TestTimerScheduler_Cancel(t *testing.T) {
	s := NewTimerScheduler()
	defer s.Stop()

	var fired atomic.Bool
	s.Schedule("AB12", 20*time.Millisecond, func() { fired.Store(true) })
	s.Cancel("AB12")
	s.Cancel("missing")

	time.Sleep(60 * time.Millisecond)
	assert.False(t, fired.Load())
	assert.Equal(t, 0, s.Pending())
}

func TestTimerScheduler_KeysIndependent(t *testing.T) {
	s := NewTimerScheduler()
	defer s.Stop()

	var a, b atomic.Bool
	s.Schedule("A", 10*time.Millisecond, func() { a.Store(true) })
	s.Schedule("B", 10*time.Millisecond, func() { b.Store(true) })
	s.Cancel("A")

	assert.Eventually(t, b.Load, time.Second, 5*time.Millisecond)
	assert.False(t, a.Load())
}

func TestTimerScheduler_StopCancelsAndRejects(t *testing.T) {
	s := NewTimerScheduler()
	var fired atomic.Int32
	s.Schedule("A", 20*time.Millisecond, func() { fired.Add(1) })
	s.Stop()
	s.Schedule("B", time.Millisecond, func() { fired.Add(1) })

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
	assert.Equal(t, 0, s.Pending())
}
