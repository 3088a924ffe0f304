package server

import (
	"sync"
	"time"
)

// timerScheduler owns every countdown in the process, one active timer per
// room. Cancel is the single teardown entry point; session end, room
// deletion, and disconnect-empties-room all go through it, so a timer can
// never outlive its room.
type timerScheduler struct {
	mu     sync.Mutex
	timers map[string]*roomTimer
}

type roomTimer struct {
	cancel func()
}

func newTimerScheduler() *timerScheduler {
	return &timerScheduler{timers: make(map[string]*roomTimer)}
}

// Countdown ticks once per second. Each tick reports the seconds left and
// returns whether the countdown should keep running; when it reaches zero the
// timer removes itself and calls expire. Starting a countdown replaces any
// timer already running for the room.
func (ts *timerScheduler) Countdown(roomID string, seconds int, tick func(secondsLeft int) bool, expire func()) {
	stop := make(chan struct{})
	t := &roomTimer{cancel: func() { close(stop) }}
	ts.replace(roomID, t)

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		left := seconds
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				left--
				if !tick(left) {
					ts.removeIfCurrent(roomID, t)
					return
				}
				if left <= 0 {
					if ts.removeIfCurrent(roomID, t) {
						expire()
					}
					return
				}
			}
		}
	}()
}

// After schedules a one-shot callback without tick notifications, used for
// the result settle delay.
func (ts *timerScheduler) After(roomID string, d time.Duration, fn func()) {
	stop := make(chan struct{})
	t := &roomTimer{cancel: func() { close(stop) }}
	ts.replace(roomID, t)

	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-stop:
		case <-timer.C:
			if ts.removeIfCurrent(roomID, t) {
				fn()
			}
		}
	}()
}

// Cancel stops the room's active timer, if any. Safe to call from inside a
// room's serialized section and safe to call repeatedly.
func (ts *timerScheduler) Cancel(roomID string) {
	ts.mu.Lock()
	t := ts.timers[roomID]
	delete(ts.timers, roomID)
	ts.mu.Unlock()
	if t != nil {
		t.cancel()
	}
}

// CancelAll stops every timer, used at server shutdown.
func (ts *timerScheduler) CancelAll() {
	ts.mu.Lock()
	timers := make([]*roomTimer, 0, len(ts.timers))
	for _, t := range ts.timers {
		timers = append(timers, t)
	}
	ts.timers = make(map[string]*roomTimer)
	ts.mu.Unlock()
	for _, t := range timers {
		t.cancel()
	}
}

func (ts *timerScheduler) Active(roomID string) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	_, ok := ts.timers[roomID]
	return ok
}

func (ts *timerScheduler) replace(roomID string, t *roomTimer) {
	ts.mu.Lock()
	prev := ts.timers[roomID]
	ts.timers[roomID] = t
	ts.mu.Unlock()
	if prev != nil {
		prev.cancel()
	}
}

// removeIfCurrent reports whether the timer was still the room's active one,
// distinguishing a natural expiry from a cancel that raced it.
func (ts *timerScheduler) removeIfCurrent(roomID string, t *roomTimer) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.timers[roomID] != t {
		return false
	}
	delete(ts.timers, roomID)
	return true
}
