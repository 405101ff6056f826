package tracking

import (
	"sync"
	"time"
)

// Clock supplies the time and the recurring timer driving heartbeats.
type Clock interface {
	Now() time.Time
	// Every calls fn every d until the returned stop func is called.
	Every(d time.Duration, fn func()) (stop func())
}

// SystemClock is the wall Clock.
type SystemClock struct{}

var _ Clock = SystemClock{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

func (SystemClock) Every(d time.Duration, fn func()) func() {
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}
