// Package clock supplies the timing and memory-sampling primitives
// pkg/htn stamps onto every Solution (spec.md §4.5, "plus elapsed-seconds
// and peak-memory metadata"), grounded on the source's
// FXPlatform/Stopwatch.h -- a start/stop wall-clock timer -- reworked as
// an explicit value type instead of a pimpl'd platform-specific class,
// since Go's time package is already platform-portable.
package clock

import (
	"runtime"
	"time"
)

// Stopwatch measures wall-clock elapsed time from construction, mirroring
// StopWatch::startTimer/getElapsedTime.
type Stopwatch struct {
	start time.Time
}

// NewStopwatch starts a stopwatch immediately.
func NewStopwatch() Stopwatch {
	return Stopwatch{start: time.Now()}
}

// Elapsed returns the time since NewStopwatch, the Go equivalent of
// StopWatch::getElapsedTime.
func (s Stopwatch) Elapsed() time.Duration {
	return time.Since(s.start)
}

// Restart resets the stopwatch to now and returns the elapsed duration up
// to that point, mirroring StopWatch::restartTimer.
func (s *Stopwatch) Restart() time.Duration {
	d := s.Elapsed()
	s.start = time.Now()
	return d
}

// PeakAlloc samples the runtime's current heap allocation as a stand-in
// for the source's process peak-memory metadata: Go does not expose a
// running high-water mark the way a host OS's RSS sampler would, so a
// plan call reports its heap size at completion rather than a true
// running peak. See DESIGN.md.
func PeakAlloc() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapAlloc
}
