package loop

import "sync/atomic"

// Signals are the two process-wide atomic booleans of spec §5: the
// shutdown flag (set by the signal handler task) and the pause flag (set
// by the UI task or by a manual sleep entry). Both are read by the turn
// loop only at suspension points.
type Signals struct {
	shutdown atomic.Bool
	paused   atomic.Bool
}

func NewSignals() *Signals { return &Signals{} }

func (s *Signals) Shutdown() bool { return s.shutdown.Load() }

// RequestShutdown sets the graceful-shutdown flag. A second call after the
// flag is already set is the caller's cue to force-exit the process
// immediately, per spec §4.4's shutdown discipline.
func (s *Signals) RequestShutdown() (alreadySet bool) {
	return s.shutdown.Swap(true)
}

func (s *Signals) Paused() bool { return s.paused.Load() }

func (s *Signals) SetPaused(v bool) { s.paused.Store(v) }

func (s *Signals) ClearPause() { s.paused.Store(false) }
