// Package lifecycle drives a match through its time-based states.
// Tick is a pure function of an injected clock and the match's current
// fields; the caller applies (and persists) the emitted transitions, so
// repeated cron invocations never double-apply.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/tbreck/courtside/pkg/engine"
)

// TransitionType identifies a lifecycle transition.
type TransitionType int

const (
	// TransitionLock closes the match for new predictions. It flips
	// the Locked flag only; the match stays in its current status.
	TransitionLock TransitionType = iota
	// TransitionGoLive moves the match to StatusLive.
	TransitionGoLive
)

func (t TransitionType) String() string {
	if t == TransitionGoLive {
		return "GO_LIVE"
	}
	return "LOCK"
}

// Transition is one state change for one match, stamped with the tick
// time that produced it.
type Transition struct {
	Type    TransitionType `json:"type"`
	MatchID string         `json:"match_id"`
	At      time.Time      `json:"at"`
}

// Tick evaluates a match against the given instant and returns the
// transitions that are due. It never mutates the match.
//
// Lock fires once lockTime has passed on an unlocked upcoming match.
// GoLive fires once startTime has passed, regardless of lock state:
// locking only blocks further predictions, it does not gate going live.
// Both may be emitted in the same tick when lockTime <= startTime <= now.
func Tick(now time.Time, m *engine.Match) ([]Transition, error) {
	if m.StartTime.IsZero() {
		return nil, fmt.Errorf("%w: match %s has no start time", engine.ErrInvalidSchedule, m.ID)
	}
	if m.LockTime != nil && m.LockTime.IsZero() {
		return nil, fmt.Errorf("%w: match %s has a zero lock time", engine.ErrInvalidSchedule, m.ID)
	}

	var transitions []Transition

	if m.Status == engine.StatusUpcoming && !m.Locked &&
		m.LockTime != nil && !now.Before(*m.LockTime) {
		transitions = append(transitions, Transition{
			Type:    TransitionLock,
			MatchID: m.ID,
			At:      now,
		})
	}

	if (m.Status == engine.StatusUpcoming || m.Status == engine.StatusLocked) &&
		!now.Before(m.StartTime) {
		transitions = append(transitions, Transition{
			Type:    TransitionGoLive,
			MatchID: m.ID,
			At:      now,
		})
	}

	return transitions, nil
}

// Apply folds a transition into a match. Transitions only ever move a
// match forward; applying one that no longer matches the match's state
// is a no-op.
func Apply(m *engine.Match, tr Transition) {
	switch tr.Type {
	case TransitionLock:
		m.Locked = true
	case TransitionGoLive:
		if m.Status < engine.StatusLive {
			m.Status = engine.StatusLive
		}
	}
}
