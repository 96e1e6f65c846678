// File: extract/session.go
package extract

import (
	"errors"
	"sync"

	"github.com/edespino/crashscope/backend"
)

// ErrSessionBusy is returned when a build is already running on the session.
var ErrSessionBusy = errors.New("debug session already has a report build in flight")

// TriggerReason says why a report is being built.
type TriggerReason string

const (
	ReasonFault  TriggerReason = "fault"
	ReasonManual TriggerReason = "manual"
)

// Trigger is the event that starts a build.
type Trigger struct {
	Reason TriggerReason
	// Fault describes the fault when the host already knows it. When empty
	// the backend is asked, if it can tell.
	Fault string
}

// Session is the live connection to one debuggee. The host owns attach and
// detach; a Session only guarantees that one build at a time uses it.
type Session struct {
	backend backend.Backend
	trigger Trigger
	mu      sync.Mutex
}

// NewSession binds a trigger to an attached backend.
func NewSession(b backend.Backend, t Trigger) *Session {
	if t.Reason == "" {
		t.Reason = ReasonManual
	}
	return &Session{backend: b, trigger: t}
}

// Target returns the identity of the debuggee.
func (s *Session) Target() backend.Target {
	return s.backend.Target()
}

// Trigger returns the event the session was created for.
func (s *Session) Trigger() Trigger {
	return s.trigger
}

// acquire claims the session for one build without waiting.
func (s *Session) acquire() (func(), error) {
	if !s.mu.TryLock() {
		return nil, ErrSessionBusy
	}
	return s.mu.Unlock, nil
}
