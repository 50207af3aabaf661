package upgrade

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// PassState is the progress of a single Run or Check.
//
//	NotStarted -> Running -> Cancelled
//	                      -> Completed
type PassState int32

const (
	NotStarted PassState = iota
	Running
	// Cancelled passes stopped at a block or upgrade boundary.
	Cancelled
	// Completed is also the state after a corruption error.
	Completed
)

func (s PassState) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case Running:
		return "Running"
	case Cancelled:
		return "Cancelled"
	case Completed:
		return "Completed"
	}
	return fmt.Sprintf("PassState(%d)", int32(s))
}

// Pass tracks one run of a Runner or Verifier. Its state may be read from any
// goroutine while the pass runs.
type Pass struct {
	id    uuid.UUID
	kind  string
	state atomic.Int32
}

func newPass(kind string) *Pass {
	return &Pass{id: uuid.New(), kind: kind}
}

// ID is unique per pass and appears in every log line the pass writes.
func (p *Pass) ID() uuid.UUID { return p.id }

// Kind is "run" or "check".
func (p *Pass) Kind() string { return p.kind }

func (p *Pass) State() PassState { return PassState(p.state.Load()) }

func (p *Pass) String() string { return p.kind + "/" + p.id.String() }

func (p *Pass) start() error {
	if p.state.CompareAndSwap(int32(NotStarted), int32(Running)) {
		return nil
	}
	if p.State() == Running {
		return ErrPassStarted
	}
	return ErrPassFinished
}

// finish moves a running pass to Cancelled when err is ErrCancelled, and to
// Completed otherwise. A pass that failed with corruption has completed: it
// can not be resumed.
func (p *Pass) finish(err error) {
	state := Completed
	if errors.Is(err, ErrCancelled) {
		state = Cancelled
	}
	p.state.CompareAndSwap(int32(Running), int32(state))
}
