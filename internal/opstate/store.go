package opstate

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/radrebel/fedscout/internal/classify"
)

// Phase is the lifecycle phase of a slot.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseSuccess
	PhaseFailed
)

// String returns the lowercase name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseSuccess:
		return "success"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// State is the tracked state of one slot.
type State struct {
	Phase Phase
	// Progress is valid only while HasProgress is true and Phase is Loading.
	Progress    float64
	HasProgress bool
	// Err is set only while Phase is Failed.
	Err *classify.Error
}

// Listener observes slot transitions. Listeners are invoked outside the
// store's lock and must not block.
type Listener func(Slot, State)

// DefaultRevertDelay is how long Success stays visible before auto-reverting
// to Idle, giving the UI a transient confirmation window.
const DefaultRevertDelay = 500 * time.Millisecond

// Store holds the current lifecycle state for each slot.
//
// All mutation flows through one guarded path. Completions carry the
// generation token returned by Begin; tokens from a cancelled or superseded
// run are silently discarded, which is how late results from cooperative
// cancellation are reconciled.
type Store struct {
	mu          sync.Mutex
	states      [numSlots]State
	gens        [numSlots]uint64
	revertDelay time.Duration
	listeners   []Listener
}

// NewStore creates a Store with every slot Idle.
// revertDelay <= 0 selects DefaultRevertDelay.
func NewStore(revertDelay time.Duration) *Store {
	if revertDelay <= 0 {
		revertDelay = DefaultRevertDelay
	}
	return &Store{revertDelay: revertDelay}
}

// Subscribe registers a transition listener.
func (st *Store) Subscribe(l Listener) {
	st.mu.Lock()
	st.listeners = append(st.listeners, l)
	st.mu.Unlock()
}

func (st *Store) notifyLocked(slot Slot) (Slot, State, []Listener) {
	return slot, st.states[slot], st.listeners
}

func notify(slot Slot, state State, listeners []Listener) {
	for _, l := range listeners {
		l(slot, state)
	}
}

// Begin transitions the slot to Loading and returns the generation token
// that must accompany all subsequent progress and completion calls.
// Starting a new run supersedes any in-flight one for the same slot.
func (st *Store) Begin(slot Slot) uint64 {
	st.mu.Lock()
	st.gens[slot]++
	gen := st.gens[slot]
	st.states[slot] = State{Phase: PhaseLoading}
	s, state, ls := st.notifyLocked(slot)
	st.mu.Unlock()
	notify(s, state, ls)
	return gen
}

// SetProgress updates the Loading progress value. Calls against a slot that
// is not Loading, or with a stale generation, are ignored; repeated progress
// from superseded work is expected and harmless.
func (st *Store) SetProgress(slot Slot, gen uint64, progress float64) {
	if progress < 0 {
		progress = 0
	} else if progress > 1 {
		progress = 1
	}
	st.mu.Lock()
	if st.states[slot].Phase != PhaseLoading || st.gens[slot] != gen {
		st.mu.Unlock()
		return
	}
	st.states[slot].Progress = progress
	st.states[slot].HasProgress = true
	s, state, ls := st.notifyLocked(slot)
	st.mu.Unlock()
	notify(s, state, ls)
}

// Succeed transitions the slot to Success and schedules the auto-revert to
// Idle. Returns false when the completion was discarded as stale.
func (st *Store) Succeed(slot Slot, gen uint64) bool {
	st.mu.Lock()
	if st.states[slot].Phase != PhaseLoading || st.gens[slot] != gen {
		st.mu.Unlock()
		return false
	}
	st.states[slot] = State{Phase: PhaseSuccess}
	s, state, ls := st.notifyLocked(slot)
	st.mu.Unlock()
	notify(s, state, ls)

	time.AfterFunc(st.revertDelay, func() {
		st.mu.Lock()
		if st.states[slot].Phase != PhaseSuccess || st.gens[slot] != gen {
			st.mu.Unlock()
			return
		}
		st.states[slot] = State{Phase: PhaseIdle}
		s, state, ls := st.notifyLocked(slot)
		st.mu.Unlock()
		notify(s, state, ls)
	})
	return true
}

// Fail transitions the slot to Failed with the classified error. The failure
// sticks until ClearError or a new Begin. Returns false when discarded as
// stale.
func (st *Store) Fail(slot Slot, gen uint64, err *classify.Error) bool {
	st.mu.Lock()
	if st.states[slot].Phase != PhaseLoading || st.gens[slot] != gen {
		st.mu.Unlock()
		return false
	}
	st.states[slot] = State{Phase: PhaseFailed, Err: err}
	s, state, ls := st.notifyLocked(slot)
	st.mu.Unlock()
	notify(s, state, ls)
	return true
}

// Cancel forces the slot back to Idle and invalidates the current
// generation. Cancellation is cooperative only: in-flight work is not
// interrupted, but its eventual completion will be discarded.
func (st *Store) Cancel(slot Slot) {
	st.mu.Lock()
	st.gens[slot]++
	st.states[slot] = State{Phase: PhaseIdle}
	s, state, ls := st.notifyLocked(slot)
	st.mu.Unlock()
	notify(s, state, ls)
}

// Get returns the current state of the slot.
func (st *Store) Get(slot Slot) State {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.states[slot]
}

// IsLoading reports whether the slot is Loading.
func (st *Store) IsLoading(slot Slot) bool {
	return st.Get(slot).Phase == PhaseLoading
}

// HasFailed reports whether the slot is Failed.
func (st *Store) HasFailed(slot Slot) bool {
	return st.Get(slot).Phase == PhaseFailed
}

// Err returns the classified error for a Failed slot, or nil.
func (st *Store) Err(slot Slot) *classify.Error {
	return st.Get(slot).Err
}

// ClearError resets a Failed slot to Idle. A slot in any other phase is
// left untouched.
func (st *Store) ClearError(slot Slot) {
	st.mu.Lock()
	if st.states[slot].Phase != PhaseFailed {
		st.mu.Unlock()
		return
	}
	st.states[slot] = State{Phase: PhaseIdle}
	s, state, ls := st.notifyLocked(slot)
	st.mu.Unlock()
	notify(s, state, ls)
}

// ClearAllErrors resets every Failed slot to Idle.
func (st *Store) ClearAllErrors() {
	for _, slot := range Slots() {
		st.ClearError(slot)
	}
}

// AnyLoading reports whether at least one slot is Loading.
func (st *Store) AnyLoading() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	for i := range st.states {
		if st.states[i].Phase == PhaseLoading {
			return true
		}
	}
	return false
}

// HighPriorityLoading reports whether any slot of high-or-above priority is
// Loading.
func (st *Store) HighPriorityLoading() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	for i := range st.states {
		if st.states[i].Phase == PhaseLoading && Slot(i).Priority() >= PriorityHigh {
			return true
		}
	}
	return false
}

// LoadingSlots returns every slot currently Loading, in declaration order.
func (st *Store) LoadingSlots() []Slot {
	return st.slotsInPhase(PhaseLoading)
}

// FailedSlots returns every slot currently Failed, in declaration order.
func (st *Store) FailedSlots() []Slot {
	return st.slotsInPhase(PhaseFailed)
}

func (st *Store) slotsInPhase(phase Phase) []Slot {
	st.mu.Lock()
	defer st.mu.Unlock()
	var out []Slot
	for i := range st.states {
		if st.states[i].Phase == phase {
			out = append(out, Slot(i))
		}
	}
	return out
}

// PrimaryLoadingMessage returns the display name of the highest-priority
// Loading slot. ok is false when nothing is loading.
func (st *Store) PrimaryLoadingMessage() (msg string, ok bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	best := Slot(-1)
	for i := range st.states {
		if st.states[i].Phase != PhaseLoading {
			continue
		}
		if best < 0 || Slot(i).Priority() > best.Priority() {
			best = Slot(i)
		}
	}
	if best < 0 {
		return "", false
	}
	return best.DisplayName(), true
}

// Summary returns a short human-readable digest of all slots.
func (st *Store) Summary() string {
	loading := len(st.LoadingSlots())
	failed := len(st.FailedSlots())

	if loading == 0 && failed == 0 {
		return "All operations complete"
	}

	var parts []string
	if loading > 0 {
		parts = append(parts, fmt.Sprintf("%d %s loading", loading, plural(loading)))
	}
	if failed > 0 {
		parts = append(parts, fmt.Sprintf("%d %s failed", failed, plural(failed)))
	}
	return strings.Join(parts, ", ")
}

func plural(n int) string {
	if n == 1 {
		return "operation"
	}
	return "operations"
}
