package refresh

// State is the coordinator's phase
type State int

const (
	Idle       State = iota // nothing scheduled
	Pending                 // debounce timer running
	Refreshing              // fetch in flight
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Refreshing:
		return "refreshing"
	default:
		return "idle"
	}
}

// Effect is the side effect a transition asks the driver to perform
type Effect int

const (
	EffectNone     Effect = iota
	EffectSchedule        // (re)start the debounce timer
	EffectRefresh         // cancel any timer and start a fetch now
)

func (e Effect) String() string {
	switch e {
	case EffectSchedule:
		return "schedule"
	case EffectRefresh:
		return "refresh"
	default:
		return "none"
	}
}

// Machine is the pure refresh state machine. Transitions return the next
// machine and the effect to perform; they never touch timers or I/O.
//
// At most one fetch is in flight. Any signal that arrives while
// Refreshing sets Rerun so the change is picked up by a follow-up cycle.
type Machine struct {
	State State
	Rerun bool
}

// Notify handles a change-feed event
func (m Machine) Notify() (Machine, Effect) {
	switch m.State {
	case Idle, Pending:
		return Machine{State: Pending}, EffectSchedule
	default:
		m.Rerun = true
		return m, EffectNone
	}
}

// Trigger handles an explicit refresh request (navigation, mutation,
// refresh key). It skips the debounce window unless a fetch is in flight.
func (m Machine) Trigger() (Machine, Effect) {
	switch m.State {
	case Idle, Pending:
		return Machine{State: Refreshing}, EffectRefresh
	default:
		m.Rerun = true
		return m, EffectNone
	}
}

// Quiet handles the debounce timer firing
func (m Machine) Quiet() (Machine, Effect) {
	if m.State != Pending {
		return m, EffectNone
	}
	return Machine{State: Refreshing}, EffectRefresh
}

// Done handles completion of a fetch, successful or not
func (m Machine) Done() (Machine, Effect) {
	if m.State != Refreshing {
		return m, EffectNone
	}
	if m.Rerun {
		return Machine{State: Pending}, EffectSchedule
	}
	return Machine{State: Idle}, EffectNone
}
