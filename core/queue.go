package core

// ActionKind tags a PendingAction.
type ActionKind int

const (
	// ExecuteAction runs an action line through the registry.
	ExecuteAction ActionKind = iota

	// AssignVariables replaces the machine's variables.
	AssignVariables

	// SetState changes the machine's current state.
	SetState
)

func (k ActionKind) String() string {
	switch k {
	case ExecuteAction:
		return "execute"
	case AssignVariables:
		return "assign"
	case SetState:
		return "state"
	default:
		return "unknown"
	}
}

// PendingAction is an effect produced by a transition and later
// executed by the machine's run loop.
//
// Only the field that corresponds to the Kind is meaningful.
type PendingAction struct {
	Kind  ActionKind
	Line  string
	Vars  Variables
	State string
}

// Execute makes an ExecuteAction.
func Execute(line string) *PendingAction {
	return &PendingAction{Kind: ExecuteAction, Line: line}
}

// Assign makes an AssignVariables action.
func Assign(vs Variables) *PendingAction {
	return &PendingAction{Kind: AssignVariables, Vars: vs}
}

// GoTo makes a SetState action.
func GoTo(state string) *PendingAction {
	return &PendingAction{Kind: SetState, State: state}
}

func (a *PendingAction) String() string {
	switch a.Kind {
	case ExecuteAction:
		return "execute " + a.Line
	case SetState:
		return "state " + a.State
	default:
		return a.Kind.String()
	}
}

// Queue is a FIFO of PendingActions.
//
// A Queue belongs to one Machine and is only touched by that
// machine's run loop, so it's not thread-safe.  Growth is unbounded.
type Queue struct {
	actions []*PendingAction
}

// NewQueue makes an empty Queue.
func NewQueue() *Queue {
	return &Queue{
		actions: make([]*PendingAction, 0, 16),
	}
}

// Append adds actions to the end of the queue.
func (q *Queue) Append(as ...*PendingAction) {
	q.actions = append(q.actions, as...)
}

// PopFront removes and returns the first action.  Returns nil when
// the queue is empty.
func (q *Queue) PopFront() *PendingAction {
	if len(q.actions) == 0 {
		return nil
	}
	a := q.actions[0]
	q.actions[0] = nil
	q.actions = q.actions[1:]
	if len(q.actions) == 0 {
		q.actions = nil
	}
	return a
}

// Len returns the number of pending actions.
func (q *Queue) Len() int {
	return len(q.actions)
}

// Pending returns a copy of the pending actions.
func (q *Queue) Pending() []*PendingAction {
	return append([]*PendingAction(nil), q.actions...)
}
