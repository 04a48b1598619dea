package sekura

// Status is the session lifecycle state.
type Status string

const (
	// StatusUnresolved is the boot state before any restore has started.
	StatusUnresolved Status = "unresolved"
	// StatusResolving means a restore is reading the credential store.
	StatusResolving Status = "resolving"
	// StatusAuthenticated means a user and token are both present.
	StatusAuthenticated Status = "authenticated"
	// StatusAnonymous means no usable credential exists.
	StatusAnonymous Status = "anonymous"
)

// allowedTransitions is the session status graph. Restore moves through
// resolving exactly once per invocation; login/register and logout flip
// between the two settled states.
var allowedTransitions = map[Status][]Status{
	StatusUnresolved:    {StatusResolving},
	StatusResolving:     {StatusAuthenticated, StatusAnonymous},
	StatusAuthenticated: {StatusAnonymous, StatusResolving},
	StatusAnonymous:     {StatusAuthenticated, StatusResolving},
}

// CanTransition reports whether moving from one status to another is part of
// the session graph.
func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Settled reports whether the status is one of the two terminal read states.
// The NavigationGuard only acts on settled statuses.
func (s Status) Settled() bool {
	return s == StatusAuthenticated || s == StatusAnonymous
}

// Session is a read-only snapshot of the session state handed to observers.
// Invariant: Status == StatusAuthenticated iff User and Token are both set;
// they are always written and cleared together.
type Session struct {
	Status Status
	User   *UserProfile
	Token  string
}

// Authenticated reports whether the snapshot carries a usable credential.
func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.User != nil && s.Token != ""
}
