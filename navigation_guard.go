package sekura

import "sync"

// Area is a coarse navigational region of the app shell.
type Area string

const (
	// AreaAuth holds the signup/login screens.
	AreaAuth Area = "auth"
	// AreaProtected holds everything behind authentication.
	AreaProtected Area = "protected"
)

// EvaluateRoute is the pure routing rule: given a session status and the
// current area it returns the area to redirect to, or false for no redirect.
// It never redirects before the initial restore settles, which is what keeps
// the shell from flashing the wrong screen on a cold start.
func EvaluateRoute(status Status, current Area) (Area, bool) {
	if !status.Settled() {
		return "", false
	}
	switch {
	case status == StatusAnonymous && current != AreaAuth:
		return AreaAuth, true
	case status == StatusAuthenticated && current == AreaAuth:
		return AreaProtected, true
	}
	return "", false
}

// NavigationGuard re-evaluates the routing rule on every session status or
// location change and drives a Navigator. Evaluation is idempotent: with an
// unchanged status/location pair the navigator is not called again.
type NavigationGuard struct {
	navigator Navigator

	mu      sync.Mutex
	status  Status
	current Area
}

// NewNavigationGuard wires a guard to the manager's session updates. Call
// SetLocation whenever the shell's location changes.
func NewNavigationGuard(manager *SessionManager, navigator Navigator) (*NavigationGuard, func()) {
	g := &NavigationGuard{
		navigator: navigator,
		status:    StatusUnresolved,
		current:   AreaAuth,
	}
	unsubscribe := manager.Subscribe(func(s Session) {
		g.setStatus(s.Status)
	})
	return g, unsubscribe
}

// SetLocation records the shell's current area and re-evaluates.
func (g *NavigationGuard) SetLocation(area Area) {
	g.mu.Lock()
	g.current = area
	g.mu.Unlock()
	g.evaluate()
}

func (g *NavigationGuard) setStatus(status Status) {
	g.mu.Lock()
	g.status = status
	g.mu.Unlock()
	g.evaluate()
}

func (g *NavigationGuard) evaluate() {
	g.mu.Lock()
	target, redirect := EvaluateRoute(g.status, g.current)
	if redirect {
		// Track the redirect as the new location so re-evaluation with the
		// same inputs stays a no-op even before the shell reports back.
		g.current = target
	}
	g.mu.Unlock()

	if redirect && g.navigator != nil {
		g.navigator.Replace(target)
	}
}
