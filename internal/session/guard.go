package session

import "sync"

// RouteClass groups routes by how the guard treats them.
type RouteClass string

// Route classes.
const (
	RouteUnprotected  RouteClass = "unprotected"
	RouteTransitional RouteClass = "transitional"
	RouteProtected    RouteClass = "protected"
)

// Well-known redirect targets.
const (
	TargetLogin   = "/login"
	TargetHome    = "/home"
	TargetLoading = "/loading"
)

// routeClasses maps every known route to its class. Unknown routes are
// treated as protected.
var routeClasses = map[string]RouteClass{
	"/login":    RouteUnprotected,
	"/register": RouteUnprotected,

	"/login/loading":    RouteTransitional,
	"/register/loading": RouteTransitional,
	"/loading-register": RouteTransitional,
	"/loading":          RouteTransitional,

	"/home":      RouteProtected,
	"/bookshelf": RouteProtected,
	"/profile":   RouteProtected,
	"/my-nook":   RouteProtected,
	"/explore":   RouteProtected,
	"/connect":   RouteProtected,
}

// ClassifyRoute returns the class for a route path. Anything not in
// the route table is protected.
func ClassifyRoute(route string) RouteClass {
	if class, ok := routeClasses[route]; ok {
		return class
	}
	return RouteProtected
}

// Action is what the guard tells the page to do.
type Action string

// Guard actions.
const (
	ActionRender      Action = "render"      // show the page
	ActionPlaceholder Action = "placeholder" // show a loading placeholder
	ActionRedirect    Action = "redirect"    // go somewhere else
	ActionProvision   Action = "provision"   // trigger provisioning, remain
)

// Decision is the guard's verdict for one (route, state) evaluation.
type Decision struct {
	Action Action `json:"action"`
	Target string `json:"target,omitempty"` // set for redirects
}

// Guard decides, for a route and the current state, whether to render,
// hold on a placeholder, redirect, or trigger provisioning.
//
// A Guard remembers the last state it redirected for and suppresses
// duplicate redirects until the state changes, so re-evaluation on
// re-render cannot produce a redirect loop.
type Guard struct {
	mu              sync.Mutex
	lastRedirectFor State
}

// NewGuard creates a guard with no redirect history.
func NewGuard() *Guard {
	return &Guard{}
}

// Decide evaluates the policy table. dwellElapsed is the minimum-dwell
// gate for transitional routes; it only matters there — redirects away
// from a transitional page wait for the gate even when the state is
// settled.
func (g *Guard) Decide(class RouteClass, state State, dwellElapsed bool) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	// The marker is cleared only on state change.
	if g.lastRedirectFor != "" && g.lastRedirectFor != state {
		g.lastRedirectFor = ""
	}

	d := decide(class, state, dwellElapsed)

	if d.Action == ActionRedirect {
		if g.lastRedirectFor == state {
			// Already redirected for this state; hold instead of looping.
			return Decision{Action: hold(class)}
		}
		g.lastRedirectFor = state
	}
	return d
}

// decide is the pure policy table.
func decide(class RouteClass, state State, dwellElapsed bool) Decision {
	switch state {
	case StateInitializing:
		if class == RouteUnprotected {
			return Decision{Action: ActionRender}
		}
		return Decision{Action: ActionPlaceholder}

	case StateUnauthenticated:
		if class == RouteUnprotected {
			return Decision{Action: ActionRender}
		}
		return gated(class, dwellElapsed, Decision{Action: ActionRedirect, Target: TargetLogin})

	case StatePendingVerification:
		if class == RouteUnprotected {
			// The login/register page shows the verification prompt.
			return Decision{Action: ActionRender}
		}
		return gated(class, dwellElapsed, Decision{Action: ActionRedirect, Target: TargetLogin})

	case StatePendingProfileCreation:
		if class == RouteTransitional {
			// Provisioning runs while the loading page holds; success
			// arrives as a watcher push that moves the state to Ready.
			return Decision{Action: ActionProvision}
		}
		return Decision{Action: ActionRedirect, Target: TargetLoading}

	case StateReady:
		switch class {
		case RouteProtected:
			return Decision{Action: ActionRender}
		case RouteTransitional:
			return gated(class, dwellElapsed, Decision{Action: ActionRedirect, Target: TargetHome})
		default:
			return Decision{Action: ActionRedirect, Target: TargetHome}
		}
	}

	// Unknown state never happens; hold rather than guess.
	return Decision{Action: ActionPlaceholder}
}

// gated applies the dwell gate: transitional redirects wait it out.
func gated(class RouteClass, dwellElapsed bool, d Decision) Decision {
	if class == RouteTransitional && !dwellElapsed {
		return Decision{Action: ActionPlaceholder}
	}
	return d
}

// hold is the non-redirect action appropriate for a route class.
func hold(class RouteClass) Action {
	if class == RouteUnprotected {
		return ActionRender
	}
	return ActionPlaceholder
}
