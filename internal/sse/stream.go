package sse

import (
	"context"
	"log/slog"
	"time"

	"github.com/nookapp/nook-server/internal/domain"
	"github.com/nookapp/nook-server/internal/session"
)

// DefaultHeartbeatInterval keeps intermediaries from closing idle streams.
const DefaultHeartbeatInterval = 30 * time.Second

// StreamOptions configures a session stream connection.
type StreamOptions struct {
	Route        string                 // The route the client is sitting on
	Identity     session.IdentitySource // Auth signal for this connection
	Profiles     session.ProfileWatcher // Profile signal
	Provisioner  *session.Provisioner   // Triggered on pending_profile_creation
	MinDwell     time.Duration          // Floor for transitional screens
	PollInterval time.Duration          // Verification re-check cadence
	Heartbeat    time.Duration          // Defaults to DefaultHeartbeatInterval
	Logger       *slog.Logger
}

// Stream drives the session state machine for one client connection:
// it resolves state from auth and profile signals, applies the
// navigation guard and dwell gate for the client's route, polls for
// email verification while the client waits on it, and kicks off
// profile provisioning when the state calls for it.
type Stream struct {
	route       string
	class       session.RouteClass
	ids         session.IdentitySource
	profiles    session.ProfileWatcher
	provisioner *session.Provisioner
	minDwell    time.Duration
	pollEvery   time.Duration
	heartbeat   time.Duration
	logger      *slog.Logger
}

// NewStream creates a stream for one connection.
func NewStream(opts StreamOptions) *Stream {
	heartbeat := opts.Heartbeat
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeatInterval
	}
	pollEvery := opts.PollInterval
	if pollEvery <= 0 {
		pollEvery = session.DefaultPollInterval
	}

	return &Stream{
		route:       opts.Route,
		class:       session.ClassifyRoute(opts.Route),
		ids:         opts.Identity,
		profiles:    opts.Profiles,
		provisioner: opts.Provisioner,
		minDwell:    opts.MinDwell,
		pollEvery:   pollEvery,
		heartbeat:   heartbeat,
		logger:      opts.Logger,
	}
}

// Run drives the stream until the context is canceled or send fails.
// send is called from a single goroutine; a send error (typically the
// client hanging up) tears everything down.
func (s *Stream) Run(ctx context.Context, send func(Event) error) error {
	gate := session.NewDwellGate()
	if s.class == session.RouteTransitional && s.minDwell > 0 {
		gate.Start(s.minDwell)
	}
	defer gate.Stop()

	controller := session.NewStore(s.ids, s.profiles, s.logger)
	states, unsubscribe := controller.Subscribe()
	defer unsubscribe()

	controller.Start()
	defer controller.Close()

	guard := session.NewGuard()

	var poller *session.Poller
	stopPoller := func() {
		if poller != nil {
			poller.Stop()
			poller = nil
		}
	}
	defer stopPoller()

	heartbeatTicker := time.NewTicker(s.heartbeat)
	defer heartbeatTicker.Stop()

	// The ready channel fires once when the dwell elapses; nil it out
	// afterwards so the closed channel doesn't spin the loop.
	readyCh := gate.Ready()
	if gate.Elapsed() {
		readyCh = nil
	}

	// A failed create write must not strand the client on the loading
	// screen: the failure comes back on this channel and turns every
	// further provision decision into a redirect to an entry point.
	provisionErrCh := make(chan error, 1)
	provisionFailed := false

	emit := func() error {
		state := controller.State()
		decision := guard.Decide(s.class, state, gate.Elapsed())

		switch state {
		case session.StatePendingVerification:
			if poller == nil {
				// The refresh pushes any verification flip back into
				// the controller, which re-resolves on its own.
				poller = session.NewPoller(s.pollEvery, s.ids.RefreshAndCheckVerified, func() {}, s.logger)
				poller.Start(ctx)
			}
		default:
			stopPoller()
		}

		if decision.Action == session.ActionProvision {
			if provisionFailed {
				decision = session.Decision{Action: session.ActionRedirect, Target: session.TargetLogin}
			} else {
				s.triggerProvision(ctx, controller.Snapshot().AuthUser, provisionErrCh)
			}
		}

		return send(NewStateEvent(s.route, state, decision))
	}

	if err := emit(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case _, ok := <-states:
			if !ok {
				return nil
			}
			if err := emit(); err != nil {
				return err
			}

		case <-readyCh:
			readyCh = nil
			if err := emit(); err != nil {
				return err
			}

		case err := <-provisionErrCh:
			provisionFailed = true
			s.logger.Warn("provisioning failed, redirecting to login",
				"route", s.route,
				"error", err,
			)
			redirect := session.Decision{Action: session.ActionRedirect, Target: session.TargetLogin}
			if err := send(NewStateEvent(s.route, controller.State(), redirect)); err != nil {
				return err
			}

		case <-heartbeatTicker.C:
			if err := send(NewHeartbeatEvent()); err != nil {
				return err
			}
		}
	}
}

// triggerProvision runs profile creation in the background. Success is
// observed through the profile watcher, not the return value; a repeat
// trigger while one is in flight is a no-op inside the provisioner. A
// write failure is reported on errCh so the stream can redirect instead
// of re-offering provisioning forever.
func (s *Stream) triggerProvision(ctx context.Context, identity *domain.Identity, errCh chan<- error) {
	if identity == nil {
		return
	}
	go func() {
		if err := s.provisioner.EnsureProfile(ctx, identity, ""); err != nil {
			s.logger.Warn("provisioning trigger failed",
				"user_id", identity.ID,
				"error", err,
			)
			select {
			case errCh <- err:
			default:
			}
		}
	}()
}
