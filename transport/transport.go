package transport

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/jonwraymond/authflight/credential"
	"github.com/jonwraymond/authflight/observe"
	"github.com/jonwraymond/authflight/refresh"
)

// Config configures the auth Transport.
type Config struct {
	// Base is the underlying round tripper.
	// Default: http.DefaultTransport.
	Base http.RoundTripper

	// Store is the credential store read before every dispatch.
	// Required. The transport never writes to it.
	Store credential.Store

	// Coordinator handles refresh-or-join on unauthorized responses.
	// Required.
	Coordinator *refresh.Coordinator

	// Scheme is the Authorization header scheme. Default: "Bearer".
	Scheme string

	// RefreshAhead pre-emptively refreshes a credential known to
	// expire within this window, before the request is first
	// dispatched. The refresh still goes through the coordinator, so
	// it remains single-flight. Zero disables the check.
	RefreshAhead time.Duration

	// Logger is the structured logger. If nil, logging is disabled.
	Logger observe.Logger

	// Metrics records dispatches and unauthorized responses.
	// If nil, metrics are disabled.
	Metrics observe.Metrics
}

// Transport is an http.RoundTripper that attaches the current bearer
// credential and recovers from credential expiry.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Ownership: the transport owns the Authorization header of requests
//   it dispatches; any caller-set value is replaced when a credential
//   is present.
// - Bodies: replaying a consumed body requires Request.GetBody
//   (set automatically by http.NewRequest for common body types);
//   without it the original 401 is forwarded unchanged.
type Transport struct {
	config Config
}

// New creates an auth transport.
func New(config Config) (*Transport, error) {
	if config.Store == nil {
		return nil, errors.New("transport: store is required")
	}
	if config.Coordinator == nil {
		return nil, errors.New("transport: coordinator is required")
	}

	// Apply defaults
	if config.Base == nil {
		config.Base = http.DefaultTransport
	}
	if config.Scheme == "" {
		config.Scheme = "Bearer"
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if config.Metrics == nil {
		config.Metrics = observe.NopMetrics()
	}

	return &Transport{config: config}, nil
}

// NewClient returns an *http.Client whose transport attaches and
// refreshes the session credential.
func NewClient(config Config) (*http.Client, error) {
	t, err := New(config)
	if err != nil {
		return nil, err
	}
	return &http.Client{Transport: t}, nil
}

// RoundTrip dispatches the request with the current credential
// attached and transparently recovers from credential expiry.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	cred, ok := t.config.Store.Current()

	// Pre-emptive refresh: don't spend a round trip on a credential
	// that is already known to be expiring.
	if ok && t.config.RefreshAhead > 0 && cred.ExpiresWithin(t.config.RefreshAhead) {
		fresh, err := t.config.Coordinator.Await(ctx)
		if err != nil {
			return nil, err
		}
		cred, ok = fresh, true
	}

	// credentialAtSend: the access token attached to the attempt in
	// flight, empty when no credential was present. Staleness of a 401
	// is judged against it.
	attached := ""
	attempt := req.Clone(ctx)
	if ok && !cred.IsZero() {
		attached = cred.AccessToken
		t.attach(attempt, cred)
	}

	replay := false
	for {
		t.config.Metrics.RecordAttempt(ctx, replay)

		resp, err := t.config.Base.RoundTrip(attempt)
		if err != nil || resp.StatusCode != http.StatusUnauthorized {
			// Success and non-401 failures pass through unchanged.
			return resp, err
		}

		// Unauthorized. If the store's credential already differs from
		// the one this attempt carried, another request refreshed it
		// while this one was in flight: the failure is stale
		// information, redispatch with the current credential and
		// trigger nothing.
		current, hasCurrent := t.config.Store.Current()
		stale := hasCurrent && !current.IsZero() && current.AccessToken != attached
		t.config.Metrics.RecordUnauthorized(ctx, stale)

		if stale {
			next, cloneErr := t.replayWith(req, current)
			if cloneErr != nil {
				t.config.Logger.Warn(ctx, "cannot redispatch unauthorized request",
					observe.Field{Key: "error", Value: cloneErr.Error()},
				)
				return resp, nil
			}
			drain(resp)
			t.config.Logger.Debug(ctx, "redispatching with already-refreshed credential")
			attached = current.AccessToken
			attempt = next
			replay = true
			continue
		}

		// The credential that failed is still current: refresh it, or
		// join the cycle another request already started.
		fresh, refreshErr := t.config.Coordinator.Await(ctx)
		if refreshErr != nil {
			// Session terminated (or wait abandoned). The coordinator
			// has already cleared the store and invoked logout.
			drain(resp)
			return nil, refreshErr
		}

		if fresh.AccessToken == attached {
			// The refresher handed back the credential that just
			// failed; replaying it can only loop. Forward the 401.
			return resp, nil
		}

		next, cloneErr := t.replayWith(req, fresh)
		if cloneErr != nil {
			t.config.Logger.Warn(ctx, "cannot replay unauthorized request",
				observe.Field{Key: "error", Value: cloneErr.Error()},
			)
			return resp, nil
		}
		drain(resp)
		attached = fresh.AccessToken
		attempt = next
		replay = true
	}
}

// attach sets the Authorization header on the given request.
func (t *Transport) attach(req *http.Request, cred credential.Credential) {
	req.Header.Set("Authorization", t.config.Scheme+" "+cred.AccessToken)
}

// replayWith clones the original request with a rewound body and the
// given credential attached.
func (t *Transport) replayWith(orig *http.Request, cred credential.Credential) (*http.Request, error) {
	clone := orig.Clone(orig.Context())
	if orig.Body != nil && orig.Body != http.NoBody {
		if orig.GetBody == nil {
			return nil, ErrBodyNotReplayable
		}
		body, err := orig.GetBody()
		if err != nil {
			return nil, err
		}
		clone.Body = body
	}
	t.attach(clone, cred)
	return clone, nil
}

// drain discards and closes a response body so the underlying
// connection can be reused for the replay.
func drain(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// Ensure Transport implements http.RoundTripper
var _ http.RoundTripper = (*Transport)(nil)
