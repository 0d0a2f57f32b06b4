// Package agent implements the SitePulse tracking agent: it observes one
// logical page through the Page interface and emits a best-effort sequence
// of analytics events (pageviews, clicks, scroll depth, engagement, form
// interactions, web vitals) to a collector endpoint.
//
// Every fallible operation is contained: the agent never panics into the
// host, never retries, and never blocks page logic on the network. A
// failed or overflowing send is a dropped event.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/coder/quartz"
)

// Agent owns all tracking state for one page load. All exported methods
// are safe for concurrent use; internally a single mutex guards the state,
// mirroring the single-writer model of the environment it instruments.
type Agent struct {
	opts        Options
	page        Page
	clock       quartz.Clock
	beacon      Sender
	fallback    Sender
	fetchConfig FetchFunc

	// disabled is set when required configuration is missing. Every
	// entry point then degrades to a no-op.
	disabled bool
	started  bool

	sendCh chan []byte

	mu           sync.Mutex
	sessionID    string
	lastActivity time.Time

	scrollSent  map[int]bool
	scrollTimer *quartz.Timer

	activeForms map[string]bool

	lastPath  string
	viewStart time.Time
	engaged   bool

	vitals vitalsState
}

const heartbeatInterval = 30 * time.Second

// sendQueueDepth bounds payloads awaiting dispatch. A burst beyond it
// drops events rather than stalling the page.
const sendQueueDepth = 64

// New builds an Agent for the given page. If opts lacks a site id or a
// resolvable endpoint the returned agent is inert: it accepts every call
// and does nothing, per the embedding contract.
func New(page Page, opts Options, optFns ...Option) *Agent {
	a := &Agent{
		opts:        opts,
		page:        page,
		clock:       quartz.NewReal(),
		disabled:    !opts.valid(),
		scrollSent:  make(map[int]bool),
		activeForms: make(map[string]bool),
	}
	httpSender := NewHTTPSender()
	a.fallback = httpSender
	a.fetchConfig = httpSender.post
	for _, fn := range optFns {
		fn(a)
	}
	if !a.disabled {
		a.lastPath = page.Path()
		a.viewStart = a.clock.Now()
		a.sendCh = make(chan []byte, sendQueueDepth)
		go a.dispatch()
	}
	return a
}

// Start emits the initial pageview and arms the delayed checks and the
// engagement heartbeat. The heartbeat stops when ctx is canceled; all
// other behavior runs for the life of the agent.
func (a *Agent) Start(ctx context.Context) {
	if a.disabled || a.started {
		return
	}
	a.started = true

	a.Track(EventPageview, nil)

	a.clock.AfterFunc(time.Second, a.checkScroll, "scroll-initial")
	a.clock.AfterFunc(time.Second, a.checkNotFound, "notfound")
	a.clock.TickerFunc(ctx, heartbeatInterval, func() error {
		a.heartbeat()
		return nil
	}, "heartbeat")

	go a.loadRemoteConfig()
}

// Track emits one event. An empty name defaults to "pageview". props may
// be nil or one of the typed *Properties structs (any JSON-marshalable
// value is accepted for custom events).
func (a *Agent) Track(name string, props any) {
	if a.disabled {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.trackLocked(name, props)
}

func (a *Agent) trackLocked(name string, props any) {
	body, err := a.payloadLocked(name, props)
	if err != nil {
		return
	}
	a.deliver(body)
}

func (a *Agent) payloadLocked(name string, props any) ([]byte, error) {
	if name == "" {
		name = EventPageview
	}

	merged := map[string]any{}
	if props != nil {
		raw, err := json.Marshal(props)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &merged); err != nil {
			return nil, err
		}
	}
	if utm := utmParams(a.page.Query()); utm != nil {
		merged["utm"] = utm
	}
	if w, h := a.page.Screen(); w > 0 && h > 0 {
		merged["screen"] = fmt.Sprintf("%dx%d", w, h)
	}

	return json.Marshal(Payload{
		SiteID:     a.opts.SiteID,
		EventName:  name,
		URL:        a.page.Path(),
		Referrer:   a.externalReferrer(),
		SessionID:  a.sessionIDLocked(),
		Language:   a.page.Language(),
		Properties: merged,
	})
}

// externalReferrer returns the document referrer unless it is absent,
// unparsable, or same-origin.
func (a *Agent) externalReferrer() *string {
	ref := a.page.Referrer()
	if ref == "" {
		return nil
	}
	u, err := url.Parse(ref)
	if err != nil || u.Hostname() == "" || u.Hostname() == a.page.Hostname() {
		return nil
	}
	return &ref
}

// deliver queues the payload for background dispatch. Page logic never
// waits on the network; when the queue is full the event is dropped.
func (a *Agent) deliver(body []byte) {
	select {
	case a.sendCh <- body:
	default:
	}
}

// dispatch drains the send queue in order, trying the beacon transport
// first and the HTTP sender when it fails. Errors from the fallback are
// dropped: delivery is at-most-once, best-effort.
func (a *Agent) dispatch() {
	for body := range a.sendCh {
		if attemptSend(a.beacon, a.opts.Endpoint, body) {
			continue
		}
		attemptSend(a.fallback, a.opts.Endpoint, body)
	}
}

// attemptSend reports whether one transport accepted the payload. A
// panicking transport counts as a failed send, not a crash, so the
// fallback still gets its turn.
func attemptSend(s Sender, endpoint string, body []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	if s == nil {
		return false
	}
	return s.Send(endpoint, body) == nil
}
