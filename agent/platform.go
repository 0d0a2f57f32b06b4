package agent

import "net/url"

// Page is the read-only view of the document the agent observes, plus the
// one mutation the agent performs (script injection for remote tags).
// Implementations adapt whatever environment hosts the agent; tests use an
// in-memory fake.
type Page interface {
	// Path returns the current path component, e.g. "/pricing".
	Path() string
	// Hostname returns the current document's host, without port.
	Hostname() string
	// URL returns the full current URL including scheme and query.
	URL() string
	// Query returns the parsed query string of the current URL.
	Query() url.Values
	// Referrer returns the raw document referrer, or "" when absent.
	Referrer() string
	// Language returns the preferred language tag, e.g. "en-US".
	Language() string
	// Title returns the current document title.
	Title() string
	// Screen returns the screen dimensions in pixels, (0, 0) if unknown.
	Screen() (width, height int)
	// Hidden reports whether the page is currently not visible.
	Hidden() bool
	// Scroll returns the current scroll measurements.
	Scroll() ScrollState
	// InjectScript loads an additional script into the page. Used only by
	// the remote tag configuration; implementations may ignore it.
	InjectScript(src string)
}

// ScrollState captures the measurements needed for depth milestones.
type ScrollState struct {
	// Top is the current vertical scroll offset in pixels.
	Top int
	// ViewportHeight is the visible height of the page.
	ViewportHeight int
	// ContentHeight is the total scrollable height of the document.
	ContentHeight int
}

// Link describes a clicked anchor. Href must be resolved to an absolute
// URL by the platform binding before being handed to the agent.
type Link struct {
	Href string
	Text string
}

// FormInfo identifies a form the user interacted with. Ref is an opaque
// per-element identity used for form_start dedup; ID and Name mirror the
// form's attributes and feed the reported form_id.
type FormInfo struct {
	Ref  string
	ID   string
	Name string
}

func (f FormInfo) label() string {
	if f.ID != "" {
		return f.ID
	}
	if f.Name != "" {
		return f.Name
	}
	return "unknown"
}

func (f FormInfo) key() string {
	if f.Ref != "" {
		return f.Ref
	}
	return f.label()
}

// Performance entry types fed to HandlePerformanceEntry.
const (
	EntryLargestContentfulPaint = "largest-contentful-paint"
	EntryLayoutShift            = "layout-shift"
	EntryEvent                  = "event"
)

// PerformanceEntry is the subset of a platform performance record the
// vitals accumulators care about. Times and durations are milliseconds.
type PerformanceEntry struct {
	Type           string
	StartTime      float64
	Value          float64
	Duration       float64
	HadRecentInput bool
	InteractionID  uint64
}

// Sender delivers one encoded event payload to the collector. Sends are
// best-effort and run off the page's critical path; a non-nil error (or a
// panic) triggers the agent's fallback transport, nothing more.
type Sender interface {
	Send(endpoint string, body []byte) error
}
