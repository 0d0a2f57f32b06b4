package agent

import (
	"net/url"
	"strings"

	"github.com/coder/quartz"
)

// Options is the embedding contract: what the hosting page's script tag
// provides. A missing SiteID or Endpoint disables the agent entirely; it
// then performs no work and sends nothing.
type Options struct {
	// SiteID scopes every event to one tenant. Required.
	SiteID string
	// Endpoint is the collector URL events are POSTed to. Required, but
	// may be inferred from the script's own URL (see ParseScriptTag).
	Endpoint string
	// CrossDomains lists hosts eligible for session-id propagation via an
	// outbound link query parameter.
	CrossDomains []string
}

func (o Options) valid() bool {
	return o.SiteID != "" && o.Endpoint != ""
}

// Script tag attribute names.
const (
	attrSite        = "data-site"
	attrAPI         = "data-api"
	attrCrossDomain = "data-cross-domain"
)

// ParseScriptTag builds Options from the embedding script tag's attributes
// and its own load URL. An explicit data-api attribute wins; otherwise the
// collector endpoint is inferred as the script origin plus /v1/track.
func ParseScriptTag(attrs map[string]string, scriptSrc string) Options {
	opts := Options{
		SiteID:   attrs[attrSite],
		Endpoint: attrs[attrAPI],
	}
	for _, d := range strings.Split(attrs[attrCrossDomain], ",") {
		if d = strings.TrimSpace(d); d != "" {
			opts.CrossDomains = append(opts.CrossDomains, d)
		}
	}
	if opts.Endpoint == "" && scriptSrc != "" {
		if u, err := url.Parse(scriptSrc); err == nil && u.Scheme != "" && u.Host != "" {
			opts.Endpoint = u.Scheme + "://" + u.Host + "/v1/track"
		}
	}
	return opts
}

// Option tweaks an Agent at construction time.
type Option func(*Agent)

// WithClock replaces the real clock; tests pass a quartz mock so debounce
// timers and the heartbeat can be driven deterministically.
func WithClock(c quartz.Clock) Option {
	return func(a *Agent) { a.clock = c }
}

// WithBeacon sets the preferred unload-safe transport. When nil or
// failing, the agent falls back to its HTTP sender.
func WithBeacon(s Sender) Option {
	return func(a *Agent) { a.beacon = s }
}

// WithFallback replaces the HTTP fallback transport.
func WithFallback(s Sender) Option {
	return func(a *Agent) { a.fallback = s }
}

// WithConfigFetch replaces the HTTP POST used for the remote tag
// configuration fetch.
func WithConfigFetch(f FetchFunc) Option {
	return func(a *Agent) { a.fetchConfig = f }
}
