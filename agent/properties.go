package agent

import "net/url"

// Event names emitted by the agent. Anything else passed to Track is sent
// through unchanged as a custom event.
const (
	EventPageview     = "pageview"
	EventOutbound     = "outbound"
	EventFileDownload = "file_download"
	EventScrollDepth  = "scroll_depth"
	EventEngagement   = "engagement"
	EventFormStart    = "form_start"
	EventFormSubmit   = "form_submit"
	EventWebVitals    = "web_vitals"
	EventNotFound     = "404"
)

// Payload is the wire shape POSTed to the collector. Properties stays an
// open JSON object for forward compatibility; the typed *Properties
// structs below are the known variants per event name.
type Payload struct {
	SiteID     string         `json:"site_id"`
	EventName  string         `json:"event_name"`
	URL        string         `json:"url"`
	Referrer   *string        `json:"referrer"`
	SessionID  string         `json:"session_id"`
	Language   string         `json:"language"`
	Properties map[string]any `json:"properties"`
}

// OutboundProperties accompany a click on a link to another host.
type OutboundProperties struct {
	Href string `json:"href"`
	Text string `json:"text,omitempty"`
}

// FileDownloadProperties accompany a click on a tracked file extension.
type FileDownloadProperties struct {
	Href      string `json:"href"`
	Filename  string `json:"filename"`
	Extension string `json:"extension"`
}

// ScrollDepthProperties accompany a depth milestone.
type ScrollDepthProperties struct {
	Percent int    `json:"percent"`
	URL     string `json:"url"`
}

// EngagementProperties report active dwell time on one logical page view.
type EngagementProperties struct {
	DurationSeconds int    `json:"duration_seconds"`
	URL             string `json:"url"`
}

// FormProperties accompany form_start and form_submit.
type FormProperties struct {
	FormID string `json:"form_id"`
}

// WebVitalsProperties report one performance metric with a coarse rating.
type WebVitalsProperties struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
	Rating string  `json:"rating"`
}

// NotFoundProperties accompany the 404 title detection.
type NotFoundProperties struct {
	URL      string `json:"url"`
	Referrer string `json:"referrer,omitempty"`
}

var utmKeys = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content"}

// utmParams extracts the five standard campaign keys from the current
// query string. Returns nil when none are present so the utm property is
// omitted entirely rather than sent as an empty object.
func utmParams(q url.Values) map[string]string {
	var utm map[string]string
	for _, key := range utmKeys {
		if v := q.Get(key); v != "" {
			if utm == nil {
				utm = make(map[string]string, len(utmKeys))
			}
			utm[key] = v
		}
	}
	return utm
}
