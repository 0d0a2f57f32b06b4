package agent

import "math"

// Engagement durations outside this window are discarded: shorter ones are
// noise, longer ones are clock anomalies or always-open tabs.
const (
	minEngagementSeconds = 5
	maxEngagementSeconds = 86400
)

// HandleNavigation runs on history mutation (pushState/popstate). If the
// path actually changed it closes out the previous view with an engagement
// event and opens the new one with a fresh pageview.
func (a *Agent) HandleNavigation() {
	if a.disabled {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	path := a.page.Path()
	if path == a.lastPath {
		return
	}

	a.flushEngagementLocked()
	a.lastPath = path
	a.viewStart = a.clock.Now()
	a.engaged = false
	a.trackLocked(EventPageview, nil)
}

// HandleVisibility runs on visibility changes. Going hidden flushes the
// current view's engagement and vitals; coming back restarts the dwell
// timer.
func (a *Agent) HandleVisibility(hidden bool) {
	if a.disabled {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if hidden {
		a.flushEngagementLocked()
		a.reportVitalsLocked()
		return
	}
	a.viewStart = a.clock.Now()
	a.engaged = false
}

// HandlePageHide runs on page teardown and flushes unconditionally.
func (a *Agent) HandlePageHide() {
	if a.disabled {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.flushEngagementLocked()
	a.reportVitalsLocked()
}

// heartbeat bounds the engagement attributed to one continuous view: a tab
// left visible without navigating flushes every heartbeatInterval.
func (a *Agent) heartbeat() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.page.Hidden() || a.engaged {
		return
	}
	if a.clock.Since(a.viewStart) >= heartbeatInterval {
		a.flushEngagementLocked()
		a.viewStart = a.clock.Now()
		a.engaged = false
	}
}

func (a *Agent) flushEngagementLocked() {
	d := int(math.Round(a.clock.Since(a.viewStart).Seconds()))
	if d < minEngagementSeconds || d >= maxEngagementSeconds {
		return
	}
	a.trackLocked(EventEngagement, EngagementProperties{
		DurationSeconds: d,
		URL:             a.lastPath,
	})
	a.engaged = true
}
