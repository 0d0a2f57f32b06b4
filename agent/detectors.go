package agent

import (
	"math"
	"net/url"
	"strings"
	"time"
)

var downloadExtensions = []string{
	".pdf", ".docx", ".xlsx", ".zip", ".rar", ".csv", ".mp3", ".mp4",
	".dmg", ".exe", ".pptx", ".jpg", ".png", ".gif", ".svg",
}

const (
	scrollDebounce = 200 * time.Millisecond
	maxLinkText    = 100
)

var scrollMilestones = []int{25, 50, 75, 90, 100}

// HandleClick inspects a clicked anchor for outbound and file-download
// events. When the target host is on the cross-domain list, the returned
// string is the href with the session parameter appended and the platform
// binding should rewrite the anchor with it; otherwise it is empty.
func (a *Agent) HandleClick(link Link) string {
	if a.disabled || link.Href == "" {
		return ""
	}

	var propagated string
	if u, err := url.Parse(link.Href); err == nil && u.Hostname() != "" && u.Hostname() != a.page.Hostname() {
		a.Track(EventOutbound, OutboundProperties{
			Href: link.Href,
			Text: truncate(link.Text, maxLinkText),
		})
		for _, d := range a.opts.CrossDomains {
			if strings.Contains(u.Hostname(), d) {
				sep := "?"
				if strings.Contains(link.Href, "?") {
					sep = "&"
				}
				propagated = link.Href + sep + SessionParam + "=" + a.SessionID()
				break
			}
		}
	}

	lower := strings.ToLower(link.Href)
	if i := strings.IndexByte(lower, '?'); i >= 0 {
		lower = lower[:i]
	}
	for _, ext := range downloadExtensions {
		if strings.HasSuffix(lower, ext) {
			a.Track(EventFileDownload, FileDownloadProperties{
				Href:      link.Href,
				Filename:  linkFilename(link.Href),
				Extension: ext[1:],
			})
			break
		}
	}

	return propagated
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}

// linkFilename is the last path segment of the href with any query
// stripped.
func linkFilename(href string) string {
	seg := href
	if i := strings.LastIndexByte(seg, '/'); i >= 0 {
		seg = seg[i+1:]
	}
	if i := strings.IndexByte(seg, '?'); i >= 0 {
		seg = seg[:i]
	}
	return seg
}

// HandleScroll debounces scroll activity; the depth check runs once the
// page has been still for scrollDebounce.
func (a *Agent) HandleScroll() {
	if a.disabled {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.scrollTimer != nil {
		a.scrollTimer.Stop()
	}
	a.scrollTimer = a.clock.AfterFunc(scrollDebounce, a.checkScroll, "scroll-debounce")
}

func (a *Agent) checkScroll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.page.Scroll()
	if s.ContentHeight <= 0 || s.ViewportHeight <= 0 {
		return
	}

	// A page that fits entirely in the viewport counts as fully read.
	if s.ContentHeight <= s.ViewportHeight {
		a.sendMilestoneLocked(100)
		return
	}

	pct := int(math.Round(float64(s.Top+s.ViewportHeight) / float64(s.ContentHeight) * 100))
	if pct > 100 {
		pct = 100
	}
	for _, m := range scrollMilestones {
		if pct >= m {
			a.sendMilestoneLocked(m)
		}
	}
}

func (a *Agent) sendMilestoneLocked(m int) {
	if a.scrollSent[m] {
		return
	}
	a.scrollSent[m] = true
	a.trackLocked(EventScrollDepth, ScrollDepthProperties{Percent: m, URL: a.page.Path()})
}

// HandleFormFocus emits form_start the first time a field of the given
// form receives focus. The form stays marked active until submitted.
func (a *Agent) HandleFormFocus(f FormInfo) {
	if a.disabled {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.activeForms[f.key()] {
		return
	}
	a.activeForms[f.key()] = true
	a.trackLocked(EventFormStart, FormProperties{FormID: f.label()})
}

// HandleFormSubmit emits form_submit and clears the active mark so a later
// interaction with the same form counts as a new start.
func (a *Agent) HandleFormSubmit(f FormInfo) {
	if a.disabled {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.activeForms, f.key())
	a.trackLocked(EventFormSubmit, FormProperties{FormID: f.label()})
}

// checkNotFound runs once, one second after Start, and reports pages whose
// title advertises a 404.
func (a *Agent) checkNotFound() {
	if !strings.Contains(strings.ToLower(a.page.Title()), "404") {
		return
	}
	a.Track(EventNotFound, NotFoundProperties{
		URL:      a.page.URL(),
		Referrer: a.page.Referrer(),
	})
}
