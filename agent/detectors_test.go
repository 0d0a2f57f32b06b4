package agent_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitepulse/agent"
)

func TestClickOutbound(t *testing.T) {
	t.Parallel()
	page := newFakePage()
	a, _, sender := newTestAgent(t, page)

	longText := strings.Repeat("ü", 120)
	a.HandleClick(agent.Link{Href: "https://other.example.org/post", Text: longText})

	events := sender.waitNamed(t, "outbound", 1)
	require.Len(t, events, 1)
	props := events[0].Properties
	assert.Equal(t, "https://other.example.org/post", props["href"])
	text, _ := props["text"].(string)
	assert.Len(t, []rune(text), 100)
	assert.Equal(t, strings.Repeat("ü", 100), text)
}

func TestClickSameHostNotOutbound(t *testing.T) {
	t.Parallel()
	page := newFakePage()
	a, _, sender := newTestAgent(t, page)

	a.HandleClick(agent.Link{Href: "https://example.com/about", Text: "About"})
	a.HandleClick(agent.Link{Href: "/relative/path", Text: "Relative"})

	drain(t, a, sender)
	assert.Empty(t, sender.named("outbound"))
	assert.Empty(t, sender.named("file_download"))
}

func TestClickDownload(t *testing.T) {
	t.Parallel()
	page := newFakePage()
	a, _, sender := newTestAgent(t, page)

	a.HandleClick(agent.Link{Href: "https://example.com/files/report.PDF?v=2", Text: "Report"})

	events := sender.waitNamed(t, "file_download", 1)
	require.Len(t, events, 1)
	props := events[0].Properties
	assert.Equal(t, "https://example.com/files/report.PDF?v=2", props["href"])
	assert.Equal(t, "report.PDF", props["filename"])
	assert.Equal(t, "pdf", props["extension"])
	assert.Empty(t, sender.named("outbound"), "same-host download is not outbound")
}

func TestClickOutboundDownloadEmitsBoth(t *testing.T) {
	t.Parallel()
	page := newFakePage()
	a, _, sender := newTestAgent(t, page)

	a.HandleClick(agent.Link{Href: "https://cdn.other.net/archive.zip", Text: "Download"})

	assert.Len(t, sender.waitNamed(t, "outbound", 1), 1)
	downloads := sender.waitNamed(t, "file_download", 1)
	require.Len(t, downloads, 1)
	assert.Equal(t, "zip", downloads[0].Properties["extension"])
}

func TestClickCrossDomainPropagation(t *testing.T) {
	t.Parallel()
	page := newFakePage()
	mock := quartz.NewMock(t)
	sender := &fakeSender{}
	a := agent.New(page, agent.Options{
		SiteID:       "site-1",
		Endpoint:     "https://collector.test/v1/track",
		CrossDomains: []string{"partner.com"},
	}, agent.WithClock(mock), agent.WithBeacon(sender),
		agent.WithConfigFetch(func(string, []byte) ([]byte, error) {
			return nil, errors.New("config unavailable")
		}))

	got := a.HandleClick(agent.Link{Href: "https://shop.partner.com/promo", Text: "Shop"})
	require.NotEmpty(t, got)
	assert.Equal(t, "https://shop.partner.com/promo?"+agent.SessionParam+"="+a.SessionID(), got)

	withQuery := a.HandleClick(agent.Link{Href: "https://shop.partner.com/promo?ref=1", Text: "Shop"})
	assert.Equal(t, "https://shop.partner.com/promo?ref=1&"+agent.SessionParam+"="+a.SessionID(), withQuery)

	unlisted := a.HandleClick(agent.Link{Href: "https://other.example.org/", Text: "Other"})
	assert.Empty(t, unlisted)
}

func TestScrollMilestonesDedupedAndOrdered(t *testing.T) {
	t.Parallel()
	page := newFakePage()
	a, mock, sender := newTestAgent(t, page)
	ctx := context.Background()

	steps := []int{250, 1600, 3000}
	for _, top := range steps {
		page.scroll.Top = top
		a.HandleScroll()
		mock.Advance(agentScrollDebounce).MustWait(ctx)
	}

	var percents []int
	for _, e := range sender.waitNamed(t, "scroll_depth", 4) {
		percents = append(percents, int(e.Properties["percent"].(float64)))
		assert.Equal(t, "/", e.Properties["url"])
	}
	assert.Equal(t, []int{25, 50, 75, 90}, percents)

	// Revisiting the same depth adds nothing.
	a.HandleScroll()
	mock.Advance(agentScrollDebounce).MustWait(ctx)
	drain(t, a, sender)
	assert.Len(t, sender.named("scroll_depth"), 4)
}

// agentScrollDebounce mirrors the agent's debounce window.
const agentScrollDebounce = 200 * time.Millisecond

func TestScrollDebounceCollapsesBursts(t *testing.T) {
	t.Parallel()
	page := newFakePage()
	a, mock, sender := newTestAgent(t, page)
	ctx := context.Background()

	page.scroll.Top = 3000
	for i := 0; i < 5; i++ {
		a.HandleScroll()
		mock.Advance(50 * time.Millisecond).MustWait(ctx)
	}
	assert.Empty(t, sender.named("scroll_depth"), "check must not run while scrolling continues")

	mock.Advance(agentScrollDebounce - 50*time.Millisecond).MustWait(ctx)
	assert.Len(t, sender.waitNamed(t, "scroll_depth", 4), 4)
}

func TestShortPageCountsAsFullyRead(t *testing.T) {
	t.Parallel()
	page := newFakePage()
	page.scroll = agent.ScrollState{Top: 0, ViewportHeight: 800, ContentHeight: 600}
	a, mock, sender := newTestAgent(t, page)
	ctx := context.Background()

	a.Start(ctx)
	mock.Advance(time.Second).MustWait(ctx)

	events := sender.waitNamed(t, "scroll_depth", 1)
	require.Len(t, events, 1)
	assert.Equal(t, float64(100), events[0].Properties["percent"])

	a.HandleScroll()
	mock.Advance(agentScrollDebounce).MustWait(ctx)
	drain(t, a, sender)
	assert.Len(t, sender.named("scroll_depth"), 1, "the 100 milestone fires once per page load")
}

func TestFormStartDedupAndSubmitReset(t *testing.T) {
	t.Parallel()
	page := newFakePage()
	a, _, sender := newTestAgent(t, page)

	signup := agent.FormInfo{Ref: "form#0", ID: "signup"}
	a.HandleFormFocus(signup)
	a.HandleFormFocus(signup)
	drain(t, a, sender)
	require.Len(t, sender.named("form_start"), 1)
	assert.Equal(t, "signup", sender.named("form_start")[0].Properties["form_id"])

	a.HandleFormSubmit(signup)
	require.Len(t, sender.waitNamed(t, "form_submit", 1), 1)

	// After submit the same form starts a new interaction cycle.
	a.HandleFormFocus(signup)
	assert.Len(t, sender.waitNamed(t, "form_start", 2), 2)
}

func TestFormLabelFallsBackToNameThenUnknown(t *testing.T) {
	t.Parallel()
	page := newFakePage()
	a, _, sender := newTestAgent(t, page)

	a.HandleFormFocus(agent.FormInfo{Ref: "form#1", Name: "contact"})
	a.HandleFormFocus(agent.FormInfo{Ref: "form#2"})

	starts := sender.waitNamed(t, "form_start", 2)
	require.Len(t, starts, 2)
	assert.Equal(t, "contact", starts[0].Properties["form_id"])
	assert.Equal(t, "unknown", starts[1].Properties["form_id"])
}

func TestNotFoundTitleDetection(t *testing.T) {
	t.Parallel()
	page := newFakePage()
	page.title = "404 - Page Not Found"
	page.full = "https://example.com/missing"
	a, mock, sender := newTestAgent(t, page)
	ctx := context.Background()

	a.Start(ctx)
	mock.Advance(time.Second).MustWait(ctx)

	events := sender.waitNamed(t, "404", 1)
	require.Len(t, events, 1)
	assert.Equal(t, "https://example.com/missing", events[0].Properties["url"])
}

func TestOrdinaryTitleNoNotFound(t *testing.T) {
	t.Parallel()
	page := newFakePage()
	a, mock, sender := newTestAgent(t, page)
	ctx := context.Background()

	a.Start(ctx)
	mock.Advance(time.Second).MustWait(ctx)

	drain(t, a, sender)
	assert.Empty(t, sender.named("404"))
}
