package agent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitepulse/agent"
)

func vitalsByMetric(s *fakeSender) map[string]map[string]any {
	out := map[string]map[string]any{}
	for _, e := range s.named("web_vitals") {
		out[e.Properties["metric"].(string)] = e.Properties
	}
	return out
}

func TestVitalsAccumulateAndReportOnPageHide(t *testing.T) {
	t.Parallel()
	page := newFakePage()
	a, _, sender := newTestAgent(t, page)

	// LCP keeps the latest candidate paint.
	a.HandlePerformanceEntry(agent.PerformanceEntry{Type: agent.EntryLargestContentfulPaint, StartTime: 1200})
	a.HandlePerformanceEntry(agent.PerformanceEntry{Type: agent.EntryLargestContentfulPaint, StartTime: 2400.4})

	// CLS sums shifts, except those caused by recent input.
	a.HandlePerformanceEntry(agent.PerformanceEntry{Type: agent.EntryLayoutShift, Value: 0.03})
	a.HandlePerformanceEntry(agent.PerformanceEntry{Type: agent.EntryLayoutShift, Value: 0.02})
	a.HandlePerformanceEntry(agent.PerformanceEntry{Type: agent.EntryLayoutShift, Value: 0.4, HadRecentInput: true})

	// INP keeps the worst qualifying interaction.
	a.HandlePerformanceEntry(agent.PerformanceEntry{Type: agent.EntryEvent, Duration: 400})
	a.HandlePerformanceEntry(agent.PerformanceEntry{Type: agent.EntryEvent, Duration: 250, InteractionID: 7})
	a.HandlePerformanceEntry(agent.PerformanceEntry{Type: agent.EntryEvent, Duration: 100, InteractionID: 8})

	a.HandlePageHide()

	sender.waitNamed(t, "web_vitals", 3)
	vitals := vitalsByMetric(sender)
	require.Len(t, vitals, 3)

	assert.Equal(t, float64(2400), vitals["LCP"]["value"])
	assert.Equal(t, "good", vitals["LCP"]["rating"])

	assert.InDelta(t, 0.05, vitals["CLS"]["value"].(float64), 1e-9)
	assert.Equal(t, "good", vitals["CLS"]["rating"])

	assert.Equal(t, float64(250), vitals["INP"]["value"])
	assert.Equal(t, "poor", vitals["INP"]["rating"])
}

func TestVitalsWithoutEntriesReportOnlyCLS(t *testing.T) {
	t.Parallel()
	page := newFakePage()
	a, _, sender := newTestAgent(t, page)

	a.HandlePageHide()

	drain(t, a, sender)
	vitals := vitalsByMetric(sender)
	require.Len(t, vitals, 1)
	assert.Equal(t, float64(0), vitals["CLS"]["value"])
	assert.Equal(t, "good", vitals["CLS"]["rating"])
}

func TestSlowPaintRatedPoor(t *testing.T) {
	t.Parallel()
	page := newFakePage()
	a, _, sender := newTestAgent(t, page)

	a.HandlePerformanceEntry(agent.PerformanceEntry{Type: agent.EntryLargestContentfulPaint, StartTime: 3100})
	a.HandlePerformanceEntry(agent.PerformanceEntry{Type: agent.EntryLayoutShift, Value: 0.3})
	a.HandlePageHide()

	sender.waitNamed(t, "web_vitals", 2)
	vitals := vitalsByMetric(sender)
	assert.Equal(t, "poor", vitals["LCP"]["rating"])
	assert.Equal(t, "poor", vitals["CLS"]["rating"])
}

func TestVitalsRatedBeforeWireRounding(t *testing.T) {
	t.Parallel()
	page := newFakePage()
	a, _, sender := newTestAgent(t, page)

	// 2500.4ms is past the threshold even though it ships rounded to 2500.
	a.HandlePerformanceEntry(agent.PerformanceEntry{Type: agent.EntryLargestContentfulPaint, StartTime: 2500.4})
	a.HandlePerformanceEntry(agent.PerformanceEntry{Type: agent.EntryEvent, Duration: 200.3, InteractionID: 4})
	a.HandlePageHide()

	sender.waitNamed(t, "web_vitals", 3)
	vitals := vitalsByMetric(sender)

	assert.Equal(t, float64(2500), vitals["LCP"]["value"])
	assert.Equal(t, "poor", vitals["LCP"]["rating"])

	assert.Equal(t, float64(200), vitals["INP"]["value"])
	assert.Equal(t, "poor", vitals["INP"]["rating"])
}
