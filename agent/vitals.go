package agent

import "math"

// Web vitals metric names as reported to the collector.
const (
	MetricLCP = "LCP"
	MetricCLS = "CLS"
	MetricINP = "INP"
)

// Thresholds separating "good" from "poor". Deliberately coarse: a single
// boundary per metric, matching what the dashboard charts.
const (
	lcpPoorMs = 2500
	clsPoor   = 0.1
	inpPoorMs = 200
)

type vitalsState struct {
	lcp     float64
	lcpSeen bool
	cls     float64
	inp     float64
}

// HandlePerformanceEntry folds one platform performance record into the
// vitals accumulators. LCP keeps the latest paint, CLS sums layout shifts
// not caused by recent input, INP keeps the worst interaction latency.
func (a *Agent) HandlePerformanceEntry(e PerformanceEntry) {
	if a.disabled {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	switch e.Type {
	case EntryLargestContentfulPaint:
		a.vitals.lcp = e.StartTime
		a.vitals.lcpSeen = true
	case EntryLayoutShift:
		if !e.HadRecentInput {
			a.vitals.cls += e.Value
		}
	case EntryEvent:
		if e.InteractionID != 0 && e.Duration > a.vitals.inp {
			a.vitals.inp = e.Duration
		}
	}
}

// reportVitalsLocked emits the current accumulator values. Called on
// visibility-hidden and pagehide; at most one event per metric per cycle.
func (a *Agent) reportVitalsLocked() {
	if a.vitals.lcpSeen {
		a.sendVitalLocked(MetricLCP, a.vitals.lcp)
	}
	a.sendVitalLocked(MetricCLS, a.vitals.cls)
	if a.vitals.inp > 0 {
		a.sendVitalLocked(MetricINP, a.vitals.inp)
	}
}

// sendVitalLocked rates the raw measurement, then rounds millisecond
// metrics for the wire. Rating before rounding keeps a 2500.4ms paint
// "poor" even though it ships as 2500.
func (a *Agent) sendVitalLocked(metric string, value float64) {
	wire := value
	if metric != MetricCLS {
		wire = math.Round(value)
	}
	a.trackLocked(EventWebVitals, WebVitalsProperties{
		Metric: metric,
		Value:  wire,
		Rating: vitalRating(metric, value),
	})
}

func vitalRating(metric string, value float64) string {
	threshold := float64(inpPoorMs)
	switch metric {
	case MetricLCP:
		threshold = lcpPoorMs
	case MetricCLS:
		threshold = clsPoor
	}
	if value > threshold {
		return "poor"
	}
	return "good"
}
