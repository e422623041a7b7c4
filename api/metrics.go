package api

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// requestMetrics collects per-request timings for the board's hot routes and
// emits them as one structured log line.
type requestMetrics struct {
	route         string
	start         time.Time
	authDuration  time.Duration
	applyDuration time.Duration
	itemsReturned int
	errorStage    string
}

func newRequestMetrics(route string) *requestMetrics {
	return &requestMetrics{route: route, start: time.Now()}
}

func (m *requestMetrics) ObserveAuth(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.authDuration = duration
}

func (m *requestMetrics) ObserveApply(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.applyDuration = duration
}

func (m *requestMetrics) SetItemsReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.itemsReturned = count
}

func (m *requestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

func (m *requestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	fields := log.Fields{
		"route":    m.route,
		"status":   status,
		"total_ms": durationToMillis(time.Since(m.start)),
	}
	if m.authDuration > 0 {
		fields["auth_ms"] = durationToMillis(m.authDuration)
	}
	if m.applyDuration > 0 {
		fields["apply_ms"] = durationToMillis(m.applyDuration)
	}
	if m.itemsReturned > 0 {
		fields["items_returned"] = m.itemsReturned
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	entry := log.WithFields(fields)
	if err != nil || status >= 500 {
		entry.Error("request completed")
		return
	}
	entry.Debug("request completed")
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
