package research

import "github.com/sirupsen/logrus"

// EventStatus is the lifecycle state reported for a stage or a page.
type EventStatus string

const (
	EventStarted   EventStatus = "started"
	EventProgress  EventStatus = "progress"
	EventCompleted EventStatus = "completed"
	EventFailed    EventStatus = "failed"
)

// ProgressSink receives events from the pipeline: one per stage transition
// and one per completed or failed page fetch. The pipeline has no opinion on
// how events are displayed or persisted. Implementations must be safe for
// concurrent use; extraction workers report pages in parallel.
type ProgressSink interface {
	OnEvent(stage string, status EventStatus, detail string)
}

// LogSink writes progress events through logrus.
type LogSink struct{}

// OnEvent logs the event, failures as warnings.
func (LogSink) OnEvent(stage string, status EventStatus, detail string) {
	if status == EventFailed {
		logrus.Warnf("[%s] %s: %s", stage, status, detail)
		return
	}
	logrus.Infof("[%s] %s: %s", stage, status, detail)
}

// NullSink discards all events.
type NullSink struct{}

func (NullSink) OnEvent(string, EventStatus, string) {}

// MultiSink fans one event out to several sinks.
type MultiSink []ProgressSink

func (m MultiSink) OnEvent(stage string, status EventStatus, detail string) {
	for _, s := range m {
		s.OnEvent(stage, status, detail)
	}
}
