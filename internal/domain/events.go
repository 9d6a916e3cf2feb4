package domain

// EventKind discriminates progress events emitted during one resolution.
type EventKind string

const (
	EventStatus EventKind = "status"
	EventError  EventKind = "error"
	EventResult EventKind = "result"
)

// ProgressEvent is one entry of the append-only notification stream a
// resolution produces. The stream always ends with a result or error event.
type ProgressEvent struct {
	Kind    EventKind        `json:"type"`
	Message string           `json:"message,omitempty"`
	Cycle   int              `json:"cycle,omitempty"`
	Report  *ConsensusReport `json:"result,omitempty"`
}

// StatusEvent builds a status entry for the given cycle (0 for events outside
// the cycle loop).
func StatusEvent(cycle int, message string) ProgressEvent {
	return ProgressEvent{Kind: EventStatus, Cycle: cycle, Message: message}
}

// ErrorEvent builds a terminal error entry.
func ErrorEvent(message string) ProgressEvent {
	return ProgressEvent{Kind: EventError, Message: message}
}

// ResultEvent builds the terminal result entry.
func ResultEvent(report *ConsensusReport) ProgressEvent {
	return ProgressEvent{Kind: EventResult, Report: report}
}
