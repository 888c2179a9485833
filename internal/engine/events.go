package engine

// EventType identifies what an Event reports
type EventType string

const (
	EventPhase    EventType = "phase"
	EventProgress EventType = "progress"
	EventFire     EventType = "fire"
	EventNotice   EventType = "notice"
	EventComplete EventType = "complete"
)

// NoticeEmptyTimeline is the message id emitted when play is requested before a generation
const NoticeEmptyTimeline = "EMPTY_TIMELINE"

// Event is delivered to the Listener on the scheduler thread
type Event struct {
	Type     EventType `json:"type"`
	Phase    Phase     `json:"phase"`
	Progress float64   `json:"progress"`
	Clock    float64   `json:"clock"`
	Scene    int       `json:"scene"`
	Text     string    `json:"text,omitempty"`
	Notice   string    `json:"notice,omitempty"`
}

// Listener receives engine events. It must not block.
type Listener func(Event)
