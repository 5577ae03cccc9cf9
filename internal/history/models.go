package history

import "time"

// Status is the lifecycle state of a post run.
type Status string

const (
	StatusRunning Status = "running"
	StatusPosted  Status = "posted"
	StatusFailed  Status = "failed"
)

// Trigger records what started a run.
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
)

// Run is one attempt to publish a reel.
type Run struct {
	ID           string
	Trigger      Trigger
	Status       Status
	StartedAt    time.Time
	FinishedAt   time.Time
	LocalDate    string
	ContentType  string
	Title        string
	MediaID      string
	VideoPath    string
	ErrorKind    string
	ErrorMessage string
}

// Duration returns how long a finished run took.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
