package ledger

import "time"

// Clock supplies the wall-clock instants stamped on records as created_at.
// Abstracted so tests can drive deterministic timestamps; chain ORDER never
// depends on this clock, only the stored metadata does.
type Clock interface {
	Now() time.Time
}

// systemClock is the production clock.
type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}
