// internal/calendar/provider.go
package calendar

import (
	"context"
	"time"
)

// Event is a calendar entry for a confirmed match.
type Event struct {
	Title     string
	Date      time.Time
	Location  string
	StartTime string
	Attendees []string
}

// Provider creates calendar events for confirmed matches. Providers are
// selected by configuration at startup; the only shipped implementation is
// the logging stub.
type Provider interface {
	Name() string
	CreateEvent(ctx context.Context, event Event) error
}
