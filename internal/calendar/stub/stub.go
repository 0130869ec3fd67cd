package stub

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Stub provider: records the event in the log and succeeds. Stands in for a
// real calendar integration until one is wired up.

type Event struct {
	Title     string
	Date      time.Time
	Location  string
	StartTime string
	Attendees []string
}

type Provider struct{}

func New() *Provider { return &Provider{} }

func (p *Provider) Name() string { return "stub" }

func (p *Provider) CreateEvent(ctx context.Context, event Event) error {
	log.Ctx(ctx).Info().
		Str("title", event.Title).
		Str("date", event.Date.Format("2006-01-02")).
		Str("location", event.Location).
		Int("attendees", len(event.Attendees)).
		Msg("Calendar event created (stub)")
	return nil
}
