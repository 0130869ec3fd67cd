// internal/calendar/factory.go
package calendar

import (
	"context"
	"fmt"

	"github.com/ivanrubin10/fulbojubilados/internal/calendar/stub"
	"github.com/ivanrubin10/fulbojubilados/internal/config"
)

// NewProvider builds the configured calendar provider.
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.Calendar.Provider {
	case "stub":
		return stubAdapter{stub.New()}, nil
	default:
		return nil, fmt.Errorf("unknown calendar provider: %s", cfg.Calendar.Provider)
	}
}

// stubAdapter maps the stub's event shape onto the Provider interface.
type stubAdapter struct {
	provider *stub.Provider
}

func (a stubAdapter) Name() string { return a.provider.Name() }

func (a stubAdapter) CreateEvent(ctx context.Context, event Event) error {
	return a.provider.CreateEvent(ctx, stub.Event{
		Title:     event.Title,
		Date:      event.Date,
		Location:  event.Location,
		StartTime: event.StartTime,
		Attendees: event.Attendees,
	})
}
