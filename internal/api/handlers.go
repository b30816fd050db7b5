package api

import (
	"context"
	"time"

	"github.com/vytor/slangflash/internal/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	FlashcardService services.FlashcardService
	SessionService   services.SessionService
	StatsService     services.StatsService
	DB               Pinger
	RequestTimeout   time.Duration
	// RateLimit is the per-IP request budget per minute; 0 disables limiting.
	RateLimit int
}
