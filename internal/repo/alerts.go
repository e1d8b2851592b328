package repo

import (
	"context"
	"time"
)

// AlertRecord holds the last status seen for one host/check pair and the
// last time a notification was sent for it (used for cooldown).
type AlertRecord struct {
	Key        string
	LastPassed bool
	LastSentAt *time.Time
}

// AlertStore keeps alert state between runs.
type AlertStore interface {
	// Get returns nil, nil if there's no record yet.
	Get(ctx context.Context, key string) (*AlertRecord, error)
	// Set upserts the record. A zero sentAt keeps no send time.
	Set(ctx context.Context, key string, passed bool, sentAt time.Time) error
}
