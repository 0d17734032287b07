package feed

import (
	"fmt"
	"log/slog"

	"github.com/mmcdole/libdesk/internal/adapter"
)

// NewSource builds the Source selected by cfg. Returns a nil Source when
// the feed is disabled.
func NewSource(cfg adapter.RealtimeConfig, logger *slog.Logger) (Source, error) {
	switch cfg.Driver {
	case "", adapter.FeedDriverNone:
		return nil, nil
	case adapter.FeedDriverSupabase:
		if cfg.URL == "" || cfg.Key == "" {
			return nil, fmt.Errorf("supabase feed needs realtime.url and realtime.key")
		}
		rt, err := NewRealtime(cfg.URL, cfg.Key, logger)
		if err != nil {
			return nil, err
		}
		return rt, nil
	case adapter.FeedDriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres feed needs realtime.dsn")
		}
		return NewPostgres(cfg.DSN, "", logger), nil
	default:
		return nil, fmt.Errorf("unknown feed driver %q", cfg.Driver)
	}
}
