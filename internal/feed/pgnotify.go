package feed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

// Postgres listens for NOTIFY on one channel per collection. The database
// is expected to have row triggers that pg_notify the table name's
// channel; see TriggerSQL.
type Postgres struct {
	dsn    string
	prefix string
	logger *slog.Logger
}

// NewPostgres creates a LISTEN source. Channels are named prefix+collection.
func NewPostgres(dsn, prefix string, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{dsn: dsn, prefix: prefix, logger: logger}
}

// Name implements Source
func (p *Postgres) Name() string { return "postgres" }

// Channel returns the NOTIFY channel for c
func (p *Postgres) Channel(c Collection) string {
	return p.prefix + string(c)
}

// collectionFor maps a NOTIFY channel back to its collection
func (p *Postgres) collectionFor(channel string, collections []Collection) (Collection, bool) {
	for _, c := range collections {
		if p.Channel(c) == channel {
			return c, true
		}
	}
	return "", false
}

// Run implements Source
func (p *Postgres) Run(ctx context.Context, collections []Collection, sink Sink) error {
	conn, err := pgx.Connect(ctx, p.dsn)
	if err != nil {
		return fmt.Errorf("postgres connect: %w", err)
	}
	defer conn.Close(context.Background())

	for _, c := range collections {
		channel := pgx.Identifier{p.Channel(c)}.Sanitize()
		if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
			return fmt.Errorf("postgres listen %s: %w", c, err)
		}
	}
	sink.Subscribed()

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("postgres wait: %w", err)
		}
		c, ok := p.collectionFor(n.Channel, collections)
		if !ok {
			p.logger.Debug("ignoring notification", "channel", n.Channel)
			continue
		}
		sink.Event(Event{Collection: c, Type: n.Payload})
	}
}

// TriggerSQL returns DDL that installs NOTIFY triggers on every collection
func (p *Postgres) TriggerSQL(collections []Collection) string {
	sql := `CREATE OR REPLACE FUNCTION libdesk_notify() RETURNS trigger AS $$
BEGIN
  PERFORM pg_notify(TG_ARGV[0], TG_OP);
  RETURN NULL;
END;
$$ LANGUAGE plpgsql;
`
	for _, c := range collections {
		table := pgx.Identifier{string(c)}.Sanitize()
		trigger := pgx.Identifier{"libdesk_notify_" + string(c)}.Sanitize()
		sql += fmt.Sprintf(`
DROP TRIGGER IF EXISTS %[1]s ON %[2]s;
CREATE TRIGGER %[1]s AFTER INSERT OR UPDATE OR DELETE ON %[2]s
  FOR EACH ROW EXECUTE FUNCTION libdesk_notify('%[3]s');
`, trigger, table, p.Channel(c))
	}
	return sql
}
