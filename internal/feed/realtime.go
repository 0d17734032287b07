package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	realtimeTopic     = "realtime:library-changes"
	heartbeatInterval = 30 * time.Second
	readLimit         = 1 << 20
)

// phxMessage is a Phoenix channel frame (protocol 1.0.0, JSON objects)
type phxMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     *string         `json:"ref"`
	JoinRef *string         `json:"join_ref,omitempty"`
}

type postgresChange struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
}

type joinPayload struct {
	Config struct {
		Broadcast struct {
			Self bool `json:"self"`
		} `json:"broadcast"`
		Presence struct {
			Key string `json:"key"`
		} `json:"presence"`
		PostgresChanges []postgresChange `json:"postgres_changes"`
	} `json:"config"`
	AccessToken string `json:"access_token,omitempty"`
}

type replyPayload struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

type changePayload struct {
	Data struct {
		Table string `json:"table"`
		Type  string `json:"type"`
	} `json:"data"`
}

// Realtime subscribes to Supabase Realtime postgres_changes over a
// websocket
type Realtime struct {
	endpoint string
	apiKey   string
	schema   string
	logger   *slog.Logger
	ref      atomic.Int64
}

// NewRealtime creates a source for the Supabase project at projectURL
// (https://<ref>.supabase.co). apiKey is the project's anon key.
func NewRealtime(projectURL, apiKey string, logger *slog.Logger) (*Realtime, error) {
	endpoint, err := realtimeEndpoint(projectURL, apiKey)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Realtime{endpoint: endpoint, apiKey: apiKey, schema: "public", logger: logger}, nil
}

func realtimeEndpoint(projectURL, apiKey string) (string, error) {
	u, err := url.Parse(strings.TrimRight(projectURL, "/"))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid realtime url %q", projectURL)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("invalid realtime url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/realtime/v1/websocket"
	q := url.Values{}
	q.Set("apikey", apiKey)
	q.Set("vsn", "1.0.0")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Name implements Source
func (r *Realtime) Name() string { return "supabase" }

func (r *Realtime) nextRef() *string {
	s := strconv.FormatInt(r.ref.Add(1), 10)
	return &s
}

// Run implements Source
func (r *Realtime) Run(ctx context.Context, collections []Collection, sink Sink) error {
	conn, _, err := websocket.Dial(ctx, r.endpoint, nil)
	if err != nil {
		return fmt.Errorf("realtime dial: %w", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(readLimit)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	joinRef := r.nextRef()
	if err := wsjson.Write(ctx, conn, r.joinMessage(collections, joinRef)); err != nil {
		return fmt.Errorf("realtime join: %w", err)
	}

	heartbeatErr := make(chan error, 1)
	go func() {
		heartbeatErr <- r.heartbeat(ctx, conn)
	}()

	for {
		var msg phxMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if ctx.Err() != nil {
				conn.Close(websocket.StatusNormalClosure, "")
				return nil
			}
			select {
			case hbErr := <-heartbeatErr:
				if hbErr != nil {
					return hbErr
				}
			default:
			}
			return fmt.Errorf("realtime read: %w", err)
		}

		if msg.Topic != realtimeTopic {
			continue // heartbeat replies on "phoenix"
		}

		switch msg.Event {
		case "phx_reply":
			if msg.Ref == nil || *msg.Ref != *joinRef {
				continue
			}
			var reply replyPayload
			if err := json.Unmarshal(msg.Payload, &reply); err != nil {
				return fmt.Errorf("realtime join reply: %w", err)
			}
			if reply.Status != "ok" {
				return fmt.Errorf("realtime join rejected: %s %s", reply.Status, string(reply.Response))
			}
			sink.Subscribed()

		case "postgres_changes":
			var change changePayload
			if err := json.Unmarshal(msg.Payload, &change); err != nil {
				r.logger.Warn("undecodable realtime change", "error", err)
				continue
			}
			if c, ok := isWatched(change.Data.Table, collections); ok {
				sink.Event(Event{Collection: c, Type: change.Data.Type})
			}

		case "phx_error", "phx_close":
			return errors.New("realtime channel " + msg.Event)

		case "system":
			r.logger.Debug("realtime system message", "payload", string(msg.Payload))
		}
	}
}

func (r *Realtime) joinMessage(collections []Collection, ref *string) phxMessage {
	var join joinPayload
	join.AccessToken = r.apiKey
	for _, c := range collections {
		join.Config.PostgresChanges = append(join.Config.PostgresChanges, postgresChange{
			Event:  "*",
			Schema: r.schema,
			Table:  string(c),
		})
	}
	payload, _ := json.Marshal(join)
	return phxMessage{
		Topic:   realtimeTopic,
		Event:   "phx_join",
		Payload: payload,
		Ref:     ref,
		JoinRef: ref,
	}
}

func (r *Realtime) heartbeat(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			msg := phxMessage{Topic: "phoenix", Event: "heartbeat", Payload: json.RawMessage(`{}`), Ref: r.nextRef()}
			if err := wsjson.Write(ctx, conn, msg); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				conn.Close(websocket.StatusGoingAway, "heartbeat failed")
				return fmt.Errorf("realtime heartbeat: %w", err)
			}
		}
	}
}
