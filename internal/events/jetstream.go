package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// JetStreamConfig configures the NATS JetStream sink.
type JetStreamConfig struct {
	URL             string
	StreamName      string
	SubjectPrefix   string
	MaxReconnects   int
	ReconnectWait   time.Duration
	MaxAge          time.Duration
	DuplicateWindow time.Duration
}

// DefaultJetStreamConfig returns defaults for url.
func DefaultJetStreamConfig(url string) JetStreamConfig {
	if url == "" {
		url = nats.DefaultURL
	}
	return JetStreamConfig{
		URL:             url,
		StreamName:      "WORDSEEK_EVENTS",
		SubjectPrefix:   "wordseek.events",
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		MaxAge:          7 * 24 * time.Hour,
		DuplicateWindow: 2 * time.Minute,
	}
}

// JetStreamSink publishes events to a JetStream stream.
type JetStreamSink struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig
}

// NewJetStreamSink connects to NATS and ensures the stream exists.
func NewJetStreamSink(ctx context.Context, cfg JetStreamConfig) (*JetStreamSink, error) {
	opts := []nats.Option{
		nats.Name("wordseek"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	s := &JetStreamSink{nc: nc, js: js, config: cfg}
	if err := s.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	return s, nil
}

func (s *JetStreamSink) ensureStream(ctx context.Context) error {
	sc := jetstream.StreamConfig{
		Name:       s.config.StreamName,
		Subjects:   []string{s.config.SubjectPrefix + ".>"},
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     s.config.MaxAge,
		Storage:    jetstream.FileStorage,
		Duplicates: s.config.DuplicateWindow,
	}
	if _, err := s.js.CreateOrUpdateStream(ctx, sc); err != nil {
		return err
	}
	log.Info().Str("stream", sc.Name).Msg("JetStream stream ready")
	return nil
}

// Publish sends ev to <prefix>.<type>, de-duplicated by event ID.
func (s *JetStreamSink) Publish(ctx context.Context, ev Event) error {
	subject := fmt.Sprintf("%s.%s", s.config.SubjectPrefix, ev.Type)
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ack, err := s.js.PublishMsg(ctx, &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{string(ev.Type)},
			"Room":       []string{ev.Room},
		},
	}, jetstream.WithMsgID(ev.ID.String()))
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	log.Debug().
		Str("subject", subject).
		Str("event_id", ev.ID.String()).
		Uint64("sequence", ack.Sequence).
		Msg("published to JetStream")
	return nil
}

// Close drains and closes the NATS connection.
func (s *JetStreamSink) Close() error {
	if s.nc == nil {
		return nil
	}
	return s.nc.Drain()
}
