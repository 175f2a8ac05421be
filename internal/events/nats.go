package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const subjectPrefix = "books.comments."

// Publisher pushes events to NATS JetStream under books.comments.<action>.
type Publisher struct {
	nc  *nats.Conn
	js  nats.JetStreamContext
	log *zap.Logger
}

// NewPublisher connects to NATS and makes sure the stream exists.
func NewPublisher(url, stream string, log *zap.Logger) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}

	p := &Publisher{nc: nc, js: js, log: log}
	if err := p.ensureStream(stream); err != nil {
		nc.Close()
		return nil, err
	}

	log.Info("NATS publisher initialised", zap.String("stream", stream))
	return p, nil
}

func (p *Publisher) ensureStream(name string) error {
	_, err := p.js.StreamInfo(name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}
	_, err = p.js.AddStream(&nats.StreamConfig{
		Name:     name,
		Subjects: []string{subjectPrefix + ">"},
		Storage:  nats.FileStorage,
		MaxAge:   7 * 24 * time.Hour,
	})
	return err
}

// Subject returns the subject an event of type t is published on.
func Subject(t Type) string {
	return subjectPrefix + strings.TrimPrefix(string(t), "comment.")
}

// Notify publishes asynchronously; the ack is not awaited.
func (p *Publisher) Notify(_ context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	msg := nats.NewMsg(Subject(ev.Type))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, ev.EventID)

	if _, err := p.js.PublishMsgAsync(msg); err != nil {
		return err
	}
	p.log.Debug("NATS event queued",
		zap.String("subject", msg.Subject),
		zap.String("event_id", ev.EventID),
	)
	return nil
}

// Close waits briefly for pending acks and drops the connection.
func (p *Publisher) Close() {
	select {
	case <-p.js.PublishAsyncComplete():
	case <-time.After(2 * time.Second):
		p.log.Warn("NATS publisher closed with pending acks")
	}
	p.nc.Close()
}
