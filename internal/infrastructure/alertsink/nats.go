package alertsink

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"adtraffic/internal/errs"
	"adtraffic/internal/ports"
)

type publisher interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

// NATSSink publishes alerts as JSON on <subject>.<kind>.
type NATSSink struct {
	conn    publisher
	subject string
	closeFn func()
}

var _ ports.AlertSink = (*NATSSink)(nil)

func DialNATS(url string, subject string, timeout time.Duration) (*NATSSink, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("nats url is required")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	conn, err := nats.Connect(url, nats.Name("adtraffic-alerts"), nats.Timeout(timeout))
	if err != nil {
		return nil, errs.Wrap(err, "connect nats")
	}
	sink := newNATSSink(conn, subject)
	sink.closeFn = conn.Close
	return sink, nil
}

func newNATSSink(conn publisher, subject string) *NATSSink {
	subject = strings.TrimSuffix(strings.TrimSpace(subject), ".")
	if subject == "" {
		subject = "adtraffic.alerts"
	}
	return &NATSSink{conn: conn, subject: subject}
}

type natsAlert struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

func (s *NATSSink) Notify(ctx context.Context, kind ports.AlertKind, msg ports.AlertMessage) error {
	data, err := json.Marshal(natsAlert{Kind: string(kind), Title: msg.Title, Text: msg.Text})
	if err != nil {
		return errs.Wrap(err, "encode nats alert")
	}
	subject := s.subject + "." + string(kind)
	if err := s.conn.Publish(subject, data); err != nil {
		return errs.Wrapf(err, "publish %s", subject)
	}
	if err := s.conn.FlushWithContext(ctx); err != nil {
		return errs.Wrap(err, "flush nats")
	}
	return nil
}

func (s *NATSSink) Close() {
	if s.closeFn != nil {
		s.closeFn()
	}
}
