package alertsink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"adtraffic/internal/bootstrap/config"
	"adtraffic/internal/ports"
)

type recordingSink struct {
	mu    sync.Mutex
	kinds []ports.AlertKind
	err   error
}

func (s *recordingSink) Notify(_ context.Context, kind ports.AlertKind, _ ports.AlertMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kinds = append(s.kinds, kind)
	return s.err
}

func TestWebhookSinkPostsText(t *testing.T) {
	var got webhookBody
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected request %s %s", r.Method, r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink, err := NewWebhookSink("slack", server.URL, 0)
	if err != nil {
		t.Fatalf("NewWebhookSink() error = %v", err)
	}
	err = sink.Notify(context.Background(), ports.AlertQAFailure, ports.AlertMessage{Title: "QA failed: T1", Text: "| Check |"})
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if got.Text != "*QA failed: T1*\n\n| Check |" {
		t.Fatalf("webhook text = %q", got.Text)
	}
}

func TestWebhookSinkReportsStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid_token", http.StatusForbidden)
	}))
	defer server.Close()

	sink, err := NewWebhookSink("teams", server.URL, 0)
	if err != nil {
		t.Fatalf("NewWebhookSink() error = %v", err)
	}
	err = sink.Notify(context.Background(), ports.AlertSLABreach, ports.AlertMessage{Text: "x"})

	var delivery *DeliveryError
	if !errors.As(err, &delivery) {
		t.Fatalf("Notify() error = %v, want DeliveryError", err)
	}
	if delivery.StatusCode != http.StatusForbidden || !strings.Contains(delivery.Body, "invalid_token") {
		t.Fatalf("DeliveryError = %+v", delivery)
	}

	if _, err := NewWebhookSink("slack", " ", 0); err == nil {
		t.Fatalf("NewWebhookSink() expected error for empty url")
	}
}

func TestRouterSinkRoutesQAFailures(t *testing.T) {
	qa := &recordingSink{}
	def := &recordingSink{}
	router := RouterSink{QA: qa, Default: def}
	ctx := context.Background()

	for _, kind := range []ports.AlertKind{ports.AlertQAFailure, ports.AlertSLABreach, ports.AlertTicketBlocked} {
		if err := router.Notify(ctx, kind, ports.AlertMessage{}); err != nil {
			t.Fatalf("Notify(%s) error = %v", kind, err)
		}
	}
	if len(qa.kinds) != 1 || qa.kinds[0] != ports.AlertQAFailure {
		t.Fatalf("qa sink kinds = %v", qa.kinds)
	}
	if len(def.kinds) != 2 {
		t.Fatalf("default sink kinds = %v", def.kinds)
	}

	noQA := RouterSink{Default: def}
	if err := noQA.Notify(ctx, ports.AlertQAFailure, ports.AlertMessage{}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if len(def.kinds) != 3 {
		t.Fatalf("default sink should receive QA failures without a QA sink, kinds = %v", def.kinds)
	}
}

func TestMultiSinkJoinsErrors(t *testing.T) {
	errA := errors.New("slack down")
	errB := errors.New("nats down")
	ok := &recordingSink{}
	multi := MultiSink{&recordingSink{err: errA}, ok, &recordingSink{err: errB}}

	err := multi.Notify(context.Background(), ports.AlertSLABreach, ports.AlertMessage{})
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("Notify() error = %v, want both failures", err)
	}
	if len(ok.kinds) != 1 {
		t.Fatalf("healthy sink was skipped")
	}
}

type fakePublisher struct {
	subject string
	data    []byte
	err     error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.subject = subject
	p.data = data
	return p.err
}

func (p *fakePublisher) FlushWithContext(context.Context) error { return nil }

func TestNATSSinkPublishesPerKind(t *testing.T) {
	pub := &fakePublisher{}
	sink := newNATSSink(pub, "adtraffic.alerts.")

	err := sink.Notify(context.Background(), ports.AlertTicketBlocked, ports.AlertMessage{Title: "Blocked: T2", Text: "reason"})
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if pub.subject != "adtraffic.alerts.ticket_blocked" {
		t.Fatalf("subject = %q", pub.subject)
	}
	var got natsAlert
	if err := json.Unmarshal(pub.data, &got); err != nil {
		t.Fatalf("decode published alert: %v", err)
	}
	if got.Kind != "ticket_blocked" || got.Title != "Blocked: T2" {
		t.Fatalf("published alert = %+v", got)
	}

	pub.err = errors.New("no responders")
	if err := sink.Notify(context.Background(), ports.AlertSLABreach, ports.AlertMessage{}); err == nil {
		t.Fatalf("Notify() expected publish error")
	}
}

func TestFromConfigFallsBackToLog(t *testing.T) {
	sink, closeFn, err := FromConfig(context.Background(), config.AlertsConfig{})
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	defer closeFn()
	if _, ok := sink.(LogSink); !ok {
		t.Fatalf("FromConfig() sink = %T, want LogSink", sink)
	}

	sink, closeFn, err = FromConfig(context.Background(), config.AlertsConfig{
		SlackWebhookURL: "https://hooks.slack.example/T000",
		TeamsWebhookURL: "https://teams.example/webhook",
	})
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	defer closeFn()
	router, ok := sink.(RouterSink)
	if !ok || router.QA == nil || router.Default == nil {
		t.Fatalf("FromConfig() sink = %#v, want RouterSink", sink)
	}
}
