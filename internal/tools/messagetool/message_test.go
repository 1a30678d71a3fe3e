package messagetool

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/bashclaw/bashclaw/internal/outbound"
)

type stubSender struct {
	channel string
	sent    []string
}

func (s *stubSender) Channel() string { return s.channel }

func (s *stubSender) Send(ctx context.Context, to, text string) (*outbound.Delivery, error) {
	s.sent = append(s.sent, to+": "+text)
	return &outbound.Delivery{Channel: s.channel, To: to, MessageID: "m1"}, nil
}

func TestMessageDelivers(t *testing.T) {
	reg := outbound.NewRegistry()
	sender := &stubSender{channel: "telegram"}
	reg.Register(sender)

	mt := New(reg)
	if !mt.Available() {
		t.Fatal("tool must be available with a sender registered")
	}

	params, _ := json.Marshal(map[string]string{"channel": "telegram", "to": "123", "text": "hi"})
	res, err := mt.Execute(context.Background(), params)
	if err != nil || res.IsError {
		t.Fatalf("execute: %v %+v", err, res)
	}
	if !strings.Contains(res.Content, "telegram") || !strings.Contains(res.Content, "m1") {
		t.Errorf("content = %q", res.Content)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "123: hi" {
		t.Errorf("sent = %v", sender.sent)
	}
}

func TestMessageUnknownChannel(t *testing.T) {
	mt := New(outbound.NewRegistry())
	if mt.Available() {
		t.Error("tool must be unavailable without senders")
	}
	params, _ := json.Marshal(map[string]string{"channel": "irc", "to": "#ops", "text": "hi"})
	res, err := mt.Execute(context.Background(), params)
	if err != nil || !res.IsError {
		t.Errorf("result = %+v", res)
	}
}

func TestMessageRequiresText(t *testing.T) {
	reg := outbound.NewRegistry()
	reg.Register(&stubSender{channel: "slack"})
	mt := New(reg)
	params, _ := json.Marshal(map[string]string{"channel": "slack", "to": "C1", "text": "  "})
	res, err := mt.Execute(context.Background(), params)
	if err != nil || !res.IsError {
		t.Errorf("result = %+v", res)
	}
}
