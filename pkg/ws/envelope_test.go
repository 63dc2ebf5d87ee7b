package ws

import (
	"errors"
	"testing"
)

func TestParseEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"name":"txt2img","data":{"prompt":"sunset"},"await":true,"id":"r1"}`, false},
		{"valid without await", `{"name":"ping","data":{},"id":"r2"}`, false},
		{"not json", `hello`, true},
		{"missing name", `{"data":{"x":1},"id":"r3"}`, true},
		{"empty name", `{"name":"","data":{"x":1}}`, true},
		{"missing data", `{"name":"ping","id":"r4"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e Envelope
			err := ParseEnvelope([]byte(tt.raw), &e)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseEnvelope() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidEnvelope) {
				t.Errorf("ParseEnvelope() error = %v, want ErrInvalidEnvelope", err)
			}
		})
	}
}

func TestParseEnvelopeFields(t *testing.T) {
	var e Envelope
	raw := `{"name":"txt2img","data":{"prompt":"sunset"},"await":true,"id":"r1"}`
	if err := ParseEnvelope([]byte(raw), &e); err != nil {
		t.Fatalf("ParseEnvelope() error = %v", err)
	}
	if e.Name != "txt2img" {
		t.Errorf("Name = %q, want txt2img", e.Name)
	}
	if !e.Await {
		t.Error("Await = false, want true")
	}
	if e.ID != "r1" {
		t.Errorf("ID = %q, want r1", e.ID)
	}
	if string(e.Data) != `{"prompt":"sunset"}` {
		t.Errorf("Data = %s", e.Data)
	}
}

func TestEnvelopePoolReset(t *testing.T) {
	e := acquireEnvelope()
	e.Name = "x"
	e.Data = []byte(`{}`)
	e.Await = true
	e.ID = "1"
	releaseEnvelope(e)

	got := acquireEnvelope()
	defer releaseEnvelope(got)
	if got.Name != "" || got.Data != nil || got.Await || got.ID != "" {
		t.Errorf("归还后的信封未重置: %+v", got)
	}
}

func TestReplyConstructors(t *testing.T) {
	r := NewReply("r1", map[string]int{"n": 1})
	if r.ID != "r1" || r.Name != ReplyName {
		t.Errorf("NewReply() = %+v", r)
	}

	er := NewErrorReply("r2", errors.New("boom"))
	if er.Data != "boom" {
		t.Errorf("NewErrorReply() data = %v, want boom", er.Data)
	}

	qr := NewQueuedReply("r3")
	status, ok := qr.Data.(map[string]string)
	if !ok || status["status"] != "queued" {
		t.Errorf("NewQueuedReply() data = %v", qr.Data)
	}
}
