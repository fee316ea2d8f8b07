package events

import (
	"encoding/json"
	"testing"
	"time"
)

type sampleEvent struct {
	BaseEvent
	Score int `json:"score"`
}

func TestNewBaseEvent(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("IST", 19800))
	event := NewBaseEvent("bureau.inquiry.completed", "txn-123", "BureauSession", now)

	if event.EventID() == "" {
		t.Error("expected non-empty event ID")
	}
	if event.EventType() != "bureau.inquiry.completed" {
		t.Errorf("expected event type %q, got %q", "bureau.inquiry.completed", event.EventType())
	}
	if event.AggregateID() != "txn-123" {
		t.Errorf("expected aggregate ID %q, got %q", "txn-123", event.AggregateID())
	}
	if event.AggregateType() != "BureauSession" {
		t.Errorf("expected aggregate type %q, got %q", "BureauSession", event.AggregateType())
	}
	if event.OccurredAt().Location() != time.UTC {
		t.Errorf("expected occurredAt in UTC, got %v", event.OccurredAt().Location())
	}
	if !event.OccurredAt().Equal(now) {
		t.Errorf("expected occurredAt %v, got %v", now, event.OccurredAt())
	}
}

func TestBaseEventImplementsDomainEvent(t *testing.T) {
	var _ DomainEvent = BaseEvent{}
}

func TestNewEnvelope(t *testing.T) {
	evt := sampleEvent{
		BaseEvent: NewBaseEvent("bureau.inquiry.completed", "txn-9", "BureauSession", time.Now()),
		Score:     781,
	}

	env, err := NewEnvelope(evt)
	if err != nil {
		t.Fatalf("NewEnvelope() error = %v", err)
	}
	if env.EventID != evt.EventID() {
		t.Errorf("expected envelope ID %q, got %q", evt.EventID(), env.EventID)
	}
	if env.AggregateID != "txn-9" {
		t.Errorf("expected aggregate ID %q, got %q", "txn-9", env.AggregateID)
	}

	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	var decoded Envelope
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}

	var payload struct {
		Score int `json:"score"`
	}
	if err := decoded.DecodePayload(&payload); err != nil {
		t.Fatalf("DecodePayload() error = %v", err)
	}
	if payload.Score != 781 {
		t.Errorf("expected score 781, got %d", payload.Score)
	}
}
