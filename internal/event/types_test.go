package event

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeNodeUpdate(t *testing.T) {
	data := json.RawMessage(`{"node_id": 3, "status": "online", "last_check": "2026-08-28 10:15:00"}`)

	got, err := Decode(TypeNodeUpdate, data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	nu, ok := got.(NodeUpdate)
	if !ok {
		t.Fatalf("Decode returned %T, want NodeUpdate", got)
	}
	if nu.NodeID != 3 {
		t.Errorf("NodeID = %d, want 3", nu.NodeID)
	}
	if nu.Status != "online" {
		t.Errorf("Status = %q, want %q", nu.Status, "online")
	}
	if nu.LastCheck == "" {
		t.Error("LastCheck is empty")
	}
}

func TestDecodeVMsUpdate(t *testing.T) {
	data := json.RawMessage(`{"node_id": 1, "vm_count": 12}`)

	got, err := Decode(TypeVMsUpdate, data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	vu := got.(VMsUpdate)
	if vu.NodeID != 1 {
		t.Errorf("NodeID = %d, want 1", vu.NodeID)
	}
	if vu.VMCount != 12 {
		t.Errorf("VMCount = %d, want 12", vu.VMCount)
	}
}

func TestDecodeServiceUpdate(t *testing.T) {
	t.Run("with response time", func(t *testing.T) {
		data := json.RawMessage(`{"service_id": 7, "status": "up", "response_time": 0.042}`)

		got, err := Decode(TypeServiceUpdate, data)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}

		su := got.(ServiceUpdate)
		if su.ServiceID != 7 {
			t.Errorf("ServiceID = %d, want 7", su.ServiceID)
		}
		if su.ResponseTime == nil || *su.ResponseTime != 0.042 {
			t.Errorf("ResponseTime = %v, want 0.042", su.ResponseTime)
		}
	})

	t.Run("failed check has null response time", func(t *testing.T) {
		data := json.RawMessage(`{"service_id": 7, "status": "down", "response_time": null}`)

		got, err := Decode(TypeServiceUpdate, data)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}

		su := got.(ServiceUpdate)
		if su.Status != "down" {
			t.Errorf("Status = %q, want %q", su.Status, "down")
		}
		if su.ResponseTime != nil {
			t.Errorf("ResponseTime = %v, want nil", *su.ResponseTime)
		}
	})
}

func TestDecodeAlert(t *testing.T) {
	data := json.RawMessage(`{
		"id": 42,
		"alert_type": "service_down",
		"severity": "critical",
		"title": "Service down: postgres",
		"message": "Service postgres is not responding",
		"node_id": null,
		"vm_id": null,
		"service_id": 7,
		"created_at": "2026-08-28T10:15:00"
	}`)

	got, err := Decode(TypeAlert, data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	a := got.(Alert)
	if a.ID != 42 {
		t.Errorf("ID = %d, want 42", a.ID)
	}
	if a.AlertType != "service_down" {
		t.Errorf("AlertType = %q, want %q", a.AlertType, "service_down")
	}
	if a.Severity != "critical" {
		t.Errorf("Severity = %q, want %q", a.Severity, "critical")
	}
	if a.NodeID != nil {
		t.Errorf("NodeID = %v, want nil", *a.NodeID)
	}
	if a.ServiceID == nil || *a.ServiceID != 7 {
		t.Errorf("ServiceID = %v, want 7", a.ServiceID)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode("pool_rebalance", json.RawMessage(`{}`))
	if !errors.Is(err, ErrUnknownType) {
		t.Errorf("Decode error = %v, want ErrUnknownType", err)
	}
}

func TestDecodeMalformedPayload(t *testing.T) {
	_, err := Decode(TypeAlert, json.RawMessage(`{"id": "not-a-number"}`))
	if err == nil {
		t.Fatal("Decode succeeded on malformed payload")
	}
	if errors.Is(err, ErrUnknownType) {
		t.Errorf("Decode error = %v, want a decode error, not ErrUnknownType", err)
	}
}
