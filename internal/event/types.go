package event

import (
	"encoding/json"
	"fmt"
)

// Envelope type strings broadcast by the dashboard.
const (
	TypeNodeUpdate    = "node_update"
	TypeVMsUpdate     = "vms_update"
	TypeServiceUpdate = "service_update"
	TypeAlert         = "alert"
)

// NodeUpdate reports a hypervisor node status change.
type NodeUpdate struct {
	NodeID    int    `json:"node_id"`
	Status    string `json:"status"` // online, offline, error
	LastCheck string `json:"last_check"`
}

// VMsUpdate reports a refresh of a node's guest inventory.
type VMsUpdate struct {
	NodeID  int `json:"node_id"`
	VMCount int `json:"vm_count"`
}

// ServiceUpdate reports a monitored service check result.
type ServiceUpdate struct {
	ServiceID    int      `json:"service_id"`
	Status       string   `json:"status"`        // up, down
	ResponseTime *float64 `json:"response_time"` // seconds, nil when the check failed
}

// Alert is a triggered alert-rule notification.
type Alert struct {
	ID        int    `json:"id"`
	AlertType string `json:"alert_type"` // node_down, vm_down, service_down, high_usage
	Severity  string `json:"severity"`   // info, warning, critical
	Title     string `json:"title"`
	Message   string `json:"message"`
	NodeID    *int   `json:"node_id"`
	VMID      *int   `json:"vm_id"`
	ServiceID *int   `json:"service_id"`
	CreatedAt string `json:"created_at"`
}

// Decode parses the payload for a known envelope type. It returns
// ErrUnknownType for types outside the broadcast vocabulary so callers
// can pass those along raw.
func Decode(typ string, data json.RawMessage) (any, error) {
	switch typ {
	case TypeNodeUpdate:
		var v NodeUpdate
		return v, unmarshal(typ, data, &v)
	case TypeVMsUpdate:
		var v VMsUpdate
		return v, unmarshal(typ, data, &v)
	case TypeServiceUpdate:
		var v ServiceUpdate
		return v, unmarshal(typ, data, &v)
	case TypeAlert:
		var v Alert
		return v, unmarshal(typ, data, &v)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
}

func unmarshal(typ string, data json.RawMessage, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", typ, err)
	}
	return nil
}
