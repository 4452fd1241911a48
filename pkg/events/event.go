package events

import (
	"fmt"
	"time"

	"barcode-lookup/pkg/decoder"
	"barcode-lookup/pkg/session"
)

const (
	TypeSessionPrefix = "session."
	TypeScanCaptured  = "scan.captured"
)

// Event defines the contract for all station events.
type Event interface {
	// EventType is the subject suffix, e.g. "session.resolved".
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// SessionTransition announces that the session entered snap.Phase.
func SessionTransition(snap session.Snapshot) Event {
	data := map[string]interface{}{
		"session_id": snap.SessionID,
		"version":    snap.Version,
		"phase":      string(snap.Phase),
	}
	if snap.Code != "" {
		data["code"] = snap.Code
	}
	if snap.RequestID != 0 {
		data["request_id"] = snap.RequestID
	}
	if snap.Record != nil {
		data["record"] = snap.Record
	}
	if snap.Failure != nil {
		data["error"] = snap.Failure
	}
	return BaseEvent{
		Type:       TypeSessionPrefix + string(snap.Phase),
		Data:       data,
		OccurredAt: snap.UpdatedAt,
	}
}

// ScanCaptured wraps a decoder event for remote stations.
func ScanCaptured(ev decoder.ScanEvent) Event {
	data := map[string]interface{}{
		"code":       ev.Code,
		"source":     ev.Source,
		"scanned_at": ev.ScannedAt.Format(time.RFC3339Nano),
	}
	if ev.Symbology != decoder.SymbologyUnknown {
		data["symbology"] = string(ev.Symbology)
	}
	if ev.Err != "" {
		data["error"] = ev.Err
	}
	return BaseEvent{Type: TypeScanCaptured, Data: data, OccurredAt: ev.ScannedAt}
}

// ToScanEvent reads a scan.captured payload back into a decoder event.
// A payload without a code and without an error is rejected.
func ToScanEvent(e Event) (decoder.ScanEvent, error) {
	data := e.Payload()
	ev := decoder.ScanEvent{
		Code:      stringField(data, "code"),
		Symbology: decoder.Symbology(stringField(data, "symbology")),
		Source:    stringField(data, "source"),
		Err:       stringField(data, "error"),
		ScannedAt: e.Timestamp(),
	}
	if raw := stringField(data, "scanned_at"); raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			ev.ScannedAt = t
		}
	}
	if ev.Code == "" && ev.Err == "" {
		return decoder.ScanEvent{}, fmt.Errorf("event %s carries no code", e.EventType())
	}
	return ev, nil
}

func stringField(data map[string]interface{}, key string) string {
	s, _ := data[key].(string)
	return s
}
