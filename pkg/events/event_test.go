package events

import (
	"testing"
	"time"

	"barcode-lookup/internal/entity"
	"barcode-lookup/internal/pkg/apperr"
	"barcode-lookup/pkg/decoder"
	"barcode-lookup/pkg/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTransition(t *testing.T) {
	now := time.Now()
	snap := session.Snapshot{
		SessionID: "s1",
		Version:   4,
		Phase:     session.PhaseResolved,
		Code:      "123",
		RequestID: 2,
		Record:    &entity.ProductRecord{ID: "7"},
		UpdatedAt: now,
	}

	ev := SessionTransition(snap)

	assert.Equal(t, "session.resolved", ev.EventType())
	assert.Equal(t, now, ev.Timestamp())
	assert.Equal(t, "123", ev.Payload()["code"])
	assert.Equal(t, uint64(4), ev.Payload()["version"])
	assert.NotContains(t, ev.Payload(), "error")
}

func TestSessionTransitionFailed(t *testing.T) {
	ev := SessionTransition(session.Snapshot{
		Phase:   session.PhaseFailed,
		Code:    "9",
		Failure: &session.Failure{Kind: apperr.KindServer, StatusCode: 404, Message: "not found"},
	})

	assert.Equal(t, "session.failed", ev.EventType())
	assert.Contains(t, ev.Payload(), "error")
	assert.NotContains(t, ev.Payload(), "record")
}

func TestScanCapturedRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	in := decoder.ScanEvent{Code: "AB/12", Symbology: decoder.SymbologyEAN13, Source: "usb:0c2e:0a07", ScannedAt: at}

	ev := ScanCaptured(in)
	assert.Equal(t, TypeScanCaptured, ev.EventType())

	// Simulate the trip through JSON where the timestamp is lost from the envelope.
	remote := BaseEvent{Type: "events.scan.captured", Data: ev.Payload(), OccurredAt: time.Now()}
	out, err := ToScanEvent(remote)

	require.NoError(t, err)
	assert.Equal(t, in.Code, out.Code)
	assert.Equal(t, in.Symbology, out.Symbology)
	assert.Equal(t, in.Source, out.Source)
	assert.True(t, at.Equal(out.ScannedAt))
}

func TestToScanEventRejectsEmpty(t *testing.T) {
	_, err := ToScanEvent(BaseEvent{Type: TypeScanCaptured, Data: map[string]interface{}{"code": 42}})
	assert.Error(t, err)
}
