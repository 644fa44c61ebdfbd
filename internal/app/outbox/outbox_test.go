package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equiprent/internal/domain/shared/events"
)

type pinged struct {
	ID string    `json:"id"`
	At time.Time `json:"at"`
}

func (p pinged) EventName() string     { return "test.pinged" }
func (p pinged) AggregateID() string   { return p.ID }
func (p pinged) OccurredAt() time.Time { return p.At }

type sliceBox struct {
	records []EventRecord
	fail    error
}

func (b *sliceBox) Add(_ context.Context, rec EventRecord) error {
	if b.fail != nil {
		return b.fail
	}
	b.records = append(b.records, rec)
	return nil
}

func (b *sliceBox) Flush(context.Context) error { return nil }

func TestDrainEncodesInOrder(t *testing.T) {
	var rec events.EventRecorder
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.FixedZone("X", 3600))
	rec.Record(pinged{ID: "a", At: at})
	rec.Record(pinged{ID: "b", At: at})

	n := 0
	enc := JSONEventEncoder{IDGenerator: func() string { n++; return string(rune('0' + n)) }}
	box := &sliceBox{}
	require.NoError(t, Drain(context.Background(), box, enc, &rec))

	require.Len(t, box.records, 2)
	assert.Equal(t, "1", box.records[0].ID)
	assert.Equal(t, "b", box.records[1].Aggregate)
	assert.Equal(t, "test.pinged", box.records[0].Name)
	assert.Equal(t, time.UTC, box.records[0].OccurredAt.Location())

	var payload pinged
	require.NoError(t, json.Unmarshal(box.records[0].Payload, &payload))
	assert.Equal(t, "a", payload.ID)
	assert.Empty(t, rec.PendingEvents())
}

func TestRecordDomainEventsWrapsAddFailure(t *testing.T) {
	boom := errors.New("boom")
	box := &sliceBox{fail: boom}
	err := RecordDomainEvents(context.Background(), box, nil, []events.DomainEvent{pinged{ID: "a"}})
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, RecordDomainEvents(context.Background(), nil, nil, []events.DomainEvent{pinged{ID: "a"}}))
}
