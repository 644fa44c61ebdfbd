package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "equiprent/internal/app/outbox"
)

type fakeQueue struct {
	pending []*Record
	sent    []string
	failed  map[string]time.Time
}

func (q *fakeQueue) Claim(context.Context, string) (*Record, error) {
	if len(q.pending) == 0 {
		return nil, nil
	}
	rec := q.pending[0]
	q.pending = q.pending[1:]
	return rec, nil
}

func (q *fakeQueue) MarkSent(_ context.Context, id string) error {
	q.sent = append(q.sent, id)
	return nil
}

func (q *fakeQueue) MarkFailed(_ context.Context, id string, next time.Time, _ string) error {
	if q.failed == nil {
		q.failed = map[string]time.Time{}
	}
	q.failed[id] = next
	return nil
}

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type fakeProducer struct {
	err  error
	msgs []published
}

func (p *fakeProducer) Publish(_ context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func TestProcessOncePublishesCloudEvent(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	queue := &fakeQueue{pending: []*Record{{
		ID:         "evt-1",
		Name:       "quotation.confirmed",
		Payload:    []byte(`{"quotation_id":"q-1"}`),
		OccurredAt: at,
		Aggregate:  "q-1",
		Headers:    map[string]string{"traceparent": "00-abc"},
	}}}
	producer := &fakeProducer{}
	w := &Worker{Queue: queue, Producer: producer, Topic: "dev.quotation.events.v1", ID: "w1"}

	more, err := w.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, more)
	require.Len(t, producer.msgs, 1)

	msg := producer.msgs[0]
	assert.Equal(t, "dev.quotation.events.v1", msg.topic)
	assert.Equal(t, "q-1", msg.key)
	assert.Equal(t, cloudEventsContentType, msg.headers["content-type"])
	assert.Equal(t, "00-abc", msg.headers["traceparent"])

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.payload, &env))
	assert.Equal(t, "evt-1", env.ID)
	assert.Equal(t, "quotation.confirmed.v1", env.Type)
	assert.Equal(t, "quotation.confirmed", env.EventName())
	assert.Equal(t, "app://equiprent", env.Source)
	assert.True(t, at.Equal(env.Time))
	assert.JSONEq(t, `{"quotation_id":"q-1"}`, string(env.Data))
	assert.Equal(t, []string{"evt-1"}, queue.sent)

	more, err = w.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, more)
}

func TestProcessOnceReschedulesWithBackoff(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	queue := &fakeQueue{pending: []*Record{
		{ID: "a", Name: "quotation.sent", Payload: []byte(`{}`), Attempts: 0},
		{ID: "b", Name: "quotation.sent", Payload: []byte(`{}`), Attempts: 7},
	}}
	w := &Worker{
		Queue:    queue,
		Producer: &fakeProducer{err: errors.New("broker down")},
		Topic:    "quotation.events.v1",
		Backoff:  []time.Duration{time.Second, 10 * time.Second},
		Now:      func() time.Time { return now },
	}

	_, err := w.ProcessOnce(context.Background())
	require.NoError(t, err)
	_, err = w.ProcessOnce(context.Background())
	require.NoError(t, err)

	assert.Empty(t, queue.sent)
	assert.Equal(t, now.Add(time.Second), queue.failed["a"])
	assert.Equal(t, now.Add(10*time.Second), queue.failed["b"], "attempts past the table reuse the last delay")
}

func TestProcessOnceRejectsInvalidPayload(t *testing.T) {
	queue := &fakeQueue{pending: []*Record{{ID: "bad", Name: "quotation.created", Payload: []byte("{")}}}
	producer := &fakeProducer{}
	w := &Worker{Queue: queue, Producer: producer, Topic: "t"}

	_, err := w.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, producer.msgs)
	assert.Contains(t, queue.failed, "bad")
}

func TestRunRequiresDependencies(t *testing.T) {
	w := &Worker{}
	assert.ErrorIs(t, w.Run(context.Background()), ErrWorkerNotConfigured)
}

type subscriberFunc func(ctx context.Context, rec appoutbox.EventRecord) error

func (f subscriberFunc) HandleEvent(ctx context.Context, rec appoutbox.EventRecord) error {
	return f(ctx, rec)
}

func TestLocalProducerDeliversThroughEnvelope(t *testing.T) {
	var got []appoutbox.EventRecord
	local := LocalProducer{Subscribers: []Subscriber{subscriberFunc(func(_ context.Context, rec appoutbox.EventRecord) error {
		got = append(got, rec)
		return nil
	})}}
	queue := &fakeQueue{pending: []*Record{{
		ID:        "evt-2",
		Name:      "quotation.confirmed",
		Payload:   []byte(`{"quotation_id":"q-2"}`),
		Aggregate: "q-2",
	}}}
	w := &Worker{Queue: queue, Producer: local, Topic: "quotation.events.v1"}

	_, err := w.ProcessOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "evt-2", got[0].ID)
	assert.Equal(t, "quotation.confirmed", got[0].Name)
	assert.Equal(t, "q-2", got[0].Aggregate)
	assert.JSONEq(t, `{"quotation_id":"q-2"}`, string(got[0].Payload))
	assert.Equal(t, []string{"evt-2"}, queue.sent)
}
