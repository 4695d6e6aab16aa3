package stream

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/decision"
	"github.com/newthinker/cryptosignal/internal/monitor"
	"github.com/newthinker/cryptosignal/internal/pipeline"
)

var _ monitor.Sink = (*KafkaSink)(nil)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("write without deadline")
	}
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func batch() monitor.Batch {
	at := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	return monitor.Batch{
		ID:         uuid.New(),
		StartedAt:  at,
		FinishedAt: at.Add(time.Second),
		Results: []monitor.Result{
			{Symbol: "BTCUSDT", Interval: "1h", Report: &pipeline.Report{
				Symbol: "BTCUSDT", Interval: "1h",
				Decision: decision.Decision{Action: core.ActionBuy, Score: 35.3},
			}},
			{Symbol: "ETHUSDT", Interval: "4h", Err: core.ErrFetchFailed},
		},
	}
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestNewKafkaSink_RequiresConfig(t *testing.T) {
	_, err := NewKafkaSink(Config{Topic: "t"}, nil)
	assert.True(t, errors.Is(err, core.ErrConfigMissing))
	_, err = NewKafkaSink(Config{Brokers: []string{"localhost:9092"}}, nil)
	assert.True(t, errors.Is(err, core.ErrConfigMissing))

	sink, err := NewKafkaSink(Config{Brokers: []string{"localhost:9092"}, Topic: "cryptosignal.results"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "kafka", sink.Name())
}

func TestKafkaSink_Publish(t *testing.T) {
	w := &fakeWriter{}
	sink := NewKafkaSinkWithWriter(w, nil)
	b := batch()

	require.NoError(t, sink.Publish(context.Background(), b))
	require.Len(t, w.msgs, 2)

	btc := w.msgs[0]
	assert.Equal(t, "BTCUSDT/1h", string(btc.Key))
	assert.Equal(t, b.ID.String(), header(btc, "batch_id"))
	assert.Equal(t, "ok", header(btc, "status"))
	assert.Equal(t, b.FinishedAt, btc.Time)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(btc.Value, &payload))
	assert.Equal(t, "BTCUSDT", payload["symbol"])
	assert.NotNil(t, payload["report"])

	eth := w.msgs[1]
	assert.Equal(t, "error", header(eth, "status"))
	require.NoError(t, json.Unmarshal(eth.Value, &payload))
	assert.Contains(t, payload["error"], "FETCH_FAILED")

	require.NoError(t, sink.Close())
	assert.True(t, w.closed)
}

func TestKafkaSink_WriteFailure(t *testing.T) {
	sink := NewKafkaSinkWithWriter(&fakeWriter{err: errors.New("leader not available")}, nil)
	err := sink.Publish(context.Background(), batch())
	assert.True(t, errors.Is(err, core.ErrSinkFailed))
}

func TestKafkaSink_EmptyBatch(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, NewKafkaSinkWithWriter(w, nil).Publish(context.Background(), monitor.Batch{}))
	assert.Empty(t, w.msgs)
}
