package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubPublisher struct {
	failures int
	calls    int
	msgs     []*nats.Msg
}

func (s *stubPublisher) PublishMsg(msg *nats.Msg) error {
	s.calls++
	if s.calls <= s.failures {
		return errors.New("nats: connection closed")
	}
	s.msgs = append(s.msgs, msg)
	return nil
}

func newTestWorker(pub natsPublisher, retryMax int) *Worker {
	w := NewWorker(nil, nil, zap.NewNop(), WorkerConfig{
		PollInterval: 10 * time.Millisecond,
		BatchSize:    10,
		RetryMax:     retryMax,
	})
	w.publisher = pub
	return w
}

func TestPublishWithRetrySucceedsFirstAttempt(t *testing.T) {
	pub := &stubPublisher{}
	w := newTestWorker(pub, 3)

	rec := record{ID: 1, Topic: "driver.events", Payload: []byte(`{"type":"driver.online"}`), CreatedAt: time.Now()}
	require.NoError(t, w.publishWithRetry(context.Background(), rec))
	require.Equal(t, 1, pub.calls)
	require.Len(t, pub.msgs, 1)
	require.Equal(t, "driver.events", pub.msgs[0].Subject)
	require.JSONEq(t, `{"type":"driver.online"}`, string(pub.msgs[0].Data))
}

func TestPublishWithRetryRecoversFromTransientFailure(t *testing.T) {
	pub := &stubPublisher{failures: 2}
	w := newTestWorker(pub, 5)

	rec := record{ID: 2, Topic: "driver.events", Payload: []byte(`{}`), CreatedAt: time.Now()}
	require.NoError(t, w.publishWithRetry(context.Background(), rec))
	require.Equal(t, 3, pub.calls)
}

func TestPublishWithRetryGivesUpAfterRetryMax(t *testing.T) {
	pub := &stubPublisher{failures: 100}
	w := newTestWorker(pub, 3)

	rec := record{ID: 3, Topic: "driver.events", Payload: []byte(`{}`), CreatedAt: time.Now()}
	err := w.publishWithRetry(context.Background(), rec)
	require.Error(t, err)
	require.Equal(t, 3, pub.calls)
}

func TestPublishWithRetryRejectsMissingTopic(t *testing.T) {
	pub := &stubPublisher{}
	w := newTestWorker(pub, 3)

	err := w.publishWithRetry(context.Background(), record{ID: 4, Payload: []byte(`{}`)})
	require.Error(t, err)
	require.Zero(t, pub.calls)
}

func TestPublishWithRetryHonorsContextCancel(t *testing.T) {
	pub := &stubPublisher{failures: 100}
	w := newTestWorker(pub, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := record{ID: 5, Topic: "driver.events", Payload: []byte(`{}`), CreatedAt: time.Now()}
	err := w.publishWithRetry(ctx, rec)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunRequiresDependencies(t *testing.T) {
	w := NewWorker(nil, nil, zap.NewNop(), WorkerConfig{})
	require.Error(t, w.Run(context.Background()))
}

func TestWorkerConfigDefaults(t *testing.T) {
	w := NewWorker(nil, nil, nil, WorkerConfig{})
	require.Equal(t, 200*time.Millisecond, w.cfg.PollInterval)
	require.Equal(t, 100, w.cfg.BatchSize)
	require.Equal(t, 3, w.cfg.RetryMax)
}
