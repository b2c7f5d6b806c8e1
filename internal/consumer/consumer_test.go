package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/platform/internal/domain/inbox"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeInboxRepo struct {
	seen map[string]bool
}

func newFakeInboxRepo() *fakeInboxRepo {
	return &fakeInboxRepo{seen: make(map[string]bool)}
}

func (r *fakeInboxRepo) Insert(ctx context.Context, m *inbox.Message) (bool, error) {
	if r.seen[m.MessageID] {
		return false, nil
	}
	r.seen[m.MessageID] = true
	m.ID = int64(len(r.seen))
	return true, nil
}

func (r *fakeInboxRepo) MarkProcessed(ctx context.Context, id int64) error { return nil }

type fakeHandler struct {
	calls int
	err   error
}

func (h *fakeHandler) EventType() string { return "test_event" }

func (h *fakeHandler) DeriveMessageID(payload []byte) (string, error) {
	return string(payload), nil
}

func (h *fakeHandler) Handle(ctx context.Context, payload []byte) error {
	h.calls++
	return h.err
}

func delivery(ackCh chan<- bool, nackCh chan<- bool, body []byte) amqp.Delivery {
	return amqp.Delivery{
		Body:         body,
		Acknowledger: &fakeAcknowledger{ackCh: ackCh, nackCh: nackCh},
	}
}

type fakeAcknowledger struct {
	ackCh  chan<- bool
	nackCh chan<- bool
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.ackCh <- true
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.nackCh <- requeue
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return nil
}

func TestProcess_HandlesOnceAndAcks(t *testing.T) {
	inboxRepo := newFakeInboxRepo()
	handler := &fakeHandler{}
	ackCh := make(chan bool, 1)
	nackCh := make(chan bool, 1)
	c := New(nil, inboxRepo, fakeTxRunner{}, handler, zerolog.Nop())

	c.process(context.Background(), delivery(ackCh, nackCh, []byte("msg-1")))

	assert.Equal(t, 1, handler.calls)
	select {
	case <-ackCh:
	case <-time.After(time.Second):
		t.Fatal("expected ack")
	}
}

func TestProcess_DuplicateAcksWithoutReexecuting(t *testing.T) {
	inboxRepo := newFakeInboxRepo()
	handler := &fakeHandler{}
	ackCh := make(chan bool, 2)
	nackCh := make(chan bool, 2)
	c := New(nil, inboxRepo, fakeTxRunner{}, handler, zerolog.Nop())

	c.process(context.Background(), delivery(ackCh, nackCh, []byte("msg-1")))
	c.process(context.Background(), delivery(ackCh, nackCh, []byte("msg-1")))

	assert.Equal(t, 1, handler.calls, "handler must not run twice for the same message id")
	require.Len(t, ackCh, 2)
}

func TestProcess_HandlerErrorRequeues(t *testing.T) {
	inboxRepo := newFakeInboxRepo()
	handler := &fakeHandler{err: errors.New("boom")}
	ackCh := make(chan bool, 1)
	nackCh := make(chan bool, 1)
	c := New(nil, inboxRepo, fakeTxRunner{}, handler, zerolog.Nop())

	c.process(context.Background(), delivery(ackCh, nackCh, []byte("msg-2")))

	select {
	case requeue := <-nackCh:
		assert.True(t, requeue)
	case <-time.After(time.Second):
		t.Fatal("expected nack")
	}
}
