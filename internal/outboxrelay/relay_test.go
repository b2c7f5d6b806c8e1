package outboxrelay

import (
	"context"
	"errors"
	"testing"

	"github.com/orderflow/platform/internal/domain/outbox"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOutboxRepo struct {
	pending         []*outbox.Message
	processedIDs    []int64
	markProcessedFn func(id int64) error
}

func (r *fakeOutboxRepo) Insert(ctx context.Context, m *outbox.Message) error { return nil }

func (r *fakeOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	if limit < len(r.pending) {
		return r.pending[:limit], nil
	}
	return r.pending, nil
}

func (r *fakeOutboxRepo) MarkProcessed(ctx context.Context, id int64) error {
	if r.markProcessedFn != nil {
		if err := r.markProcessedFn(id); err != nil {
			return err
		}
	}
	r.processedIDs = append(r.processedIDs, id)
	return nil
}

type fakePublisher struct {
	published []string
	failOn    map[string]bool
}

func (p *fakePublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	if p.failOn[routingKey] {
		return errors.New("publish failed")
	}
	p.published = append(p.published, routingKey)
	return nil
}

func TestDrainBatch_PublishesAndMarksProcessed(t *testing.T) {
	repo := &fakeOutboxRepo{pending: []*outbox.Message{
		{ID: 1, RoutingKey: "orders.to_pay", Payload: []byte(`{}`)},
		{ID: 2, RoutingKey: "orders.to_pay", Payload: []byte(`{}`)},
	}}
	pub := &fakePublisher{}
	r := New(repo, pub, nil, Config{BatchSize: 50}, zerolog.Nop())

	published, err := r.drainBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, published)
	assert.Equal(t, []int64{1, 2}, repo.processedIDs)
}

func TestDrainBatch_LeavesFailedPublishPending(t *testing.T) {
	repo := &fakeOutboxRepo{pending: []*outbox.Message{
		{ID: 1, RoutingKey: "orders.to_pay", Payload: []byte(`{}`)},
		{ID: 2, RoutingKey: "payment.results", Payload: []byte(`{}`)},
	}}
	pub := &fakePublisher{failOn: map[string]bool{"payment.results": true}}
	r := New(repo, pub, nil, Config{BatchSize: 50}, zerolog.Nop())

	published, err := r.drainBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, published)
	assert.Equal(t, []int64{1}, repo.processedIDs)
}

func TestDrainBatch_EmptyOutbox(t *testing.T) {
	repo := &fakeOutboxRepo{}
	pub := &fakePublisher{}
	r := New(repo, pub, nil, Config{BatchSize: 50}, zerolog.Nop())

	published, err := r.drainBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, published)
}
