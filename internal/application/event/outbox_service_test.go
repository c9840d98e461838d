package event

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplytrace/backend/internal/domain/shared"
)

type stubOutboxRepo struct {
	entries map[uuid.UUID]*shared.OutboxEntry
}

func newStubOutboxRepo() *stubOutboxRepo {
	return &stubOutboxRepo{entries: make(map[uuid.UUID]*shared.OutboxEntry)}
}

func (r *stubOutboxRepo) add(status shared.OutboxStatus) *shared.OutboxEntry {
	event := &testEvent{BaseDomainEvent: shared.NewBaseDomainEvent("ShipmentArrived", "Shipment", "1", time.Now())}
	entry := shared.NewOutboxEntry(event, []byte(`{}`))
	entry.Status = status
	if status == shared.OutboxStatusDead {
		entry.RetryCount = entry.MaxRetries
		entry.LastError = "handler failed"
	}
	r.entries[entry.ID] = entry
	return entry
}

func (r *stubOutboxRepo) FindByID(_ context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	e, ok := r.entries[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return e, nil
}

func (r *stubOutboxRepo) FindDead(_ context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	var dead []*shared.OutboxEntry
	for _, e := range r.entries {
		if e.Status == shared.OutboxStatusDead {
			dead = append(dead, e)
		}
	}
	sort.Slice(dead, func(i, j int) bool { return dead[i].ID.String() < dead[j].ID.String() })

	start := min((page-1)*pageSize, len(dead))
	end := min(start+pageSize, len(dead))
	return dead[start:end], int64(len(dead)), nil
}

func (r *stubOutboxRepo) Update(_ context.Context, entry *shared.OutboxEntry) error {
	r.entries[entry.ID] = entry
	return nil
}

func (r *stubOutboxRepo) CountByStatus(_ context.Context) (map[shared.OutboxStatus]int64, error) {
	counts := make(map[shared.OutboxStatus]int64)
	for _, e := range r.entries {
		counts[e.Status]++
	}
	return counts, nil
}

type testEvent struct {
	shared.BaseDomainEvent
}

func TestOutboxService_GetDeadLetterEntries(t *testing.T) {
	repo := newStubOutboxRepo()
	for range 3 {
		repo.add(shared.OutboxStatusDead)
	}
	repo.add(shared.OutboxStatusSent)
	svc := NewOutboxService(repo, nil)

	result, err := svc.GetDeadLetterEntries(context.Background(), OutboxFilter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, int64(3), result.Total)
	assert.Equal(t, 2, result.TotalPages)

	result, err = svc.GetDeadLetterEntries(context.Background(), OutboxFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 20, result.PageSize)
	assert.Len(t, result.Items, 3)
	assert.Equal(t, "handler failed", result.Items[0].LastError)
}

func TestOutboxService_GetEntry(t *testing.T) {
	repo := newStubOutboxRepo()
	entry := repo.add(shared.OutboxStatusPending)
	svc := NewOutboxService(repo, nil)

	got, err := svc.GetEntry(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "ShipmentArrived", got.EventType)
	assert.Equal(t, "PENDING", got.Status)

	_, err = svc.GetEntry(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestOutboxService_RetryDeadEntry(t *testing.T) {
	repo := newStubOutboxRepo()
	entry := repo.add(shared.OutboxStatusDead)
	svc := NewOutboxService(repo, nil)

	got, err := svc.RetryDeadEntry(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", got.Status)
	assert.Zero(t, got.RetryCount)
	assert.Equal(t, shared.OutboxStatusPending, repo.entries[entry.ID].Status)
}

func TestOutboxService_RetryDeadEntry_NotFound(t *testing.T) {
	svc := NewOutboxService(newStubOutboxRepo(), nil)

	_, err := svc.RetryDeadEntry(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestOutboxService_RetryDeadEntry_NotDead(t *testing.T) {
	repo := newStubOutboxRepo()
	entry := repo.add(shared.OutboxStatusSent)
	svc := NewOutboxService(repo, nil)

	_, err := svc.RetryDeadEntry(context.Background(), entry.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Equal(t, shared.OutboxStatusSent, repo.entries[entry.ID].Status)
}

func TestOutboxService_RetryAllDeadEntries(t *testing.T) {
	repo := newStubOutboxRepo()
	for range 150 {
		repo.add(shared.OutboxStatusDead)
	}
	repo.add(shared.OutboxStatusSent)
	svc := NewOutboxService(repo, nil)

	count, err := svc.RetryAllDeadEntries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(150), count)

	stats, err := svc.GetStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Dead)
	assert.Equal(t, int64(150), stats.Pending)
}

func TestOutboxService_GetStats(t *testing.T) {
	repo := newStubOutboxRepo()
	repo.add(shared.OutboxStatusPending)
	repo.add(shared.OutboxStatusPending)
	repo.add(shared.OutboxStatusFailed)
	repo.add(shared.OutboxStatusDead)
	repo.add(shared.OutboxStatusSent)
	svc := NewOutboxService(repo, nil)

	stats, err := svc.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Dead)
	assert.Equal(t, int64(1), stats.Sent)
	assert.Equal(t, int64(5), stats.Total)
}
