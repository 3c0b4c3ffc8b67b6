package reminder

import (
	"context"
	"sync"
	"testing"
	"time"

	"carelink/health-portal/internal/domain"
	"carelink/health-portal/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeReminderRepo struct {
	mu        sync.Mutex
	reminders map[primitive.ObjectID]*domain.Reminder
}

func newFakeReminderRepo() *fakeReminderRepo {
	return &fakeReminderRepo{reminders: make(map[primitive.ObjectID]*domain.Reminder)}
}

func (f *fakeReminderRepo) Create(_ context.Context, r *domain.Reminder) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = primitive.NewObjectID()
	cp := *r
	f.reminders[r.ID] = &cp
	return r.ID, nil
}

func (f *fakeReminderRepo) GetByOwnerID(_ context.Context, ownerID primitive.ObjectID) ([]domain.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Reminder
	for _, r := range f.reminders {
		if r.OwnerID == ownerID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReminderRepo) Delete(_ context.Context, id, ownerID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.reminders[id]; ok && r.OwnerID == ownerID {
		delete(f.reminders, id)
		return nil
	}
	return repository.ErrNotFound
}

func (f *fakeReminderRepo) GetEnabled(_ context.Context) ([]domain.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Reminder
	for _, r := range f.reminders {
		if r.Enabled {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReminderRepo) MarkFired(_ context.Context, id primitive.ObjectID, firedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reminders[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.LastFired = &firedAt
	return nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	fired []domain.Reminder
}

func (n *recordingNotifier) NotifyReminder(r domain.Reminder) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fired = append(n.fired, r)
}

func (n *recordingNotifier) Fired() []domain.Reminder {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.Reminder, len(n.fired))
	copy(out, n.fired)
	return out
}

func TestSweep_FiresDueRemindersOncePerDay(t *testing.T) {
	repo := newFakeReminderRepo()
	notifier := &recordingNotifier{}

	owner := primitive.NewObjectID()
	_, err := repo.Create(context.Background(), &domain.Reminder{
		OwnerID:    owner,
		OwnerEmail: "worker@example.com",
		Medication: "Rifampicin",
		Hour:       8,
		Minute:     0,
		Enabled:    true,
	})
	require.NoError(t, err)

	s := NewScheduler(repo, notifier, time.Minute)
	s.now = func() time.Time { return time.Date(2026, 8, 28, 8, 30, 0, 0, time.UTC) }

	s.Sweep(context.Background())
	require.Len(t, notifier.Fired(), 1)
	assert.Equal(t, "Rifampicin", notifier.Fired()[0].Medication)

	// Same day, later: already fired, must not fire again.
	s.now = func() time.Time { return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) }
	s.Sweep(context.Background())
	assert.Len(t, notifier.Fired(), 1)

	// Next day after the scheduled time: fires again.
	s.now = func() time.Time { return time.Date(2026, 8, 29, 8, 30, 0, 0, time.UTC) }
	s.Sweep(context.Background())
	assert.Len(t, notifier.Fired(), 2)
}

func TestSweep_SkipsDisabledAndNotYetDue(t *testing.T) {
	repo := newFakeReminderRepo()
	notifier := &recordingNotifier{}
	owner := primitive.NewObjectID()

	_, err := repo.Create(context.Background(), &domain.Reminder{
		OwnerID: owner, Medication: "A", Hour: 8, Minute: 0, Enabled: false,
	})
	require.NoError(t, err)
	_, err = repo.Create(context.Background(), &domain.Reminder{
		OwnerID: owner, Medication: "B", Hour: 20, Minute: 0, Enabled: true,
	})
	require.NoError(t, err)

	s := NewScheduler(repo, notifier, time.Minute)
	s.now = func() time.Time { return time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC) }

	s.Sweep(context.Background())
	assert.Empty(t, notifier.Fired())
}
