// Package memory holds in-process repositories for local runs and tests.
// Every read and write copies the plan so callers never share state with the store.
package memory

import (
	"context"
	"errors"
	"kaizencoach/plan-service/internal/domain"
	"kaizencoach/plan-service/internal/repository"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LivePlanRepository implements repository.LivePlanRepository in memory.
type LivePlanRepository struct {
	mu    sync.RWMutex
	plans map[string]domain.LivePlan
}

func NewLivePlanRepository() *LivePlanRepository {
	return &LivePlanRepository{plans: make(map[string]domain.LivePlan)}
}

func (r *LivePlanRepository) Get(_ context.Context, athleteID string) (*domain.LivePlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	live, ok := r.plans[athleteID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	live.Plan = live.Plan.Clone()
	return &live, nil
}

func (r *LivePlanRepository) Put(_ context.Context, athleteID string, plan *domain.TrainingPlan, expectedVersion int64) (int64, error) {
	if athleteID == "" || plan == nil {
		return 0, errors.New("live plan requires athleteId and plan")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.plans[athleteID]
	if (!exists && expectedVersion != 0) || (exists && current.Version != expectedVersion) {
		return 0, repository.ErrConflict
	}
	next := domain.LivePlan{
		AthleteID: athleteID,
		Plan:      plan.Clone(),
		Version:   expectedVersion + 1,
		UpdatedAt: time.Now().UTC(),
	}
	r.plans[athleteID] = next
	return next.Version, nil
}

// PlanArchiveRepository implements repository.PlanArchiveRepository in memory.
type PlanArchiveRepository struct {
	mu      sync.RWMutex
	entries map[string][]domain.PlanArchiveEntry
}

func NewPlanArchiveRepository() *PlanArchiveRepository {
	return &PlanArchiveRepository{entries: make(map[string][]domain.PlanArchiveEntry)}
}

func (r *PlanArchiveRepository) Append(_ context.Context, entry *domain.PlanArchiveEntry) (*domain.PlanArchiveEntry, error) {
	if entry == nil || entry.AthleteID == "" {
		return nil, errors.New("archive entry requires athleteId")
	}
	if entry.Snapshot == nil && entry.SnapshotKey == "" {
		return nil, errors.New("archive entry requires a snapshot or snapshot key")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := entry.Clone()
	stored.Index = len(r.entries[stored.AthleteID])
	if stored.ID.IsZero() {
		stored.ID = primitive.NewObjectID()
	}
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now().UTC()
	}
	r.entries[stored.AthleteID] = append(r.entries[stored.AthleteID], stored)

	out := stored.Clone()
	return &out, nil
}

func (r *PlanArchiveRepository) ListByAthlete(_ context.Context, athleteID string) ([]domain.PlanArchiveEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored := r.entries[athleteID]
	out := make([]domain.PlanArchiveEntry, 0, len(stored))
	for _, e := range stored {
		out = append(out, e.Clone())
	}
	return out, nil
}

func (r *PlanArchiveRepository) GetByIndex(_ context.Context, athleteID string, index int) (*domain.PlanArchiveEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored := r.entries[athleteID]
	if index < 0 || index >= len(stored) {
		return nil, repository.ErrNotFound
	}
	out := stored[index].Clone()
	return &out, nil
}

// AthleteProfileRepository implements repository.AthleteProfileRepository in memory.
type AthleteProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]domain.AthleteProfile
}

func NewAthleteProfileRepository() *AthleteProfileRepository {
	return &AthleteProfileRepository{profiles: make(map[string]domain.AthleteProfile)}
}

func (r *AthleteProfileRepository) GetByAthleteID(_ context.Context, athleteID string) (*domain.AthleteProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[athleteID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *AthleteProfileRepository) Upsert(_ context.Context, profile *domain.AthleteProfile) error {
	if profile == nil || profile.AthleteID == "" {
		return errors.New("profile requires athleteId")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	profile.UpdatedAt = time.Now().UTC()
	r.profiles[profile.AthleteID] = *profile
	return nil
}

var (
	_ repository.LivePlanRepository       = (*LivePlanRepository)(nil)
	_ repository.PlanArchiveRepository    = (*PlanArchiveRepository)(nil)
	_ repository.AthleteProfileRepository = (*AthleteProfileRepository)(nil)
)
