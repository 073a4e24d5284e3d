package repository

import (
	"context"
	"kaizencoach/plan-service/internal/domain"
)

// Error constants for the repository layer
var (
	ErrNotFound = RepositoryError("not found")
	// ErrConflict means a conditional write lost to a concurrent writer (stale version).
	ErrConflict = RepositoryError("version conflict")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// LivePlanRepository owns the single mutable plan slot per athlete.
// Reads return the most recent committed write.
type LivePlanRepository interface {
	// Get returns ErrNotFound when the athlete has no live plan yet.
	Get(ctx context.Context, athleteID string) (*domain.LivePlan, error)
	// Put replaces the live plan only if the stored version equals expectedVersion
	// (0 means "no plan yet"). It returns the new version, or ErrConflict.
	Put(ctx context.Context, athleteID string, plan *domain.TrainingPlan, expectedVersion int64) (int64, error)
}

// PlanArchiveRepository is the append-only snapshot log per athlete.
type PlanArchiveRepository interface {
	// Append assigns the next Index for the athlete and stores the entry.
	Append(ctx context.Context, entry *domain.PlanArchiveEntry) (*domain.PlanArchiveEntry, error)
	// ListByAthlete returns entries ordered by Index ascending (newest last).
	ListByAthlete(ctx context.Context, athleteID string) ([]domain.PlanArchiveEntry, error)
	// GetByIndex returns ErrNotFound when the index does not exist.
	GetByIndex(ctx context.Context, athleteID string, index int) (*domain.PlanArchiveEntry, error)
}

// AthleteProfileRepository reads externally-owned athlete configuration.
type AthleteProfileRepository interface {
	GetByAthleteID(ctx context.Context, athleteID string) (*domain.AthleteProfile, error)
	Upsert(ctx context.Context, profile *domain.AthleteProfile) error
}
