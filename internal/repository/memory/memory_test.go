package memory

import (
	"context"
	"errors"
	"kaizencoach/plan-service/internal/domain"
	"kaizencoach/plan-service/internal/repository"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func onePlan(desc string) *domain.TrainingPlan {
	return &domain.TrainingPlan{
		Version: domain.CurrentPlanVersion,
		Weeks: []domain.Week{{WeekNumber: 1, Description: desc, Sessions: []domain.Session{{
			ID: "w1-s1", Type: domain.SessionRun, Priority: domain.PriorityKey, DayAssignment: domain.DayAnytime,
		}}}},
	}
}

func TestLivePlanRepository_Versioning(t *testing.T) {
	ctx := context.Background()
	repo := NewLivePlanRepository()

	_, err := repo.Get(ctx, "a1")
	assert.True(t, errors.Is(err, repository.ErrNotFound))

	_, err = repo.Put(ctx, "a1", onePlan("v1"), 5)
	assert.True(t, errors.Is(err, repository.ErrConflict), "no slot yet, only version 0 may write")

	v, err := repo.Put(ctx, "a1", onePlan("v1"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	_, err = repo.Put(ctx, "a1", onePlan("stale"), 0)
	assert.True(t, errors.Is(err, repository.ErrConflict))

	v, err = repo.Put(ctx, "a1", onePlan("v2"), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	live, err := repo.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), live.Version)
	assert.Equal(t, "v2", live.Plan.Weeks[0].Description)
}

func TestLivePlanRepository_CopiesPlans(t *testing.T) {
	ctx := context.Background()
	repo := NewLivePlanRepository()
	p := onePlan("original")
	_, err := repo.Put(ctx, "a1", p, 0)
	require.NoError(t, err)

	p.Weeks[0].Description = "mutated after put"
	live, _ := repo.Get(ctx, "a1")
	live.Plan.Weeks[0].Sessions[0].CompletionStatus = domain.CompletionCompleted

	again, _ := repo.Get(ctx, "a1")
	assert.Equal(t, "original", again.Plan.Weeks[0].Description)
	assert.Equal(t, domain.CompletionUnset, again.Plan.Weeks[0].Sessions[0].CompletionStatus)
}

func TestPlanArchiveRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPlanArchiveRepository()

	for i, reason := range []string{"first", "second", "third"} {
		e, err := repo.Append(ctx, &domain.PlanArchiveEntry{AthleteID: "a1", Reason: reason, Snapshot: onePlan(reason)})
		require.NoError(t, err)
		assert.Equal(t, i, e.Index)
	}
	other, err := repo.Append(ctx, &domain.PlanArchiveEntry{AthleteID: "a2", Reason: "x", Snapshot: onePlan("x")})
	require.NoError(t, err)
	assert.Equal(t, 0, other.Index, "indexes are per athlete")

	list, err := repo.ListByAthlete(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "third", list[2].Reason, "newest last")

	list[0].Snapshot.Weeks[0].Description = "tampered"
	e, err := repo.GetByIndex(ctx, "a1", 0)
	require.NoError(t, err)
	assert.Equal(t, "first", e.Snapshot.Weeks[0].Description)

	_, err = repo.GetByIndex(ctx, "a1", 3)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
	_, err = repo.GetByIndex(ctx, "a1", -1)
	assert.True(t, errors.Is(err, repository.ErrNotFound))

	_, err = repo.Append(ctx, &domain.PlanArchiveEntry{AthleteID: "a1"})
	assert.Error(t, err)
}

func TestAthleteProfileRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewAthleteProfileRepository()

	_, err := repo.GetByAthleteID(ctx, "a1")
	assert.True(t, errors.Is(err, repository.ErrNotFound))

	require.NoError(t, repo.Upsert(ctx, &domain.AthleteProfile{AthleteID: "a1", ScheduleDisciplined: true}))
	p, err := repo.GetByAthleteID(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, p.ScheduleDisciplined)
	assert.False(t, p.UpdatedAt.IsZero())
}
