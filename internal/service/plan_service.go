package service

import (
	"context"
	"errors"
	"fmt"
	"kaizencoach/plan-service/internal/domain"
	"kaizencoach/plan-service/internal/lock"
	"kaizencoach/plan-service/internal/logger"
	"kaizencoach/plan-service/internal/metrics"
	"kaizencoach/plan-service/internal/plan"
	"kaizencoach/plan-service/internal/repository"
	"time"

	"github.com/google/uuid"
)

// --- Error Definitions ---
var (
	ErrLivePlanNotFound = errors.New("athlete has no live plan")
	// ErrConcurrencyConflict means another writer committed first; retry the whole update.
	ErrConcurrencyConflict = errors.New("live plan changed concurrently, retry the update")
	ErrUpdateInProgress    = errors.New("another plan update for this athlete is in progress")
)

// Archive reasons recorded by this service.
const (
	ReasonPlanUpdate = "pre-plan-update"
	ReasonRestore    = "pre-restore"
)

// UpdateStatus is the terminal state of one ApplyUpdate call.
type UpdateStatus string

const (
	StatusPlanUpdated  UpdateStatus = "plan_updated"
	StatusFeedbackOnly UpdateStatus = "feedback_only" // no plan change, narrative recovered
	StatusNoChange     UpdateStatus = "no_change"     // nothing usable in the output
	StatusMergeFailed  UpdateStatus = "merge_failed"
)

// NoticeNotApplied is shown when the output had neither a usable plan nor a narrative.
const NoticeNotApplied = "The plan update could not be applied; your current plan is unchanged."

// UpdateOutcome describes what one ApplyUpdate call did.
type UpdateOutcome struct {
	UpdateID       string               `json:"updateId" yaml:"update_id"`
	Status         UpdateStatus         `json:"status" yaml:"status"`
	PlanChanged    bool                 `json:"planChanged" yaml:"plan_changed"`
	ChangeSummary  string               `json:"changeSummary,omitempty" yaml:"change_summary,omitempty"`
	Narrative      string               `json:"narrative,omitempty" yaml:"narrative,omitempty"`
	NarrativeField string               `json:"narrativeField,omitempty" yaml:"narrative_field,omitempty"`
	Notice         string               `json:"notice,omitempty" yaml:"notice,omitempty"`
	ArchiveIndex   *int                 `json:"archiveIndex,omitempty" yaml:"archive_index,omitempty"` // nil when there was no live plan to archive
	ExtractionTier string               `json:"extractionTier" yaml:"extraction_tier"`
	CompletedWeeks int                  `json:"completedWeeks" yaml:"completed_weeks"`
	Violations     []plan.Violation     `json:"violations,omitempty" yaml:"violations,omitempty"`
	Error          string               `json:"error,omitempty" yaml:"error,omitempty"`
	LiveVersion    int64                `json:"liveVersion,omitempty" yaml:"live_version,omitempty"`
	Plan           *domain.TrainingPlan `json:"plan,omitempty" yaml:"plan,omitempty"`
}

// RestoreOutcome describes a rollback to an archived plan.
type RestoreOutcome struct {
	RestoredIndex int                  `json:"restoredIndex"`
	ArchiveIndex  *int                 `json:"archiveIndex,omitempty"` // entry holding the plan that was replaced
	LiveVersion   int64                `json:"liveVersion"`
	Plan          *domain.TrainingPlan `json:"plan"`
}

// PlanService owns the live plan slot: every overwrite archives the previous plan first.
type PlanService interface {
	GetLivePlan(ctx context.Context, athleteID string) (*domain.LivePlan, error)
	// ApplyUpdate archives the live plan, extracts a candidate from raw generator output,
	// merges it behind the completed weeks and commits. Extraction failures are not errors:
	// they yield a feedback-only or no-change outcome and leave the live plan untouched.
	ApplyUpdate(ctx context.Context, athleteID, rawOutput, triggerReason string) (*UpdateOutcome, error)
	// RestoreArchive makes an archived snapshot live, archiving the replaced plan first.
	RestoreArchive(ctx context.Context, athleteID string, index int) (*RestoreOutcome, error)
}

type planService struct {
	liveRepo repository.LivePlanRepository
	archive  ArchiveService
	profiles AthleteService
	locker   lock.Locker
	metrics  *metrics.Metrics
	log      *logger.Logger
	now      func() time.Time
}

// NewPlanService creates a new instance of planService.
func NewPlanService(
	liveRepo repository.LivePlanRepository,
	archive ArchiveService,
	profiles AthleteService,
	locker lock.Locker,
	m *metrics.Metrics,
	log *logger.Logger,
) PlanService {
	return &planService{
		liveRepo: liveRepo,
		archive:  archive,
		profiles: profiles,
		locker:   locker,
		metrics:  m,
		log:      log.With("service", "PlanService"),
		now:      time.Now,
	}
}

func (s *planService) GetLivePlan(ctx context.Context, athleteID string) (*domain.LivePlan, error) {
	live, err := s.liveRepo.Get(ctx, athleteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLivePlanNotFound
		}
		return nil, err
	}
	return live, nil
}

func (s *planService) ApplyUpdate(ctx context.Context, athleteID, rawOutput, triggerReason string) (*UpdateOutcome, error) {
	started := s.now()
	out := &UpdateOutcome{UpdateID: uuid.NewString(), ExtractionTier: plan.TierNone.String()}
	if triggerReason == "" {
		triggerReason = ReasonPlanUpdate
	}
	log := s.log.With("athlete_id", athleteID, "update_id", out.UpdateID, "reason", triggerReason)

	outcome, err := s.applyUpdate(ctx, log, athleteID, rawOutput, triggerReason, out)
	status := string(out.Status)
	if err != nil && status == "" {
		status = "error"
	}
	s.metrics.ObserveUpdate(status, s.now().Sub(started))
	return outcome, err
}

func (s *planService) applyUpdate(ctx context.Context, log *logger.Logger, athleteID, rawOutput, reason string, out *UpdateOutcome) (*UpdateOutcome, error) {
	if athleteID == "" {
		return nil, ErrAthleteIDRequired
	}

	release, err := s.locker.Acquire(ctx, athleteID)
	if err != nil {
		log.Warn("could not acquire athlete lock", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUpdateInProgress, err)
	}
	defer release()

	// 1. Archive the live plan before anything else can touch it.
	live, err := s.currentLive(ctx, athleteID)
	if err != nil {
		return nil, err
	}
	var previous *domain.TrainingPlan
	var expectedVersion int64
	if live != nil {
		entry, err := s.archive.Archive(ctx, athleteID, live.Plan, reason)
		if err != nil {
			log.Error("archive before update failed, update aborted", "error", err)
			return nil, fmt.Errorf("archive live plan: %w", err)
		}
		idx := entry.Index
		out.ArchiveIndex = &idx
		previous, expectedVersion = live.Plan, live.Version
	}

	profile, err := s.profiles.GetProfile(ctx, athleteID)
	if err != nil {
		log.Error("profile lookup failed, live plan unchanged", "error", err)
		return nil, fmt.Errorf("load athlete profile: %w", err)
	}

	// 2. Extract. Empty output is just another output with no payload.
	ext, err := plan.Extract(rawOutput, plan.ValidateOptions{ScheduleDisciplined: profile.ScheduleDisciplined})
	if ext != nil {
		out.ChangeSummary = ext.ChangeSummary
		out.Narrative = ext.Narrative
		out.NarrativeField = ext.NarrativeField
	}
	if err != nil {
		s.metrics.IncExtraction(plan.TierNone.String())
		var exErr *plan.ExtractionError
		if errors.As(err, &exErr) {
			out.Violations = exErr.Violations()
		}
		out.Error = err.Error()
		if ext.HasNarrative() {
			out.Status = StatusFeedbackOnly
		} else {
			out.Status = StatusNoChange
			out.Notice = NoticeNotApplied
		}
		log.Info("no plan change applied", "status", out.Status, "extraction_error", err, "narrative_recovered", ext.NarrativeRecovered)
		return out, nil
	}
	out.ExtractionTier = ext.Tier.String()
	s.metrics.IncExtraction(out.ExtractionTier)

	// 3. Merge behind the completed weeks.
	completed := plan.CompletedWeekCount(previous, s.now())
	out.CompletedWeeks = completed
	merged, err := plan.Merge(previous, ext.Plan, completed)
	if err != nil {
		out.Status = StatusMergeFailed
		out.Error = err.Error()
		var vErr *plan.ValidationError
		if errors.As(err, &vErr) {
			out.Violations = vErr.Violations
		}
		log.Error("merge failed, live plan unchanged", "completed_weeks", completed, "error", err)
		return out, err
	}
	if merged.AthleteProfileRef == "" {
		merged.AthleteProfileRef = athleteID
	}
	if merged.CreatedAt == "" {
		merged.CreatedAt = s.now().UTC().Format(time.RFC3339)
	}

	// 4. Commit.
	version, err := s.liveRepo.Put(ctx, athleteID, merged, expectedVersion)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			log.Warn("live plan changed during update", "expected_version", expectedVersion)
			return nil, ErrConcurrencyConflict
		}
		return nil, fmt.Errorf("commit live plan: %w", err)
	}

	out.Status = StatusPlanUpdated
	out.PlanChanged = true
	out.LiveVersion = version
	out.Plan = merged
	log.Info("plan updated",
		"tier", out.ExtractionTier,
		"completed_weeks", completed,
		"weeks", len(merged.Weeks),
		"sessions", merged.SessionCount(),
		"version", version,
	)
	return out, nil
}

func (s *planService) RestoreArchive(ctx context.Context, athleteID string, index int) (*RestoreOutcome, error) {
	log := s.log.With("athlete_id", athleteID, "restore_index", index)

	release, err := s.locker.Acquire(ctx, athleteID)
	if err != nil {
		s.metrics.IncRestore("locked")
		return nil, fmt.Errorf("%w: %v", ErrUpdateInProgress, err)
	}
	defer release()

	restored, err := s.archive.Restore(ctx, athleteID, index)
	if err != nil {
		if errors.Is(err, ErrArchiveEntryNotFound) {
			s.metrics.IncRestore("not_found")
		} else {
			s.metrics.IncRestore("error")
		}
		return nil, err
	}

	out := &RestoreOutcome{RestoredIndex: index}
	live, err := s.currentLive(ctx, athleteID)
	if err != nil {
		s.metrics.IncRestore("error")
		return nil, err
	}
	var expectedVersion int64
	if live != nil {
		entry, err := s.archive.Archive(ctx, athleteID, live.Plan, ReasonRestore)
		if err != nil {
			s.metrics.IncRestore("error")
			log.Error("archive before restore failed, restore aborted", "error", err)
			return nil, fmt.Errorf("archive live plan: %w", err)
		}
		idx := entry.Index
		out.ArchiveIndex = &idx
		expectedVersion = live.Version
	}

	version, err := s.liveRepo.Put(ctx, athleteID, restored, expectedVersion)
	if err != nil {
		s.metrics.IncRestore("error")
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConcurrencyConflict
		}
		return nil, fmt.Errorf("commit restored plan: %w", err)
	}

	s.metrics.IncRestore("ok")
	out.LiveVersion = version
	out.Plan = restored
	log.Info("archived plan restored", "version", version)
	return out, nil
}

// currentLive returns nil without error when the athlete has no live plan yet.
func (s *planService) currentLive(ctx context.Context, athleteID string) (*domain.LivePlan, error) {
	live, err := s.liveRepo.Get(ctx, athleteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load live plan: %w", err)
	}
	return live, nil
}
