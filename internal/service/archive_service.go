package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"kaizencoach/plan-service/internal/config"
	"kaizencoach/plan-service/internal/domain"
	"kaizencoach/plan-service/internal/logger"
	"kaizencoach/plan-service/internal/metrics"
	"kaizencoach/plan-service/internal/repository"
	"kaizencoach/plan-service/internal/storage"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrArchiveEntryNotFound = errors.New("archive entry not found")
	ErrSnapshotRequired     = errors.New("archive snapshot is required")
	ErrSnapshotNotOffloaded = errors.New("archive snapshot is stored inline, no download available")
	ErrSnapshotUnavailable  = errors.New("archive snapshot is offloaded but no blob storage is configured")
)

// ArchiveService is the append-only plan archive per athlete.
// Entries are listed oldest first; the newest entry is last.
type ArchiveService interface {
	// Archive appends a snapshot. The caller's plan is copied, never retained.
	Archive(ctx context.Context, athleteID string, snapshot *domain.TrainingPlan, reason string) (*domain.PlanArchiveEntry, error)
	List(ctx context.Context, athleteID string) ([]domain.PlanArchiveEntry, error)
	// Restore returns a deep copy of the archived plan at index.
	Restore(ctx context.Context, athleteID string, index int) (*domain.TrainingPlan, error)
	// DownloadURL returns a presigned URL for an offloaded snapshot.
	DownloadURL(ctx context.Context, athleteID string, index int) (string, error)
}

// --- Service Implementation ---

type archiveService struct {
	archiveRepo repository.PlanArchiveRepository
	fileStorage storage.FileStorage // nil keeps every snapshot inline
	cfg         config.ArchiveConfig
	metrics     *metrics.Metrics
	log         *logger.Logger
}

// NewArchiveService creates a new archive service. fileStorage may be nil.
func NewArchiveService(
	archiveRepo repository.PlanArchiveRepository,
	fileStorage storage.FileStorage,
	cfg config.ArchiveConfig,
	m *metrics.Metrics,
	log *logger.Logger,
) ArchiveService {
	return &archiveService{
		archiveRepo: archiveRepo,
		fileStorage: fileStorage,
		cfg:         cfg,
		metrics:     m,
		log:         log.With("service", "ArchiveService"),
	}
}

func (s *archiveService) Archive(ctx context.Context, athleteID string, snapshot *domain.TrainingPlan, reason string) (*domain.PlanArchiveEntry, error) {
	if athleteID == "" {
		return nil, errors.New("athlete ID is required")
	}
	if snapshot == nil {
		return nil, ErrSnapshotRequired
	}

	raw, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	entry := &domain.PlanArchiveEntry{
		ID:            primitive.NewObjectID(),
		AthleteID:     athleteID,
		Reason:        reason,
		Timestamp:     time.Now().UTC(),
		SnapshotBytes: len(raw),
	}

	offload := s.fileStorage != nil && s.cfg.OverflowBytes > 0 && len(raw) > s.cfg.OverflowBytes
	if offload {
		key := storage.ArchiveSnapshotKey(athleteID, entry.ID.Hex())
		if err := storage.PutJSONGzip(ctx, s.fileStorage, key, snapshot); err != nil {
			return nil, fmt.Errorf("offload snapshot: %w", err)
		}
		entry.SnapshotKey = key
	} else {
		entry.Snapshot = snapshot.Clone()
	}

	stored, err := s.archiveRepo.Append(ctx, entry)
	if err != nil {
		if offload {
			// Orphaned blob; the entry never became visible.
			if delErr := s.fileStorage.DeleteObject(ctx, entry.SnapshotKey); delErr != nil {
				s.log.Warn("failed to remove orphaned snapshot", "key", entry.SnapshotKey, "error", delErr)
			}
		}
		return nil, fmt.Errorf("append archive entry: %w", err)
	}

	s.metrics.IncArchiveWrite(offload)
	s.log.Info("plan archived",
		"athlete_id", athleteID,
		"index", stored.Index,
		"reason", reason,
		"bytes", len(raw),
		"offloaded", offload,
	)
	return stored, nil
}

func (s *archiveService) List(ctx context.Context, athleteID string) ([]domain.PlanArchiveEntry, error) {
	if athleteID == "" {
		return nil, errors.New("athlete ID is required")
	}
	return s.archiveRepo.ListByAthlete(ctx, athleteID)
}

func (s *archiveService) Restore(ctx context.Context, athleteID string, index int) (*domain.TrainingPlan, error) {
	entry, err := s.getEntry(ctx, athleteID, index)
	if err != nil {
		return nil, err
	}
	if !entry.Offloaded() {
		return entry.Snapshot.Clone(), nil
	}
	if s.fileStorage == nil {
		return nil, ErrSnapshotUnavailable
	}

	var snapshot domain.TrainingPlan
	if err := storage.GetJSONGzip(ctx, s.fileStorage, entry.SnapshotKey, &snapshot); err != nil {
		return nil, fmt.Errorf("load offloaded snapshot %s: %w", entry.SnapshotKey, err)
	}
	return &snapshot, nil
}

func (s *archiveService) DownloadURL(ctx context.Context, athleteID string, index int) (string, error) {
	entry, err := s.getEntry(ctx, athleteID, index)
	if err != nil {
		return "", err
	}
	if !entry.Offloaded() {
		return "", ErrSnapshotNotOffloaded
	}
	if s.fileStorage == nil {
		return "", ErrSnapshotUnavailable
	}
	return s.fileStorage.GeneratePresignedDownloadURL(ctx, entry.SnapshotKey, s.cfg.DownloadExpiry)
}

func (s *archiveService) getEntry(ctx context.Context, athleteID string, index int) (*domain.PlanArchiveEntry, error) {
	if index < 0 {
		return nil, ErrArchiveEntryNotFound
	}
	entry, err := s.archiveRepo.GetByIndex(ctx, athleteID, index)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrArchiveEntryNotFound
		}
		return nil, err
	}
	return entry, nil
}
