package service

import (
	"context"
	"errors"
	"kaizencoach/plan-service/internal/domain"
	"kaizencoach/plan-service/internal/repository"
	"time"
)

var ErrAthleteIDRequired = errors.New("athlete ID is required")

// AthleteService reads the externally-owned athlete profile that drives validation.
type AthleteService interface {
	// GetProfile falls back to a flexible-schedule default when no profile is stored.
	GetProfile(ctx context.Context, athleteID string) (*domain.AthleteProfile, error)
	UpsertProfile(ctx context.Context, profile *domain.AthleteProfile) (*domain.AthleteProfile, error)
}

type athleteService struct {
	profileRepo repository.AthleteProfileRepository
}

func NewAthleteService(profileRepo repository.AthleteProfileRepository) AthleteService {
	return &athleteService{profileRepo: profileRepo}
}

func (s *athleteService) GetProfile(ctx context.Context, athleteID string) (*domain.AthleteProfile, error) {
	if athleteID == "" {
		return nil, ErrAthleteIDRequired
	}
	profile, err := s.profileRepo.GetByAthleteID(ctx, athleteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.DefaultAthleteProfile(athleteID), nil
		}
		return nil, err
	}
	return profile, nil
}

func (s *athleteService) UpsertProfile(ctx context.Context, profile *domain.AthleteProfile) (*domain.AthleteProfile, error) {
	if profile == nil || profile.AthleteID == "" {
		return nil, ErrAthleteIDRequired
	}
	// Disciplinarians schedule fixed days; the flag follows the type when the type is set.
	switch profile.AthleteType {
	case domain.AthleteDisciplinarian:
		profile.ScheduleDisciplined = true
	case domain.AthleteImproviser, domain.AthleteMinimalist:
		profile.ScheduleDisciplined = false
	}
	profile.UpdatedAt = time.Now().UTC()
	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}
