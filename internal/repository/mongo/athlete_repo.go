// internal/repository/mongo/athlete_repo.go
package mongo

import (
	"context"
	"errors"
	"kaizencoach/plan-service/internal/domain"
	"kaizencoach/plan-service/internal/repository"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const athleteProfileCollectionName = "athlete_profiles"

// mongoAthleteProfileRepository implements repository.AthleteProfileRepository.
type mongoAthleteProfileRepository struct {
	collection *mongo.Collection
}

// NewMongoAthleteProfileRepository creates a new athlete profile repository.
func NewMongoAthleteProfileRepository(db *mongo.Database) repository.AthleteProfileRepository {
	return &mongoAthleteProfileRepository{
		collection: db.Collection(athleteProfileCollectionName),
	}
}

// GetByAthleteID retrieves a profile by athlete ID.
func (r *mongoAthleteProfileRepository) GetByAthleteID(ctx context.Context, athleteID string) (*domain.AthleteProfile, error) {
	var profile domain.AthleteProfile
	err := r.collection.FindOne(ctx, bson.M{"athleteId": athleteID}).Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// Upsert creates or replaces the athlete's profile.
func (r *mongoAthleteProfileRepository) Upsert(ctx context.Context, profile *domain.AthleteProfile) error {
	if profile == nil || profile.AthleteID == "" {
		return errors.New("profile requires athleteId")
	}
	profile.UpdatedAt = time.Now().UTC()

	_, err := r.collection.ReplaceOne(ctx,
		bson.M{"athleteId": profile.AthleteID},
		profile,
		options.Replace().SetUpsert(true),
	)
	return err
}

// EnsureAthleteProfileIndexes creates necessary indexes. Call during startup.
func EnsureAthleteProfileIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "athleteId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
