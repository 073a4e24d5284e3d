// internal/repository/mongo/live_plan_repo.go
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

const livePlanCollectionName = "live_plans"

// mongoLivePlanRepository implements repository.LivePlanRepository.
// One document per athlete; "version" is the optimistic-concurrency stamp.
type mongoLivePlanRepository struct {
	collection *mongo.Collection
}

// NewMongoLivePlanRepository creates a new live plan repository.
func NewMongoLivePlanRepository(db *mongo.Database) repository.LivePlanRepository {
	return &mongoLivePlanRepository{
		collection: db.Collection(livePlanCollectionName),
	}
}

// Get retrieves the athlete's live plan.
func (r *mongoLivePlanRepository) Get(ctx context.Context, athleteID string) (*domain.LivePlan, error) {
	var live domain.LivePlan
	err := r.collection.FindOne(ctx, bson.M{"athleteId": athleteID}).Decode(&live)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &live, nil
}

// Put writes the plan only if the stored version still equals expectedVersion.
// expectedVersion 0 inserts; the unique athleteId index turns a racing insert into ErrConflict.
func (r *mongoLivePlanRepository) Put(ctx context.Context, athleteID string, plan *domain.TrainingPlan, expectedVersion int64) (int64, error) {
	if athleteID == "" || plan == nil {
		return 0, errors.New("live plan requires athleteId and plan")
	}
	now := time.Now().UTC()

	if expectedVersion == 0 {
		doc := domain.LivePlan{AthleteID: athleteID, Plan: plan, Version: 1, UpdatedAt: now}
		if _, err := r.collection.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return 0, repository.ErrConflict
			}
			return 0, err
		}
		return 1, nil
	}

	filter := bson.M{"athleteId": athleteID, "version": expectedVersion}
	update := bson.M{
		"$set": bson.M{"plan": plan, "updatedAt": now},
		"$inc": bson.M{"version": 1},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	if result.MatchedCount == 0 {
		// Either another writer bumped the version or the slot was never created.
		return 0, repository.ErrConflict
	}
	return expectedVersion + 1, nil
}

// EnsureLivePlanIndexes creates necessary indexes. Call during startup.
func EnsureLivePlanIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "athleteId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
