// internal/repository/mongo/archive_repo.go
package mongo

import (
	"context"
	"errors"
	"kaizencoach/plan-service/internal/domain"
	"kaizencoach/plan-service/internal/repository"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	planArchiveCollectionName = "plan_archive"
	archiveCounterCollection  = "plan_archive_counters"
)

// mongoPlanArchiveRepository implements repository.PlanArchiveRepository.
// Indexes come from a per-athlete counter document so concurrent appends never share one.
type mongoPlanArchiveRepository struct {
	collection *mongo.Collection
	counters   *mongo.Collection
}

// NewMongoPlanArchiveRepository creates a new plan archive repository.
func NewMongoPlanArchiveRepository(db *mongo.Database) repository.PlanArchiveRepository {
	return &mongoPlanArchiveRepository{
		collection: db.Collection(planArchiveCollectionName),
		counters:   db.Collection(archiveCounterCollection),
	}
}

// nextIndex atomically reserves the next archive index for the athlete (0-based).
func (r *mongoPlanArchiveRepository) nextIndex(ctx context.Context, athleteID string) (int, error) {
	var counter struct {
		Seq int `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": athleteID},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq - 1, nil
}

// Append stores a new entry. The caller's entry is not modified.
func (r *mongoPlanArchiveRepository) Append(ctx context.Context, entry *domain.PlanArchiveEntry) (*domain.PlanArchiveEntry, error) {
	if entry == nil || entry.AthleteID == "" {
		return nil, errors.New("archive entry requires athleteId")
	}
	if entry.Snapshot == nil && entry.SnapshotKey == "" {
		return nil, errors.New("archive entry requires a snapshot or snapshot key")
	}

	stored := entry.Clone()
	index, err := r.nextIndex(ctx, stored.AthleteID)
	if err != nil {
		return nil, err
	}
	stored.Index = index
	if stored.ID.IsZero() {
		stored.ID = primitive.NewObjectID()
	}
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now().UTC()
	}

	if _, err := r.collection.InsertOne(ctx, stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// ListByAthlete returns every entry for the athlete, oldest first.
func (r *mongoPlanArchiveRepository) ListByAthlete(ctx context.Context, athleteID string) ([]domain.PlanArchiveEntry, error) {
	entries := []domain.PlanArchiveEntry{}
	findOptions := options.Find().SetSort(bson.D{{Key: "index", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"athleteId": athleteID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetByIndex retrieves one entry by its per-athlete index.
func (r *mongoPlanArchiveRepository) GetByIndex(ctx context.Context, athleteID string, index int) (*domain.PlanArchiveEntry, error) {
	var entry domain.PlanArchiveEntry
	err := r.collection.FindOne(ctx, bson.M{"athleteId": athleteID, "index": index}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// EnsurePlanArchiveIndexes creates necessary indexes. Call during startup.
func EnsurePlanArchiveIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// One entry per (athlete, index); also serves list-by-athlete sorted by index.
			Keys:    bson.D{{Key: "athleteId", Value: 1}, {Key: "index", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
