package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// ConnectDB connects to MongoDB and pings the primary before returning the client.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		// Connected but unresponsive; release the pool before failing.
		_ = DisconnectDB(client)
		return nil, err
	}
	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes every plan collection relies on.
// The unique indexes back the conflict detection, so failures here are fatal at startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if err := EnsureLivePlanIndexes(ctx, db.Collection(livePlanCollectionName)); err != nil {
		return fmt.Errorf("live plan indexes: %w", err)
	}
	if err := EnsurePlanArchiveIndexes(ctx, db.Collection(planArchiveCollectionName)); err != nil {
		return fmt.Errorf("plan archive indexes: %w", err)
	}
	if err := EnsureAthleteProfileIndexes(ctx, db.Collection(athleteProfileCollectionName)); err != nil {
		return fmt.Errorf("athlete profile indexes: %w", err)
	}
	return nil
}
