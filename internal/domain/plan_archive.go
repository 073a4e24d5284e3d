package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanArchiveEntry is an immutable snapshot of a prior live plan, kept for rollback.
// Entries are append-only per athlete; Index increases monotonically from 0.
type PlanArchiveEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AthleteID string             `bson:"athleteId" json:"athleteId"`
	Index     int                `bson:"index" json:"index"`
	Reason    string             `bson:"reason" json:"reason"` // e.g. "pre-chat-update", "regenerated_via_feedback"
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`

	// Snapshot is nil when the plan was offloaded to blob storage (see SnapshotKey).
	Snapshot      *TrainingPlan `bson:"snapshot,omitempty" json:"snapshot,omitempty"`
	SnapshotKey   string        `bson:"snapshotKey,omitempty" json:"snapshotKey,omitempty"`
	SnapshotBytes int           `bson:"snapshotBytes" json:"snapshotBytes"` // Size of the JSON-encoded snapshot
}

// Offloaded reports whether the snapshot lives in blob storage rather than inline.
func (e *PlanArchiveEntry) Offloaded() bool {
	return e.Snapshot == nil && e.SnapshotKey != ""
}

// Clone returns a deep copy of the entry.
func (e PlanArchiveEntry) Clone() PlanArchiveEntry {
	out := e
	out.Snapshot = e.Snapshot.Clone()
	return out
}
