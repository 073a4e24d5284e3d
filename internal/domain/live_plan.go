package domain

import "time"

// LivePlan is the single mutable plan slot per athlete.
// Version is bumped on every commit and used for optimistic-concurrency writes.
type LivePlan struct {
	AthleteID string        `bson:"athleteId" json:"athleteId"`
	Plan      *TrainingPlan `bson:"plan" json:"plan"`
	Version   int64         `bson:"version" json:"version"`
	UpdatedAt time.Time     `bson:"updatedAt" json:"updatedAt"`
}
