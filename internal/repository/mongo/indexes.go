package mongo

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/khabaznak/gym-tracker/internal/repository"
)

const indexTimeout = 30 * time.Second

// collectionIndexes lists the indexes each table needs for the store's
// access patterns: child lookups by parent id and list ordering.
func collectionIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		repository.TableWorkouts: {
			{Keys: bson.D{{Key: "performed_at", Value: -1}}},
		},
		repository.TableWorkoutExercises: {
			{Keys: bson.D{{Key: "workout_id", Value: 1}, {Key: "position", Value: 1}}},
		},
		repository.TablePlans: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "updated_at", Value: -1}}},
		},
		repository.TablePlanWorkouts: {
			{
				// One workout per (plan, week, day)
				Keys: bson.D{
					{Key: "plan_id", Value: 1},
					{Key: "week_index", Value: 1},
					{Key: "day_of_week", Value: 1},
					{Key: "workout_id", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
		},
		repository.TableSessionWorkouts: {
			{Keys: bson.D{{Key: "session_id", Value: 1}}},
		},
		repository.TableSessionSets: {
			{Keys: bson.D{{Key: "session_workout_id", Value: 1}}},
		},
	}
}

// EnsureIndexes creates necessary indexes. Call during startup.
// Failures are logged; the store still works without them.
func EnsureIndexes(ctx context.Context, db *mongo.Database) {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	for table, indexes := range collectionIndexes() {
		if _, err := db.Collection(table).Indexes().CreateMany(ctx, indexes); err != nil {
			log.WithError(err).Warnf("failed to create indexes for collection %s", table)
		}
	}
}
