package service

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/khabaznak/gym-tracker/internal/domain"
	"github.com/khabaznak/gym-tracker/internal/normalize"
	"github.com/khabaznak/gym-tracker/internal/repository"
)

const defaultWorkoutsLimit = 20

type WorkoutService interface {
	CreateWorkout(ctx context.Context, payload normalize.Payload) (*domain.Workout, error)
	UpdateWorkout(ctx context.Context, id string, payload normalize.Payload) (*domain.Workout, error)
	DeleteWorkout(ctx context.Context, id string) error
	ListWorkouts(ctx context.Context, limit int) ([]domain.Workout, error)
	GetWorkout(ctx context.Context, id string) (*domain.Workout, error)
	GetWorkoutEditor(ctx context.Context, id string) (*domain.WorkoutEditor, error)
	ListWorkoutOptions(ctx context.Context) ([]domain.WorkoutSummary, error)
}

type workoutService struct {
	base
}

func NewWorkoutService(store repository.Store, opts ...Option) WorkoutService {
	return &workoutService{base: newBase(store, opts...)}
}

// workoutInput is a validated workout form.
type workoutInput struct {
	values    repository.Row
	exercises []workoutExerciseInput
}

type workoutExerciseInput struct {
	exerciseID string
	targetSets *int
	targetReps *int
	notes      *string
}

// parseWorkout reads the workout fields and its exercise list. Exercises come
// either as objects under "exercises" or as ids under "exercise_ids".
func parseWorkout(p normalize.Payload) (*workoutInput, error) {
	name, err := normalize.RequiredString(p.Get("name"), "Workout name")
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	videoURL, err := normalize.URL(p.Get("video_url"))
	if err != nil {
		return nil, invalid(msgInvalidVideo)
	}
	performedAt, err := normalize.Date(p.Get("performed_at"))
	if err != nil {
		return nil, invalid("Session date is invalid")
	}

	in := &workoutInput{values: repository.Row{
		"name":          name,
		"description":   normalize.NullableString(p.Get("description")),
		"notes":         normalize.NullableString(p.Get("notes")),
		"video_url":     videoURL,
		"rest_interval": normalize.NullableString(p.Get("rest_interval")),
		"performed_at":  performedAt,
	}}

	if objects := p.Objects("exercises"); len(objects) > 0 {
		for _, obj := range objects {
			id := obj.String("id")
			if id == "" {
				id = obj.String("exercise_id")
			}
			if id == "" {
				continue
			}
			sets, err := normalize.PositiveInteger(obj.Get("target_sets"))
			if err != nil {
				return nil, invalid("Target sets must be a positive whole number.")
			}
			if err := checkMaxSets(sets); err != nil {
				return nil, err
			}
			reps, err := normalize.PositiveInteger(obj.Get("target_reps"))
			if err != nil {
				return nil, invalid("Target repetitions must be a positive whole number.")
			}
			in.exercises = append(in.exercises, workoutExerciseInput{
				exerciseID: id,
				targetSets: sets,
				targetReps: reps,
				notes:      normalize.NullableString(obj.Get("notes")),
			})
		}
		return in, nil
	}

	for _, id := range normalize.IDList(p.Get("exercise_ids")) {
		in.exercises = append(in.exercises, workoutExerciseInput{exerciseID: id})
	}
	return in, nil
}

// linkRows numbers exercises 1..N in submitted order.
func (in *workoutInput) linkRows(workoutID string) []repository.Row {
	rows := make([]repository.Row, len(in.exercises))
	for i, e := range in.exercises {
		rows[i] = repository.Row{
			"workout_id":  workoutID,
			"exercise_id": e.exerciseID,
			"position":    i + 1,
			"order_index": i,
			"target_sets": e.targetSets,
			"target_reps": e.targetReps,
			"notes":       e.notes,
		}
	}
	return rows
}

func (s *workoutService) CreateWorkout(ctx context.Context, payload normalize.Payload) (*domain.Workout, error) {
	in, err := parseWorkout(payload)
	if err != nil {
		return nil, err
	}

	row := in.values
	row["created_at"] = s.timestamp()
	inserted, err := s.store.Insert(ctx, repository.TableWorkouts, row)
	if err != nil {
		log.WithError(errors.Wrap(err, "insert workout")).Error("failed to create workout")
		return nil, storeError(err, "create workout")
	}
	var workout domain.Workout
	if len(inserted) == 0 || repository.Decode(inserted[0], &workout) != nil || workout.ID == "" {
		return nil, &StoreError{Message: "Unable to create workout", Err: errors.New("insert returned no row")}
	}

	if err := s.linker().link(ctx, repository.TableWorkoutExercises, "workout_id", workout.ID, in.linkRows(workout.ID)); err != nil {
		log.WithError(err).WithField("workout_id", workout.ID).Error("failed to link exercises, rolling back workout")
		s.rollback(ctx, workout.ID)
		return nil, storeError(err, "create workout")
	}

	return s.GetWorkout(ctx, workout.ID)
}

// rollback removes a workout whose exercises could not be linked.
func (s *workoutService) rollback(ctx context.Context, workoutID string) {
	err := s.store.Delete(ctx, repository.TableWorkoutExercises, repository.Eq("workout_id", workoutID))
	if err == nil {
		err = s.store.Delete(ctx, repository.TableWorkouts, repository.Eq("id", workoutID))
	}
	if err != nil {
		log.WithError(err).WithField("workout_id", workoutID).Error("workout rollback failed, orphaned rows remain")
	}
	s.metrics.Compensation("workout", err == nil)
}

// UpdateWorkout rewrites the workout fields and replaces its exercise list.
func (s *workoutService) UpdateWorkout(ctx context.Context, id string, payload normalize.Payload) (*domain.Workout, error) {
	id, err := normalize.ID(id, "workout")
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	in, err := parseWorkout(payload)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.Update(ctx, repository.TableWorkouts, in.values, repository.Eq("id", id))
	if err != nil {
		log.WithError(err).WithField("workout_id", id).Error("failed to update workout")
		return nil, storeError(err, "update workout")
	}
	if len(updated) == 0 {
		// Some stores do not report affected rows.
		found, err := s.exists(ctx, repository.TableWorkouts, id)
		if err != nil {
			return nil, storeError(err, "update workout")
		}
		if !found {
			return nil, notFound("Workout")
		}
	}

	if err := s.linker().replace(ctx, repository.TableWorkoutExercises, "workout_id", id, in.linkRows(id)); err != nil {
		log.WithError(err).WithField("workout_id", id).Error("failed to replace workout exercises")
		return nil, storeError(err, "update workout")
	}

	return s.GetWorkout(ctx, id)
}

// DeleteWorkout removes the workout's exercise links and plan assignments,
// then the workout.
func (s *workoutService) DeleteWorkout(ctx context.Context, id string) error {
	id, err := normalize.ID(id, "workout")
	if err != nil {
		return invalid("%s", err.Error())
	}
	found, err := s.exists(ctx, repository.TableWorkouts, id)
	if err != nil {
		return storeError(err, "delete workout")
	}
	if !found {
		return notFound("Workout")
	}

	for _, table := range []string{repository.TableWorkoutExercises, repository.TablePlanWorkouts} {
		if err := s.store.Delete(ctx, table, repository.Eq("workout_id", id)); err != nil {
			log.WithError(err).WithFields(log.Fields{"workout_id": id, "table": table}).Error("failed to delete workout children")
			return storeError(err, "delete workout")
		}
	}
	if err := s.store.Delete(ctx, repository.TableWorkouts, repository.Eq("id", id)); err != nil {
		log.WithError(err).WithField("workout_id", id).Error("failed to delete workout")
		return storeError(err, "delete workout")
	}
	return nil
}

// ListWorkouts returns the most recently performed workouts first.
func (s *workoutService) ListWorkouts(ctx context.Context, limit int) ([]domain.Workout, error) {
	if limit <= 0 {
		limit = defaultWorkoutsLimit
	}
	rows, err := s.store.Select(ctx, repository.TableWorkouts, repository.Query{
		Order: []repository.Order{{Column: "performed_at", Desc: true}, {Column: "created_at", Desc: true}},
		Limit: limit,
	})
	if err != nil {
		log.WithError(err).Error("failed to list workouts")
		return nil, readError(err, "load workouts")
	}
	workouts, err := repository.DecodeAll[domain.Workout](rows)
	if err != nil {
		return nil, &StoreError{Message: "Unable to load workouts", Err: err}
	}
	return s.hydrator().workouts(ctx, workouts), nil
}

func (s *workoutService) GetWorkout(ctx context.Context, id string) (*domain.Workout, error) {
	id, err := normalize.ID(id, "workout")
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	var workout domain.Workout
	if err := s.getByID(ctx, repository.TableWorkouts, id, "Workout", &workout); err != nil {
		return nil, err
	}
	hydrated := s.hydrator().workouts(ctx, []domain.Workout{workout})
	return &hydrated[0], nil
}

// GetWorkoutEditor loads the workout and the exercise selection list
// concurrently. A failed selection list leaves the form without options.
func (s *workoutService) GetWorkoutEditor(ctx context.Context, id string) (*domain.WorkoutEditor, error) {
	editor := &domain.WorkoutEditor{Exercises: []domain.ExerciseSummary{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		workout, err := s.GetWorkout(gctx, id)
		if err != nil {
			return err
		}
		editor.Workout = workout
		return nil
	})
	g.Go(func() error {
		options, err := s.exerciseOptions(gctx)
		if err != nil {
			log.WithError(err).Warn("failed to load exercise options for workout editor")
			return nil
		}
		editor.Exercises = options
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return editor, nil
}

func (s *workoutService) ListWorkoutOptions(ctx context.Context) ([]domain.WorkoutSummary, error) {
	return s.workoutOptions(ctx)
}
