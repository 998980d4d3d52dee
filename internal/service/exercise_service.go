package service

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/khabaznak/gym-tracker/internal/domain"
	"github.com/khabaznak/gym-tracker/internal/normalize"
	"github.com/khabaznak/gym-tracker/internal/repository"
	"github.com/khabaznak/gym-tracker/internal/storage"
)

const (
	exercisesLimit   = 100
	msgInvalidVideo  = "Video link must be a valid URL starting with http or https."
	defaultVideoType = "video/mp4"
)

// --- Service Interface ---
type ExerciseService interface {
	CreateExercise(ctx context.Context, payload normalize.Payload) (*domain.Exercise, error)
	ListExercises(ctx context.Context) ([]domain.Exercise, error)
	GetExercise(ctx context.Context, id string) (*domain.Exercise, error)
	DeleteExercise(ctx context.Context, id string) error
	ListExerciseOptions(ctx context.Context) ([]domain.ExerciseSummary, error)
	// CreateVideoUpload returns a presigned PUT URL and stores the object's
	// public URL as the exercise's video_url right away. Nothing confirms the
	// upload: if the client never PUTs the file, video_url points at a missing
	// object until the exercise is given another video or deleted.
	CreateVideoUpload(ctx context.Context, id, fileName, contentType string) (*domain.VideoUpload, error)
}

// --- Service Implementation ---

// exerciseService implements the ExerciseService interface.
type exerciseService struct {
	base
	files storage.FileStorage // nil when video storage is not configured
}

// NewExerciseService creates a new instance of exerciseService. files may be nil.
func NewExerciseService(store repository.Store, files storage.FileStorage, opts ...Option) ExerciseService {
	return &exerciseService{
		base:  newBase(store, opts...),
		files: files,
	}
}

// CreateExercise validates payload and inserts one exercise.
// target_muscle falls back to primary_muscle when blank.
func (s *exerciseService) CreateExercise(ctx context.Context, payload normalize.Payload) (*domain.Exercise, error) {
	row, err := exerciseRow(payload)
	if err != nil {
		return nil, err
	}
	row["created_at"] = s.timestamp()

	inserted, err := s.store.Insert(ctx, repository.TableExercises, row)
	if err != nil {
		log.WithError(errors.Wrap(err, "insert exercise")).Error("failed to create exercise")
		return nil, storeError(err, "create exercise")
	}
	if len(inserted) > 0 {
		row = inserted[0]
	}

	var exercise domain.Exercise
	if err := repository.Decode(row, &exercise); err != nil {
		return nil, &StoreError{Message: "Unable to create exercise", Err: err}
	}
	return &exercise, nil
}

func exerciseRow(p normalize.Payload) (repository.Row, error) {
	name, err := normalize.RequiredString(p.Get("name"), "Exercise name")
	if err != nil {
		return nil, invalid("%s", err.Error())
	}

	primary := normalize.NullableString(p.Get("primary_muscle"))
	target := normalize.NullableString(p.Get("target_muscle"))
	if target == nil {
		target = primary
	}
	if target == nil {
		return nil, invalid("Target muscle is required")
	}

	targetSets, err := parseTargetSets(p.Get("target_sets"))
	if err != nil {
		return nil, err
	}
	targetReps, err := requiredPositive(p.Get("target_repetitions"), "Target repetitions")
	if err != nil {
		return nil, err
	}

	videoURL, err := normalize.URL(p.Get("video_url"))
	if err != nil {
		return nil, invalid(msgInvalidVideo)
	}

	return repository.Row{
		"name":               name,
		"category":           normalize.NullableString(p.Get("category")),
		"target_muscle":      target,
		"primary_muscle":     primary,
		"secondary_muscles":  normalize.NullableString(p.Get("secondary_muscles")),
		"equipment":          normalize.NullableString(p.Get("equipment")),
		"tempo":              normalize.NullableString(p.Get("tempo")),
		"target_sets":        targetSets,
		"target_repetitions": targetReps,
		"notes":              normalize.NullableString(p.Get("notes")),
		"cues":               normalize.NullableString(p.Get("cues")),
		"video_url":          videoURL,
	}, nil
}

func parseTargetSets(value any) (*int, error) {
	n, err := requiredPositive(value, "Target sets")
	if err != nil {
		return nil, err
	}
	if err := checkMaxSets(n); err != nil {
		return nil, err
	}
	return n, nil
}

func checkMaxSets(n *int) error {
	if n != nil && *n > domain.MaxTargetSets {
		return invalid("Target sets must be at most %d.", domain.MaxTargetSets)
	}
	return nil
}

func requiredPositive(value any, label string) (*int, error) {
	n, err := normalize.PositiveInteger(value)
	if err != nil {
		return nil, invalid("%s must be a positive whole number.", label)
	}
	if n == nil {
		return nil, invalid("%s is required", label)
	}
	return n, nil
}

func (s *exerciseService) ListExercises(ctx context.Context) ([]domain.Exercise, error) {
	rows, err := s.store.Select(ctx, repository.TableExercises, repository.Query{
		Order: []repository.Order{{Column: "name"}},
		Limit: exercisesLimit,
	})
	if err != nil {
		log.WithError(err).Error("failed to list exercises")
		return nil, readError(err, "load exercises")
	}
	exercises, err := repository.DecodeAll[domain.Exercise](rows)
	if err != nil {
		return nil, &StoreError{Message: "Unable to load exercises", Err: err}
	}
	return exercises, nil
}

func (s *exerciseService) GetExercise(ctx context.Context, id string) (*domain.Exercise, error) {
	id, err := normalize.ID(id, "exercise")
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	var exercise domain.Exercise
	if err := s.getByID(ctx, repository.TableExercises, id, "Exercise", &exercise); err != nil {
		return nil, err
	}
	return &exercise, nil
}

// DeleteExercise removes the exercise from every workout, renumbering each
// workout's remaining exercises 1..N, then deletes it. An uploaded video is
// removed from storage on a best-effort basis.
func (s *exerciseService) DeleteExercise(ctx context.Context, id string) error {
	exercise, err := s.GetExercise(ctx, id)
	if err != nil {
		return err
	}

	rows, err := s.store.Select(ctx, repository.TableWorkoutExercises, repository.Query{
		Columns: []string{"workout_id"},
		Filters: []repository.Filter{repository.Eq("exercise_id", exercise.ID)},
	})
	if err != nil {
		log.WithError(err).WithField("exercise_id", exercise.ID).Error("failed to load workouts using exercise")
		return storeError(err, "delete exercise")
	}
	links, err := repository.DecodeAll[domain.WorkoutExercise](rows)
	if err != nil {
		return &StoreError{Message: "Unable to delete exercise", Err: err}
	}

	if err := s.store.Delete(ctx, repository.TableWorkoutExercises, repository.Eq("exercise_id", exercise.ID)); err != nil {
		log.WithError(err).WithField("exercise_id", exercise.ID).Error("failed to unlink exercise from workouts")
		return storeError(err, "delete exercise")
	}

	renumbered := map[string]bool{}
	for _, link := range links {
		if renumbered[link.WorkoutID] {
			continue
		}
		renumbered[link.WorkoutID] = true
		if err := s.renumberWorkout(ctx, link.WorkoutID); err != nil {
			log.WithError(err).WithFields(log.Fields{"exercise_id": exercise.ID, "workout_id": link.WorkoutID}).
				Error("failed to renumber workout exercises")
			return storeError(err, "delete exercise")
		}
	}
	if err := s.store.Delete(ctx, repository.TableExercises, repository.Eq("id", exercise.ID)); err != nil {
		log.WithError(err).WithField("exercise_id", exercise.ID).Error("failed to delete exercise")
		return storeError(err, "delete exercise")
	}

	s.deleteVideo(ctx, exercise)
	return nil
}

// renumberWorkout rewrites a workout's exercise links as positions 1..N,
// keeping their current order.
func (s *exerciseService) renumberWorkout(ctx context.Context, workoutID string) error {
	rows, err := s.store.Select(ctx, repository.TableWorkoutExercises, repository.Query{
		Filters: []repository.Filter{repository.Eq("workout_id", workoutID)},
		Order:   []repository.Order{{Column: "position"}},
	})
	if err != nil {
		return err
	}
	links, err := repository.DecodeAll[domain.WorkoutExercise](rows)
	if err != nil {
		return err
	}

	contiguous := true
	out := make([]repository.Row, len(links))
	for i, link := range links {
		if link.Position == nil || *link.Position != i+1 {
			contiguous = false
		}
		out[i] = repository.Row{
			"workout_id":  workoutID,
			"exercise_id": link.ExerciseID,
			"position":    i + 1,
			"order_index": i,
			"target_sets": link.TargetSets,
			"target_reps": link.TargetReps,
			"notes":       link.Notes,
		}
	}
	if contiguous {
		return nil
	}
	return s.linker().replace(ctx, repository.TableWorkoutExercises, "workout_id", workoutID, out)
}

func (s *exerciseService) deleteVideo(ctx context.Context, exercise *domain.Exercise) {
	if s.files == nil || exercise.VideoURL == nil {
		return
	}
	key := storage.VideoObjectKeyFromURL(s.files.PublicURL(""), *exercise.VideoURL)
	if key == "" {
		return
	}
	if err := s.files.DeleteObject(ctx, key); err != nil {
		log.WithError(err).WithField("key", key).Warn("exercise deleted but its video could not be removed")
	}
}

func (s *exerciseService) ListExerciseOptions(ctx context.Context) ([]domain.ExerciseSummary, error) {
	return s.exerciseOptions(ctx)
}

// CreateVideoUpload signs a direct upload for an exercise demo video and
// points the exercise's video_url at the object's public URL.
func (s *exerciseService) CreateVideoUpload(ctx context.Context, id, fileName, contentType string) (*domain.VideoUpload, error) {
	if s.files == nil {
		return nil, ErrStorageNotConfigured
	}
	exercise, err := s.GetExercise(ctx, id)
	if err != nil {
		return nil, err
	}

	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		contentType = defaultVideoType
	}

	key := storage.VideoObjectKey(exercise.ID, fileName)
	uploadURL, err := s.files.GeneratePresignedUploadURL(ctx, key, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, &StoreError{Message: "Unable to prepare video upload", Err: err}
	}
	videoURL := s.files.PublicURL(key)

	if _, err := s.store.Update(ctx, repository.TableExercises, repository.Row{"video_url": videoURL}, repository.Eq("id", exercise.ID)); err != nil {
		log.WithError(err).WithField("exercise_id", exercise.ID).Error("failed to store video url")
		return nil, storeError(err, "update exercise")
	}

	return &domain.VideoUpload{
		ExerciseID: exercise.ID,
		UploadURL:  uploadURL,
		ObjectKey:  key,
		VideoURL:   videoURL,
		ExpiresAt:  s.timestamp().Add(storage.DefaultPresignedURLExpiry).Truncate(time.Second),
	}, nil
}
