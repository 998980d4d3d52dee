package service

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/khabaznak/gym-tracker/internal/domain"
	"github.com/khabaznak/gym-tracker/internal/normalize"
	"github.com/khabaznak/gym-tracker/internal/repository"
	"github.com/khabaznak/gym-tracker/internal/schedule"
)

const (
	msgInvalidSessionID = "Invalid session id."

	// maxSessionSets bounds the set rows one session start may write.
	maxSessionSets = 1000
)

type SessionService interface {
	// CreateSession starts an in-progress session. Workout and exercise
	// names are taken from the payload as snapshots.
	CreateSession(ctx context.Context, payload normalize.Payload) (*domain.Session, error)
	// CompleteSession marks the session completed and applies per-set
	// updates one at a time. Sets without an id, or that belong to another
	// session, are skipped.
	CompleteSession(ctx context.Context, id string, payload normalize.Payload) (*domain.CompletionResult, error)
	AbortSession(ctx context.Context, id string) (*domain.Session, error)
	GetSession(ctx context.Context, id string) (*domain.Session, error)
}

type sessionService struct {
	base
}

func NewSessionService(store repository.Store, opts ...Option) SessionService {
	return &sessionService{base: newBase(store, opts...)}
}

// --- Creation ---

type sessionWorkoutInput struct {
	workoutID *string
	name      string
	position  int
	exercises []sessionExerciseInput
}

type sessionExerciseInput struct {
	exerciseID *string
	name       string
	targetSets *int
	targetReps *int
	sets       []sessionSetInput
}

type sessionSetInput struct {
	setNumber  int
	targetReps *int
}

// parseSessionWorkouts reads the nested workouts/exercises/sets of a session
// start request. Malformed numbers fall back to defaults instead of failing.
// Each exercise gets at most domain.MaxTargetSets sets; a request whose sets
// add up to more than maxSessionSets is rejected.
func parseSessionWorkouts(p normalize.Payload) ([]sessionWorkoutInput, error) {
	objects := p.Objects("workouts")
	out := make([]sessionWorkoutInput, 0, len(objects))
	total := 0

	for i, w := range objects {
		workoutID := firstNonNil(normalize.NullableString(w.Get("id")), normalize.NullableString(w.Get("workout_id")))
		in := sessionWorkoutInput{
			workoutID: workoutID,
			name:      snapshotName(w, "workout_name", workoutID, fmt.Sprintf("Workout %d", i+1)),
			position:  positiveOr(w.Get("position"), i+1),
		}

		for j, e := range w.Objects("exercises") {
			exerciseID := firstNonNil(normalize.NullableString(e.Get("id")), normalize.NullableString(e.Get("exercise_id")))
			targetReps := positiveOrNil(e.Get("target_reps"))
			ex := sessionExerciseInput{
				exerciseID: exerciseID,
				name:       snapshotName(e, "exercise_name", exerciseID, fmt.Sprintf("Exercise %d", j+1)),
				targetReps: targetReps,
			}

			sets := e.Objects("sets")
			if len(sets) > domain.MaxTargetSets {
				sets = sets[:domain.MaxTargetSets]
			}
			ex.targetSets = positiveOrNil(e.Get("target_sets"))
			if ex.targetSets != nil && *ex.targetSets > domain.MaxTargetSets {
				ex.targetSets = repository.Ptr(domain.MaxTargetSets)
			}
			if ex.targetSets == nil && len(sets) > 0 {
				ex.targetSets = repository.Ptr(len(sets))
			}

			for k, set := range sets {
				number := positiveOr(set.Get("set_number"), 0)
				if number == 0 {
					number = positiveOr(set.Get("index"), k+1)
				}
				reps := targetReps
				if reps == nil {
					reps = positiveOrNil(set.Get("target_reps"))
				}
				ex.sets = append(ex.sets, sessionSetInput{setNumber: number, targetReps: reps})
			}

			if len(ex.sets) == 0 {
				count := 1
				if ex.targetSets != nil {
					count = *ex.targetSets
				}
				for n := 1; n <= count; n++ {
					ex.sets = append(ex.sets, sessionSetInput{setNumber: n, targetReps: targetReps})
				}
			}

			total += len(ex.sets)
			if total > maxSessionSets {
				return nil, invalid("A session can hold at most %d sets.", maxSessionSets)
			}
			in.exercises = append(in.exercises, ex)
		}
		out = append(out, in)
	}
	return out, nil
}

func (s *sessionService) CreateSession(ctx context.Context, payload normalize.Payload) (*domain.Session, error) {
	day, ok := normalize.Int(payload.Get("day_index"))
	if !ok {
		day = 1
	}
	row := repository.Row{
		"plan_id":    normalize.NullableString(payload.Get("plan_id")),
		"plan_name":  normalize.NullableString(payload.Get("plan_name")),
		"day_index":  min(max(day, 1), schedule.DaysPerWeek),
		"week_index": positiveOr(payload.Get("week_index"), 1),
		"mode":       string(normalize.Enum(payload.Get("mode"), domain.SessionModes, domain.ModeFocus)),
		"status":     string(domain.SessionInProgress),
		"started_at": s.timestamp(),
		"notes":      normalize.NullableString(payload.Get("notes")),
	}
	workouts, err := parseSessionWorkouts(payload)
	if err != nil {
		return nil, err
	}

	inserted, err := s.store.Insert(ctx, repository.TableSessions, row)
	if err != nil {
		log.WithError(errors.Wrap(err, "insert session")).Error("failed to start session")
		return nil, storeError(err, "start session")
	}
	var session domain.Session
	if len(inserted) == 0 || repository.Decode(inserted[0], &session) != nil || session.ID == "" {
		return nil, &StoreError{Message: "Unable to start session", Err: errors.New("insert returned no row")}
	}
	session.Workouts = []domain.SessionWorkout{}
	if len(workouts) == 0 {
		return &session, nil
	}

	sessionWorkouts, err := s.insertSessionWorkouts(ctx, &session, workouts)
	if err != nil {
		log.WithError(err).WithField("session_id", session.ID).Error("failed to write session workouts, rolling back session")
		s.rollback(ctx, session.ID)
		return nil, storeError(err, "start session")
	}
	session.Workouts = sessionWorkouts
	return &session, nil
}

// insertSessionWorkouts writes one session_workouts row per workout, then all
// their sets in a single insert. Inserted rows are paired with inputs by index.
func (s *sessionService) insertSessionWorkouts(ctx context.Context, session *domain.Session, workouts []sessionWorkoutInput) ([]domain.SessionWorkout, error) {
	rows := make([]repository.Row, len(workouts))
	for i, w := range workouts {
		rows[i] = repository.Row{
			"session_id":   session.ID,
			"workout_id":   w.workoutID,
			"workout_name": w.name,
			"position":     w.position,
		}
	}
	inserted, err := s.store.Insert(ctx, repository.TableSessionWorkouts, rows...)
	if err != nil {
		return nil, err
	}
	sessionWorkouts, err := repository.DecodeAll[domain.SessionWorkout](inserted)
	if err != nil {
		return nil, err
	}
	if len(sessionWorkouts) != len(workouts) {
		return nil, errors.Errorf("inserted %d session workouts, expected %d", len(sessionWorkouts), len(workouts))
	}

	var setRows []repository.Row
	for i, w := range workouts {
		for _, e := range w.exercises {
			for _, set := range e.sets {
				setRows = append(setRows, repository.Row{
					"session_workout_id": sessionWorkouts[i].ID,
					"exercise_id":        e.exerciseID,
					"exercise_name":      e.name,
					"day_index":          session.DayIndex,
					"target_sets":        e.targetSets,
					"target_reps":        set.targetReps,
					"set_number":         set.setNumber,
					"completed":          false,
				})
			}
		}
	}

	byWorkout := make(map[string][]domain.SessionSet, len(sessionWorkouts))
	if len(setRows) > 0 {
		insertedSets, err := s.store.Insert(ctx, repository.TableSessionSets, setRows...)
		if err != nil {
			return nil, err
		}
		sets, err := repository.DecodeAll[domain.SessionSet](insertedSets)
		if err != nil {
			return nil, err
		}
		for _, set := range sets {
			byWorkout[set.SessionWorkoutID] = append(byWorkout[set.SessionWorkoutID], set)
		}
	}

	for i := range sessionWorkouts {
		sets := byWorkout[sessionWorkouts[i].ID]
		if sets == nil {
			sets = []domain.SessionSet{}
		}
		sessionWorkouts[i].Sets = sets
	}
	return sessionWorkouts, nil
}

// rollback deletes the session's workouts and the session. Failures are
// logged and not retried.
func (s *sessionService) rollback(ctx context.Context, sessionID string) {
	err := s.store.Delete(ctx, repository.TableSessionWorkouts, repository.Eq("session_id", sessionID))
	if err != nil {
		log.WithError(err).WithField("session_id", sessionID).Error("failed to delete session workouts during rollback")
	}
	if delErr := s.store.Delete(ctx, repository.TableSessions, repository.Eq("id", sessionID)); delErr != nil {
		log.WithError(delErr).WithField("session_id", sessionID).Error("failed to delete session during rollback, orphan left behind")
		err = delErr
	}
	s.metrics.Compensation("session", err == nil)
}

// --- Completion ---

func (s *sessionService) CompleteSession(ctx context.Context, id string, payload normalize.Payload) (*domain.CompletionResult, error) {
	id, err := normalize.ID(id, "session")
	if err != nil {
		return nil, invalid(msgInvalidSessionID)
	}

	now := s.timestamp()
	endedAt, err := normalize.Date(payload.Get("ended_at"))
	if err != nil || endedAt == nil {
		endedAt = &now
	}
	values := repository.Row{
		"status":   string(domain.SessionCompleted),
		"notes":    normalize.NullableString(payload.Get("notes")),
		"ended_at": *endedAt,
	}
	if duration, err := normalize.NonNegativeInteger(payload.Get("duration_seconds")); err == nil && duration != nil {
		values["duration_seconds"] = *duration
	}

	if err := s.updateSession(ctx, id, values, "complete session"); err != nil {
		return nil, err
	}

	workoutIDs, err := s.sessionWorkoutIDs(ctx, id)
	if err != nil {
		log.WithError(err).WithField("session_id", id).Error("failed to load session workouts")
		return nil, storeError(err, "complete session")
	}

	result := &domain.CompletionResult{}
	for _, set := range payload.Objects("sets") {
		setID := set.String("id")
		if setID == "" || len(workoutIDs) == 0 {
			result.SetsSkipped++
			continue
		}

		completed := normalize.Bool(set.Get("completed"))
		actualReps, err := normalize.NonNegativeInteger(set.Get("actual_reps"))
		if err != nil {
			actualReps = nil
		}
		update := repository.Row{
			"completed":    completed,
			"actual_reps":  actualReps,
			"notes":        normalize.NullableString(set.Get("notes")),
			"completed_at": nil,
		}
		if completed {
			update["completed_at"] = now
		}

		updated, err := s.store.Update(ctx, repository.TableSessionSets, update,
			repository.Eq("id", setID), repository.In("session_workout_id", workoutIDs))
		if err != nil {
			log.WithError(err).WithFields(log.Fields{"session_id": id, "set_id": setID, "sets_updated": result.SetsUpdated}).
				Error("failed to update session set, earlier updates are kept")
			return nil, storeError(err, "complete session")
		}
		if len(updated) == 0 {
			result.SetsSkipped++
			continue
		}
		result.SetsUpdated++
	}

	session, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	result.Session = session
	return result, nil
}

func (s *sessionService) sessionWorkoutIDs(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := s.store.Select(ctx, repository.TableSessionWorkouts, repository.Query{
		Columns: []string{"id"},
		Filters: []repository.Filter{repository.Eq("session_id", sessionID)},
	})
	if err != nil {
		return nil, err
	}
	workouts, err := repository.DecodeAll[domain.SessionWorkout](rows)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(workouts))
	for i, w := range workouts {
		ids[i] = w.ID
	}
	return ids, nil
}

func (s *sessionService) AbortSession(ctx context.Context, id string) (*domain.Session, error) {
	id, err := normalize.ID(id, "session")
	if err != nil {
		return nil, invalid(msgInvalidSessionID)
	}
	values := repository.Row{
		"status":   string(domain.SessionAborted),
		"ended_at": s.timestamp(),
	}
	if err := s.updateSession(ctx, id, values, "abort session"); err != nil {
		return nil, err
	}
	return s.GetSession(ctx, id)
}

func (s *sessionService) updateSession(ctx context.Context, id string, values repository.Row, action string) error {
	updated, err := s.store.Update(ctx, repository.TableSessions, values, repository.Eq("id", id))
	if err != nil {
		log.WithError(err).WithField("session_id", id).Errorf("failed to %s", action)
		return storeError(err, action)
	}
	if len(updated) > 0 {
		return nil
	}
	found, err := s.exists(ctx, repository.TableSessions, id)
	if err != nil {
		return storeError(err, action)
	}
	if !found {
		return notFound("Session")
	}
	return nil
}

func (s *sessionService) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	id, err := normalize.ID(id, "session")
	if err != nil {
		return nil, invalid(msgInvalidSessionID)
	}
	var session domain.Session
	if err := s.getByID(ctx, repository.TableSessions, id, "Session", &session); err != nil {
		return nil, err
	}
	s.hydrator().session(ctx, &session)
	return &session, nil
}

// --- helpers ---

func snapshotName(p normalize.Payload, key string, id *string, fallback string) string {
	if name := p.String("name"); name != "" {
		return name
	}
	if name := p.String(key); name != "" {
		return name
	}
	if id != nil {
		return *id
	}
	return fallback
}

func positiveOr(value any, def int) int {
	if n := positiveOrNil(value); n != nil {
		return *n
	}
	return def
}

func positiveOrNil(value any) *int {
	n, err := normalize.PositiveInteger(value)
	if err != nil {
		return nil
	}
	return n
}

func firstNonNil[T any](values ...*T) *T {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
