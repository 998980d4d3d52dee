package service

import (
	"context"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/khabaznak/gym-tracker/internal/domain"
	"github.com/khabaznak/gym-tracker/internal/metrics"
	"github.com/khabaznak/gym-tracker/internal/normalize"
	"github.com/khabaznak/gym-tracker/internal/repository"
	"github.com/khabaznak/gym-tracker/internal/schedule"
)

// hydrator nests child rows onto parents with one batched IN query per
// child table. A failed batch is logged and leaves the children empty:
// read paths return partial data rather than failing.
type hydrator struct {
	store   repository.Store
	metrics *metrics.Manager
}

func (h *hydrator) fetch(ctx context.Context, table, column string, ids []string, q repository.Query) []repository.Row {
	if len(ids) == 0 {
		return nil
	}
	q.Filters = append(q.Filters, repository.In(column, ids))
	rows, err := h.store.Select(ctx, table, q)
	if err != nil {
		log.WithError(err).WithField("table", table).Error("failed to hydrate child rows")
		h.metrics.HydrationFailure(table)
		return nil
	}
	return rows
}

func decodeRows[T any](table string, rows []repository.Row) []T {
	out, err := repository.DecodeAll[T](rows)
	if err != nil {
		log.WithError(err).WithField("table", table).Error("failed to decode child rows")
		return []T{}
	}
	return out
}

// --- Plans ---

// plans attaches assignments (ordered by week, day, position) and the
// derived schedule to each plan. Period and status are coerced to known values.
func (h *hydrator) plans(ctx context.Context, plans []domain.Plan) []domain.Plan {
	ids := make([]string, len(plans))
	for i, p := range plans {
		ids[i] = p.ID
	}

	assignments := decodeRows[domain.PlanAssignment](repository.TablePlanWorkouts,
		h.fetch(ctx, repository.TablePlanWorkouts, "plan_id", ids, repository.Query{}))

	workoutIDs := distinct(len(assignments), func(i int) string { return assignments[i].WorkoutID })
	workouts := decodeRows[domain.WorkoutSummary](repository.TableWorkouts,
		h.fetch(ctx, repository.TableWorkouts, "id", workoutIDs, repository.Query{Columns: []string{"id", "name", "description", "rest_interval"}}))
	workoutByID := make(map[string]domain.WorkoutSummary, len(workouts))
	for _, w := range workouts {
		workoutByID[w.ID] = w
	}

	byPlan := make(map[string][]domain.PlanAssignment, len(plans))
	for _, a := range assignments {
		if w, ok := workoutByID[a.WorkoutID]; ok {
			w := w
			a.Workout = &w
		}
		byPlan[a.PlanID] = append(byPlan[a.PlanID], a)
	}

	for i := range plans {
		p := &plans[i]
		p.Period = normalize.Enum(string(p.Period), domain.Periods, domain.PeriodWeekly)
		p.Status = normalize.Enum(string(p.Status), domain.PlanStatuses, domain.PlanInactive)

		list := byPlan[p.ID]
		if list == nil {
			list = []domain.PlanAssignment{}
		}
		sortAssignments(list)
		p.Assignments = list

		sched := schedule.Build(list, p.Period)
		p.Schedule = &sched
	}
	return plans
}

func sortAssignments(list []domain.PlanAssignment) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.WeekIndex != b.WeekIndex {
			return a.WeekIndex < b.WeekIndex
		}
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek < b.DayOfWeek
		}
		return lessPosition(a.Position, b.Position)
	})
}

// --- Workouts ---

// workouts attaches exercises to each workout in position order.
func (h *hydrator) workouts(ctx context.Context, workouts []domain.Workout) []domain.Workout {
	ids := make([]string, len(workouts))
	for i, w := range workouts {
		ids[i] = w.ID
	}

	links := decodeRows[domain.WorkoutExercise](repository.TableWorkoutExercises,
		h.fetch(ctx, repository.TableWorkoutExercises, "workout_id", ids, repository.Query{}))

	exerciseIDs := distinct(len(links), func(i int) string { return links[i].ExerciseID })
	exercises := decodeRows[domain.ExerciseSummary](repository.TableExercises,
		h.fetch(ctx, repository.TableExercises, "id", exerciseIDs, repository.Query{Columns: exerciseSummaryColumns}))
	exerciseByID := make(map[string]domain.ExerciseSummary, len(exercises))
	for _, e := range exercises {
		exerciseByID[e.ID] = e
	}

	byWorkout := make(map[string][]domain.WorkoutExercise, len(workouts))
	for _, link := range links {
		if e, ok := exerciseByID[link.ExerciseID]; ok {
			e := e
			link.Exercise = &e
		}
		byWorkout[link.WorkoutID] = append(byWorkout[link.WorkoutID], link)
	}

	for i := range workouts {
		list := byWorkout[workouts[i].ID]
		if list == nil {
			list = []domain.WorkoutExercise{}
		}
		sort.SliceStable(list, func(a, b int) bool { return lessPosition(list[a].Position, list[b].Position) })
		workouts[i].Exercises = list
	}
	return workouts
}

// --- Sessions ---

// session attaches session workouts (by position) and their sets (by set number).
func (h *hydrator) session(ctx context.Context, session *domain.Session) {
	sessionWorkouts := decodeRows[domain.SessionWorkout](repository.TableSessionWorkouts,
		h.fetch(ctx, repository.TableSessionWorkouts, "session_id", []string{session.ID}, repository.Query{}))
	sort.SliceStable(sessionWorkouts, func(i, j int) bool { return sessionWorkouts[i].Position < sessionWorkouts[j].Position })

	ids := distinct(len(sessionWorkouts), func(i int) string { return sessionWorkouts[i].ID })
	sets := decodeRows[domain.SessionSet](repository.TableSessionSets,
		h.fetch(ctx, repository.TableSessionSets, "session_workout_id", ids, repository.Query{}))
	sort.SliceStable(sets, func(i, j int) bool { return sets[i].SetNumber < sets[j].SetNumber })

	bySessionWorkout := make(map[string][]domain.SessionSet, len(sessionWorkouts))
	for _, set := range sets {
		bySessionWorkout[set.SessionWorkoutID] = append(bySessionWorkout[set.SessionWorkoutID], set)
	}

	for i := range sessionWorkouts {
		list := bySessionWorkout[sessionWorkouts[i].ID]
		if list == nil {
			list = []domain.SessionSet{}
		}
		sessionWorkouts[i].Sets = list
	}
	session.Workouts = sessionWorkouts
}

// --- helpers ---

var exerciseSummaryColumns = []string{"id", "name", "category", "target_muscle", "primary_muscle"}

// lessPosition orders by position with missing positions last.
func lessPosition(a, b *int) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return *a < *b
	}
}

// distinct collects the non-empty values of key(0..n-1) in first-seen order.
func distinct(n int, key func(int) string) []string {
	seen := make(map[string]struct{}, n)
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		k := key(i)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
