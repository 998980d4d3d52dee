package service

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/khabaznak/gym-tracker/internal/domain"
	"github.com/khabaznak/gym-tracker/internal/normalize"
	"github.com/khabaznak/gym-tracker/internal/repository"
	"github.com/khabaznak/gym-tracker/internal/schedule"
)

const defaultPlansLimit = 50

type PlanService interface {
	CreatePlan(ctx context.Context, payload normalize.Payload) (*domain.Plan, error)
	UpdatePlan(ctx context.Context, id string, payload normalize.Payload) (*domain.Plan, error)
	DeletePlan(ctx context.Context, id string) error
	ListPlans(ctx context.Context, limit int) ([]domain.Plan, error)
	GetPlan(ctx context.Context, id string) (*domain.Plan, error)
	// GetActivePlan returns the most recently updated active plan, or nil
	// when no plan is active.
	GetActivePlan(ctx context.Context) (*domain.Plan, error)
	GetPlanEditor(ctx context.Context, id string) (*domain.PlanEditor, error)
	GetTracker(ctx context.Context) (*domain.Tracker, error)
}

type planService struct {
	base
}

func NewPlanService(store repository.Store, opts ...Option) PlanService {
	return &planService{base: newBase(store, opts...)}
}

type planInput struct {
	values      repository.Row
	period      domain.Period
	assignments []schedule.Assignment
}

// parsePlan reads plan fields and assignments. Assignments arrive either as
// the plan form's parallel assignment_week/assignment_day/assignment_workout
// lists or as "assignments" objects in a JSON body.
func parsePlan(p normalize.Payload) (*planInput, error) {
	name, err := normalize.RequiredString(p.Get("name"), "Plan name")
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	period := normalize.Enum(p.Get("period"), domain.Periods, domain.PeriodWeekly)
	status := normalize.Enum(p.Get("status"), domain.PlanStatuses, domain.PlanInactive)

	weeks, days, workouts := p.List("assignment_week"), p.List("assignment_day"), p.List("assignment_workout")
	if objects := p.Objects("assignments"); len(objects) > 0 {
		weeks, days, workouts = nil, nil, nil
		for _, obj := range objects {
			workoutID := obj.Get("workout_id")
			if workoutID == nil {
				workoutID = obj.Get("workout")
			}
			weeks = append(weeks, obj.Get("week_index"))
			days = append(days, obj.Get("day_of_week"))
			workouts = append(workouts, workoutID)
		}
	}

	return &planInput{
		values: repository.Row{
			"name":        name,
			"description": normalize.NullableString(p.Get("description")),
			"label":       normalize.NullableString(p.Get("label")),
			"period":      string(period),
			"status":      string(status),
		},
		period:      period,
		assignments: schedule.NormalizeAssignments(weeks, days, workouts, period),
	}, nil
}

func (in *planInput) linkRows(planID string) []repository.Row {
	assignments := schedule.AssignmentRows(planID, in.assignments, in.period)
	rows := make([]repository.Row, len(assignments))
	for i, a := range assignments {
		rows[i] = repository.Row{
			"plan_id":     planID,
			"workout_id":  a.WorkoutID,
			"week_index":  a.WeekIndex,
			"day_of_week": a.DayOfWeek,
			"order_index": *a.OrderIndex,
			"position":    *a.Position,
		}
	}
	return rows
}

// CreatePlan inserts the plan and its assignments. When the assignments
// cannot be written, the plan and any partial assignments are deleted.
func (s *planService) CreatePlan(ctx context.Context, payload normalize.Payload) (*domain.Plan, error) {
	in, err := parsePlan(payload)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	row := in.values
	row["created_at"] = now
	row["updated_at"] = now

	inserted, err := s.store.Insert(ctx, repository.TablePlans, row)
	if err != nil {
		log.WithError(errors.Wrap(err, "insert plan")).Error("failed to create plan")
		return nil, storeError(err, "create plan")
	}
	var plan domain.Plan
	if len(inserted) == 0 || repository.Decode(inserted[0], &plan) != nil || plan.ID == "" {
		return nil, &StoreError{Message: "Unable to create plan", Err: errors.New("insert returned no row")}
	}

	if err := s.linker().link(ctx, repository.TablePlanWorkouts, "plan_id", plan.ID, in.linkRows(plan.ID)); err != nil {
		log.WithError(err).WithField("plan_id", plan.ID).Error("failed to link workouts, rolling back plan")
		s.rollback(ctx, plan.ID)
		return nil, storeError(err, "connect workouts to plan")
	}

	return s.GetPlan(ctx, plan.ID)
}

func (s *planService) rollback(ctx context.Context, planID string) {
	err := s.store.Delete(ctx, repository.TablePlanWorkouts, repository.Eq("plan_id", planID))
	if err != nil {
		log.WithError(err).WithField("plan_id", planID).Error("failed to delete partial plan assignments")
	}
	if delErr := s.store.Delete(ctx, repository.TablePlans, repository.Eq("id", planID)); delErr != nil {
		log.WithError(delErr).WithField("plan_id", planID).Error("failed to delete plan during rollback")
		err = delErr
	}
	s.metrics.Compensation("plan", err == nil)
}

// UpdatePlan rewrites the plan fields and replaces all of its assignments.
func (s *planService) UpdatePlan(ctx context.Context, id string, payload normalize.Payload) (*domain.Plan, error) {
	id, err := normalize.ID(id, "plan")
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	in, err := parsePlan(payload)
	if err != nil {
		return nil, err
	}

	values := in.values
	values["updated_at"] = s.timestamp()
	updated, err := s.store.Update(ctx, repository.TablePlans, values, repository.Eq("id", id))
	if err != nil {
		log.WithError(err).WithField("plan_id", id).Error("failed to update plan")
		return nil, storeError(err, "update plan")
	}
	if len(updated) == 0 {
		found, err := s.exists(ctx, repository.TablePlans, id)
		if err != nil {
			return nil, storeError(err, "update plan")
		}
		if !found {
			return nil, notFound("Plan")
		}
	}

	if err := s.linker().replace(ctx, repository.TablePlanWorkouts, "plan_id", id, in.linkRows(id)); err != nil {
		log.WithError(err).WithField("plan_id", id).Error("failed to replace plan assignments")
		return nil, storeError(err, "update plan workouts")
	}

	return s.GetPlan(ctx, id)
}

func (s *planService) DeletePlan(ctx context.Context, id string) error {
	id, err := normalize.ID(id, "plan")
	if err != nil {
		return invalid("%s", err.Error())
	}
	found, err := s.exists(ctx, repository.TablePlans, id)
	if err != nil {
		return storeError(err, "delete plan")
	}
	if !found {
		return notFound("Plan")
	}

	if err := s.store.Delete(ctx, repository.TablePlanWorkouts, repository.Eq("plan_id", id)); err != nil {
		log.WithError(err).WithField("plan_id", id).Error("failed to delete plan assignments")
		return storeError(err, "delete plan")
	}
	if err := s.store.Delete(ctx, repository.TablePlans, repository.Eq("id", id)); err != nil {
		log.WithError(err).WithField("plan_id", id).Error("failed to delete plan")
		return storeError(err, "delete plan")
	}
	return nil
}

func (s *planService) ListPlans(ctx context.Context, limit int) ([]domain.Plan, error) {
	if limit <= 0 {
		limit = defaultPlansLimit
	}
	return s.selectPlans(ctx, repository.Query{
		Order: []repository.Order{{Column: "updated_at", Desc: true}, {Column: "created_at", Desc: true}},
		Limit: limit,
	})
}

func (s *planService) selectPlans(ctx context.Context, q repository.Query) ([]domain.Plan, error) {
	rows, err := s.store.Select(ctx, repository.TablePlans, q)
	if err != nil {
		log.WithError(err).Error("failed to load plans")
		return nil, readError(err, "load plans")
	}
	plans, err := repository.DecodeAll[domain.Plan](rows)
	if err != nil {
		return nil, &StoreError{Message: "Unable to load plans", Err: err}
	}
	return s.hydrator().plans(ctx, plans), nil
}

func (s *planService) GetPlan(ctx context.Context, id string) (*domain.Plan, error) {
	id, err := normalize.ID(id, "plan")
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	var plan domain.Plan
	if err := s.getByID(ctx, repository.TablePlans, id, "Plan", &plan); err != nil {
		return nil, err
	}
	hydrated := s.hydrator().plans(ctx, []domain.Plan{plan})
	return &hydrated[0], nil
}

func (s *planService) GetActivePlan(ctx context.Context) (*domain.Plan, error) {
	plans, err := s.selectPlans(ctx, repository.Query{
		Filters: []repository.Filter{repository.Eq("status", string(domain.PlanActive))},
		Order:   []repository.Order{{Column: "updated_at", Desc: true}},
		Limit:   1,
	})
	if err != nil || len(plans) == 0 {
		return nil, err
	}
	return &plans[0], nil
}

// GetPlanEditor loads the plan and the workout selection list concurrently.
// A failed selection list leaves the form without options.
func (s *planService) GetPlanEditor(ctx context.Context, id string) (*domain.PlanEditor, error) {
	editor := &domain.PlanEditor{Workouts: []domain.WorkoutSummary{}, Periods: domain.Periods}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		plan, err := s.GetPlan(gctx, id)
		if err != nil {
			return err
		}
		editor.Plan = plan
		return nil
	})
	g.Go(func() error {
		options, err := s.workoutOptions(gctx)
		if err != nil {
			log.WithError(err).Warn("failed to load workout options for plan editor")
			return nil
		}
		editor.Workouts = options
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return editor, nil
}

// GetTracker resolves today's schedule cell of the active plan. Without an
// active plan the tracker shows an empty day.
func (s *planService) GetTracker(ctx context.Context) (*domain.Tracker, error) {
	plan, err := s.GetActivePlan(ctx)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	source := plan
	if source == nil {
		source = &domain.Plan{Period: domain.PeriodWeekly}
	}
	week, today := schedule.Today(source, now)

	return &domain.Tracker{
		Plan:      plan,
		WeekIndex: week,
		Today:     today,
		Date:      now,
	}, nil
}
