package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/khabaznak/gym-tracker/internal/domain"
)

var dayNames = [DaysPerWeek]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
var dayKeys = [DaysPerWeek]string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// DayName maps 1..7 to Monday..Sunday.
func DayName(day int) string {
	if day >= 1 && day <= DaysPerWeek {
		return dayNames[day-1]
	}
	return fmt.Sprintf("Day %d", day)
}

func dayKey(day int) string {
	if day >= 1 && day <= DaysPerWeek {
		return dayKeys[day-1]
	}
	return fmt.Sprintf("day-%d", day)
}

// DayHeaders returns the seven weekday labels, Monday first.
func DayHeaders() []domain.DayHeader {
	headers := make([]domain.DayHeader, DaysPerWeek)
	for i := range headers {
		headers[i] = domain.DayHeader{Key: dayKeys[i], Label: dayNames[i]}
	}
	return headers
}

// Build lays assignments out on a full MaxWeeks(period) x 7 grid. Empty days
// are emitted with no workouts. Build does not modify its input.
func Build(assignments []domain.PlanAssignment, period domain.Period) domain.Schedule {
	maxWeeks := MaxWeeks(period)

	type entry struct {
		rank int
		a    domain.PlanAssignment
	}
	buckets := make(map[[2]int][]entry)
	for i, a := range assignments {
		if a.DayOfWeek < 1 || a.DayOfWeek > DaysPerWeek {
			continue
		}
		key := [2]int{clamp(a.WeekIndex, 1, maxWeeks), a.DayOfWeek}
		buckets[key] = append(buckets[key], entry{rank: i, a: a})
	}

	sched := domain.Schedule{
		Weeks:      make([]domain.Week, 0, maxWeeks),
		DayHeaders: DayHeaders(),
	}
	for week := 1; week <= maxWeeks; week++ {
		w := domain.Week{Number: week, Days: make([]domain.Day, 0, DaysPerWeek)}
		for day := 1; day <= DaysPerWeek; day++ {
			bucket := buckets[[2]int{week, day}]
			sort.SliceStable(bucket, func(i, j int) bool {
				pi, pj := bucket[i].a.Position, bucket[j].a.Position
				switch {
				case pi == nil && pj == nil:
					return bucket[i].rank < bucket[j].rank
				case pi == nil:
					return false
				case pj == nil:
					return true
				default:
					return *pi < *pj
				}
			})

			workouts := make([]domain.ScheduledWorkout, 0, len(bucket))
			for i, e := range bucket {
				position := i + 1
				if e.a.Position != nil {
					position = *e.a.Position
				}
				workouts = append(workouts, domain.ScheduledWorkout{
					ID:       e.a.WorkoutID,
					Name:     workoutName(e.a),
					Position: position,
				})
			}

			if len(workouts) > 0 {
				w.HasWorkouts = true
				sched.HasWorkouts = true
			}
			w.Days = append(w.Days, domain.Day{
				DayIndex: day,
				DayKey:   dayKey(day),
				DayName:  DayName(day),
				Workouts: workouts,
			})
		}
		sched.Weeks = append(sched.Weeks, w)
	}
	return sched
}

func workoutName(a domain.PlanAssignment) string {
	if a.Workout != nil && a.Workout.Name != "" {
		return a.Workout.Name
	}
	if a.WorkoutID != "" {
		return "Workout " + a.WorkoutID
	}
	return "Workout"
}

// Today picks the schedule cell for now. The cycle week is the ISO week
// number modulo the plan's cycle length; weekdays run Monday=1..Sunday=7.
func Today(plan *domain.Plan, now time.Time) (int, domain.Day) {
	maxWeeks := MaxWeeks(plan.Period)
	_, isoWeek := now.ISOWeek()
	week := (isoWeek-1)%maxWeeks + 1

	day := int(now.Weekday())
	if day == 0 {
		day = DaysPerWeek
	}

	sched := plan.Schedule
	if sched == nil {
		built := Build(plan.Assignments, plan.Period)
		sched = &built
	}
	for _, w := range sched.Weeks {
		if w.Number != week {
			continue
		}
		for _, d := range w.Days {
			if d.DayIndex == day {
				return week, d
			}
		}
	}
	return week, domain.Day{DayIndex: day, DayKey: dayKey(day), DayName: DayName(day), Workouts: []domain.ScheduledWorkout{}}
}
