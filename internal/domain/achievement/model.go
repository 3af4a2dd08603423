// Package achievement implements the data-driven achievement evaluator
// that runs after every committed sale.
package achievement

import (
	"context"
	"fmt"
	"time"

	"stregsystem/internal/core/apperror"
)

// TaskType selects the predicate an achievement task is checked with.
type TaskType string

const (
	TaskProduct         TaskType = "product"
	TaskCategory        TaskType = "category"
	TaskAnyPurchase     TaskType = "any_purchase"
	TaskAlcoholContent  TaskType = "alcohol_content"
	TaskCaffeineContent TaskType = "caffeine_content"
	TaskUsedFunds       TaskType = "used_funds"
	TaskRemainingFunds  TaskType = "remaining_funds"
)

// TimeOfDay is a wall-clock instant within a day.
type TimeOfDay struct {
	Hour   int `db:"-" json:"hour"`
	Minute int `db:"-" json:"minute"`
}

func (t TimeOfDay) minutes() int { return t.Hour*60 + t.Minute }

// Constraint narrows when an achievement is active and which sales count
// toward it. Each start/end pair is either fully set or fully null.
// Weekday uses 0=Monday through 6=Sunday.
type Constraint struct {
	ID            int64      `db:"id" json:"id"`
	AchievementID int64      `db:"achievement_id" json:"achievementId"`
	MonthStart    *int       `db:"month_start" json:"monthStart,omitempty"`
	MonthEnd      *int       `db:"month_end" json:"monthEnd,omitempty"`
	DayStart      *int       `db:"day_start" json:"dayStart,omitempty"`
	DayEnd        *int       `db:"day_end" json:"dayEnd,omitempty"`
	TimeStart     *TimeOfDay `db:"time_start" json:"timeStart,omitempty"`
	TimeEnd       *TimeOfDay `db:"time_end" json:"timeEnd,omitempty"`
	Weekday       *int       `db:"weekday" json:"weekday,omitempty"`
}

// Validate checks the pairing and ordering rules. The time range is the
// one pair allowed to wrap midnight.
func (c *Constraint) Validate(ctx context.Context) error {
	pairs := []struct {
		name       string
		start, end bool
	}{
		{"month", c.MonthStart != nil, c.MonthEnd != nil},
		{"day", c.DayStart != nil, c.DayEnd != nil},
		{"time", c.TimeStart != nil, c.TimeEnd != nil},
	}
	for _, p := range pairs {
		if p.start != p.end {
			return apperror.NewValidation("constraint range needs both endpoints").
				WithDetail("range", p.name)
		}
	}
	if c.MonthStart != nil && *c.MonthStart > *c.MonthEnd {
		return apperror.NewValidation("month range is inverted")
	}
	if c.DayStart != nil && *c.DayStart > *c.DayEnd {
		return apperror.NewValidation("day range is inverted")
	}
	if c.Weekday != nil && (*c.Weekday < 0 || *c.Weekday > 6) {
		return apperror.NewValidation("weekday out of range").WithDetail("value", *c.Weekday)
	}
	return nil
}

// mondayWeekday maps Go's Sunday-based weekday to 0=Monday..6=Sunday.
func mondayWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// SatisfiedAt reports whether now falls inside every non-null range.
func (c *Constraint) SatisfiedAt(now time.Time) bool {
	if c.MonthStart != nil {
		m := int(now.Month())
		if m < *c.MonthStart || m > *c.MonthEnd {
			return false
		}
	}
	if c.DayStart != nil {
		d := now.Day()
		if d < *c.DayStart || d > *c.DayEnd {
			return false
		}
	}
	if c.TimeStart != nil {
		cur := now.Hour()*60 + now.Minute()
		start, end := c.TimeStart.minutes(), c.TimeEnd.minutes()
		if start <= end {
			if cur < start || cur > end {
				return false
			}
		} else {
			// wraps midnight
			if cur < start && cur > end {
				return false
			}
		}
	}
	if c.Weekday != nil && mondayWeekday(now) != *c.Weekday {
		return false
	}
	return true
}

// Task is one goal of an achievement.
type Task struct {
	ID            int64    `db:"id" json:"id"`
	AchievementID int64    `db:"achievement_id" json:"achievementId"`
	TaskType      TaskType `db:"task_type" json:"taskType"`
	ProductID     *int64   `db:"product_id" json:"productId,omitempty"`
	CategoryID    *int64   `db:"category_id" json:"categoryId,omitempty"`
	GoalValue     int64    `db:"goal_value" json:"goalValue"`
}

// Validate checks the type-specific reference rules.
func (t *Task) Validate(ctx context.Context) error {
	if t.GoalValue <= 0 {
		return apperror.NewValidation("goal value must be positive")
	}
	if (t.TaskType == TaskProduct) != (t.ProductID != nil) {
		return apperror.NewValidation("product reference required iff task type is product")
	}
	if (t.TaskType == TaskCategory) != (t.CategoryID != nil) {
		return apperror.NewValidation("category reference required iff task type is category")
	}
	switch t.TaskType {
	case TaskProduct, TaskCategory, TaskAnyPurchase, TaskAlcoholContent,
		TaskCaffeineContent, TaskUsedFunds, TaskRemainingFunds:
		return nil
	default:
		return apperror.NewValidation(fmt.Sprintf("unknown task type %q", t.TaskType))
	}
}

// Purchase describes the just-committed sale for the relevance filter.
type Purchase struct {
	ProductIDs  []int64
	CategoryIDs []int64
	HasAlcohol  bool
	HasCaffeine bool
}

// RelevantTo reports whether the just-purchased products can move this
// task. Funds- and purchase-counting tasks are always relevant.
func (t *Task) RelevantTo(p Purchase) bool {
	switch t.TaskType {
	case TaskProduct:
		for _, id := range p.ProductIDs {
			if id == *t.ProductID {
				return true
			}
		}
		return false
	case TaskCategory:
		for _, id := range p.CategoryIDs {
			if id == *t.CategoryID {
				return true
			}
		}
		return false
	case TaskAlcoholContent:
		return p.HasAlcohol
	case TaskCaffeineContent:
		return p.HasCaffeine
	default:
		return true
	}
}

// Achievement is a declarative badge definition. ActiveFrom and
// ActiveDuration are mutually exclusive: the former opens a fixed window,
// the latter a sliding one; both absent means all-time.
type Achievement struct {
	ID             int64          `db:"id" json:"id"`
	Title          string         `db:"title" json:"title"`
	Description    string         `db:"description" json:"description"`
	Icon           string         `db:"icon" json:"icon"`
	ActiveFrom     *time.Time     `db:"active_from" json:"activeFrom,omitempty"`
	ActiveDuration *time.Duration `db:"active_duration" json:"activeDuration,omitempty"`

	Constraints []Constraint `db:"-" json:"constraints,omitempty"`
	Tasks       []Task       `db:"-" json:"tasks"`
}

// Validate checks the structural invariants.
func (a *Achievement) Validate(ctx context.Context) error {
	if a.Title == "" {
		return apperror.NewValidation("achievement title is required")
	}
	if a.ActiveFrom != nil && a.ActiveDuration != nil {
		return apperror.NewValidation("active_from and active_duration are mutually exclusive")
	}
	if len(a.Tasks) == 0 {
		return apperror.NewValidation("achievement needs at least one task")
	}
	for i := range a.Constraints {
		if err := a.Constraints[i].Validate(ctx); err != nil {
			return err
		}
	}
	for i := range a.Tasks {
		if err := a.Tasks[i].Validate(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ActiveAt reports whether every attached constraint is satisfied at now
// and, for a fixed window, whether the window has opened.
func (a *Achievement) ActiveAt(now time.Time) bool {
	if a.ActiveFrom != nil && now.Before(*a.ActiveFrom) {
		return false
	}
	for i := range a.Constraints {
		if !a.Constraints[i].SatisfiedAt(now) {
			return false
		}
	}
	return true
}

// WindowStart returns the start of the sale window evaluated for this
// achievement, or nil for all-time.
func (a *Achievement) WindowStart(now time.Time) *time.Time {
	switch {
	case a.ActiveDuration != nil:
		t := now.Add(-*a.ActiveDuration)
		return &t
	case a.ActiveFrom != nil:
		t := *a.ActiveFrom
		return &t
	default:
		return nil
	}
}

// RelevantTo reports whether at least one task can move on this purchase.
func (a *Achievement) RelevantTo(p Purchase) bool {
	for i := range a.Tasks {
		if a.Tasks[i].RelevantTo(p) {
			return true
		}
	}
	return false
}

// Completion marks an achievement earned by a member. The (member,
// achievement) pair is unique.
type Completion struct {
	ID            int64     `db:"id" json:"id"`
	MemberID      int64     `db:"member_id" json:"memberId"`
	AchievementID int64     `db:"achievement_id" json:"achievementId"`
	CompletedAt   time.Time `db:"completed_at" json:"completedAt"`
}
