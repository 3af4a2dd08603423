package achievement

import (
	"time"
)

// SaleQuery is an explicit, enumerable description of one task's sale
// filter. The engine composes the value; the storage layer translates it to
// SQL. Keeping it a plain value makes the pipeline testable without a
// database.
type SaleQuery struct {
	MemberID int64
	// After bounds the window; nil means all-time.
	After *time.Time
	// ProductID / CategoryID narrow to a task's target.
	ProductID  *int64
	CategoryID *int64
	// Constraints re-apply the achievement's calendar filters to each
	// historical sale, not just to now.
	Constraints []Constraint
}

// TaskQuery builds the filter for one task of an achievement at now.
func TaskQuery(memberID int64, a *Achievement, t *Task, now time.Time) SaleQuery {
	q := SaleQuery{
		MemberID:    memberID,
		After:       a.WindowStart(now),
		Constraints: a.Constraints,
	}
	switch t.TaskType {
	case TaskProduct:
		q.ProductID = t.ProductID
	case TaskCategory:
		q.CategoryID = t.CategoryID
	}
	return q
}

// MatchesSale evaluates the query against an in-memory sale row. The
// storage layer must agree with this reference semantics.
func (q SaleQuery) MatchesSale(ts time.Time, productID int64, categoryIDs []int64) bool {
	if q.After != nil && ts.Before(*q.After) {
		return false
	}
	if q.ProductID != nil && productID != *q.ProductID {
		return false
	}
	if q.CategoryID != nil {
		found := false
		for _, id := range categoryIDs {
			if id == *q.CategoryID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for i := range q.Constraints {
		if !q.Constraints[i].SatisfiedAt(ts) {
			return false
		}
	}
	return true
}
