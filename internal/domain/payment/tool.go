package payment

import (
	"context"

	"stregsystem/internal/core/apperror"
)

// Decision is one row of an operator's payment-tool submission.
type Decision struct {
	MobilePaymentID int64
	// MemberID is the member the operator assigned; required when the
	// status is Approved.
	MemberID *int64
	Status   Status
}

// Change is one state transition the tool will apply.
type Change struct {
	MobilePaymentID int64
	MemberID        *int64
	From, To        Status
}

// ProcessSubmitted validates an operator batch against the current database
// rows. It is pure: no I/O, just the stale-batch precondition and the
// per-row validation. If any submitted row has moved out of Unset since the
// operator loaded the form, the whole batch fails with a conflict error
// listing the transaction ids that moved.
func ProcessSubmitted(decisions []Decision, current map[int64]*MobilePayment) ([]Change, error) {
	var stale []string
	for _, d := range decisions {
		row, ok := current[d.MobilePaymentID]
		if !ok {
			return nil, apperror.NewNotFound("mobile payment", d.MobilePaymentID)
		}
		if row.Status != StatusUnset || row.PaymentID != nil {
			stale = append(stale, row.TransactionID)
		}
	}
	if len(stale) > 0 {
		return nil, apperror.NewPaymentToolRace(stale)
	}

	changes := make([]Change, 0, len(decisions))
	for _, d := range decisions {
		if !d.Status.Final() {
			continue // untouched row, operator left it Unset
		}
		if d.Status == StatusApproved && d.MemberID == nil {
			return nil, apperror.NewValidation("approved row needs a member").
				WithDetail("mobile_payment_id", d.MobilePaymentID)
		}
		row := current[d.MobilePaymentID]
		memberID := d.MemberID
		if memberID == nil {
			memberID = row.MemberID
		}
		changes = append(changes, Change{
			MobilePaymentID: d.MobilePaymentID,
			MemberID:        memberID,
			From:            row.Status,
			To:              d.Status,
		})
	}
	return changes, nil
}

// ApplySubmitted runs an operator batch: the stale check and the status
// transitions happen in one transaction, then approved rows are committed.
func (s *Service) ApplySubmitted(ctx context.Context, decisions []Decision, actor string) (int, error) {
	var changes []Change
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current := make(map[int64]*MobilePayment, len(decisions))
		for _, d := range decisions {
			row, err := s.mobile.GetForUpdate(ctx, d.MobilePaymentID)
			if err != nil {
				return err
			}
			current[d.MobilePaymentID] = row
		}

		var err error
		changes, err = ProcessSubmitted(decisions, current)
		if err != nil {
			return err
		}

		for _, c := range changes {
			row := current[c.MobilePaymentID]
			row.Status = c.To
			row.MemberID = c.MemberID
			if err := s.mobile.Update(ctx, row); err != nil {
				return err
			}
			if err := s.audit.Record(ctx, actor, "mobilepayment.decide", map[string]any{
				"transaction_id": row.TransactionID,
				"status":         string(c.To),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, c := range changes {
		if c.To != StatusApproved {
			applied++
			continue
		}
		if err := s.commitOne(ctx, c.MobilePaymentID, actor); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}
