package payment

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"stregsystem/internal/core/apperror"
	"stregsystem/internal/core/kroner"
	"stregsystem/internal/core/tx"
	"stregsystem/internal/domain/catalog"
	"stregsystem/internal/domain/events"
	"stregsystem/internal/domain/member"
	"stregsystem/internal/domain/order"
	"stregsystem/pkg/logger"
)

// Service runs the payment ledger and mobile-payment reconciliation.
type Service struct {
	payments  Repository
	mobile    MobilePaymentRepository
	members   member.Repository
	signups   member.SignupRepository
	sales     order.Repository
	catalog   catalog.Repository
	txManager tx.Manager
	bus       *events.Bus
	audit     Auditor
	now       func() time.Time
}

// NewService creates a new payment service.
func NewService(
	payments Repository,
	mobile MobilePaymentRepository,
	members member.Repository,
	signups member.SignupRepository,
	sales order.Repository,
	cat catalog.Repository,
	txManager tx.Manager,
	bus *events.Bus,
	audit Auditor,
) *Service {
	return &Service{
		payments:  payments,
		mobile:    mobile,
		members:   members,
		signups:   signups,
		sales:     sales,
		catalog:   cat,
		txManager: txManager,
		bus:       bus,
		audit:     audit,
		now:       time.Now,
	}
}

// RecordPayment credits the member's balance and stores the payment in one
// transaction. The credit happens exactly once per row.
func (s *Service) RecordPayment(ctx context.Context, memberID int64, amount kroner.Oere, notes string) (*Payment, error) {
	p := &Payment{MemberID: memberID, Amount: amount, Notes: notes, Timestamp: s.now()}
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		m, err := s.members.GetForUpdate(ctx, memberID)
		if err != nil {
			return err
		}
		m.MakePayment(amount)
		if err := s.members.UpdateBalance(ctx, m.ID, m.Balance); err != nil {
			return fmt.Errorf("credit member: %w", err)
		}
		return s.payments.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	s.bus.Publish(ctx, events.PaymentRecorded{MemberID: memberID, Amount: amount})
	return p, nil
}

// DeletePayment removes a payment and debits the credit it carried.
func (s *Service) DeletePayment(ctx context.Context, paymentID int64) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.payments.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		m, err := s.members.GetForUpdate(ctx, p.MemberID)
		if err != nil {
			return err
		}
		m.MakePayment(-p.Amount)
		if err := s.members.UpdateBalance(ctx, m.ID, m.Balance); err != nil {
			return fmt.Errorf("debit member: %w", err)
		}
		return s.payments.Delete(ctx, paymentID)
	})
}

// LastPayment returns the member's most recent payment for the info page.
func (s *Service) LastPayment(ctx context.Context, memberID int64) (*Payment, error) {
	return s.payments.GetLastByMember(ctx, memberID)
}

// Ingest stores one fetched Vipps transaction as an Unset mobile payment.
// Duplicate psp references are skipped; the bool result reports whether a
// row was created. The comment has emoji stripped and the member guess is
// a case-insensitive username match.
func (s *Service) Ingest(ctx context.Context, mp *MobilePayment) (bool, error) {
	exists, err := s.mobile.ExistsTransactionID(ctx, mp.TransactionID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	mp.Comment = StripEmoji(mp.Comment)
	mp.Status = StatusUnset
	mp.PaymentID = nil
	if m, err := s.members.GetByUsername(ctx, strings.TrimSpace(mp.Comment)); err == nil {
		mp.MemberID = &m.ID
	}

	if err := s.mobile.Create(ctx, mp); err != nil {
		return false, err
	}
	return true, nil
}

// ImportCSV ingests a semicolon-separated export of mobile-pay
// transactions. It returns the created and skipped-duplicate counts.
// Columns: _;_;amount;timestamp;customer_name;_;comment;transaction_id.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (int, int, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	imported, duplicates := 0, 0
	header := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return imported, duplicates, fmt.Errorf("read csv: %w", err)
		}
		if header {
			header = false
			continue
		}
		if len(row) < 8 {
			return imported, duplicates, apperror.NewValidation("csv row too short")
		}
		amount, err := strconv.ParseInt(strings.ReplaceAll(row[2], ",", ""), 10, 64)
		if err != nil {
			return imported, duplicates, apperror.NewValidation("bad amount in csv").WithDetail("value", row[2])
		}
		ts, err := time.Parse(time.RFC3339, row[3])
		if err != nil {
			return imported, duplicates, apperror.NewValidation("bad timestamp in csv").WithDetail("value", row[3])
		}
		created, err := s.Ingest(ctx, &MobilePayment{
			Amount:        kroner.Oere(amount),
			Timestamp:     ts,
			CustomerName:  row[4],
			Comment:       row[6],
			TransactionID: row[7],
		})
		if err != nil {
			return imported, duplicates, err
		}
		if created {
			imported++
		} else {
			duplicates++
		}
	}
	return imported, duplicates, nil
}

// AutoApprove promotes unprocessed member-filled payments whose trimmed
// comment matches exactly one active member's username byte-for-byte. It
// returns the number of rows promoted.
func (s *Service) AutoApprove(ctx context.Context) (int, error) {
	rows, err := s.mobile.ListUnprocessedMemberFilled(ctx, int64(autoPaymentMinimum))
	if err != nil {
		return 0, err
	}
	approved := 0
	for _, mp := range rows {
		matches, err := s.members.ListActiveByExactUsername(ctx, strings.TrimSpace(mp.Comment))
		if err != nil {
			return approved, err
		}
		if len(matches) != 1 || matches[0].ID != *mp.MemberID {
			continue
		}
		mp.Status = StatusApproved
		if err := s.mobile.Update(ctx, mp); err != nil {
			return approved, err
		}
		approved++
	}
	return approved, nil
}

// CommitApproved turns approved mobile payments into balance credits. Each
// row commits in its own transaction with the member and the row locked; a
// row already holding a payment link is skipped. Returns the number of rows
// committed.
func (s *Service) CommitApproved(ctx context.Context, actor string) (int, error) {
	rows, err := s.mobile.ListApprovedUncommitted(ctx)
	if err != nil {
		return 0, err
	}
	committed := 0
	for _, row := range rows {
		if err := s.commitOne(ctx, row.ID, actor); err != nil {
			logger.Error(ctx, "mobile payment commit failed",
				"mobile_payment_id", row.ID, "transaction_id", row.TransactionID, "error", err)
			continue
		}
		committed++
	}
	return committed, nil
}

func (s *Service) commitOne(ctx context.Context, mobilePaymentID int64, actor string) error {
	var recorded *events.PaymentRecorded
	var completedSignup *member.Member

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		mp, err := s.mobile.GetForUpdate(ctx, mobilePaymentID)
		if err != nil {
			return err
		}
		if mp.Status != StatusApproved || mp.PaymentID != nil || mp.MemberID == nil {
			return nil
		}
		m, err := s.members.GetForUpdate(ctx, *mp.MemberID)
		if err != nil {
			return err
		}

		if !m.SignupDuePaid {
			done, err := s.payDownSignup(ctx, m, mp)
			if err != nil {
				return err
			}
			completedSignup = done
			return nil
		}

		p := &Payment{MemberID: m.ID, Amount: mp.Amount, Timestamp: s.now(), Notes: "mobilepayment"}
		m.MakePayment(mp.Amount)
		if err := s.members.UpdateBalance(ctx, m.ID, m.Balance); err != nil {
			return err
		}
		if err := s.payments.Create(ctx, p); err != nil {
			return err
		}
		mp.PaymentID = &p.ID
		if err := s.mobile.Update(ctx, mp); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, actor, "mobilepayment.commit", map[string]any{
			"transaction_id": mp.TransactionID,
			"member_id":      m.ID,
			"amount":         int64(mp.Amount),
		}); err != nil {
			return err
		}
		recorded = &events.PaymentRecorded{
			MemberID:          m.ID,
			Amount:            mp.Amount,
			MobilePayComment:  mp.Comment,
			FromMobilePayment: true,
		}
		return nil
	})
	if err != nil {
		return err
	}
	if recorded != nil {
		s.bus.Publish(ctx, *recorded)
	}
	if completedSignup != nil {
		s.bus.Publish(ctx, events.SignupCompleted{
			MemberID: completedSignup.ID,
			Username: completedSignup.Username,
		})
	}
	return nil
}

// payDownSignup consumes an approved mobile payment against the member's
// pending signup due. Must run inside the commit transaction with the
// member row locked. Returns the member when the signup completed.
func (s *Service) payDownSignup(ctx context.Context, m *member.Member, mp *MobilePayment) (*member.Member, error) {
	signup, err := s.signups.GetByMember(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	signup, err = s.signups.GetForUpdate(ctx, signup.ID)
	if err != nil {
		return nil, err
	}

	signup.Due -= mp.Amount

	if signup.Due <= 0 {
		// overshoot past the due is credited to the fresh balance
		p := &Payment{MemberID: m.ID, Amount: -signup.Due, Timestamp: s.now(), Notes: "signup"}
		m.MakePayment(p.Amount)
		if err := s.members.UpdateBalance(ctx, m.ID, m.Balance); err != nil {
			return nil, err
		}
		if err := s.payments.Create(ctx, p); err != nil {
			return nil, err
		}
		mp.PaymentID = &p.ID
		if err := s.mobile.Update(ctx, mp); err != nil {
			return nil, err
		}

		m.SignupDuePaid = true
		if err := s.members.Update(ctx, m); err != nil {
			return nil, err
		}
		if mp.Status == StatusApproved {
			if err := s.signups.Delete(ctx, signup.ID); err != nil {
				return nil, err
			}
			return m, nil
		}
		signup.Due = 0
		return nil, s.signups.Update(ctx, signup)
	}

	// due not reached yet: a zero payment preserves the 1-1 payment link
	p := &Payment{MemberID: m.ID, Amount: 0, Timestamp: s.now(), Notes: "signup partial"}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, err
	}
	mp.PaymentID = &p.ID
	if err := s.mobile.Update(ctx, mp); err != nil {
		return nil, err
	}
	return nil, s.signups.Update(ctx, signup)
}

// AutoSignup routes unprocessed signup-comment payments to their pending
// signups by token and approves them. Unknown tokens are logged and left
// untouched. Returns the number of rows processed.
func (s *Service) AutoSignup(ctx context.Context) (int, error) {
	rows, err := s.mobile.ListUnprocessedSignups(ctx)
	if err != nil {
		return 0, err
	}
	processed := 0
	for _, mp := range rows {
		token, _, ok := ScanSignupComment(mp.Comment)
		if !ok {
			continue
		}
		signup, err := s.signups.GetByToken(ctx, token)
		if err != nil {
			if apperror.IsNotFound(err) {
				logger.Warn(ctx, "payment for unknown signup token", "transaction_id", mp.TransactionID)
				continue
			}
			return processed, err
		}
		mp.MemberID = &signup.MemberID
		mp.Status = StatusApproved
		if err := s.mobile.Update(ctx, mp); err != nil {
			return processed, err
		}
		if err := s.commitOne(ctx, mp.ID, "autosignup"); err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}

// ReimburseSale deletes a sale, credits the price back as a payment, and
// returns the unit to the product's inventory.
func (s *Service) ReimburseSale(ctx context.Context, saleID int64, actor string) error {
	var memberID int64
	var amount kroner.Oere
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sale, err := s.sales.GetByID(ctx, saleID)
		if err != nil {
			return err
		}
		m, err := s.members.GetForUpdate(ctx, sale.MemberID)
		if err != nil {
			return err
		}
		p, err := s.catalog.GetProduct(ctx, sale.ProductID)
		if err != nil {
			return err
		}

		if err := s.sales.Delete(ctx, sale.ID); err != nil {
			return err
		}
		m.MakePayment(sale.Price)
		if err := s.members.UpdateBalance(ctx, m.ID, m.Balance); err != nil {
			return err
		}
		pay := &Payment{MemberID: m.ID, Amount: sale.Price, Timestamp: s.now(), Notes: "reimbursement"}
		if err := s.payments.Create(ctx, pay); err != nil {
			return err
		}
		p.Quantity++
		if err := s.catalog.UpdateProduct(ctx, p); err != nil {
			return err
		}
		memberID, amount = m.ID, sale.Price
		return s.audit.Record(ctx, actor, "sale.reimburse", map[string]any{
			"sale_id":    sale.ID,
			"member_id":  m.ID,
			"product_id": sale.ProductID,
			"amount":     int64(sale.Price),
		})
	})
	if err != nil {
		return err
	}
	s.bus.Publish(ctx, events.PaymentRecorded{MemberID: memberID, Amount: amount})
	return nil
}

// ListUnprocessed returns the rows the operator tool displays.
func (s *Service) ListUnprocessed(ctx context.Context) ([]*MobilePayment, error) {
	return s.mobile.ListUnprocessed(ctx)
}
