package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommitReconciliation applies an accepted or manually chosen match as one
// atomic unit of work: the line's state transition and, in settlement mode,
// the synthesized journal plus the obligation update, all succeed or none
// do. Returns the id of the newly created journal in settlement mode, 0 in
// direct-entry mode.
//
// Concurrency: commits against the same business are serialized with a
// best-effort redis lock plus a MySQL advisory lock on the posting
// connection; the line's precondition is re-checked inside the transaction
// on a row locked FOR UPDATE, so a losing concurrent commit fails with a
// StateConflictError instead of double-posting.
func CommitReconciliation(ctx context.Context, businessId string, lineId int, targetId int, targetKind models.ReconcileTargetKind) (int, error) {
	logger := config.GetLogger()
	db := config.GetDB()

	release, err := utils.BusinessLock(ctx, businessId, "reconcile", "reconciliationCommit.go", "CommitReconciliation")
	if err != nil {
		return 0, err
	}
	defer release()

	var newJournalId int
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := AcquireBusinessPostingLock(tx, businessId); err != nil {
			return err
		}
		defer ReleaseBusinessPostingLock(tx, businessId)

		line, err := lockStatementLine(tx, ctx, businessId, lineId)
		if err != nil {
			return err
		}
		if line.Status != models.ReconciliationStatusUnreconciled {
			return &utils.StateConflictError{
				Resource: "bank statement line",
				Id:       line.ID,
				Expected: string(models.ReconciliationStatusUnreconciled),
				Actual:   string(line.Status),
			}
		}

		var journalId int
		switch targetKind {
		case models.ReconcileTargetKindJournal:
			if err := utils.ValidateResourceId[models.AccountJournal](ctx, businessId, targetId); err != nil {
				return err
			}
			journalId = targetId
		case models.ReconcileTargetKindObligation:
			journalId, err = settleObligation(tx, ctx, businessId, line, targetId)
			if err != nil {
				return err
			}
			newJournalId = journalId
		default:
			return fmt.Errorf("unknown target kind %q", targetKind)
		}

		return tx.WithContext(ctx).Model(&models.BankStatementLine{}).
			Where("id = ? AND business_id = ?", line.ID, businessId).
			Updates(map[string]interface{}{
				"status":                models.ReconciliationStatusReconciled,
				"reconciled_journal_id": journalId,
			}).Error
	})
	if err != nil {
		config.LogError(logger, "reconciliationCommit.go", "CommitReconciliation", "Transaction", lineId, err)
		return 0, err
	}

	InvalidateSuggestionCache(businessId)
	return newJournalId, nil
}

// UndoReconciliation detaches a reconciled line so it can be re-matched.
// It does NOT reverse a synthesized settlement journal or reopen the
// settled obligation; reversing downstream records is a separate explicit
// capability of the accounting subsystem.
func UndoReconciliation(ctx context.Context, businessId string, lineId int) error {
	logger := config.GetLogger()
	db := config.GetDB()

	err := db.Transaction(func(tx *gorm.DB) error {
		line, err := lockStatementLine(tx, ctx, businessId, lineId)
		if err != nil {
			return err
		}
		if line.Status != models.ReconciliationStatusReconciled {
			return &utils.StateConflictError{
				Resource: "bank statement line",
				Id:       line.ID,
				Expected: string(models.ReconciliationStatusReconciled),
				Actual:   string(line.Status),
			}
		}

		return tx.WithContext(ctx).Model(&models.BankStatementLine{}).
			Where("id = ? AND business_id = ?", line.ID, businessId).
			Updates(map[string]interface{}{
				"status":                models.ReconciliationStatusUnreconciled,
				"reconciled_journal_id": nil,
			}).Error
	})
	if err != nil {
		config.LogError(logger, "reconciliationCommit.go", "UndoReconciliation", "Transaction", lineId, err)
		return err
	}

	InvalidateSuggestionCache(businessId)
	return nil
}

func lockStatementLine(tx *gorm.DB, ctx context.Context, businessId string, lineId int) (*models.BankStatementLine, error) {
	var line models.BankStatementLine
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND business_id = ?", lineId, businessId).
		First(&line).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &line, nil
}

// settleObligation synthesizes the balanced settlement journal for the cash
// movement, applies the amount to the obligation's settled-to-date total and
// returns the new journal id. The obligation closes only when cumulative
// settlements reach its full amount.
func settleObligation(tx *gorm.DB, ctx context.Context, businessId string, line *models.BankStatementLine, obligationId int) (int, error) {
	var obligation models.Obligation
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND business_id = ?", obligationId, businessId).
		First(&obligation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, utils.ErrorRecordNotFound
		}
		return 0, err
	}
	if obligation.Status != models.ObligationStatusOpen {
		return 0, &utils.StateConflictError{
			Resource: "obligation",
			Id:       obligation.ID,
			Expected: string(models.ObligationStatusOpen),
			Actual:   string(obligation.Status),
		}
	}

	business, err := models.GetBusinessById(ctx, businessId)
	if err != nil {
		return 0, err
	}
	systemAccounts, err := models.GetSystemAccounts(ctx, businessId)
	if err != nil {
		return 0, err
	}

	amount := line.Amount.Abs()
	lines, err := BuildSettlementLines(obligation.Direction, amount, systemAccounts)
	if err != nil {
		return 0, err
	}
	for i := range lines {
		lines[i].BusinessId = businessId
		lines[i].TransactionDateTime = line.TransactionDate
		lines[i].BaseCurrencyId = business.BaseCurrencyId
		lines[i].Description = line.Description
	}

	journal := models.AccountJournal{
		BusinessId:          businessId,
		TransactionDateTime: line.TransactionDate,
		TransactionNumber:   fmt.Sprintf("RC-%.8s", uuid.NewString()),
		TransactionDetails:  fmt.Sprintf("Reconciliation: %s", line.Description),
		ReferenceNumber:     line.ReferenceNumber,
		ReferenceId:         obligation.ID,
		ReferenceType:       models.AccountReferenceTypeReconciliation,
		CounterpartyTaxId:   obligation.CounterpartyTaxId,
		AccountTransactions: lines,
	}
	if err := models.CreateAccountJournal(tx, ctx, &journal); err != nil {
		return 0, err
	}

	obligation.ApplySettlement(amount)
	err = tx.WithContext(ctx).Model(&models.Obligation{}).
		Where("id = ? AND business_id = ?", obligation.ID, businessId).
		Updates(map[string]interface{}{
			"settled_amount": obligation.SettledAmount,
			"status":         obligation.Status,
		}).Error
	if err != nil {
		return 0, err
	}

	return journal.ID, nil
}

// BuildSettlementLines assembles the two balanced lines of a settlement
// journal: a receivable collects into the bank (debit bank, credit AR);
// a payable pays out of it (debit AP, credit bank).
func BuildSettlementLines(direction models.ObligationDirection, amount decimal.Decimal, systemAccounts map[string]int) ([]models.AccountTransaction, error) {
	bankId, ok := systemAccounts[models.AccountCodeBank]
	if !ok {
		return nil, errors.New("missing system default bank account")
	}

	switch direction {
	case models.ObligationDirectionReceivable:
		arId, ok := systemAccounts[models.AccountCodeAccountsReceivable]
		if !ok {
			return nil, errors.New("missing system default accounts receivable account")
		}
		return []models.AccountTransaction{
			{AccountId: bankId, BaseDebit: amount, BaseCredit: decimal.Zero},
			{AccountId: arId, BaseDebit: decimal.Zero, BaseCredit: amount},
		}, nil
	case models.ObligationDirectionPayable:
		apId, ok := systemAccounts[models.AccountCodeAccountsPayable]
		if !ok {
			return nil, errors.New("missing system default accounts payable account")
		}
		return []models.AccountTransaction{
			{AccountId: apId, BaseDebit: amount, BaseCredit: decimal.Zero},
			{AccountId: bankId, BaseDebit: decimal.Zero, BaseCredit: amount},
		}, nil
	}
	return nil, fmt.Errorf("unknown obligation direction %q", direction)
}
