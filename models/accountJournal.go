package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccountJournal is an immutable double-entry record. Posted journals are
// never updated or deleted; a correction is a new reversal journal inserted
// by the accounting subsystem.
type AccountJournal struct {
	ID                  int                  `gorm:"primary_key" json:"id"`
	BusinessId          string               `gorm:"index;not null;index:idx_aj_biz_date,priority:1" json:"business_id"`
	TransactionDateTime time.Time            `gorm:"index;not null;index:idx_aj_biz_date,priority:2" json:"transaction_date_time"`
	TransactionNumber   string               `gorm:"size:255" json:"transaction_number"`
	TransactionDetails  string               `gorm:"type:text" json:"transaction_details"`
	ReferenceNumber     string               `gorm:"size:255" json:"reference_number"`
	ReferenceId         int                  `gorm:"index" json:"reference_id"`
	ReferenceType       AccountReferenceType `gorm:"type:enum('JN','RC')" json:"reference_type"`
	CounterpartyTaxId   string               `gorm:"size:20;index" json:"counterparty_tax_id"`
	AccountTransactions []AccountTransaction `gorm:"foreignKey:JournalId" json:"account_transactions"`
	CreatedAt           time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

// AccountTransaction is one debit or credit line of a journal.
// At most one of BaseDebit/BaseCredit is nonzero; both are >= 0.
type AccountTransaction struct {
	ID                  int             `gorm:"primary_key" json:"id"`
	BusinessId          string          `gorm:"index" json:"business_id"`
	JournalId           int             `gorm:"index;not null" json:"journal_id"`
	AccountId           int             `gorm:"index;not null" json:"account_id"`
	TransactionDateTime time.Time       `gorm:"index;not null" json:"transaction_date_time"`
	Description         string          `gorm:"size:255" json:"description"`
	BaseCurrencyId      int             `gorm:"index" json:"base_currency_id"`
	BaseDebit           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"base_debit"`
	BaseCredit          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"base_credit"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Ledger immutability guardrails:
// - account_transactions are append-only (no updates/deletes).
// - account_journals must never be updated or deleted.

func (t *AccountTransaction) BeforeUpdate(tx *gorm.DB) error {
	return errors.New("immutable ledger: account_transactions cannot be updated")
}

func (t *AccountTransaction) BeforeDelete(tx *gorm.DB) error {
	return errors.New("immutable ledger: account_transactions cannot be deleted")
}

func (j *AccountJournal) BeforeUpdate(tx *gorm.DB) error {
	return errors.New("immutable ledger: account_journals cannot be updated")
}

func (j *AccountJournal) BeforeDelete(tx *gorm.DB) error {
	return errors.New("immutable ledger: account_journals cannot be deleted")
}

// ValidateJournalBalance enforces the double-entry invariant over a set of
// lines: every line carries at most one nonzero side, both sides >= 0, and
// total debit equals total credit at full precision.
func ValidateJournalBalance(lines []AccountTransaction) error {
	if len(lines) == 0 {
		return errors.New("journal requires at least one line")
	}
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, line := range lines {
		if line.BaseDebit.IsNegative() || line.BaseCredit.IsNegative() {
			return errors.New("journal line amounts cannot be negative")
		}
		if line.BaseDebit.IsPositive() && line.BaseCredit.IsPositive() {
			return errors.New("journal line cannot carry both a debit and a credit")
		}
		totalDebit = totalDebit.Add(line.BaseDebit)
		totalCredit = totalCredit.Add(line.BaseCredit)
	}
	if !totalDebit.Equal(totalCredit) {
		return &utils.BalanceError{DebitTotal: totalDebit, CreditTotal: totalCredit}
	}
	return nil
}

// CreateAccountJournal validates the double-entry invariant and persists the
// journal with its lines. Called for every journal, including settlement
// journals synthesized during reconciliation.
func CreateAccountJournal(tx *gorm.DB, ctx context.Context, journal *AccountJournal) error {
	if err := ValidateJournalBalance(journal.AccountTransactions); err != nil {
		return err
	}
	return tx.WithContext(ctx).Create(journal).Error
}

// JournalMagnitude is the monetary size of a journal for matching purposes:
// the debit total when nonzero, otherwise the credit total.
func JournalMagnitude(journal *AccountJournal) decimal.Decimal {
	debit := decimal.Zero
	credit := decimal.Zero
	for _, line := range journal.AccountTransactions {
		debit = debit.Add(line.BaseDebit)
		credit = credit.Add(line.BaseCredit)
	}
	if !debit.IsZero() {
		return debit
	}
	return credit
}

// GetUnlinkedJournals returns the tenant's journals not yet linked by any
// reconciled statement line; these are the direct-entry match candidates.
func GetUnlinkedJournals(ctx context.Context, businessId string) ([]*AccountJournal, error) {
	db := config.GetDB()
	var journals []*AccountJournal

	linked := db.Model(&BankStatementLine{}).
		Select("reconciled_journal_id").
		Where("business_id = ?", businessId).
		Where("status = ?", ReconciliationStatusReconciled).
		Where("reconciled_journal_id IS NOT NULL")

	err := db.WithContext(ctx).
		Preload("AccountTransactions").
		Where("business_id = ?", businessId).
		Where("id NOT IN (?)", linked).
		Find(&journals).Error
	if err != nil {
		return nil, err
	}
	return journals, nil
}
