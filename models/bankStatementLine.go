package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/shopspring/decimal"
)

// BankStatementLine is one externally observed cash movement from a bank
// statement, already normalized by the ingestion collaborator. Positive
// amounts are inflows, negative amounts outflows. Lines are never deleted;
// reconciliation only moves them between Unreconciled and Reconciled.
type BankStatementLine struct {
	ID                  int                  `gorm:"primary_key" json:"id"`
	BusinessId          string               `gorm:"index;not null;index:idx_bsl_biz_status,priority:1" json:"business_id" binding:"required"`
	TransactionDate     time.Time            `gorm:"index;not null" json:"transaction_date" binding:"required"`
	Description         string               `gorm:"type:text" json:"description"`
	Amount              decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"amount"`
	ReferenceNumber     string               `gorm:"size:255" json:"reference_number"`
	Status              ReconciliationStatus `gorm:"type:enum('Unreconciled','Reconciled');default:'Unreconciled';index:idx_bsl_biz_status,priority:2" json:"status"`
	ReconciledJournalId *int                 `gorm:"index" json:"reconciled_journal_id"`
	CreatedAt           time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewBankStatementLine is the normalized record shape the ingestion
// collaborator hands over; parsing of statement files is entirely its
// responsibility.
type NewBankStatementLine struct {
	TransactionDate time.Time       `json:"transaction_date" binding:"required"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	ReferenceNumber string          `json:"reference_number"`
}

func CreateBankStatementLine(ctx context.Context, businessId string, input *NewBankStatementLine) (*BankStatementLine, error) {
	db := config.GetDB()
	line := BankStatementLine{
		BusinessId:      businessId,
		TransactionDate: input.TransactionDate,
		Description:     input.Description,
		Amount:          input.Amount,
		ReferenceNumber: input.ReferenceNumber,
		Status:          ReconciliationStatusUnreconciled,
	}
	if err := db.WithContext(ctx).Create(&line).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

func GetUnreconciledLines(ctx context.Context, businessId string) ([]*BankStatementLine, error) {
	db := config.GetDB()
	var lines []*BankStatementLine
	err := db.WithContext(ctx).
		Where("business_id = ?", businessId).
		Where("status = ?", ReconciliationStatusUnreconciled).
		Order("transaction_date").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}
