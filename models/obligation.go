package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/shopspring/decimal"
)

// Obligation is an open receivable or payable awaiting settlement, created
// by the invoicing subsystem. SettledAmount accumulates applied settlements;
// the obligation closes only when the running total covers TotalAmount, so a
// partial payment leaves it Open with the remainder still matchable.
type Obligation struct {
	ID                int                 `gorm:"primary_key" json:"id"`
	BusinessId        string              `gorm:"index;not null;index:idx_ob_biz_status,priority:1" json:"business_id" binding:"required"`
	DueDate           time.Time           `gorm:"index;not null" json:"due_date" binding:"required"`
	Description       string              `gorm:"type:text" json:"description"`
	CounterpartyTaxId string              `gorm:"size:20;index" json:"counterparty_tax_id"`
	TotalAmount       decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	SettledAmount     decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"settled_amount"`
	Direction         ObligationDirection `gorm:"type:enum('Receivable','Payable');not null" json:"direction"`
	Status            ObligationStatus    `gorm:"type:enum('Open','Settled');default:'Open';index:idx_ob_biz_status,priority:2" json:"status"`
	CreatedAt         time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

// RemainingAmount is the still-unsettled magnitude used for matching.
func (o *Obligation) RemainingAmount() decimal.Decimal {
	remaining := o.TotalAmount.Sub(o.SettledAmount)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// ApplySettlement records a settlement amount against the obligation and
// flips it to Settled once the running total reaches the full amount.
func (o *Obligation) ApplySettlement(amount decimal.Decimal) {
	o.SettledAmount = o.SettledAmount.Add(amount)
	if o.SettledAmount.GreaterThanOrEqual(o.TotalAmount) {
		o.Status = ObligationStatusSettled
	}
}

func GetOpenObligations(ctx context.Context, businessId string) ([]*Obligation, error) {
	db := config.GetDB()
	var obligations []*Obligation
	err := db.WithContext(ctx).
		Where("business_id = ?", businessId).
		Where("status = ?", ObligationStatusOpen).
		Order("due_date").
		Find(&obligations).Error
	if err != nil {
		return nil, err
	}
	return obligations, nil
}
