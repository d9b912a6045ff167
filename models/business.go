package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/utils"
)

type Business struct {
	ID             uuid.UUID `gorm:"primary_key" json:"id"`
	Name           string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Email          string    `gorm:"size:255" json:"email"`
	Country        string    `gorm:"size:100" json:"country"`
	TaxId          string    `gorm:"size:100" json:"tax_id"`
	BaseCurrencyId int       `json:"base_currency_id"`
	IsActive       *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBusiness struct {
	Name           string `json:"name" binding:"required"`
	Email          string `json:"email" binding:"required"`
	Country        string `json:"country"`
	TaxId          string `json:"tax_id"`
	BaseCurrencyId int    `json:"base_currency_id"`
}

// CreateBusiness registers a tenant and seeds its system default accounts.
func CreateBusiness(ctx context.Context, input *NewBusiness) (*Business, error) {
	db := config.GetDB()

	business := Business{
		ID:             uuid.New(),
		Name:           input.Name,
		Email:          input.Email,
		Country:        input.Country,
		TaxId:          input.TaxId,
		BaseCurrencyId: input.BaseCurrencyId,
		IsActive:       utils.NewTrue(),
	}

	tx := db.WithContext(ctx).Begin()
	if err := tx.Create(&business).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := createDefaultAccounts(tx, business.ID.String(), business.BaseCurrencyId); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &business, nil
}

func GetBusinessById(ctx context.Context, businessId string) (*Business, error) {
	db := config.GetDB()
	businessUuid, err := uuid.Parse(businessId)
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	var business Business
	if err := db.WithContext(ctx).Where("id = ?", businessUuid).First(&business).Error; err != nil {
		return nil, err
	}
	return &business, nil
}
