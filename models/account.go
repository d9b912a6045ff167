package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/utils"
	"gorm.io/gorm"
)

type Account struct {
	ID                int             `gorm:"primary_key" json:"id"`
	BusinessId        string          `gorm:"index;not null" json:"business_id"`
	MainType          AccountMainType `gorm:"type:enum('Asset','Liability','Equity','Income','Expense');default:'Expense';index;size:10;not null" json:"main_type" binding:"required"`
	Name              string          `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Code              string          `gorm:"size:100" json:"code"`
	Description       string          `gorm:"type:text" json:"description"`
	IsActive          *bool           `gorm:"not null;default:true" json:"is_active"`
	IsSystemDefault   *bool           `gorm:"not null;default:false" json:"is_system_default"`
	SystemDefaultCode string          `gorm:"index;size:3" json:"system_default_code"`
	CurrencyId        int             `gorm:"index" json:"currency_id"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type defaultAccount struct {
	MainType          AccountMainType
	Name              string
	SystemDefaultCode string
}

func defaultChartOfAccounts() []defaultAccount {
	return []defaultAccount{
		{AccountMainTypeAsset, "Bank", AccountCodeBank},
		{AccountMainTypeAsset, "Accounts Receivable", AccountCodeAccountsReceivable},
		{AccountMainTypeLiability, "Accounts Payable", AccountCodeAccountsPayable},
		{AccountMainTypeIncome, "Sales", AccountCodeSales},
		{AccountMainTypeExpense, "Purchases", AccountCodePurchases},
	}
}

func createDefaultAccounts(tx *gorm.DB, businessId string, currencyId int) error {
	for _, data := range defaultChartOfAccounts() {
		account := Account{
			BusinessId:        businessId,
			MainType:          data.MainType,
			Name:              data.Name,
			IsActive:          utils.NewTrue(),
			IsSystemDefault:   utils.NewTrue(),
			SystemDefaultCode: data.SystemDefaultCode,
			CurrencyId:        currencyId,
		}
		if err := tx.Create(&account).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetSystemAccounts returns the business's system default account ids keyed
// by SystemDefaultCode. Cached in redis; cache-off degrades to a query.
func GetSystemAccounts(ctx context.Context, businessId string) (map[string]int, error) {
	var accounts []*Account
	var sysAccounts map[string]int

	exists, err := config.GetRedisObject("SystemAccounts:"+businessId, &sysAccounts)
	if err != nil {
		return nil, err
	}
	if !exists {
		db := config.GetDB()
		if err := db.WithContext(ctx).Select("id", "system_default_code").
			Where("business_id = ?", businessId).
			Where("is_system_default = ?", true).
			Find(&accounts).Error; err != nil {
			return nil, err
		}
		sysAccounts = make(map[string]int)
		for _, acc := range accounts {
			sysAccounts[acc.SystemDefaultCode] = acc.ID
		}
		if err := config.SetRedisObject("SystemAccounts:"+businessId, &sysAccounts, 0); err != nil {
			return nil, err
		}
	}
	return sysAccounts, nil
}
