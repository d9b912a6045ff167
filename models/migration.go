package models

import (
	"log"

	"github.com/mmdatafocus/ledger_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Account{}, &AccountJournal{}, &AccountTransaction{},
		&BankStatementLine{}, &Business{}, &Obligation{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
