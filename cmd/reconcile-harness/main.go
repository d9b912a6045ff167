package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/mmdatafocus/ledger_backend/workflow"
	"github.com/shopspring/decimal"
)

// reconcile-harness exercises the matching pipeline against a live database.
// With --seed it provisions a demo tenant with a handful of journals, open
// obligations and statement lines, then prints the suggestions the matcher
// produces. With --commit it also applies the first suggestion.
//
// Example:
//   go run ./cmd/reconcile-harness --seed --commit
//   go run ./cmd/reconcile-harness --business_id=<uuid>
func main() {
	var (
		businessID = flag.String("business_id", "", "existing business_id (omit with --seed)")
		seed       = flag.Bool("seed", false, "create a demo tenant with sample data")
		doCommit   = flag.Bool("commit", false, "commit the first suggestion after matching")
	)
	flag.Parse()

	if *businessID == "" && !*seed {
		fmt.Fprintln(os.Stderr, "either --business_id or --seed is required")
		flag.Usage()
		os.Exit(2)
	}

	// Connect to DB/Redis using env config (same as server).
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx := context.Background()

	if *seed {
		id, err := seedDemoTenant(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
		*businessID = id
		fmt.Println("seeded demo tenant", id)
	}

	ctx = utils.SetBusinessIdInContext(ctx, *businessID)
	ctx = utils.SetCorrelationIdInContext(ctx, fmt.Sprintf("reconcile-harness-%d", time.Now().UnixNano()))

	suggestions, err := workflow.FindReconciliationMatches(ctx, *businessID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "matching failed: %v\n", err)
		os.Exit(1)
	}

	if len(suggestions) == 0 {
		fmt.Println("no high-confidence suggestions")
		return
	}
	for _, s := range suggestions {
		fmt.Printf("line %d -> %s %d  %s\n", s.LineId, s.TargetKind, s.TargetId, s.Rationale)
	}

	if *doCommit {
		s := suggestions[0]
		newJournalId, err := workflow.CommitReconciliation(ctx, *businessID, s.LineId, s.TargetId, s.TargetKind)
		if err != nil {
			fmt.Fprintf(os.Stderr, "commit failed: %v\n", err)
			os.Exit(1)
		}
		if newJournalId != 0 {
			fmt.Printf("committed line %d; settlement journal %d created\n", s.LineId, newJournalId)
		} else {
			fmt.Printf("committed line %d against journal %d\n", s.LineId, s.TargetId)
		}
	}
}

func seedDemoTenant(ctx context.Context) (string, error) {
	business, err := models.CreateBusiness(ctx, &models.NewBusiness{
		Name:           "Harness Demo Ltda",
		Email:          "demo@example.com",
		Country:        "CL",
		TaxId:          "76.543.210-8",
		BaseCurrencyId: 1,
	})
	if err != nil {
		return "", err
	}
	businessId := business.ID.String()
	ctx = utils.SetBusinessIdInContext(ctx, businessId)

	db := config.GetDB()
	systemAccounts, err := models.GetSystemAccounts(ctx, businessId)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC().Truncate(24 * time.Hour)

	// One posted sales journal the direct-entry path can link against.
	journal := models.AccountJournal{
		BusinessId:          businessId,
		TransactionDateTime: now.AddDate(0, 0, -3),
		TransactionNumber:   "JN-0001",
		TransactionDetails:  "Factura 1001 Comercial Andina 76.543.210-8",
		ReferenceType:       models.AccountReferenceTypeJournal,
		CounterpartyTaxId:   "76543210-8",
		AccountTransactions: []models.AccountTransaction{
			{BusinessId: businessId, AccountId: systemAccounts[models.AccountCodeAccountsReceivable], TransactionDateTime: now.AddDate(0, 0, -3), BaseDebit: decimal.NewFromInt(150000), BaseCredit: decimal.Zero},
			{BusinessId: businessId, AccountId: systemAccounts[models.AccountCodeSales], TransactionDateTime: now.AddDate(0, 0, -3), BaseDebit: decimal.Zero, BaseCredit: decimal.NewFromInt(150000)},
		},
	}
	if err := models.CreateAccountJournal(db, ctx, &journal); err != nil {
		return "", err
	}

	// An open receivable the settlement path can settle.
	obligation := models.Obligation{
		BusinessId:        businessId,
		DueDate:           now.AddDate(0, 0, -1),
		Description:       "Factura 1002 Distribuidora Sur",
		CounterpartyTaxId: "12345678-5",
		TotalAmount:       decimal.NewFromInt(89990),
		Direction:         models.ObligationDirectionReceivable,
		Status:            models.ObligationStatusOpen,
	}
	if err := db.WithContext(ctx).Create(&obligation).Error; err != nil {
		return "", err
	}

	seedLines := []models.NewBankStatementLine{
		{
			TransactionDate: now,
			Description:     "TRANSFERENCIA DE COMERCIAL ANDINA 76.543.210-8",
			Amount:          decimal.NewFromInt(150000),
			ReferenceNumber: "TRF-9981",
		},
		{
			TransactionDate: now,
			Description:     "DEPOSITO DISTRIBUIDORA SUR 12.345.678-5 FACT 1002",
			Amount:          decimal.NewFromInt(89990),
			ReferenceNumber: "DEP-4412",
		},
		{
			TransactionDate: now,
			Description:     "COMISION MANTENCION CUENTA",
			Amount:          decimal.NewFromInt(-4500),
			ReferenceNumber: "",
		},
	}
	for i := range seedLines {
		if _, err := models.CreateBankStatementLine(ctx, businessId, &seedLines[i]); err != nil {
			return "", err
		}
	}

	return businessId, nil
}
