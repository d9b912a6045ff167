package workflow_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/mmdatafocus/ledger_backend/workflow"
	"github.com/shopspring/decimal"
)

func TestCommitAndUndoReconciliation(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "ledger_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	biz, err := models.CreateBusiness(ctx, &models.NewBusiness{
		Name:           "Reconcile Co",
		Email:          "owner@reconcile.test",
		BaseCurrencyId: 1,
	})
	if err != nil {
		t.Fatalf("CreateBusiness: %v", err)
	}
	businessID := biz.ID.String()
	ctx = utils.SetBusinessIdInContext(ctx, businessID)

	db := config.GetDB()
	systemAccounts, err := models.GetSystemAccounts(ctx, businessID)
	if err != nil {
		t.Fatalf("GetSystemAccounts: %v", err)
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)

	// --- Direct-entry mode: link a line to an existing journal. ---
	journal := models.AccountJournal{
		BusinessId:          businessID,
		TransactionDateTime: today.AddDate(0, 0, -2),
		TransactionNumber:   "JN-0001",
		TransactionDetails:  "Factura 1001 Comercial Andina 76.543.210-8",
		ReferenceType:       models.AccountReferenceTypeJournal,
		CounterpartyTaxId:   "76543210-8",
		AccountTransactions: []models.AccountTransaction{
			{BusinessId: businessID, AccountId: systemAccounts[models.AccountCodeAccountsReceivable], TransactionDateTime: today.AddDate(0, 0, -2), BaseDebit: decimal.NewFromInt(150000)},
			{BusinessId: businessID, AccountId: systemAccounts[models.AccountCodeSales], TransactionDateTime: today.AddDate(0, 0, -2), BaseCredit: decimal.NewFromInt(150000)},
		},
	}
	if err := models.CreateAccountJournal(db, ctx, &journal); err != nil {
		t.Fatalf("CreateAccountJournal: %v", err)
	}

	directLine, err := models.CreateBankStatementLine(ctx, businessID, &models.NewBankStatementLine{
		TransactionDate: today,
		Description:     "TRANSFERENCIA DE COMERCIAL ANDINA 76.543.210-8",
		Amount:          decimal.NewFromInt(150000),
	})
	if err != nil {
		t.Fatalf("CreateBankStatementLine: %v", err)
	}

	suggestions, err := workflow.FindReconciliationMatches(ctx, businessID)
	if err != nil {
		t.Fatalf("FindReconciliationMatches: %v", err)
	}
	if len(suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(suggestions))
	}
	if suggestions[0].LineId != directLine.ID || suggestions[0].TargetId != journal.ID {
		t.Fatalf("unexpected suggestion %+v", suggestions[0])
	}

	newJournalId, err := workflow.CommitReconciliation(ctx, businessID, directLine.ID, journal.ID, models.ReconcileTargetKindJournal)
	if err != nil {
		t.Fatalf("direct commit: %v", err)
	}
	if newJournalId != 0 {
		t.Fatalf("direct-entry commit must not create a journal, got id %d", newJournalId)
	}

	var reloaded models.BankStatementLine
	if err := db.WithContext(ctx).First(&reloaded, directLine.ID).Error; err != nil {
		t.Fatalf("reload line: %v", err)
	}
	if reloaded.Status != models.ReconciliationStatusReconciled || reloaded.ReconciledJournalId == nil || *reloaded.ReconciledJournalId != journal.ID {
		t.Fatalf("line not linked after commit: %+v", reloaded)
	}

	// Second commit against the same line must fail the precondition.
	if _, err := workflow.CommitReconciliation(ctx, businessID, directLine.ID, journal.ID, models.ReconcileTargetKindJournal); !utils.IsStateConflict(err) {
		t.Fatalf("double commit expected StateConflictError, got %v", err)
	}

	// commit -> undo -> commit lands in the same final state.
	if err := workflow.UndoReconciliation(ctx, businessID, directLine.ID); err != nil {
		t.Fatalf("undo direct line: %v", err)
	}
	if _, err := workflow.CommitReconciliation(ctx, businessID, directLine.ID, journal.ID, models.ReconcileTargetKindJournal); err != nil {
		t.Fatalf("re-commit after undo: %v", err)
	}
	var recommitted models.BankStatementLine
	if err := db.WithContext(ctx).First(&recommitted, directLine.ID).Error; err != nil {
		t.Fatalf("reload re-committed line: %v", err)
	}
	if recommitted.Status != models.ReconciliationStatusReconciled || recommitted.ReconciledJournalId == nil || *recommitted.ReconciledJournalId != journal.ID {
		t.Fatalf("re-commit did not restore the link: %+v", recommitted)
	}

	// --- Settlement mode: synthesize a journal and settle the obligation. ---
	obligation := models.Obligation{
		BusinessId:        businessID,
		DueDate:           today.AddDate(0, 0, -1),
		Description:       "Factura 1002 Distribuidora Sur",
		CounterpartyTaxId: "12345678-5",
		TotalAmount:       decimal.NewFromInt(89990),
		Direction:         models.ObligationDirectionReceivable,
		Status:            models.ObligationStatusOpen,
	}
	if err := db.WithContext(ctx).Create(&obligation).Error; err != nil {
		t.Fatalf("create obligation: %v", err)
	}

	settleLine, err := models.CreateBankStatementLine(ctx, businessID, &models.NewBankStatementLine{
		TransactionDate: today,
		Description:     "DEPOSITO DISTRIBUIDORA SUR 12.345.678-5",
		Amount:          decimal.NewFromInt(89990),
	})
	if err != nil {
		t.Fatalf("CreateBankStatementLine: %v", err)
	}

	settlementJournalId, err := workflow.CommitReconciliation(ctx, businessID, settleLine.ID, obligation.ID, models.ReconcileTargetKindObligation)
	if err != nil {
		t.Fatalf("settlement commit: %v", err)
	}
	if settlementJournalId == 0 {
		t.Fatal("settlement commit must return the new journal id")
	}

	var settlement models.AccountJournal
	if err := db.WithContext(ctx).Preload("AccountTransactions").First(&settlement, settlementJournalId).Error; err != nil {
		t.Fatalf("reload settlement journal: %v", err)
	}
	if settlement.ReferenceType != models.AccountReferenceTypeReconciliation || settlement.ReferenceId != obligation.ID {
		t.Fatalf("settlement journal reference wrong: %+v", settlement)
	}
	if err := models.ValidateJournalBalance(settlement.AccountTransactions); err != nil {
		t.Fatalf("settlement journal unbalanced: %v", err)
	}

	var settledObligation models.Obligation
	if err := db.WithContext(ctx).First(&settledObligation, obligation.ID).Error; err != nil {
		t.Fatalf("reload obligation: %v", err)
	}
	if settledObligation.Status != models.ObligationStatusSettled {
		t.Fatalf("fully covered obligation should be Settled, got %s", settledObligation.Status)
	}
	if !settledObligation.SettledAmount.Equal(decimal.NewFromInt(89990)) {
		t.Fatalf("settled amount wrong: %s", settledObligation.SettledAmount)
	}

	// Committing against a settled obligation must fail the precondition.
	extraLine, err := models.CreateBankStatementLine(ctx, businessID, &models.NewBankStatementLine{
		TransactionDate: today,
		Description:     "DEPOSITO DISTRIBUIDORA SUR 12.345.678-5",
		Amount:          decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("CreateBankStatementLine: %v", err)
	}
	if _, err := workflow.CommitReconciliation(ctx, businessID, extraLine.ID, obligation.ID, models.ReconcileTargetKindObligation); !utils.IsStateConflict(err) {
		t.Fatalf("settled obligation expected StateConflictError, got %v", err)
	}

	// --- Undo: detach only; the settlement journal and obligation stay. ---
	if err := workflow.UndoReconciliation(ctx, businessID, settleLine.ID); err != nil {
		t.Fatalf("undo: %v", err)
	}
	var undone models.BankStatementLine
	if err := db.WithContext(ctx).First(&undone, settleLine.ID).Error; err != nil {
		t.Fatalf("reload undone line: %v", err)
	}
	if undone.Status != models.ReconciliationStatusUnreconciled || undone.ReconciledJournalId != nil {
		t.Fatalf("line not detached after undo: %+v", undone)
	}
	var journalStill models.AccountJournal
	if err := db.WithContext(ctx).First(&journalStill, settlementJournalId).Error; err != nil {
		t.Fatalf("settlement journal must survive undo: %v", err)
	}
	var obligationStill models.Obligation
	if err := db.WithContext(ctx).First(&obligationStill, obligation.ID).Error; err != nil {
		t.Fatalf("reload obligation after undo: %v", err)
	}
	if obligationStill.Status != models.ObligationStatusSettled {
		t.Fatalf("undo must not reopen the obligation, got %s", obligationStill.Status)
	}

	// Undo on an already-unreconciled line is a precondition failure.
	if err := workflow.UndoReconciliation(ctx, businessID, settleLine.ID); !utils.IsStateConflict(err) {
		t.Fatalf("double undo expected StateConflictError, got %v", err)
	}

	// Unknown line id maps to the not-found taxonomy.
	if _, err := workflow.CommitReconciliation(ctx, businessID, 999999, journal.ID, models.ReconcileTargetKindJournal); err != utils.ErrorRecordNotFound {
		t.Fatalf("missing line expected ErrorRecordNotFound, got %v", err)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("ledger-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("ledger-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=ledger_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
