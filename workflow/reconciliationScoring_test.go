package workflow

import (
	"testing"
	"time"

	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/shopspring/decimal"
)

var scoringBase = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func testLine(amount int64, daysAfterCandidate int, description string) *models.BankStatementLine {
	return &models.BankStatementLine{
		ID:              1,
		TransactionDate: scoringBase.AddDate(0, 0, daysAfterCandidate),
		Description:     description,
		Amount:          decimal.NewFromInt(amount),
	}
}

func testCandidate(magnitude int64, taxId string, description string) *ReconcileCandidate {
	return &ReconcileCandidate{
		TargetId:          7,
		TargetKind:        models.ReconcileTargetKindObligation,
		Date:              scoringBase,
		CounterpartyTaxId: taxId,
		Magnitude:         decimal.NewFromInt(magnitude),
		Description:       description,
	}
}

func TestScoreMatch_ExactAmountWithCounterparty(t *testing.T) {
	cfg := DefaultMatchConfig()
	line := testLine(150000, 2, "TRANSFERENCIA DE COMERCIAL ANDINA 76.543.210-8")
	cand := testCandidate(150000, "76543210-8", "Factura 1001 Comercial Andina")

	score := ScoreMatch(cfg, line, cand)
	if score < 0.9 {
		t.Fatalf("exact amount + counterparty + near date should score >= 0.9, got %f", score)
	}
}

func TestScoreMatch_PartialPaymentWithCounterparty(t *testing.T) {
	cfg := DefaultMatchConfig()
	line := testLine(75000, 5, "ABONO PARCIAL 76.543.210-8")
	cand := testCandidate(150000, "76543210-8", "Factura 1001 Comercial Andina")

	score := ScoreMatch(cfg, line, cand)
	if score < cfg.HighConfidenceThreshold {
		t.Fatalf("corroborated partial payment should clear the threshold, got %f", score)
	}
	if score >= 0.9 {
		t.Fatalf("partial payment should score below an exact match, got %f", score)
	}
}

func TestScoreMatch_DateWindowIsAsymmetric(t *testing.T) {
	cfg := DefaultMatchConfig()
	cand := testCandidate(150000, "76543210-8", "Factura 1001")

	cases := []struct {
		days     int
		accepted bool
	}{
		{-3, false}, // too early even for clock skew
		{-2, true},
		{0, true},
		{60, true},
		{61, false}, // beyond late-payment window
		{90, false},
	}
	for _, tc := range cases {
		line := testLine(150000, tc.days, "PAGO 76.543.210-8")
		score := ScoreMatch(cfg, line, cand)
		if tc.accepted && score == 0.0 {
			t.Fatalf("%d days apart should be inside the window", tc.days)
		}
		if !tc.accepted && score != 0.0 {
			t.Fatalf("%d days apart should be gated out, got %f", tc.days, score)
		}
	}
}

func TestScoreMatch_ProximityDecays(t *testing.T) {
	cfg := DefaultMatchConfig()
	cand := testCandidate(150000, "76543210-8", "Factura 1001")

	near := ScoreMatch(cfg, testLine(150000, 1, "PAGO 76.543.210-8"), cand)
	far := ScoreMatch(cfg, testLine(150000, 45, "PAGO 76.543.210-8"), cand)
	if near <= far {
		t.Fatalf("closer dates must score higher: near %f, far %f", near, far)
	}
}

func TestScoreMatch_AmountTolerance(t *testing.T) {
	cfg := DefaultMatchConfig()
	cand := testCandidate(150000, "76543210-8", "Factura 1001")

	within := ScoreMatch(cfg, testLine(150009, 0, "PAGO 76.543.210-8"), cand)
	if within < 0.9 {
		t.Fatalf("difference under tolerance should count as exact, got %f", within)
	}

	// A difference of exactly the tolerance is not an exact match; with the
	// amount above the candidate it cannot be a partial payment either.
	atTolerance := ScoreMatch(cfg, testLine(150010, 0, "PAGO 76.543.210-8"), cand)
	if atTolerance != 0.0 {
		t.Fatalf("overpayment past tolerance should be rejected, got %f", atTolerance)
	}
}

func TestScoreMatch_UncorroboratedPartialIsRejected(t *testing.T) {
	cfg := DefaultMatchConfig()
	line := testLine(75000, 3, "DEPOSITO SIN GLOSA")
	cand := testCandidate(150000, "76543210-8", "Factura 1001 Comercial Andina")

	if score := ScoreMatch(cfg, line, cand); score != 0.0 {
		t.Fatalf("partial amount with no counterparty and dissimilar text should be 0, got %f", score)
	}
}

func TestScoreMatch_TextSimilarityCorroboratesPartial(t *testing.T) {
	cfg := DefaultMatchConfig()
	line := testLine(75000, 0, "Factura 1001 Comercial Andina")
	cand := testCandidate(150000, "", "Factura 1001 Comercial Andina SpA")

	score := ScoreMatch(cfg, line, cand)
	if score == 0.0 {
		t.Fatal("near-identical descriptions should corroborate the partial payment")
	}
	if score >= cfg.HighConfidenceThreshold {
		t.Fatalf("text-only corroboration alone should stay below the threshold, got %f", score)
	}
}

func TestScoreMatch_NeverExceedsOne(t *testing.T) {
	cfg := DefaultMatchConfig()
	cfg.ExactAmountWeight = 0.9
	line := testLine(150000, 0, "PAGO 76.543.210-8")
	cand := testCandidate(150000, "76543210-8", "Factura")

	if score := ScoreMatch(cfg, line, cand); score > 1.0 {
		t.Fatalf("score must be clamped to 1.0, got %f", score)
	}
}

func TestBestSuggestionForLine_PicksHighestAboveThreshold(t *testing.T) {
	cfg := DefaultMatchConfig()
	line := testLine(150000, 1, "TRANSFERENCIA COMERCIAL ANDINA 76.543.210-8")

	exact := testCandidate(150000, "76543210-8", "Factura 1001 Comercial Andina")
	exact.TargetId = 11
	partialTarget := testCandidate(300000, "76543210-8", "Factura 1002 Comercial Andina")
	partialTarget.TargetId = 12

	suggestion, ok := bestSuggestionForLine(cfg, line, []*ReconcileCandidate{partialTarget, exact})
	if !ok {
		t.Fatal("expected a suggestion")
	}
	if suggestion.TargetId != 11 {
		t.Fatalf("expected the exact-amount candidate, got target %d", suggestion.TargetId)
	}
	if suggestion.Rationale == "" {
		t.Fatal("suggestion must carry a rationale")
	}
}

func TestBestSuggestionForLine_OmitsLowConfidence(t *testing.T) {
	cfg := DefaultMatchConfig()
	line := testLine(75000, 0, "Factura 1001 Comercial Andina")
	cand := testCandidate(150000, "", "Factura 1001 Comercial Andina SpA")

	if _, ok := bestSuggestionForLine(cfg, line, []*ReconcileCandidate{cand}); ok {
		t.Fatal("sub-threshold candidate must not be suggested")
	}
}

func TestBuildSettlementLines_Balanced(t *testing.T) {
	systemAccounts := map[string]int{
		models.AccountCodeBank:               1,
		models.AccountCodeAccountsReceivable: 2,
		models.AccountCodeAccountsPayable:    3,
	}
	amount := decimal.NewFromInt(89990)

	receivable, err := BuildSettlementLines(models.ObligationDirectionReceivable, amount, systemAccounts)
	if err != nil {
		t.Fatalf("receivable: %v", err)
	}
	if err := models.ValidateJournalBalance(receivable); err != nil {
		t.Fatalf("receivable settlement unbalanced: %v", err)
	}
	if receivable[0].AccountId != 1 || !receivable[0].BaseDebit.Equal(amount) {
		t.Fatalf("receivable must debit the bank account: %+v", receivable[0])
	}

	payable, err := BuildSettlementLines(models.ObligationDirectionPayable, amount, systemAccounts)
	if err != nil {
		t.Fatalf("payable: %v", err)
	}
	if err := models.ValidateJournalBalance(payable); err != nil {
		t.Fatalf("payable settlement unbalanced: %v", err)
	}
	if payable[1].AccountId != 1 || !payable[1].BaseCredit.Equal(amount) {
		t.Fatalf("payable must credit the bank account: %+v", payable[1])
	}
}

func TestBuildSettlementLines_MissingAccounts(t *testing.T) {
	if _, err := BuildSettlementLines(models.ObligationDirectionReceivable, decimal.NewFromInt(10), map[string]int{}); err == nil {
		t.Fatal("missing bank account must error")
	}
	if _, err := BuildSettlementLines("Sideways", decimal.NewFromInt(10), map[string]int{models.AccountCodeBank: 1}); err == nil {
		t.Fatal("unknown direction must error")
	}
}
