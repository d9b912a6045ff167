package workflow

import (
	"fmt"
	"time"

	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

// MatchConfig holds every tolerance, weight and threshold of the match
// scorer. No hidden statics: tests and callers tune the heuristic here.
type MatchConfig struct {
	// Asymmetric date window. A settlement normally lags the obligation or
	// journal date, up to MaxDaysAfter of late payment; it may precede it
	// only by clock-skew margins (MaxDaysBefore).
	MaxDaysBefore int
	MaxDaysAfter  int

	// AmountTolerance is the absolute difference, in currency units, under
	// which two amounts count as an exact match.
	AmountTolerance decimal.Decimal

	CounterpartyWeight  float64
	ExactAmountWeight   float64
	PartialAmountWeight float64
	ProximityWeight     float64

	// TextSimilarityFloor is the minimum description similarity that
	// corroborates a partial payment in the absence of a counterparty hit.
	TextSimilarityFloor float64

	// HighConfidenceThreshold is the minimum score at which a suggestion
	// is actionable.
	HighConfidenceThreshold float64

	// UseContainsApproximation swaps the canonical edit-distance similarity
	// for the cheaper containment approximation on very large candidate
	// sets. Documented trade-off, never silently applied.
	UseContainsApproximation bool
}

func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		MaxDaysBefore:           2,
		MaxDaysAfter:            60,
		AmountTolerance:         decimal.NewFromInt(10),
		CounterpartyWeight:      0.4,
		ExactAmountWeight:       0.5,
		PartialAmountWeight:     0.3,
		ProximityWeight:         0.1,
		TextSimilarityFloor:     0.6,
		HighConfidenceThreshold: 0.7,
	}
}

func (cfg MatchConfig) similarity(a, b string) float64 {
	if cfg.UseContainsApproximation {
		return utils.ContainsSimilarity(a, b)
	}
	return utils.StringSimilarity(a, b)
}

// ReconcileCandidate is the common shape both match targets reduce to:
// an unlinked journal or an open obligation, flattened for scoring.
type ReconcileCandidate struct {
	TargetId          int
	TargetKind        models.ReconcileTargetKind
	Date              time.Time
	CounterpartyTaxId string
	Magnitude         decimal.Decimal
	Description       string
}

// MatchSuggestion is the ephemeral result of matching: the best candidate
// found for one statement line. Not persisted; discarded after use.
type MatchSuggestion struct {
	LineId     int                        `json:"line_id"`
	TargetId   int                        `json:"target_id"`
	TargetKind models.ReconcileTargetKind `json:"target_kind"`
	Score      float64                    `json:"score"`
	Rationale  string                     `json:"rationale"`
}

// ScoreMatch rates how likely a statement line and a candidate refer to the
// same real-world event, in [0,1]. Hard gates short-circuit to 0:
// the asymmetric date window, and an amount that neither matches exactly nor
// is a corroborated partial payment.
func ScoreMatch(cfg MatchConfig, line *models.BankStatementLine, cand *ReconcileCandidate) float64 {
	score := 0.0

	daysDiff := daysBetween(cand.Date, line.TransactionDate)
	if daysDiff < -cfg.MaxDaysBefore || daysDiff > cfg.MaxDaysAfter {
		return 0.0
	}

	counterpartyMatch := counterpartyMatches(line, cand)
	if counterpartyMatch {
		score += cfg.CounterpartyWeight
	}

	txAmt := line.Amount.Abs()
	candAmt := cand.Magnitude

	exactAmountMatch := txAmt.Sub(candAmt).Abs().LessThan(cfg.AmountTolerance)

	// Partial settlement: the bank amount covers part of the candidate, and
	// either the counterparty is explicit in the description or the texts
	// are close enough to corroborate.
	isPartialPayment := !exactAmountMatch &&
		txAmt.LessThanOrEqual(candAmt) &&
		(counterpartyMatch || cfg.similarity(line.Description, cand.Description) > cfg.TextSimilarityFloor)

	if exactAmountMatch {
		score += cfg.ExactAmountWeight
	} else if isPartialPayment {
		score += cfg.PartialAmountWeight
	} else {
		return 0.0
	}

	// Proximity bonus: full at zero days apart, decaying to zero at the
	// window edge.
	proximity := cfg.ProximityWeight * (1.0 - float64(abs(daysDiff))/float64(cfg.MaxDaysAfter))
	if proximity > 0 {
		score += proximity
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// MatchRationale builds the human-readable explanation surfaced with a
// suggestion.
func MatchRationale(line *models.BankStatementLine, cand *ReconcileCandidate, score float64) string {
	daysDiff := daysBetween(cand.Date, line.TransactionDate)
	counterparty := "no"
	if counterpartyMatches(line, cand) {
		counterparty = "yes"
	}
	return fmt.Sprintf("score %.2f: bank amount %s vs candidate %s, %d day(s) apart, counterparty match: %s",
		score, line.Amount, cand.Magnitude, daysDiff, counterparty)
}

func counterpartyMatches(line *models.BankStatementLine, cand *ReconcileCandidate) bool {
	if cand.CounterpartyTaxId == "" {
		return false
	}
	extracted, found := utils.ExtractTaxId(line.Description)
	if !found {
		return false
	}
	return extracted == utils.NormalizeTaxId(cand.CounterpartyTaxId)
}

// daysBetween counts calendar days from a to b (positive when b is later),
// ignoring the time-of-day component.
func daysBetween(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bd.Sub(ad).Hours() / 24)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
