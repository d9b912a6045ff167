package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
)

const suggestionCacheTTL = 30 * time.Second

func suggestionCacheKey(businessId string) string {
	return fmt.Sprintf("ReconciliationSuggestions:%s", businessId)
}

// FindReconciliationMatches scans every unreconciled statement line of the
// business against every open candidate (unlinked journals plus open
// obligations) and returns at most one high-confidence suggestion per line.
// Lines with no qualifying candidate are omitted; that is a normal outcome,
// not an error. Read-only and side-effect-free apart from the redis cache.
//
// The scan is O(M*N) per call. The partial-payment branch accepts any bank
// amount at or under the candidate magnitude, so an amount-keyed index
// cannot prune candidates without changing which matches are found; at the
// expected cardinalities (thousands of open items) the plain scan holds up.
func FindReconciliationMatches(ctx context.Context, businessId string) ([]MatchSuggestion, error) {
	logger := config.GetLogger()

	var cached []MatchSuggestion
	hit, err := config.GetRedisObject(suggestionCacheKey(businessId), &cached)
	if err == nil && hit {
		return cached, nil
	}

	cfg := DefaultMatchConfig()

	lines, err := models.GetUnreconciledLines(ctx, businessId)
	if err != nil {
		config.LogError(logger, "reconciliationMatching.go", "FindReconciliationMatches", "GetUnreconciledLines", businessId, err)
		return nil, err
	}

	candidates, err := loadCandidates(ctx, businessId)
	if err != nil {
		config.LogError(logger, "reconciliationMatching.go", "FindReconciliationMatches", "loadCandidates", businessId, err)
		return nil, err
	}

	suggestions := make([]MatchSuggestion, 0, len(lines))
	for _, line := range lines {
		if suggestion, ok := bestSuggestionForLine(cfg, line, candidates); ok {
			suggestions = append(suggestions, suggestion)
		}
	}

	if err := config.SetRedisObject(suggestionCacheKey(businessId), suggestions, suggestionCacheTTL); err != nil {
		config.LogError(logger, "reconciliationMatching.go", "FindReconciliationMatches", "SetRedisObject", businessId, err)
	}
	return suggestions, nil
}

// bestSuggestionForLine keeps the single best-scoring candidate for the
// line, provided it clears the high-confidence threshold.
func bestSuggestionForLine(cfg MatchConfig, line *models.BankStatementLine, candidates []*ReconcileCandidate) (MatchSuggestion, bool) {
	var best *ReconcileCandidate
	bestScore := 0.0

	for _, cand := range candidates {
		score := ScoreMatch(cfg, line, cand)
		if score > bestScore {
			bestScore = score
			best = cand
		}
	}

	if best == nil || bestScore < cfg.HighConfidenceThreshold {
		return MatchSuggestion{}, false
	}
	return MatchSuggestion{
		LineId:     line.ID,
		TargetId:   best.TargetId,
		TargetKind: best.TargetKind,
		Score:      bestScore,
		Rationale:  MatchRationale(line, best, bestScore),
	}, true
}

// loadCandidates reduces both target kinds to the common scoring shape.
func loadCandidates(ctx context.Context, businessId string) ([]*ReconcileCandidate, error) {
	journals, err := models.GetUnlinkedJournals(ctx, businessId)
	if err != nil {
		return nil, err
	}
	obligations, err := models.GetOpenObligations(ctx, businessId)
	if err != nil {
		return nil, err
	}

	candidates := make([]*ReconcileCandidate, 0, len(journals)+len(obligations))
	for _, journal := range journals {
		candidates = append(candidates, &ReconcileCandidate{
			TargetId:          journal.ID,
			TargetKind:        models.ReconcileTargetKindJournal,
			Date:              journal.TransactionDateTime,
			CounterpartyTaxId: journal.CounterpartyTaxId,
			Magnitude:         models.JournalMagnitude(journal),
			Description:       journal.TransactionDetails,
		})
	}
	for _, obligation := range obligations {
		candidates = append(candidates, &ReconcileCandidate{
			TargetId:          obligation.ID,
			TargetKind:        models.ReconcileTargetKindObligation,
			Date:              obligation.DueDate,
			CounterpartyTaxId: obligation.CounterpartyTaxId,
			Magnitude:         obligation.RemainingAmount(),
			Description:       obligation.Description,
		})
	}
	return candidates, nil
}

// InvalidateSuggestionCache drops the cached suggestions for a business.
// Commit and undo call this so stale suggestions never outlive a state
// change.
func InvalidateSuggestionCache(businessId string) {
	_ = config.RemoveRedisKey(suggestionCacheKey(businessId))
}
