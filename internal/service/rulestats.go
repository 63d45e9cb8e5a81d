package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/database/repository"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/logging"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/matching"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/metrics"
)

// RuleStats applies RuleFired events to the rule's match_count and last_match_at.
// Failures are logged only; statistics never fail an ingest.
type RuleStats struct {
	Rules   *repository.RuleRepo
	Metrics metrics.Collector
	Logger  *zap.Logger
}

func (u *RuleStats) Apply(ctx context.Context, ev matching.RuleFired) {
	if u.Metrics != nil {
		u.Metrics.RecordRuleFired()
	}
	if err := u.Rules.RecordMatch(ctx, ev.RuleID, ev.At); err != nil {
		logging.Or(u.Logger, "rules").Warn("record rule match", zap.String("rule_id", ev.RuleID), zap.Error(err))
	}
}
