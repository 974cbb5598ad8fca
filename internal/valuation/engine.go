// Package valuation computes player market values. The engine is pure: it
// reads entity snapshots handed to it and never touches a store, so lifecycle
// managers can call it from inside their transactions.
package valuation

import (
	"math"
	"time"

	contractmodels "mercato/internal/contract/models"
	rostermodels "mercato/internal/roster/models"
	transfermodels "mercato/internal/transfer/models"
)

// DefaultBaseValue seeds valuation for players with no recorded market value.
const DefaultBaseValue = 1_000_000

// valuation rounds to the nearest roundingUnit currency units.
const roundingUnit = 100_000

// Contract factor thresholds in remaining whole months.
const (
	longTermMonths  = 24
	midTermMonths   = 12
	shortTermMonths = 6
)

// recentTransferWindow bounds how far back a completed transfer still lifts
// the valuation.
const recentTransferWindow = 365 * 24 * time.Hour

// Engine combines independent multipliers against a base value.
type Engine struct{}

// New constructs a valuation engine.
func New() *Engine { return &Engine{} }

// ComputeValue derives a market value from age, contract status, performance
// signals, and transfer history. The result is the base value (the player's
// current market value, or DefaultBaseValue if unset) times all four factors,
// rounded to the nearest 100 000.
func (e *Engine) ComputeValue(player *rostermodels.Player, activeContract *contractmodels.Contract, recentTransfers []*transfermodels.Transfer, at time.Time) int64 {
	base := float64(player.MarketValue)
	if base <= 0 {
		base = DefaultBaseValue
	}

	value := base *
		ageFactor(player.Age(at)) *
		contractFactor(activeContract, at) *
		performanceFactor(player) *
		transferHistoryFactor(recentTransfers, at)

	return roundValue(value)
}

// RevalueAfterFee produces the post-transfer value: 90% of the fee, adjusted
// by an age multiplier (boost under 23, discount over 30).
func (e *Engine) RevalueAfterFee(transferFee int64, age int) int64 {
	value := float64(transferFee) * 0.9 * postFeeAgeMultiplier(age)
	return roundValue(value)
}

// RevalueAfterRenewal increases a player's value for a fresh commitment. The
// uplift grows with contract length, gets an extra boost under 25 and a
// reduction over 30, and a small bump when the salary signals a premium deal.
func (e *Engine) RevalueAfterRenewal(oldValue int64, durationYears float64, salary int64, age int) int64 {
	base := float64(oldValue)
	if base <= 0 {
		base = DefaultBaseValue
	}

	pct := 0.03 * durationYears
	if age < 25 {
		pct += 0.05
	}
	if age > 30 {
		pct -= 0.04
	}
	if salary > 0 && float64(salary) > base*0.10 {
		pct += 0.02
	}
	if pct < -0.10 {
		pct = -0.10
	}
	value := roundValue(base * (1 + pct))
	// Rounding to the nearest unit can swallow the uplift for small values; a
	// positive adjustment must still move the value upward.
	if pct > 0 && value <= oldValue {
		value = int64(base * (1 + pct))
		if value <= oldValue {
			value = oldValue + 1
		}
	}
	return value
}

// ageFactor rises toward the peak band around 27, rewarding youth for
// potential and discounting age beyond the band, with a floor so veterans
// never collapse to zero.
func ageFactor(age int) float64 {
	switch {
	case age <= 20:
		return 1.30
	case age <= 23:
		return 1.20
	case age <= 28:
		return 1.10
	case age <= 30:
		return 0.85
	case age <= 33:
		return 0.60
	default:
		return 0.40
	}
}

// contractFactor steps down as the remaining term shrinks; a player with no
// active contract is worth markedly less to a buying club.
func contractFactor(c *contractmodels.Contract, at time.Time) float64 {
	if c == nil || !c.IsActive() {
		return 0.50
	}
	months := c.RemainingMonths(at)
	switch {
	case months >= longTermMonths:
		return 1.00
	case months >= midTermMonths:
		return 0.95
	case months >= shortTermMonths:
		return 0.85
	default:
		return 0.70
	}
}

// performanceFactor weights attacking positions by scoring contribution and
// everyone else by appearance and international-caps contribution. Boosts are
// capped so a hot streak cannot dominate the valuation.
func performanceFactor(player *rostermodels.Player) float64 {
	stats := player.Stats
	if player.Position.IsAttacking() {
		if stats.Appearances == 0 {
			return 1.0
		}
		contribution := float64(stats.Goals+stats.Assists) / float64(stats.Appearances)
		return 1.0 + math.Min(contribution, 0.50)
	}
	boost := float64(stats.Appearances)/400 + float64(stats.InternationalCaps)/250
	return 1.0 + math.Min(boost, 0.30)
}

// transferHistoryFactor applies a modest uplift when a recent completed
// transfer proves market demand.
func transferHistoryFactor(transfers []*transfermodels.Transfer, at time.Time) float64 {
	for _, t := range transfers {
		if t == nil || t.Status != transfermodels.StatusCompleted || t.CompletedAt == nil {
			continue
		}
		if at.Sub(*t.CompletedAt) <= recentTransferWindow {
			return 1.10
		}
	}
	return 1.0
}

func postFeeAgeMultiplier(age int) float64 {
	switch {
	case age < 23:
		return 1.10
	case age > 30:
		return 0.85
	default:
		return 1.00
	}
}

func roundValue(v float64) int64 {
	if v <= 0 {
		return 0
	}
	return int64(math.Round(v/roundingUnit)) * roundingUnit
}
