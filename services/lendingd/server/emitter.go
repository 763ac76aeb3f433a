package server

import (
	"log/slog"

	"stellarlend/core/events"
)

// logEmitter bridges protocol events onto the service logger. Counters are
// recorded by the handlers, which also see rejections.
type logEmitter struct {
	log *slog.Logger
}

func newLogEmitter(log *slog.Logger) *logEmitter {
	return &logEmitter{log: log}
}

// Emit implements events.Emitter.
func (e *logEmitter) Emit(evt events.Event) {
	if e == nil {
		return
	}
	switch typed := evt.(type) {
	case events.LiquidationExecuted:
		e.log.Info("liquidation executed",
			"liquidator", typed.Liquidator.String(),
			"borrower", typed.Borrower.String(),
			"debt_asset", typed.DebtAsset.String(),
			"collateral_asset", typed.CollateralAsset.String(),
			"repay_amount", typed.RepayAmount.String(),
			"seized_collateral", typed.SeizedCollateral.String(),
		)
	case events.SwapExecuted:
		e.log.Info("swap executed",
			"user", typed.User.String(),
			"protocol", typed.Protocol.String(),
			"token_in", typed.TokenIn.String(),
			"token_out", typed.TokenOut.String(),
			"amount_in", typed.AmountIn.String(),
			"amount_out", typed.AmountOut.String(),
		)
	default:
		e.log.Info("event emitted", "type", evt.EventType())
	}
}
