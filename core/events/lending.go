package events

import (
	"math/big"

	"stellarlend/core/types"
	"stellarlend/crypto"
)

const (
	// TypeLiquidationExecuted is emitted exactly once per successful
	// liquidation call, never for rejected attempts.
	TypeLiquidationExecuted = "lending.liquidation_executed"
)

// LiquidationExecuted carries the six-field liquidation payload consumed by
// off-chain indexers. Field order mirrors the on-wire tuple.
type LiquidationExecuted struct {
	Liquidator       crypto.Address
	Borrower         crypto.Address
	DebtAsset        types.AssetID
	CollateralAsset  types.AssetID
	RepayAmount      *big.Int
	SeizedCollateral *big.Int
}

// EventType implements the Event interface.
func (LiquidationExecuted) EventType() string { return TypeLiquidationExecuted }
