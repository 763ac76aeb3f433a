package events

import (
	"math/big"

	"stellarlend/core/types"
	"stellarlend/crypto"
)

const (
	// TypeSwapExecuted is emitted whenever the router accepts a swap.
	TypeSwapExecuted = "amm.swap_executed"
)

// SwapExecuted records an accepted routing through an external AMM protocol.
type SwapExecuted struct {
	User      crypto.Address
	Protocol  crypto.Address
	TokenIn   types.AssetID
	TokenOut  types.AssetID
	AmountIn  *big.Int
	AmountOut *big.Int
}

// EventType implements the Event interface.
func (SwapExecuted) EventType() string { return TypeSwapExecuted }
