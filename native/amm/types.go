package amm

import (
	"math/big"
	"time"

	"stellarlend/core/types"
	"stellarlend/crypto"
)

// Protocol defaults applied by Normalise when a field is left unset. All
// tolerances and fees are basis points; amounts are 7-decimal fixed point.
const (
	DefaultSlippageBps       uint64 = 100
	DefaultMaxSlippageBps    uint64 = 1_000
	DefaultFeeTierBps        uint64 = 30
	defaultAutoSwapThreshold int64  = 10_000
	defaultMinSwapAmount     int64  = 1_000
	defaultMaxSwapAmount     int64  = 1_000_000_000
)

// TokenPair names the two assets a venue can exchange, in either direction.
type TokenPair struct {
	TokenA types.AssetID
	TokenB types.AssetID
}

// Covers reports whether the pair can serve a swap from in to out.
func (p TokenPair) Covers(in, out types.AssetID) bool {
	if in == out {
		return false
	}
	return (p.TokenA == in && p.TokenB == out) || (p.TokenA == out && p.TokenB == in)
}

// ProtocolConfig describes one registered external swap venue.
type ProtocolConfig struct {
	Address crypto.Address
	Name    string
	Enabled bool
	// FeeTierBps is the venue's advertised fee tier, informational for
	// routing decisions.
	FeeTierBps     uint64
	MinSwapAmount  *big.Int
	MaxSwapAmount  *big.Int
	SupportedPairs []TokenPair
}

// Normalise fills unset bounds with protocol defaults.
func (c ProtocolConfig) Normalise() ProtocolConfig {
	if c.FeeTierBps == 0 {
		c.FeeTierBps = DefaultFeeTierBps
	}
	if c.MinSwapAmount == nil || c.MinSwapAmount.Sign() <= 0 {
		c.MinSwapAmount = big.NewInt(defaultMinSwapAmount)
	}
	if c.MaxSwapAmount == nil || c.MaxSwapAmount.Sign() <= 0 {
		c.MaxSwapAmount = big.NewInt(defaultMaxSwapAmount)
	}
	return c
}

// Supports reports whether the venue serves the in/out pair.
func (c ProtocolConfig) Supports(in, out types.AssetID) bool {
	for _, pair := range c.SupportedPairs {
		if pair.Covers(in, out) {
			return true
		}
	}
	return false
}

// Settings is the router-wide policy singleton owned by the admin. Updates
// take effect on the very next call.
type Settings struct {
	DefaultSlippageBps uint64
	MaxSlippageBps     uint64
	SwapEnabled        bool
	LiquidityEnabled   bool
	// AutoSwapThreshold is the minimum amount an automatic collateral swap
	// must move; smaller amounts are left unswapped.
	AutoSwapThreshold *big.Int
}

// Normalise fills unset settings with protocol defaults.
func (s Settings) Normalise() Settings {
	if s.DefaultSlippageBps == 0 {
		s.DefaultSlippageBps = DefaultSlippageBps
	}
	if s.MaxSlippageBps == 0 {
		s.MaxSlippageBps = DefaultMaxSlippageBps
	}
	if s.AutoSwapThreshold == nil || s.AutoSwapThreshold.Sign() <= 0 {
		s.AutoSwapThreshold = big.NewInt(defaultAutoSwapThreshold)
	}
	return s
}

// valid caps the maximum tolerance strictly below 100% so the quote formula
// always yields a positive output for positive input.
func (s Settings) valid() bool {
	return s.MaxSlippageBps < 10_000 && s.DefaultSlippageBps <= s.MaxSlippageBps
}

// SwapParams carries one explicit swap request. Deadline is an absolute unix
// timestamp in seconds; a swap arriving after it is rejected.
type SwapParams struct {
	Protocol             crypto.Address
	TokenIn              types.AssetID
	TokenOut             types.AssetID
	AmountIn             *big.Int
	MinAmountOut         *big.Int
	SlippageToleranceBps uint64
	Deadline             int64
}

// SwapRecord is one entry of the append-only swap history ledger.
type SwapRecord struct {
	ID        string
	User      crypto.Address
	Protocol  crypto.Address
	TokenIn   types.AssetID
	TokenOut  types.AssetID
	AmountIn  *big.Int
	AmountOut *big.Int
	Timestamp time.Time
	// CallbackNonce is the pending nonce issued to the venue for this swap's
	// confirmation callback. Zero for automatic swaps, which settle inline.
	CallbackNonce uint64
}
