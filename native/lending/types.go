package lending

import (
	"math/big"

	"stellarlend/core/types"
	"stellarlend/crypto"
)

// ReserveConfig groups the per-asset risk settings registered by the admin.
// All factors are expressed in basis points for deterministic accounting.
type ReserveConfig struct {
	// CollateralFactorBps discounts the asset's value when it backs debt.
	CollateralFactorBps uint64
	// LiquidationBonusBps is the extra collateral paid to a liquidator on
	// top of the repaid debt value.
	LiquidationBonusBps uint64
	// IsActive gates deposits and borrows against the reserve.
	IsActive bool
	// CanBeCollateral marks whether balances of the asset count towards the
	// health factor numerator.
	CanBeCollateral bool
}

// Reserve captures the protocol-wide accounting state for one asset. Amounts
// are 7-decimal fixed-point big integers.
type Reserve struct {
	Asset  types.AssetID
	Config ReserveConfig
	// TotalReserve is the aggregate amount of the asset held by the
	// protocol across all positions.
	TotalReserve *big.Int
}

// Clone returns a deep copy of the reserve.
func (r *Reserve) Clone() *Reserve {
	if r == nil {
		return nil
	}
	clone := &Reserve{Asset: r.Asset, Config: r.Config}
	if r.TotalReserve != nil {
		clone.TotalReserve = new(big.Int).Set(r.TotalReserve)
	}
	return clone
}

// Position maintains one borrower's collateral and debt balances per asset.
// All balances are non-negative; a position is logically empty, but never
// deleted, once every balance reaches zero.
type Position struct {
	Address    crypto.Address
	Collateral map[types.AssetID]*big.Int
	Debt       map[types.AssetID]*big.Int
}

// NewPosition returns an empty position for the supplied borrower.
func NewPosition(addr crypto.Address) *Position {
	return &Position{
		Address:    addr,
		Collateral: make(map[types.AssetID]*big.Int),
		Debt:       make(map[types.AssetID]*big.Int),
	}
}

// CollateralOf returns the collateral balance for the asset, zero when the
// position holds none. The returned value must not be mutated by callers.
func (p *Position) CollateralOf(asset types.AssetID) *big.Int {
	if p == nil || p.Collateral == nil {
		return big.NewInt(0)
	}
	if balance, ok := p.Collateral[asset]; ok && balance != nil {
		return balance
	}
	return big.NewInt(0)
}

// DebtOf returns the debt balance for the asset, zero when nothing is owed.
func (p *Position) DebtOf(asset types.AssetID) *big.Int {
	if p == nil || p.Debt == nil {
		return big.NewInt(0)
	}
	if balance, ok := p.Debt[asset]; ok && balance != nil {
		return balance
	}
	return big.NewInt(0)
}

// SetCollateral records the collateral balance for the asset.
func (p *Position) SetCollateral(asset types.AssetID, balance *big.Int) {
	if p.Collateral == nil {
		p.Collateral = make(map[types.AssetID]*big.Int)
	}
	p.Collateral[asset] = new(big.Int).Set(balance)
}

// SetDebt records the debt balance for the asset.
func (p *Position) SetDebt(asset types.AssetID, balance *big.Int) {
	if p.Debt == nil {
		p.Debt = make(map[types.AssetID]*big.Int)
	}
	p.Debt[asset] = new(big.Int).Set(balance)
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := NewPosition(p.Address)
	for asset, balance := range p.Collateral {
		if balance != nil {
			clone.Collateral[asset] = new(big.Int).Set(balance)
		}
	}
	for asset, balance := range p.Debt {
		if balance != nil {
			clone.Debt[asset] = new(big.Int).Set(balance)
		}
	}
	return clone
}
