package lending

import (
	"math/big"

	"stellarlend/core/events"
	"stellarlend/core/types"
	"stellarlend/crypto"
)

// engineState is the subset of the protocol state store the engine mutates.
// The store is created at protocol initialisation, passed in by reference,
// and only ever written inside the atomic boundary of a single call.
type engineState interface {
	GetReserve(asset types.AssetID) (*Reserve, error)
	PutReserve(reserve *Reserve) error
	GetPosition(addr crypto.Address) (*Position, error)
	PutPosition(position *Position) error
	GetPrice(asset types.AssetID) (*big.Int, error)
	PutPrice(asset types.AssetID, price *big.Int) error
	Paused() (bool, error)
	SetPaused(paused bool) error
	Admin() (crypto.Address, bool, error)
	SetAdmin(addr crypto.Address) error
}

// Engine orchestrates the primary state transitions for the lending module:
// position bookkeeping, health factor evaluation, and liquidation.
type Engine struct {
	state   engineState
	params  RiskParameters
	emitter events.Emitter
}

// NewEngine constructs a lending engine with the supplied risk parameters.
func NewEngine(params RiskParameters) *Engine {
	return &Engine{params: params.Normalise(), emitter: events.NoopEmitter{}}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter wires the engine to an event sink. A nil emitter restores the
// discarding default.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Initialize records the protocol admin. It may be called exactly once.
func (e *Engine) Initialize(admin crypto.Address) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if admin.IsZero() {
		return ErrNotAdmin
	}
	if _, ok, err := e.state.Admin(); err != nil {
		return err
	} else if ok {
		return ErrAlreadyInitialised
	}
	return e.state.SetAdmin(admin)
}

// Pause halts all mutating operations until Unpause. Admin only.
func (e *Engine) Pause(caller crypto.Address) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	return e.state.SetPaused(true)
}

// Unpause lifts an emergency pause. Admin only.
func (e *Engine) Unpause(caller crypto.Address) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	return e.state.SetPaused(false)
}

// SetCloseFactor updates the per-call liquidation cap. Admin only; the new
// value applies to the very next call.
func (e *Engine) SetCloseFactor(caller crypto.Address, bps uint64) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if bps == 0 || bps > 10_000 {
		return ErrInvalidReserveConfig
	}
	e.params.CloseFactorBps = bps
	return nil
}

// AddReserve registers a new asset with its risk configuration. Admin only.
func (e *Engine) AddReserve(caller crypto.Address, asset types.AssetID, config ReserveConfig) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if config.CollateralFactorBps > 10_000 || config.LiquidationBonusBps > 10_000 {
		return ErrInvalidReserveConfig
	}
	existing, err := e.state.GetReserve(asset)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrReserveExists
	}
	return e.state.PutReserve(&Reserve{Asset: asset, Config: config, TotalReserve: big.NewInt(0)})
}

// UpdateAssetPrice records a new oracle price for the asset, in 7-decimal
// fixed point. Admin only; oracle ingestion itself lives outside the engine.
func (e *Engine) UpdateAssetPrice(caller crypto.Address, asset types.AssetID, price *big.Int) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if price == nil || price.Sign() <= 0 {
		return ErrInvalidPrice
	}
	return e.state.PutPrice(asset, price)
}

// Deposit credits the user's collateral balance and the asset reserve.
func (e *Engine) Deposit(user crypto.Address, asset types.AssetID, amount *big.Int) error {
	if err := e.guard(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	reserve, err := e.activeReserve(asset)
	if err != nil {
		return err
	}
	if !reserve.Config.CanBeCollateral {
		return ErrNotCollateral
	}
	position, err := e.ensurePosition(user)
	if err != nil {
		return err
	}
	position.SetCollateral(asset, new(big.Int).Add(position.CollateralOf(asset), amount))
	reserve.TotalReserve = new(big.Int).Add(reserve.TotalReserve, amount)

	if err := e.state.PutPosition(position); err != nil {
		return err
	}
	return e.state.PutReserve(reserve)
}

// Withdraw releases collateral back to the user while ensuring the position
// stays healthy.
func (e *Engine) Withdraw(user crypto.Address, asset types.AssetID, amount *big.Int) error {
	if err := e.guard(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	reserve, err := e.activeReserve(asset)
	if err != nil {
		return err
	}
	position, err := e.ensurePosition(user)
	if err != nil {
		return err
	}
	if position.CollateralOf(asset).Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if reserve.TotalReserve.Cmp(amount) < 0 {
		return ErrInsufficientLiquidity
	}

	remaining := position.Clone()
	remaining.SetCollateral(asset, new(big.Int).Sub(position.CollateralOf(asset), amount))
	hf, err := e.positionHealthFactor(remaining)
	if err != nil {
		return err
	}
	if hf.Cmp(one) < 0 {
		return ErrUnhealthyWithdrawal
	}

	reserve.TotalReserve = new(big.Int).Sub(reserve.TotalReserve, amount)
	if err := e.state.PutPosition(remaining); err != nil {
		return err
	}
	return e.state.PutReserve(reserve)
}

// Borrow draws the asset from the pooled reserve and records the debt.
func (e *Engine) Borrow(user crypto.Address, asset types.AssetID, amount *big.Int) error {
	if err := e.guard(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	reserve, err := e.activeReserve(asset)
	if err != nil {
		return err
	}
	if reserve.TotalReserve.Cmp(amount) < 0 {
		return ErrInsufficientLiquidity
	}
	position, err := e.ensurePosition(user)
	if err != nil {
		return err
	}
	position.SetDebt(asset, new(big.Int).Add(position.DebtOf(asset), amount))
	reserve.TotalReserve = new(big.Int).Sub(reserve.TotalReserve, amount)

	if err := e.state.PutPosition(position); err != nil {
		return err
	}
	return e.state.PutReserve(reserve)
}

// Repay reduces the user's debt, clamped to the outstanding balance, and
// returns the amount actually applied.
func (e *Engine) Repay(user crypto.Address, asset types.AssetID, amount *big.Int) (*big.Int, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	reserve, err := e.activeReserve(asset)
	if err != nil {
		return nil, err
	}
	position, err := e.ensurePosition(user)
	if err != nil {
		return nil, err
	}
	debt := position.DebtOf(asset)
	if debt.Sign() == 0 {
		return nil, ErrNoDebtForAsset
	}
	repaid := new(big.Int).Set(amount)
	if repaid.Cmp(debt) > 0 {
		repaid = new(big.Int).Set(debt)
	}
	position.SetDebt(asset, new(big.Int).Sub(debt, repaid))
	reserve.TotalReserve = new(big.Int).Add(reserve.TotalReserve, repaid)

	if err := e.state.PutPosition(position); err != nil {
		return nil, err
	}
	if err := e.state.PutReserve(reserve); err != nil {
		return nil, err
	}
	return repaid, nil
}

// GetHealthFactor returns the borrower's health factor as a 7-decimal fixed
// point ratio. Positions with no debt report the infinite sentinel.
func (e *Engine) GetHealthFactor(user crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	position, err := e.state.GetPosition(user)
	if err != nil {
		return nil, err
	}
	if position == nil {
		return InfiniteHealthFactor(), nil
	}
	return e.positionHealthFactor(position)
}

// IsLiquidatable reports whether the borrower's health factor is strictly
// below 1.0. A health factor of exactly 1.0 is healthy.
func (e *Engine) IsLiquidatable(user crypto.Address) (bool, error) {
	hf, err := e.GetHealthFactor(user)
	if err != nil {
		return false, err
	}
	return hf.Cmp(one) < 0, nil
}

// GetUserDebt returns the borrower's outstanding debt in the asset.
func (e *Engine) GetUserDebt(user crypto.Address, asset types.AssetID) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	position, err := e.state.GetPosition(user)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(position.DebtOf(asset)), nil
}

// GetUserBalance returns the user's collateral balance in the asset.
func (e *Engine) GetUserBalance(user crypto.Address, asset types.AssetID) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	position, err := e.state.GetPosition(user)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(position.CollateralOf(asset)), nil
}

// GetTotalReserve returns the protocol's pooled balance of the asset.
func (e *Engine) GetTotalReserve(asset types.AssetID) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	reserve, err := e.state.GetReserve(asset)
	if err != nil {
		return nil, err
	}
	if reserve == nil || reserve.TotalReserve == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(reserve.TotalReserve), nil
}

// Liquidate repays part of an undercollateralized borrower's debt in exchange
// for a bonus-bearing share of their collateral. The seized collateral amount
// is returned. Validation runs side-effect-free and in a fixed order; the
// balance mutations land all together or not at all, and the
// LiquidationExecuted event is emitted only after every mutation commits.
func (e *Engine) Liquidate(liquidator, borrower crypto.Address, debtAsset, collateralAsset types.AssetID, repayAmount *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}

	// Validation phase: no writes until every check has passed.
	if err := e.guard(); err != nil {
		return nil, err
	}
	position, err := e.state.GetPosition(borrower)
	if err != nil {
		return nil, err
	}
	if position == nil {
		return nil, ErrUnknownBorrower
	}
	if liquidator == borrower {
		return nil, ErrSelfLiquidation
	}
	if repayAmount == nil || repayAmount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	debt := position.DebtOf(debtAsset)
	if debt.Sign() == 0 {
		return nil, ErrNoDebtForAsset
	}
	borrowerCollateral := position.CollateralOf(collateralAsset)
	if borrowerCollateral.Sign() == 0 {
		return nil, ErrNoCollateralForAsset
	}
	hf, err := e.positionHealthFactor(position)
	if err != nil {
		return nil, err
	}
	if hf.Cmp(one) >= 0 {
		return nil, ErrPositionHealthy
	}
	if repayAmount.Cmp(maxRepay(debt, e.params.CloseFactorBps)) > 0 {
		return nil, ErrCloseFactorExceeded
	}
	collateralReserve, err := e.state.GetReserve(collateralAsset)
	if err != nil {
		return nil, err
	}
	if collateralReserve == nil {
		return nil, ErrReserveNotFound
	}
	// Alias the reserve when debt and collateral are the same asset so both
	// deltas land on one record.
	debtReserve := collateralReserve
	if debtAsset != collateralAsset {
		debtReserve, err = e.state.GetReserve(debtAsset)
		if err != nil {
			return nil, err
		}
		if debtReserve == nil {
			return nil, ErrReserveNotFound
		}
	}
	seized := seizeAmount(repayAmount, collateralReserve.Config.LiquidationBonusBps)
	// The seizure must be fully covered; clamping would pay the liquidator
	// out of thin air and leave the books inconsistent.
	if seized.Cmp(borrowerCollateral) > 0 {
		return nil, ErrInsufficientCollateral
	}
	liquidatorPosition, err := e.ensurePosition(liquidator)
	if err != nil {
		return nil, err
	}

	// Apply phase: every delta below has been validated against its balance.
	position.SetDebt(debtAsset, new(big.Int).Sub(debt, repayAmount))
	position.SetCollateral(collateralAsset, new(big.Int).Sub(borrowerCollateral, seized))
	liquidatorPosition.SetCollateral(collateralAsset,
		new(big.Int).Add(liquidatorPosition.CollateralOf(collateralAsset), seized))
	debtReserve.TotalReserve = new(big.Int).Add(debtReserve.TotalReserve, repayAmount)
	collateralReserve.TotalReserve = new(big.Int).Sub(collateralReserve.TotalReserve, seized)

	if err := e.state.PutPosition(position); err != nil {
		return nil, err
	}
	if err := e.state.PutPosition(liquidatorPosition); err != nil {
		return nil, err
	}
	if err := e.state.PutReserve(debtReserve); err != nil {
		return nil, err
	}
	if debtReserve != collateralReserve {
		if err := e.state.PutReserve(collateralReserve); err != nil {
			return nil, err
		}
	}

	e.emitter.Emit(events.LiquidationExecuted{
		Liquidator:       liquidator,
		Borrower:         borrower,
		DebtAsset:        debtAsset,
		CollateralAsset:  collateralAsset,
		RepayAmount:      new(big.Int).Set(repayAmount),
		SeizedCollateral: new(big.Int).Set(seized),
	})
	return seized, nil
}

// MustLiquidate is the aborting form of Liquidate: it panics with the exact
// error the checked form returns. Both surfaces share one validation and
// apply path, so behaviour never diverges between them.
func (e *Engine) MustLiquidate(liquidator, borrower crypto.Address, debtAsset, collateralAsset types.AssetID, repayAmount *big.Int) *big.Int {
	seized, err := e.Liquidate(liquidator, borrower, debtAsset, collateralAsset, repayAmount)
	if err != nil {
		panic(err)
	}
	return seized
}

func (e *Engine) guard() error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	paused, err := e.state.Paused()
	if err != nil {
		return err
	}
	if paused {
		return ErrPaused
	}
	return nil
}

func (e *Engine) requireAdmin(caller crypto.Address) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	admin, ok, err := e.state.Admin()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotInitialised
	}
	if caller != admin {
		return ErrNotAdmin
	}
	return nil
}

func (e *Engine) activeReserve(asset types.AssetID) (*Reserve, error) {
	reserve, err := e.state.GetReserve(asset)
	if err != nil {
		return nil, err
	}
	if reserve == nil {
		return nil, ErrReserveNotFound
	}
	if !reserve.Config.IsActive {
		return nil, ErrReserveInactive
	}
	if reserve.TotalReserve == nil {
		reserve.TotalReserve = big.NewInt(0)
	}
	return reserve, nil
}

func (e *Engine) ensurePosition(addr crypto.Address) (*Position, error) {
	position, err := e.state.GetPosition(addr)
	if err != nil {
		return nil, err
	}
	if position == nil {
		position = NewPosition(addr)
	}
	return position, nil
}

// positionHealthFactor evaluates HF over every asset the position touches.
// Assets without a stored price default to 1.0.
func (e *Engine) positionHealthFactor(position *Position) (*big.Int, error) {
	collateralValue := big.NewInt(0)
	for asset, balance := range position.Collateral {
		if balance == nil || balance.Sign() == 0 {
			continue
		}
		reserve, err := e.state.GetReserve(asset)
		if err != nil {
			return nil, err
		}
		if reserve == nil || !reserve.Config.CanBeCollateral {
			continue
		}
		price, err := e.assetPrice(asset)
		if err != nil {
			return nil, err
		}
		collateralValue.Add(collateralValue, weightedValue(balance, price, reserve.Config.CollateralFactorBps))
	}
	debtValue := big.NewInt(0)
	for asset, balance := range position.Debt {
		if balance == nil || balance.Sign() == 0 {
			continue
		}
		price, err := e.assetPrice(asset)
		if err != nil {
			return nil, err
		}
		debtValue.Add(debtValue, rawValue(balance, price))
	}
	return healthFactor(collateralValue, debtValue), nil
}

func (e *Engine) assetPrice(asset types.AssetID) (*big.Int, error) {
	price, err := e.state.GetPrice(asset)
	if err != nil {
		return nil, err
	}
	if price == nil || price.Sign() == 0 {
		return new(big.Int).Set(one), nil
	}
	return price, nil
}
