package lending

import "errors"

var (
	// ErrNilState marks an engine that was never wired to a state store.
	ErrNilState = errors.New("lending engine: state not configured")
	// ErrNotInitialised marks use of the engine before Initialize.
	ErrNotInitialised = errors.New("lending engine: protocol not initialised")
	// ErrAlreadyInitialised rejects a second Initialize call.
	ErrAlreadyInitialised = errors.New("lending engine: protocol already initialised")
	// ErrNotAdmin rejects policy mutations from non-admin callers.
	ErrNotAdmin = errors.New("lending engine: caller is not the admin")
	// ErrPaused rejects state transitions while the protocol is paused.
	ErrPaused = errors.New("lending engine: protocol paused")
	// ErrInvalidAmount rejects zero or negative amounts.
	ErrInvalidAmount = errors.New("lending engine: amount must be positive")
	// ErrInvalidPrice rejects zero or negative oracle prices.
	ErrInvalidPrice = errors.New("lending engine: price must be positive")
	// ErrInvalidReserveConfig rejects factors above 100%.
	ErrInvalidReserveConfig = errors.New("lending engine: reserve factors must not exceed 10000 bps")
	// ErrReserveExists rejects duplicate reserve registration.
	ErrReserveExists = errors.New("lending engine: reserve already registered")
	// ErrReserveNotFound marks operations against an unregistered asset.
	ErrReserveNotFound = errors.New("lending engine: reserve not registered")
	// ErrReserveInactive marks operations against a deactivated reserve.
	ErrReserveInactive = errors.New("lending engine: reserve not active")
	// ErrNotCollateral rejects collateral deposits into a reserve whose
	// asset cannot back debt.
	ErrNotCollateral = errors.New("lending engine: asset cannot be used as collateral")
	// ErrUnknownBorrower marks liquidation of an address with no position.
	ErrUnknownBorrower = errors.New("lending engine: borrower has no position")
	// ErrNoDebtForAsset marks a debt asset the borrower does not owe.
	ErrNoDebtForAsset = errors.New("lending engine: borrower owes nothing in the specified debt asset")
	// ErrNoCollateralForAsset marks a collateral asset the borrower does
	// not hold.
	ErrNoCollateralForAsset = errors.New("lending engine: borrower holds none of the specified collateral asset")
	// ErrSelfLiquidation forbids borrowers liquidating their own position.
	ErrSelfLiquidation = errors.New("lending engine: self-liquidation forbidden")
	// ErrPositionHealthy protects positions with a health factor at or
	// above 1.0 from liquidation.
	ErrPositionHealthy = errors.New("lending engine: borrower health factor at or above 1")
	// ErrCloseFactorExceeded rejects repay amounts above the close factor
	// cap for the current debt.
	ErrCloseFactorExceeded = errors.New("lending engine: repay amount exceeds close factor limit")
	// ErrInsufficientCollateral rejects liquidations whose seizure would
	// exceed the borrower's collateral balance.
	ErrInsufficientCollateral = errors.New("lending engine: collateral cannot cover seizure")
	// ErrInsufficientBalance rejects withdrawals and repayments above the
	// caller's balance.
	ErrInsufficientBalance = errors.New("lending engine: insufficient balance")
	// ErrInsufficientLiquidity rejects draws above the pooled reserve.
	ErrInsufficientLiquidity = errors.New("lending engine: insufficient reserve liquidity")
	// ErrUnhealthyWithdrawal rejects collateral withdrawals that would drop
	// the position's health factor below 1.0.
	ErrUnhealthyWithdrawal = errors.New("lending engine: withdrawal would leave position unhealthy")
)
