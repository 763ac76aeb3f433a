package amm

import "errors"

var (
	// ErrNilStorage marks a router that was never wired to a storage backend.
	ErrNilStorage = errors.New("amm router: storage not configured")
	// ErrSettingsNotInitialised marks use of the router before
	// InitializeSettings.
	ErrSettingsNotInitialised = errors.New("amm router: settings not initialised")
	// ErrSettingsExist rejects a second InitializeSettings call.
	ErrSettingsExist = errors.New("amm router: settings already initialised")
	// ErrNotAdmin rejects settings and registry mutations from non-admin
	// callers.
	ErrNotAdmin = errors.New("amm router: caller is not the admin")
	// ErrInvalidSettings rejects settings whose tolerances exceed 100% or
	// whose default exceeds the maximum.
	ErrInvalidSettings = errors.New("amm router: invalid settings")
	// ErrInvalidProtocolConfig rejects malformed protocol registrations.
	ErrInvalidProtocolConfig = errors.New("amm router: invalid protocol config")
	// ErrProtocolExists rejects duplicate protocol registration.
	ErrProtocolExists = errors.New("amm router: protocol already registered")
	// ErrProtocolNotRegistered marks swaps or callbacks naming an unknown
	// protocol.
	ErrProtocolNotRegistered = errors.New("amm router: protocol not registered")
	// ErrProtocolDisabled marks swaps or callbacks against a disabled
	// protocol.
	ErrProtocolDisabled = errors.New("amm router: protocol disabled")
	// ErrSwapsDisabled rejects swap requests while routing is switched off.
	ErrSwapsDisabled = errors.New("amm router: swaps disabled")
	// ErrInvalidAmount rejects zero or negative swap amounts.
	ErrInvalidAmount = errors.New("amm router: amount must be positive")
	// ErrBelowThreshold rejects automatic swaps below the configured value
	// threshold.
	ErrBelowThreshold = errors.New("amm router: amount below auto-swap threshold")
	// ErrAmountOutOfBounds rejects amounts outside the protocol's swap range.
	ErrAmountOutOfBounds = errors.New("amm router: amount outside protocol swap bounds")
	// ErrUnsupportedPair marks a token pair no eligible protocol supports.
	ErrUnsupportedPair = errors.New("amm router: token pair not supported")
	// ErrSlippageTooHigh rejects tolerances above the configured maximum.
	ErrSlippageTooHigh = errors.New("amm router: slippage tolerance above maximum")
	// ErrDeadlineExpired rejects swaps and callbacks past their deadline.
	ErrDeadlineExpired = errors.New("amm router: deadline expired")
	// ErrInsufficientOutput rejects swaps whose quoted output falls short of
	// the requested minimum.
	ErrInsufficientOutput = errors.New("amm router: output below requested minimum")
	// ErrStaleNonce marks a callback nonce that was never issued or has
	// already been consumed. Stale nonces are permanently invalid.
	ErrStaleNonce = errors.New("amm router: stale callback nonce")
)
