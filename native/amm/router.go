package amm

import (
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"stellarlend/core/events"
	"stellarlend/core/types"
	"stellarlend/crypto"
)

const (
	settingsKey       = "amm/settings"
	protocolIndexKey  = "amm/protocols"
	protocolPrefix    = "amm/protocol/"
	historyKey        = "amm/history"
	nonceCounterKey   = "amm/nonce/counter/"
	noncePendingKey   = "amm/nonce/pending/"
	basisPointsScalar = 10_000
)

// Storage is the key-value surface the router persists through. It is the
// generic RLP facade of core/state.Store.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	KVAppend(key []byte, value interface{}) error
	KVGetList(key []byte, out interface{}) error
	KVPutList(key []byte, value interface{}) error
}

// Router routes collateral swaps to registered external venues and keeps the
// append-only swap history. It owns no funds; quoting and settlement happen at
// the venue, the router enforces policy and authenticates callbacks.
type Router struct {
	store   Storage
	now     func() time.Time
	emitter events.Emitter
}

// NewRouter constructs a router over the supplied storage.
func NewRouter(store Storage) *Router {
	return &Router{store: store, now: time.Now, emitter: events.NoopEmitter{}}
}

// SetClock overrides the router's time source. Passing nil restores the
// real-time clock.
func (r *Router) SetClock(now func() time.Time) {
	if r == nil {
		return
	}
	if now == nil {
		r.now = time.Now
		return
	}
	r.now = now
}

// SetEmitter wires the router to an event sink. A nil emitter restores the
// discarding default.
func (r *Router) SetEmitter(emitter events.Emitter) {
	if r == nil {
		return
	}
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// --- stored forms (RLP has no signed ints, maps, or unexported fields) ---

type storedSettings struct {
	Admin              string
	DefaultSlippageBps uint64
	MaxSlippageBps     uint64
	SwapEnabled        bool
	LiquidityEnabled   bool
	AutoSwapThreshold  *big.Int
}

type storedPair struct {
	TokenA string
	TokenB string
}

type storedProtocol struct {
	Address       string
	Name          string
	Enabled       bool
	FeeTierBps    uint64
	MinSwapAmount *big.Int
	MaxSwapAmount *big.Int
	Pairs         []storedPair
}

type storedSwapRecord struct {
	ID            string
	User          string
	Protocol      string
	TokenIn       string
	TokenOut      string
	AmountIn      *big.Int
	AmountOut     *big.Int
	Timestamp     uint64
	CallbackNonce uint64
}

func (r *Router) loadSettings() (Settings, crypto.Address, error) {
	var stored storedSettings
	ok, err := r.store.KVGet([]byte(settingsKey), &stored)
	if err != nil {
		return Settings{}, crypto.Address{}, err
	}
	if !ok {
		return Settings{}, crypto.Address{}, ErrSettingsNotInitialised
	}
	admin, err := crypto.DecodeAddress(stored.Admin)
	if err != nil {
		return Settings{}, crypto.Address{}, err
	}
	threshold := stored.AutoSwapThreshold
	if threshold == nil {
		threshold = big.NewInt(0)
	}
	return Settings{
		DefaultSlippageBps: stored.DefaultSlippageBps,
		MaxSlippageBps:     stored.MaxSlippageBps,
		SwapEnabled:        stored.SwapEnabled,
		LiquidityEnabled:   stored.LiquidityEnabled,
		AutoSwapThreshold:  new(big.Int).Set(threshold),
	}, admin, nil
}

func (r *Router) persistSettings(settings Settings, admin crypto.Address) error {
	return r.store.KVPut([]byte(settingsKey), &storedSettings{
		Admin:              admin.String(),
		DefaultSlippageBps: settings.DefaultSlippageBps,
		MaxSlippageBps:     settings.MaxSlippageBps,
		SwapEnabled:        settings.SwapEnabled,
		LiquidityEnabled:   settings.LiquidityEnabled,
		AutoSwapThreshold:  settings.AutoSwapThreshold,
	})
}

// InitializeSettings records the router admin and initial policy. It may be
// called exactly once.
func (r *Router) InitializeSettings(admin crypto.Address, settings Settings) error {
	if r == nil || r.store == nil {
		return ErrNilStorage
	}
	if admin.IsZero() {
		return ErrNotAdmin
	}
	var stored storedSettings
	if ok, err := r.store.KVGet([]byte(settingsKey), &stored); err != nil {
		return err
	} else if ok {
		return ErrSettingsExist
	}
	settings = settings.Normalise()
	if !settings.valid() {
		return ErrInvalidSettings
	}
	return r.persistSettings(settings, admin)
}

// UpdateSettings replaces the policy singleton. Admin only; the new policy
// governs the very next call.
func (r *Router) UpdateSettings(caller crypto.Address, settings Settings) error {
	if r == nil || r.store == nil {
		return ErrNilStorage
	}
	_, admin, err := r.loadSettings()
	if err != nil {
		return err
	}
	if caller != admin {
		return ErrNotAdmin
	}
	settings = settings.Normalise()
	if !settings.valid() {
		return ErrInvalidSettings
	}
	return r.persistSettings(settings, admin)
}

// GetSettings returns the current policy singleton.
func (r *Router) GetSettings() (Settings, error) {
	if r == nil || r.store == nil {
		return Settings{}, ErrNilStorage
	}
	settings, _, err := r.loadSettings()
	return settings, err
}

// AddProtocol registers an external swap venue. Admin only.
func (r *Router) AddProtocol(caller crypto.Address, config ProtocolConfig) error {
	if r == nil || r.store == nil {
		return ErrNilStorage
	}
	_, admin, err := r.loadSettings()
	if err != nil {
		return err
	}
	if caller != admin {
		return ErrNotAdmin
	}
	if config.Address.IsZero() || len(config.SupportedPairs) == 0 {
		return ErrInvalidProtocolConfig
	}
	config = config.Normalise()
	if config.MinSwapAmount.Cmp(config.MaxSwapAmount) > 0 {
		return ErrInvalidProtocolConfig
	}
	existing, err := r.loadProtocol(config.Address)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrProtocolExists
	}
	if err := r.persistProtocol(config); err != nil {
		return err
	}
	var index []string
	if err := r.store.KVGetList([]byte(protocolIndexKey), &index); err != nil {
		return err
	}
	index = append(index, config.Address.String())
	return r.store.KVPutList([]byte(protocolIndexKey), index)
}

// SetProtocolEnabled toggles a registered venue. Admin only.
func (r *Router) SetProtocolEnabled(caller crypto.Address, protocol crypto.Address, enabled bool) error {
	if r == nil || r.store == nil {
		return ErrNilStorage
	}
	_, admin, err := r.loadSettings()
	if err != nil {
		return err
	}
	if caller != admin {
		return ErrNotAdmin
	}
	config, err := r.loadProtocol(protocol)
	if err != nil {
		return err
	}
	if config == nil {
		return ErrProtocolNotRegistered
	}
	config.Enabled = enabled
	return r.persistProtocol(*config)
}

// GetProtocol returns the venue registration, nil when unknown.
func (r *Router) GetProtocol(protocol crypto.Address) (*ProtocolConfig, error) {
	if r == nil || r.store == nil {
		return nil, ErrNilStorage
	}
	return r.loadProtocol(protocol)
}

func (r *Router) loadProtocol(addr crypto.Address) (*ProtocolConfig, error) {
	var stored storedProtocol
	ok, err := r.store.KVGet([]byte(protocolPrefix+addr.String()), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	decoded, err := crypto.DecodeAddress(stored.Address)
	if err != nil {
		return nil, err
	}
	pairs := make([]TokenPair, 0, len(stored.Pairs))
	for _, pair := range stored.Pairs {
		tokenA, err := types.ParseAssetID(pair.TokenA)
		if err != nil {
			return nil, err
		}
		tokenB, err := types.ParseAssetID(pair.TokenB)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, TokenPair{TokenA: tokenA, TokenB: tokenB})
	}
	return &ProtocolConfig{
		Address:        decoded,
		Name:           stored.Name,
		Enabled:        stored.Enabled,
		FeeTierBps:     stored.FeeTierBps,
		MinSwapAmount:  stored.MinSwapAmount,
		MaxSwapAmount:  stored.MaxSwapAmount,
		SupportedPairs: pairs,
	}, nil
}

func (r *Router) persistProtocol(config ProtocolConfig) error {
	pairs := make([]storedPair, 0, len(config.SupportedPairs))
	for _, pair := range config.SupportedPairs {
		pairs = append(pairs, storedPair{TokenA: pair.TokenA.String(), TokenB: pair.TokenB.String()})
	}
	return r.store.KVPut([]byte(protocolPrefix+config.Address.String()), &storedProtocol{
		Address:       config.Address.String(),
		Name:          config.Name,
		Enabled:       config.Enabled,
		FeeTierBps:    config.FeeTierBps,
		MinSwapAmount: config.MinSwapAmount,
		MaxSwapAmount: config.MaxSwapAmount,
		Pairs:         pairs,
	})
}

// quoteOut applies the slippage tolerance to the input amount:
// out = in * (10000 - toleranceBps) / 10000, floor division.
func quoteOut(amountIn *big.Int, toleranceBps uint64) *big.Int {
	out := new(big.Int).Mul(amountIn, big.NewInt(basisPointsScalar-int64(toleranceBps)))
	return out.Quo(out, big.NewInt(basisPointsScalar))
}

func withinBounds(amount *big.Int, config *ProtocolConfig) bool {
	return amount.Cmp(config.MinSwapAmount) >= 0 && amount.Cmp(config.MaxSwapAmount) <= 0
}

// ExecuteSwap routes an explicit swap through the named venue. On success the
// swap is recorded in the history ledger, a callback nonce is issued to the
// venue, and the record is returned. Validation is side-effect-free; a
// rejected swap leaves no trace in history.
func (r *Router) ExecuteSwap(caller crypto.Address, params SwapParams) (*SwapRecord, error) {
	if r == nil || r.store == nil {
		return nil, ErrNilStorage
	}
	settings, _, err := r.loadSettings()
	if err != nil {
		return nil, err
	}
	if !settings.SwapEnabled {
		return nil, ErrSwapsDisabled
	}
	if params.AmountIn == nil || params.AmountIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	tolerance := params.SlippageToleranceBps
	if tolerance == 0 {
		tolerance = settings.DefaultSlippageBps
	}
	if tolerance > settings.MaxSlippageBps {
		return nil, ErrSlippageTooHigh
	}
	now := r.now()
	if params.Deadline < now.Unix() {
		return nil, ErrDeadlineExpired
	}
	config, err := r.loadProtocol(params.Protocol)
	if err != nil {
		return nil, err
	}
	if config == nil {
		return nil, ErrProtocolNotRegistered
	}
	if !config.Enabled {
		return nil, ErrProtocolDisabled
	}
	if !withinBounds(params.AmountIn, config) {
		return nil, ErrAmountOutOfBounds
	}
	if !config.Supports(params.TokenIn, params.TokenOut) {
		return nil, ErrUnsupportedPair
	}
	amountOut := quoteOut(params.AmountIn, tolerance)
	if params.MinAmountOut != nil && amountOut.Cmp(params.MinAmountOut) < 0 {
		return nil, ErrInsufficientOutput
	}

	nonce, err := r.issueNonce(params.Protocol, params.Deadline)
	if err != nil {
		return nil, err
	}
	record := SwapRecord{
		ID:            uuid.NewString(),
		User:          caller,
		Protocol:      params.Protocol,
		TokenIn:       params.TokenIn,
		TokenOut:      params.TokenOut,
		AmountIn:      new(big.Int).Set(params.AmountIn),
		AmountOut:     amountOut,
		Timestamp:     now,
		CallbackNonce: nonce,
	}
	if err := r.appendHistory(record); err != nil {
		return nil, err
	}
	r.emitter.Emit(events.SwapExecuted{
		User:      caller,
		Protocol:  params.Protocol,
		TokenIn:   params.TokenIn,
		TokenOut:  params.TokenOut,
		AmountIn:  new(big.Int).Set(record.AmountIn),
		AmountOut: new(big.Int).Set(record.AmountOut),
	})
	return &record, nil
}

// MustExecuteSwap is the aborting form of ExecuteSwap.
func (r *Router) MustExecuteSwap(caller crypto.Address, params SwapParams) *SwapRecord {
	record, err := r.ExecuteSwap(caller, params)
	if err != nil {
		panic(err)
	}
	return record
}

// AutoSwapForCollateral converts seized collateral into the target asset when
// the amount clears the configured threshold. The route is resolved to the
// first enabled venue supporting the native/target pair, the default slippage
// tolerance applies, and the quoted output is returned.
func (r *Router) AutoSwapForCollateral(caller crypto.Address, target types.AssetID, amountIn *big.Int) (*big.Int, error) {
	if r == nil || r.store == nil {
		return nil, ErrNilStorage
	}
	settings, _, err := r.loadSettings()
	if err != nil {
		return nil, err
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if !settings.SwapEnabled {
		return nil, ErrSwapsDisabled
	}
	if amountIn.Cmp(settings.AutoSwapThreshold) < 0 {
		return nil, ErrBelowThreshold
	}
	config, err := r.resolveProtocol(types.NativeAsset(), target)
	if err != nil {
		return nil, err
	}
	if !withinBounds(amountIn, config) {
		return nil, ErrAmountOutOfBounds
	}
	amountOut := quoteOut(amountIn, settings.DefaultSlippageBps)

	record := SwapRecord{
		ID:        uuid.NewString(),
		User:      caller,
		Protocol:  config.Address,
		TokenIn:   types.NativeAsset(),
		TokenOut:  target,
		AmountIn:  new(big.Int).Set(amountIn),
		AmountOut: amountOut,
		Timestamp: r.now(),
	}
	if err := r.appendHistory(record); err != nil {
		return nil, err
	}
	r.emitter.Emit(events.SwapExecuted{
		User:      caller,
		Protocol:  config.Address,
		TokenIn:   record.TokenIn,
		TokenOut:  target,
		AmountIn:  new(big.Int).Set(amountIn),
		AmountOut: new(big.Int).Set(amountOut),
	})
	return amountOut, nil
}

// MustAutoSwapForCollateral is the aborting form of AutoSwapForCollateral.
func (r *Router) MustAutoSwapForCollateral(caller crypto.Address, target types.AssetID, amountIn *big.Int) *big.Int {
	out, err := r.AutoSwapForCollateral(caller, target, amountIn)
	if err != nil {
		panic(err)
	}
	return out
}

// resolveProtocol walks the registry in registration order and returns the
// first enabled venue serving the pair.
func (r *Router) resolveProtocol(in, out types.AssetID) (*ProtocolConfig, error) {
	var index []string
	if err := r.store.KVGetList([]byte(protocolIndexKey), &index); err != nil {
		return nil, err
	}
	for _, encoded := range index {
		addr, err := crypto.DecodeAddress(encoded)
		if err != nil {
			return nil, err
		}
		config, err := r.loadProtocol(addr)
		if err != nil {
			return nil, err
		}
		if config == nil || !config.Enabled {
			continue
		}
		if config.Supports(in, out) {
			return config, nil
		}
	}
	return nil, ErrUnsupportedPair
}

func (r *Router) appendHistory(record SwapRecord) error {
	timestamp := record.Timestamp.Unix()
	if timestamp < 0 {
		timestamp = 0
	}
	return r.store.KVAppend([]byte(historyKey), &storedSwapRecord{
		ID:            record.ID,
		User:          record.User.String(),
		Protocol:      record.Protocol.String(),
		TokenIn:       record.TokenIn.String(),
		TokenOut:      record.TokenOut.String(),
		AmountIn:      record.AmountIn,
		AmountOut:     record.AmountOut,
		Timestamp:     uint64(timestamp),
		CallbackNonce: record.CallbackNonce,
	})
}

// GetSwapHistory returns recorded swaps most recent first. A non-nil user
// restricts the result to that user's swaps; limit <= 0 returns everything.
func (r *Router) GetSwapHistory(user *crypto.Address, limit int) ([]SwapRecord, error) {
	if r == nil || r.store == nil {
		return nil, ErrNilStorage
	}
	var stored []storedSwapRecord
	if err := r.store.KVGetList([]byte(historyKey), &stored); err != nil {
		return nil, err
	}
	records := make([]SwapRecord, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		entry := stored[i]
		userAddr, err := crypto.DecodeAddress(entry.User)
		if err != nil {
			return nil, fmt.Errorf("decode history user: %w", err)
		}
		if user != nil && userAddr != *user {
			continue
		}
		protocolAddr, err := crypto.DecodeAddress(entry.Protocol)
		if err != nil {
			return nil, fmt.Errorf("decode history protocol: %w", err)
		}
		tokenIn, err := types.ParseAssetID(entry.TokenIn)
		if err != nil {
			return nil, err
		}
		tokenOut, err := types.ParseAssetID(entry.TokenOut)
		if err != nil {
			return nil, err
		}
		records = append(records, SwapRecord{
			ID:            entry.ID,
			User:          userAddr,
			Protocol:      protocolAddr,
			TokenIn:       tokenIn,
			TokenOut:      tokenOut,
			AmountIn:      entry.AmountIn,
			AmountOut:     entry.AmountOut,
			Timestamp:     time.Unix(int64(entry.Timestamp), 0).UTC(),
			CallbackNonce: entry.CallbackNonce,
		})
		if limit > 0 && len(records) == limit {
			break
		}
	}
	return records, nil
}
