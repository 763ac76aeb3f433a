package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stellarlend/core/types"
	"stellarlend/crypto"
	"stellarlend/native/amm"
	"stellarlend/native/lending"
	"stellarlend/observability/metrics"
)

// Options wires the server to its collaborators and policy.
type Options struct {
	Engine    *lending.Engine
	Swaps     *amm.Router
	Admin     crypto.Address
	Logger    *slog.Logger
	APITokens []string
	RateLimit float64
	RateBurst int
}

// Server exposes the lending engine and swap router over HTTP. Every rule
// lives in the native packages; the server parses, dispatches, and maps
// errors to status codes.
type Server struct {
	engine  *lending.Engine
	swaps   *amm.Router
	admin   crypto.Address
	log     *slog.Logger
	metrics *metrics.LendingMetrics
	handler http.Handler
}

// New assembles the HTTP surface and installs the protocol event emitter.
func New(opts Options) *Server {
	s := &Server{
		engine:  opts.Engine,
		swaps:   opts.Swaps,
		admin:   opts.Admin,
		log:     opts.Logger,
		metrics: metrics.Lending(),
	}
	emitter := newLogEmitter(opts.Logger)
	s.engine.SetEmitter(emitter)
	s.swaps.SetEmitter(emitter)

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	limiter := newClientLimiter(opts.RateLimit, opts.RateBurst)
	r.Group(func(r chi.Router) {
		r.Use(limiter.middleware)
		r.Use(bearerAuth(opts.APITokens))

		r.Get("/v1/positions/{address}/health", s.handleHealthFactor)
		r.Get("/v1/positions/{address}/liquidatable", s.handleLiquidatable)
		r.Get("/v1/positions/{address}/debt/{asset}", s.handleDebt)
		r.Get("/v1/positions/{address}/collateral/{asset}", s.handleCollateral)
		r.Get("/v1/reserves/{asset}", s.handleReserve)
		r.Post("/v1/liquidations", s.handleLiquidate)

		r.Post("/v1/swaps", s.handleSwap)
		r.Post("/v1/swaps/auto", s.handleAutoSwap)
		r.Get("/v1/swaps/history", s.handleSwapHistory)
		r.Post("/v1/callbacks/validate", s.handleValidateCallback)

		r.Post("/v1/admin/pause", s.handlePause)
		r.Post("/v1/admin/unpause", s.handleUnpause)
		r.Post("/v1/admin/reserves", s.handleAddReserve)
		r.Post("/v1/admin/prices", s.handleUpdatePrice)
		r.Get("/v1/admin/settings", s.handleGetSettings)
		r.Put("/v1/admin/settings", s.handleUpdateSettings)
		r.Post("/v1/admin/protocols", s.handleAddProtocol)
		r.Post("/v1/admin/protocols/{address}/enabled", s.handleSetProtocolEnabled)
	})
	s.handler = r
	return s
}

// Handler returns the assembled HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// --- position and reserve views ---

func (s *Server) handleHealthFactor(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r, "address")
	if !ok {
		return
	}
	hf, err := s.engine.GetHealthFactor(addr)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"health_factor": hf.String()})
}

func (s *Server) handleLiquidatable(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r, "address")
	if !ok {
		return
	}
	liquidatable, err := s.engine.IsLiquidatable(addr)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"liquidatable": liquidatable})
}

func (s *Server) handleDebt(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r, "address")
	if !ok {
		return
	}
	asset, ok := pathAsset(w, r, "asset")
	if !ok {
		return
	}
	debt, err := s.engine.GetUserDebt(addr, asset)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"debt": debt.String()})
}

func (s *Server) handleCollateral(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r, "address")
	if !ok {
		return
	}
	asset, ok := pathAsset(w, r, "asset")
	if !ok {
		return
	}
	balance, err := s.engine.GetUserBalance(addr, asset)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"collateral": balance.String()})
}

func (s *Server) handleReserve(w http.ResponseWriter, r *http.Request) {
	asset, ok := pathAsset(w, r, "asset")
	if !ok {
		return
	}
	total, err := s.engine.GetTotalReserve(asset)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"total_reserve": total.String()})
}

// --- liquidation ---

type liquidateRequest struct {
	Liquidator      string `json:"liquidator"`
	Borrower        string `json:"borrower"`
	DebtAsset       string `json:"debt_asset"`
	CollateralAsset string `json:"collateral_asset"`
	RepayAmount     string `json:"repay_amount"`
}

func (s *Server) handleLiquidate(w http.ResponseWriter, r *http.Request) {
	var req liquidateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	liquidator, err := crypto.DecodeAddress(req.Liquidator)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid liquidator address")
		return
	}
	borrower, err := crypto.DecodeAddress(req.Borrower)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid borrower address")
		return
	}
	debtAsset, err := types.ParseAssetID(req.DebtAsset)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid debt asset")
		return
	}
	collateralAsset, err := types.ParseAssetID(req.CollateralAsset)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid collateral asset")
		return
	}
	repay, ok := parseAmount(req.RepayAmount)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid repay amount")
		return
	}
	seized, err := s.engine.Liquidate(liquidator, borrower, debtAsset, collateralAsset, repay)
	if err != nil {
		s.metrics.RecordLiquidationRejected(reasonLabel(err))
		s.fail(w, err)
		return
	}
	s.metrics.RecordLiquidation()
	writeJSON(w, http.StatusOK, map[string]string{"seized_collateral": seized.String()})
}

// --- swaps ---

type swapRequest struct {
	Caller       string `json:"caller"`
	Protocol     string `json:"protocol"`
	TokenIn      string `json:"token_in"`
	TokenOut     string `json:"token_out"`
	AmountIn     string `json:"amount_in"`
	MinAmountOut string `json:"min_amount_out"`
	SlippageBps  uint64 `json:"slippage_bps"`
	Deadline     int64  `json:"deadline"`
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	var req swapRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := crypto.DecodeAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}
	protocol, err := crypto.DecodeAddress(req.Protocol)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid protocol address")
		return
	}
	tokenIn, err := types.ParseAssetID(req.TokenIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid input token")
		return
	}
	tokenOut, err := types.ParseAssetID(req.TokenOut)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid output token")
		return
	}
	amountIn, ok := parseAmount(req.AmountIn)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid input amount")
		return
	}
	var minOut *big.Int
	if req.MinAmountOut != "" {
		if minOut, ok = parseAmount(req.MinAmountOut); !ok {
			writeError(w, http.StatusBadRequest, "invalid minimum output amount")
			return
		}
	}
	record, err := s.swaps.ExecuteSwap(caller, amm.SwapParams{
		Protocol:             protocol,
		TokenIn:              tokenIn,
		TokenOut:             tokenOut,
		AmountIn:             amountIn,
		MinAmountOut:         minOut,
		SlippageToleranceBps: req.SlippageBps,
		Deadline:             req.Deadline,
	})
	if err != nil {
		s.metrics.RecordSwapRejected(reasonLabel(err))
		s.fail(w, err)
		return
	}
	s.metrics.RecordSwap("explicit")
	writeJSON(w, http.StatusOK, swapRecordResponse(record))
}

type autoSwapRequest struct {
	Caller   string `json:"caller"`
	Target   string `json:"target"`
	AmountIn string `json:"amount_in"`
}

func (s *Server) handleAutoSwap(w http.ResponseWriter, r *http.Request) {
	var req autoSwapRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := crypto.DecodeAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}
	target, err := types.ParseAssetID(req.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid target asset")
		return
	}
	amountIn, ok := parseAmount(req.AmountIn)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid input amount")
		return
	}
	out, err := s.swaps.AutoSwapForCollateral(caller, target, amountIn)
	if err != nil {
		s.metrics.RecordSwapRejected(reasonLabel(err))
		s.fail(w, err)
		return
	}
	s.metrics.RecordSwap("auto")
	writeJSON(w, http.StatusOK, map[string]string{"amount_out": out.String()})
}

func (s *Server) handleSwapHistory(w http.ResponseWriter, r *http.Request) {
	var user *crypto.Address
	if raw := r.URL.Query().Get("user"); raw != "" {
		addr, err := crypto.DecodeAddress(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid user address")
			return
		}
		user = &addr
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	records, err := s.swaps.GetSwapHistory(user, limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(records))
	for i := range records {
		out = append(out, swapRecordResponse(&records[i]))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"swaps": out})
}

type callbackRequest struct {
	Protocol string `json:"protocol"`
	Nonce    uint64 `json:"nonce"`
}

func (s *Server) handleValidateCallback(w http.ResponseWriter, r *http.Request) {
	var req callbackRequest
	if !decodeBody(w, r, &req) {
		return
	}
	protocol, err := crypto.DecodeAddress(req.Protocol)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid protocol address")
		return
	}
	if err := s.swaps.ValidateCallback(protocol, req.Nonce); err != nil {
		s.metrics.RecordCallbackRejected(reasonLabel(err))
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// --- admin surface (the daemon acts as the configured admin) ---

func (s *Server) handlePause(w http.ResponseWriter, _ *http.Request) {
	if err := s.engine.Pause(s.admin); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

func (s *Server) handleUnpause(w http.ResponseWriter, _ *http.Request) {
	if err := s.engine.Unpause(s.admin); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

type addReserveRequest struct {
	Asset               string `json:"asset"`
	CollateralFactorBps uint64 `json:"collateral_factor_bps"`
	LiquidationBonusBps uint64 `json:"liquidation_bonus_bps"`
	IsActive            bool   `json:"is_active"`
	CanBeCollateral     bool   `json:"can_be_collateral"`
}

func (s *Server) handleAddReserve(w http.ResponseWriter, r *http.Request) {
	var req addReserveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	asset, err := types.ParseAssetID(req.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset")
		return
	}
	err = s.engine.AddReserve(s.admin, asset, lending.ReserveConfig{
		CollateralFactorBps: req.CollateralFactorBps,
		LiquidationBonusBps: req.LiquidationBonusBps,
		IsActive:            req.IsActive,
		CanBeCollateral:     req.CanBeCollateral,
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"asset": asset.String()})
}

type updatePriceRequest struct {
	Asset string `json:"asset"`
	Price string `json:"price"`
}

func (s *Server) handleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	var req updatePriceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	asset, err := types.ParseAssetID(req.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset")
		return
	}
	price, ok := parseAmount(req.Price)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid price")
		return
	}
	if err := s.engine.UpdateAssetPrice(s.admin, asset, price); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"asset": asset.String(), "price": price.String()})
}

type settingsPayload struct {
	DefaultSlippageBps uint64 `json:"default_slippage_bps"`
	MaxSlippageBps     uint64 `json:"max_slippage_bps"`
	SwapEnabled        bool   `json:"swap_enabled"`
	LiquidityEnabled   bool   `json:"liquidity_enabled"`
	AutoSwapThreshold  string `json:"auto_swap_threshold"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	settings, err := s.swaps.GetSettings()
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsPayload{
		DefaultSlippageBps: settings.DefaultSlippageBps,
		MaxSlippageBps:     settings.MaxSlippageBps,
		SwapEnabled:        settings.SwapEnabled,
		LiquidityEnabled:   settings.LiquidityEnabled,
		AutoSwapThreshold:  settings.AutoSwapThreshold.String(),
	})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsPayload
	if !decodeBody(w, r, &req) {
		return
	}
	threshold, ok := parseAmount(req.AutoSwapThreshold)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid auto swap threshold")
		return
	}
	err := s.swaps.UpdateSettings(s.admin, amm.Settings{
		DefaultSlippageBps: req.DefaultSlippageBps,
		MaxSlippageBps:     req.MaxSlippageBps,
		SwapEnabled:        req.SwapEnabled,
		LiquidityEnabled:   req.LiquidityEnabled,
		AutoSwapThreshold:  threshold,
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

type addProtocolRequest struct {
	Address       string     `json:"address"`
	Name          string     `json:"name"`
	Enabled       bool       `json:"enabled"`
	FeeTierBps    uint64     `json:"fee_tier_bps"`
	MinSwapAmount string     `json:"min_swap_amount"`
	MaxSwapAmount string     `json:"max_swap_amount"`
	Pairs         [][]string `json:"pairs"`
}

func (s *Server) handleAddProtocol(w http.ResponseWriter, r *http.Request) {
	var req addProtocolRequest
	if !decodeBody(w, r, &req) {
		return
	}
	addr, err := crypto.DecodeAddress(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid protocol address")
		return
	}
	pairs := make([]amm.TokenPair, 0, len(req.Pairs))
	for _, pair := range req.Pairs {
		if len(pair) != 2 {
			writeError(w, http.StatusBadRequest, "pairs must name exactly two assets")
			return
		}
		tokenA, err := types.ParseAssetID(pair[0])
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid pair asset")
			return
		}
		tokenB, err := types.ParseAssetID(pair[1])
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid pair asset")
			return
		}
		pairs = append(pairs, amm.TokenPair{TokenA: tokenA, TokenB: tokenB})
	}
	config := amm.ProtocolConfig{
		Address:        addr,
		Name:           req.Name,
		Enabled:        req.Enabled,
		FeeTierBps:     req.FeeTierBps,
		SupportedPairs: pairs,
	}
	if req.MinSwapAmount != "" {
		if config.MinSwapAmount, err = parseRequired(req.MinSwapAmount); err != nil {
			writeError(w, http.StatusBadRequest, "invalid minimum swap amount")
			return
		}
	}
	if req.MaxSwapAmount != "" {
		if config.MaxSwapAmount, err = parseRequired(req.MaxSwapAmount); err != nil {
			writeError(w, http.StatusBadRequest, "invalid maximum swap amount")
			return
		}
	}
	if err := s.swaps.AddProtocol(s.admin, config); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"address": addr.String()})
}

type setEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleSetProtocolEnabled(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r, "address")
	if !ok {
		return
	}
	var req setEnabledRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.swaps.SetProtocolEnabled(s.admin, addr, req.Enabled); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}

// --- helpers ---

func swapRecordResponse(record *amm.SwapRecord) map[string]interface{} {
	return map[string]interface{}{
		"id":             record.ID,
		"user":           record.User.String(),
		"protocol":       record.Protocol.String(),
		"token_in":       record.TokenIn.String(),
		"token_out":      record.TokenOut.String(),
		"amount_in":      record.AmountIn.String(),
		"amount_out":     record.AmountOut.String(),
		"timestamp":      record.Timestamp.UTC().Format(time.RFC3339),
		"callback_nonce": record.CallbackNonce,
	}
}

func pathAddress(w http.ResponseWriter, r *http.Request, param string) (crypto.Address, bool) {
	addr, err := crypto.DecodeAddress(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid address")
		return crypto.Address{}, false
	}
	return addr, true
}

func pathAsset(w http.ResponseWriter, r *http.Request, param string) (types.AssetID, bool) {
	asset, err := types.ParseAssetID(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset")
		return types.AssetID{}, false
	}
	return asset, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

func parseAmount(raw string) (*big.Int, bool) {
	if raw == "" {
		return nil, false
	}
	value, ok := new(big.Int).SetString(raw, 10)
	return value, ok
}

func parseRequired(raw string) (*big.Int, error) {
	value, ok := parseAmount(raw)
	if !ok {
		return nil, errors.New("invalid amount")
	}
	return value, nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, lending.ErrNotAdmin), errors.Is(err, amm.ErrNotAdmin),
		errors.Is(err, lending.ErrSelfLiquidation):
		return http.StatusForbidden
	case errors.Is(err, lending.ErrUnknownBorrower), errors.Is(err, lending.ErrReserveNotFound),
		errors.Is(err, amm.ErrProtocolNotRegistered):
		return http.StatusNotFound
	case errors.Is(err, lending.ErrReserveExists), errors.Is(err, lending.ErrAlreadyInitialised),
		errors.Is(err, amm.ErrSettingsExist), errors.Is(err, amm.ErrProtocolExists):
		return http.StatusConflict
	case errors.Is(err, lending.ErrPaused), errors.Is(err, amm.ErrSwapsDisabled),
		errors.Is(err, amm.ErrProtocolDisabled), errors.Is(err, lending.ErrReserveInactive):
		return http.StatusServiceUnavailable
	case errors.Is(err, lending.ErrInvalidAmount), errors.Is(err, lending.ErrInvalidPrice),
		errors.Is(err, lending.ErrInvalidReserveConfig), errors.Is(err, amm.ErrInvalidAmount),
		errors.Is(err, amm.ErrInvalidSettings), errors.Is(err, amm.ErrInvalidProtocolConfig):
		return http.StatusBadRequest
	case errors.Is(err, lending.ErrPositionHealthy), errors.Is(err, lending.ErrCloseFactorExceeded),
		errors.Is(err, lending.ErrInsufficientCollateral), errors.Is(err, lending.ErrInsufficientBalance),
		errors.Is(err, lending.ErrInsufficientLiquidity), errors.Is(err, lending.ErrUnhealthyWithdrawal),
		errors.Is(err, lending.ErrNoDebtForAsset), errors.Is(err, lending.ErrNoCollateralForAsset),
		errors.Is(err, lending.ErrNotCollateral), errors.Is(err, amm.ErrBelowThreshold),
		errors.Is(err, amm.ErrAmountOutOfBounds), errors.Is(err, amm.ErrUnsupportedPair),
		errors.Is(err, amm.ErrSlippageTooHigh), errors.Is(err, amm.ErrDeadlineExpired),
		errors.Is(err, amm.ErrInsufficientOutput), errors.Is(err, amm.ErrStaleNonce):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// reasonLabel keeps metric label cardinality bounded to the sentinel set.
func reasonLabel(err error) string {
	switch {
	case errors.Is(err, lending.ErrPaused):
		return "paused"
	case errors.Is(err, lending.ErrUnknownBorrower):
		return "unknown_borrower"
	case errors.Is(err, lending.ErrSelfLiquidation):
		return "self_liquidation"
	case errors.Is(err, lending.ErrInvalidAmount), errors.Is(err, amm.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, lending.ErrNoDebtForAsset):
		return "no_debt"
	case errors.Is(err, lending.ErrNoCollateralForAsset):
		return "no_collateral"
	case errors.Is(err, lending.ErrPositionHealthy):
		return "healthy"
	case errors.Is(err, lending.ErrCloseFactorExceeded):
		return "close_factor"
	case errors.Is(err, lending.ErrInsufficientCollateral):
		return "seizure_shortfall"
	case errors.Is(err, amm.ErrSwapsDisabled):
		return "swaps_disabled"
	case errors.Is(err, amm.ErrBelowThreshold):
		return "below_threshold"
	case errors.Is(err, amm.ErrAmountOutOfBounds):
		return "out_of_bounds"
	case errors.Is(err, amm.ErrUnsupportedPair):
		return "unsupported_pair"
	case errors.Is(err, amm.ErrSlippageTooHigh):
		return "slippage"
	case errors.Is(err, amm.ErrDeadlineExpired):
		return "deadline"
	case errors.Is(err, amm.ErrInsufficientOutput):
		return "insufficient_output"
	case errors.Is(err, amm.ErrProtocolNotRegistered):
		return "unknown_protocol"
	case errors.Is(err, amm.ErrProtocolDisabled):
		return "protocol_disabled"
	case errors.Is(err, amm.ErrStaleNonce):
		return "stale_nonce"
	default:
		return "internal"
	}
}
