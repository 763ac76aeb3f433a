package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"stellarlend/core/state"
	"stellarlend/crypto"
	"stellarlend/native/amm"
	"stellarlend/native/lending"
	"stellarlend/observability/logging"
	"stellarlend/storage"
)

const testToken = "unit-test-token"

func testAddr(tag byte) crypto.Address {
	raw := make([]byte, crypto.AddressLength)
	raw[0] = tag
	return crypto.NewAddress(crypto.AccountPrefix, raw)
}

func newTestServer(t *testing.T) (*Server, crypto.Address) {
	t.Helper()
	store := state.NewStore(storage.NewMemDB())
	admin := testAddr(0x01)

	engine := lending.NewEngine(lending.RiskParameters{})
	engine.SetState(store)
	if err := engine.Initialize(admin); err != nil {
		t.Fatalf("initialize engine: %v", err)
	}
	swaps := amm.NewRouter(store)
	if err := swaps.InitializeSettings(admin, amm.Settings{SwapEnabled: true}); err != nil {
		t.Fatalf("initialize settings: %v", err)
	}

	srv := New(Options{
		Engine:    engine,
		Swaps:     swaps,
		Admin:     admin,
		Logger:    logging.Setup("lendingd-test", "test", logging.ParseLevel("error")),
		APITokens: []string{testToken},
		RateLimit: 1_000,
		RateBurst: 1_000,
	})
	return srv, admin
}

func doRequest(srv *Server, method, path, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)
	user := testAddr(0x02)

	rec := doRequest(srv, http.MethodGet, "/v1/positions/"+user.String()+"/health", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", rec.Code)
	}
	rec = doRequest(srv, http.MethodGet, "/v1/positions/"+user.String()+"/health", "wrong-token", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status = %d, want 401", rec.Code)
	}
	rec = doRequest(srv, http.MethodGet, "/v1/positions/"+user.String()+"/health", testToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("good token: status = %d, want 200", rec.Code)
	}
}

func TestHealthzIsPublic(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(srv, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHealthFactorForUnknownAddressIsInfinite(t *testing.T) {
	srv, _ := newTestServer(t)
	user := testAddr(0x02)

	rec := doRequest(srv, http.MethodGet, "/v1/positions/"+user.String()+"/health", testToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["health_factor"] != lending.InfiniteHealthFactor().String() {
		t.Fatalf("health_factor = %s, want the infinite sentinel", payload["health_factor"])
	}
}

func TestLiquidateErrorMapping(t *testing.T) {
	srv, _ := newTestServer(t)
	liquidator := testAddr(0x03)
	borrower := testAddr(0x04)

	body := `{"liquidator":"` + liquidator.String() + `","borrower":"` + borrower.String() +
		`","debt_asset":"native","collateral_asset":"native","repay_amount":"10"}`
	rec := doRequest(srv, http.MethodPost, "/v1/liquidations", testToken, body)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown borrower: status = %d, want 404", rec.Code)
	}

	rec = doRequest(srv, http.MethodPost, "/v1/liquidations", testToken, `{"liquidator":"nonsense"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad address: status = %d, want 400", rec.Code)
	}
}

func TestAdminEndpointsActAsConfiguredAdmin(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/v1/admin/reserves", testToken,
		`{"asset":"native","collateral_factor_bps":7500,"liquidation_bonus_bps":500,"is_active":true,"can_be_collateral":true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add reserve: status = %d, body %s", rec.Code, rec.Body.String())
	}
	// Duplicate registration maps to conflict.
	rec = doRequest(srv, http.MethodPost, "/v1/admin/reserves", testToken,
		`{"asset":"native","collateral_factor_bps":7500,"liquidation_bonus_bps":500,"is_active":true,"can_be_collateral":true}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate reserve: status = %d, want 409", rec.Code)
	}

	rec = doRequest(srv, http.MethodPost, "/v1/admin/pause", testToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("pause: status = %d", rec.Code)
	}
	rec = doRequest(srv, http.MethodGet, "/v1/admin/settings", testToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get settings: status = %d", rec.Code)
	}
	var settings settingsPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &settings); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if !settings.SwapEnabled {
		t.Fatal("settings should report swaps enabled")
	}
}

func TestRateLimitRejectsBursts(t *testing.T) {
	store := state.NewStore(storage.NewMemDB())
	admin := testAddr(0x01)
	engine := lending.NewEngine(lending.RiskParameters{})
	engine.SetState(store)
	if err := engine.Initialize(admin); err != nil {
		t.Fatalf("initialize engine: %v", err)
	}
	swaps := amm.NewRouter(store)
	if err := swaps.InitializeSettings(admin, amm.Settings{SwapEnabled: true}); err != nil {
		t.Fatalf("initialize settings: %v", err)
	}
	srv := New(Options{
		Engine:    engine,
		Swaps:     swaps,
		Admin:     admin,
		Logger:    logging.Setup("lendingd-test", "test", logging.ParseLevel("error")),
		APITokens: []string{testToken},
		RateLimit: 1,
		RateBurst: 1,
	})

	user := testAddr(0x02)
	path := "/v1/positions/" + user.String() + "/health"
	if rec := doRequest(srv, http.MethodGet, path, testToken, ""); rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d, want 200", rec.Code)
	}
	if rec := doRequest(srv, http.MethodGet, path, testToken, ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want 429", rec.Code)
	}
}
