package state

import (
	"math/big"
	"testing"

	"stellarlend/core/types"
	"stellarlend/crypto"
	"stellarlend/native/lending"
	"stellarlend/storage"
)

func newTestStore() *Store {
	return NewStore(storage.NewMemDB())
}

func addr(tag byte) crypto.Address {
	raw := make([]byte, crypto.AddressLength)
	raw[0] = tag
	return crypto.NewAddress(crypto.AccountPrefix, raw)
}

func TestReserveRoundTrip(t *testing.T) {
	store := newTestStore()
	asset := types.TokenAsset(crypto.NewAddress(crypto.ContractPrefix, make([]byte, crypto.AddressLength)))

	missing, err := store.GetReserve(asset)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Fatal("missing reserve must be nil")
	}

	reserve := &lending.Reserve{
		Asset: asset,
		Config: lending.ReserveConfig{
			CollateralFactorBps: 7_500,
			LiquidationBonusBps: 500,
			IsActive:            true,
			CanBeCollateral:     true,
		},
		TotalReserve: big.NewInt(123_456),
	}
	if err := store.PutReserve(reserve); err != nil {
		t.Fatalf("put: %v", err)
	}
	loaded, err := store.GetReserve(asset)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded == nil {
		t.Fatal("reserve not found after put")
	}
	if loaded.Asset != asset {
		t.Fatalf("asset = %s, want %s", loaded.Asset, asset)
	}
	if loaded.Config != reserve.Config {
		t.Fatalf("config = %+v, want %+v", loaded.Config, reserve.Config)
	}
	if loaded.TotalReserve.Cmp(reserve.TotalReserve) != 0 {
		t.Fatalf("total = %s, want %s", loaded.TotalReserve, reserve.TotalReserve)
	}
}

func TestPositionRoundTrip(t *testing.T) {
	store := newTestStore()
	owner := addr(0x42)
	native := types.NativeAsset()
	token := types.TokenAsset(crypto.NewAddress(crypto.ContractPrefix, append(make([]byte, crypto.AddressLength-1), 0x01)))

	position := lending.NewPosition(owner)
	position.SetCollateral(native, big.NewInt(100))
	position.SetCollateral(token, big.NewInt(55))
	position.SetDebt(native, big.NewInt(90))

	if err := store.PutPosition(position); err != nil {
		t.Fatalf("put: %v", err)
	}
	loaded, err := store.GetPosition(owner)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded == nil {
		t.Fatal("position not found after put")
	}
	if loaded.Address != owner {
		t.Fatalf("address = %s, want %s", loaded.Address, owner)
	}
	if loaded.CollateralOf(native).Cmp(big.NewInt(100)) != 0 ||
		loaded.CollateralOf(token).Cmp(big.NewInt(55)) != 0 ||
		loaded.DebtOf(native).Cmp(big.NewInt(90)) != 0 {
		t.Fatal("balances did not survive the round trip")
	}
	if loaded.DebtOf(token).Sign() != 0 {
		t.Fatal("absent balances must read as zero")
	}
}

func TestPriceRoundTrip(t *testing.T) {
	store := newTestStore()
	native := types.NativeAsset()

	missing, err := store.GetPrice(native)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Fatal("missing price must be nil")
	}
	if err := store.PutPrice(native, big.NewInt(15_000_000)); err != nil {
		t.Fatalf("put: %v", err)
	}
	price, err := store.GetPrice(native)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if price.Cmp(big.NewInt(15_000_000)) != 0 {
		t.Fatalf("price = %s, want 15000000", price)
	}
}

func TestPausedFlag(t *testing.T) {
	store := newTestStore()
	paused, err := store.Paused()
	if err != nil {
		t.Fatalf("paused: %v", err)
	}
	if paused {
		t.Fatal("fresh store must not be paused")
	}
	if err := store.SetPaused(true); err != nil {
		t.Fatalf("set: %v", err)
	}
	if paused, _ = store.Paused(); !paused {
		t.Fatal("pause flag did not persist")
	}
	if err := store.SetPaused(false); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if paused, _ = store.Paused(); paused {
		t.Fatal("pause flag did not clear")
	}
}

func TestAdminRoundTrip(t *testing.T) {
	store := newTestStore()
	if _, ok, err := store.Admin(); err != nil || ok {
		t.Fatalf("fresh store admin: ok=%v err=%v, want unset", ok, err)
	}
	admin := addr(0x07)
	if err := store.SetAdmin(admin); err != nil {
		t.Fatalf("set: %v", err)
	}
	loaded, ok, err := store.Admin()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || loaded != admin {
		t.Fatalf("admin = %s ok=%v, want %s", loaded, ok, admin)
	}
}

type kvRecord struct {
	Name  string
	Value uint64
}

func TestKVListAppendAndReplace(t *testing.T) {
	store := newTestStore()
	key := []byte("test/list")

	var empty []kvRecord
	if err := store.KVGetList(key, &empty); err != nil {
		t.Fatalf("get empty: %v", err)
	}
	if len(empty) != 0 {
		t.Fatal("missing list must decode to nothing")
	}

	if err := store.KVAppend(key, kvRecord{Name: "a", Value: 1}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.KVAppend(key, kvRecord{Name: "b", Value: 2}); err != nil {
		t.Fatalf("append: %v", err)
	}
	var loaded []kvRecord
	if err := store.KVGetList(key, &loaded); err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(loaded) != 2 || loaded[0].Name != "a" || loaded[1].Value != 2 {
		t.Fatalf("loaded = %+v, want the appended records in order", loaded)
	}

	if err := store.KVPutList(key, []kvRecord{{Name: "c", Value: 3}}); err != nil {
		t.Fatalf("put list: %v", err)
	}
	loaded = nil
	if err := store.KVGetList(key, &loaded); err != nil {
		t.Fatalf("get after replace: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Name != "c" {
		t.Fatalf("loaded = %+v, want the replacement list", loaded)
	}
}

func TestKVScalarRoundTrip(t *testing.T) {
	store := newTestStore()
	key := []byte("test/counter")

	var counter uint64
	ok, err := store.KVGet(key, &counter)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if ok {
		t.Fatal("missing key must report absent")
	}
	if err := store.KVPut(key, uint64(7)); err != nil {
		t.Fatalf("put: %v", err)
	}
	ok, err = store.KVGet(key, &counter)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || counter != 7 {
		t.Fatalf("counter = %d ok=%v, want 7", counter, ok)
	}
	if err := store.KVDelete(key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ = store.KVGet(key, &counter); ok {
		t.Fatal("deleted key must report absent")
	}
}
