package state

import (
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	"stellarlend/core/types"
	"stellarlend/crypto"
	"stellarlend/native/lending"
	"stellarlend/storage"
)

const (
	reservePrefix  = "lending/reserve/"
	positionPrefix = "lending/position/"
	pricePrefix    = "lending/price/"
	pausedKey      = "lending/paused"
	adminKey       = "lending/admin"
)

// Store persists protocol state in a key-value database using RLP encoding.
// It backs both the lending engine and the swap router; a mutex serialises
// access so a single store can be shared across service goroutines.
type Store struct {
	mu sync.Mutex
	db storage.Database
}

// NewStore wraps the supplied database.
func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

// storedBalance is the persisted form of one asset balance. Balances are kept
// as sorted slices because RLP has no map encoding.
type storedBalance struct {
	Asset  string
	Amount *big.Int
}

type storedPosition struct {
	Address    string
	Collateral []storedBalance
	Debt       []storedBalance
}

type storedReserve struct {
	Asset               string
	CollateralFactorBps uint64
	LiquidationBonusBps uint64
	IsActive            bool
	CanBeCollateral     bool
	TotalReserve        *big.Int
}

func encodeBalances(balances map[types.AssetID]*big.Int) []storedBalance {
	out := make([]storedBalance, 0, len(balances))
	for asset, amount := range balances {
		if amount == nil {
			continue
		}
		out = append(out, storedBalance{Asset: asset.String(), Amount: new(big.Int).Set(amount)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out
}

func decodeBalances(stored []storedBalance) (map[types.AssetID]*big.Int, error) {
	out := make(map[types.AssetID]*big.Int, len(stored))
	for _, balance := range stored {
		asset, err := types.ParseAssetID(balance.Asset)
		if err != nil {
			return nil, err
		}
		amount := balance.Amount
		if amount == nil {
			amount = big.NewInt(0)
		}
		out[asset] = new(big.Int).Set(amount)
	}
	return out, nil
}

// GetReserve loads the reserve record for the asset, nil when unregistered.
func (s *Store) GetReserve(asset types.AssetID) (*lending.Reserve, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.db.Get([]byte(reservePrefix + asset.String()))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var stored storedReserve
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, fmt.Errorf("decode reserve: %w", err)
	}
	decoded, err := types.ParseAssetID(stored.Asset)
	if err != nil {
		return nil, err
	}
	total := stored.TotalReserve
	if total == nil {
		total = big.NewInt(0)
	}
	return &lending.Reserve{
		Asset: decoded,
		Config: lending.ReserveConfig{
			CollateralFactorBps: stored.CollateralFactorBps,
			LiquidationBonusBps: stored.LiquidationBonusBps,
			IsActive:            stored.IsActive,
			CanBeCollateral:     stored.CanBeCollateral,
		},
		TotalReserve: new(big.Int).Set(total),
	}, nil
}

// PutReserve persists the reserve record.
func (s *Store) PutReserve(reserve *lending.Reserve) error {
	if reserve == nil {
		return fmt.Errorf("state: nil reserve")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	total := reserve.TotalReserve
	if total == nil {
		total = big.NewInt(0)
	}
	data, err := rlp.EncodeToBytes(&storedReserve{
		Asset:               reserve.Asset.String(),
		CollateralFactorBps: reserve.Config.CollateralFactorBps,
		LiquidationBonusBps: reserve.Config.LiquidationBonusBps,
		IsActive:            reserve.Config.IsActive,
		CanBeCollateral:     reserve.Config.CanBeCollateral,
		TotalReserve:        total,
	})
	if err != nil {
		return fmt.Errorf("encode reserve: %w", err)
	}
	return s.db.Put([]byte(reservePrefix+reserve.Asset.String()), data)
}

// GetPosition loads the borrower's position, nil when the address has never
// interacted with the protocol.
func (s *Store) GetPosition(addr crypto.Address) (*lending.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.db.Get([]byte(positionPrefix + addr.String()))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var stored storedPosition
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, fmt.Errorf("decode position: %w", err)
	}
	decoded, err := crypto.DecodeAddress(stored.Address)
	if err != nil {
		return nil, err
	}
	position := lending.NewPosition(decoded)
	if position.Collateral, err = decodeBalances(stored.Collateral); err != nil {
		return nil, err
	}
	if position.Debt, err = decodeBalances(stored.Debt); err != nil {
		return nil, err
	}
	return position, nil
}

// PutPosition persists the borrower's position.
func (s *Store) PutPosition(position *lending.Position) error {
	if position == nil {
		return fmt.Errorf("state: nil position")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := rlp.EncodeToBytes(&storedPosition{
		Address:    position.Address.String(),
		Collateral: encodeBalances(position.Collateral),
		Debt:       encodeBalances(position.Debt),
	})
	if err != nil {
		return fmt.Errorf("encode position: %w", err)
	}
	return s.db.Put([]byte(positionPrefix+position.Address.String()), data)
}

// GetPrice loads the stored oracle price for the asset, nil when unset.
func (s *Store) GetPrice(asset types.AssetID) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.db.Get([]byte(pricePrefix + asset.String()))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	price := new(big.Int)
	if err := rlp.DecodeBytes(data, price); err != nil {
		return nil, fmt.Errorf("decode price: %w", err)
	}
	return price, nil
}

// PutPrice stores the oracle price for the asset.
func (s *Store) PutPrice(asset types.AssetID, price *big.Int) error {
	if price == nil {
		return fmt.Errorf("state: nil price")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := rlp.EncodeToBytes(price)
	if err != nil {
		return fmt.Errorf("encode price: %w", err)
	}
	return s.db.Put([]byte(pricePrefix+asset.String()), data)
}

// Paused reports whether the emergency pause flag is set.
func (s *Store) Paused() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.db.Get([]byte(pausedKey))
	if err != nil {
		return false, err
	}
	return len(data) == 1 && data[0] == 1, nil
}

// SetPaused stores the emergency pause flag.
func (s *Store) SetPaused(paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if paused {
		return s.db.Put([]byte(pausedKey), []byte{1})
	}
	return s.db.Delete([]byte(pausedKey))
}

// Admin returns the protocol admin address; ok is false before Initialize.
func (s *Store) Admin() (crypto.Address, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.db.Get([]byte(adminKey))
	if err != nil {
		return crypto.Address{}, false, err
	}
	if data == nil {
		return crypto.Address{}, false, nil
	}
	addr, err := crypto.DecodeAddress(string(data))
	if err != nil {
		return crypto.Address{}, false, err
	}
	return addr, true, nil
}

// SetAdmin stores the protocol admin address.
func (s *Store) SetAdmin(addr crypto.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Put([]byte(adminKey), []byte(addr.String()))
}

// --- Generic RLP key-value surface ---

// KVGet decodes the value stored under key into out and reports whether the
// key was present.
func (s *Store) KVGet(key []byte, out interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.db.Get(key)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

// KVPut encodes value with RLP and stores it under key.
func (s *Store) KVPut(key []byte, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return s.db.Put(key, data)
}

// KVDelete removes the value stored under key.
func (s *Store) KVDelete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Delete(key)
}

// KVAppend appends the encoded value to the list stored under key, creating
// the list if absent.
func (s *Store) KVAppend(key []byte, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raws, err := s.rawList(key)
	if err != nil {
		return err
	}
	enc, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("encode %q element: %w", key, err)
	}
	raws = append(raws, enc)
	data, err := rlp.EncodeToBytes(raws)
	if err != nil {
		return fmt.Errorf("encode %q list: %w", key, err)
	}
	return s.db.Put(key, data)
}

// KVGetList decodes every element of the list stored under key into out, a
// pointer to a slice. A missing key leaves out untouched.
func (s *Store) KVGetList(key []byte, out interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raws, err := s.rawList(key)
	if err != nil {
		return err
	}
	target := reflect.ValueOf(out)
	if target.Kind() != reflect.Ptr || target.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("state: list target must be a pointer to a slice")
	}
	slice := target.Elem()
	elemType := slice.Type().Elem()
	for _, raw := range raws {
		elem := reflect.New(elemType)
		if err := rlp.DecodeBytes(raw, elem.Interface()); err != nil {
			return fmt.Errorf("decode %q element: %w", key, err)
		}
		slice = reflect.Append(slice, elem.Elem())
	}
	target.Elem().Set(slice)
	return nil
}

// KVPutList replaces the list stored under key with the elements of value, a
// slice of RLP-encodable values.
func (s *Store) KVPutList(key []byte, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	source := reflect.ValueOf(value)
	if source.Kind() == reflect.Ptr {
		source = source.Elem()
	}
	if source.Kind() != reflect.Slice {
		return fmt.Errorf("state: list value must be a slice")
	}
	raws := make([][]byte, 0, source.Len())
	for i := 0; i < source.Len(); i++ {
		enc, err := rlp.EncodeToBytes(source.Index(i).Interface())
		if err != nil {
			return fmt.Errorf("encode %q element: %w", key, err)
		}
		raws = append(raws, enc)
	}
	data, err := rlp.EncodeToBytes(raws)
	if err != nil {
		return fmt.Errorf("encode %q list: %w", key, err)
	}
	return s.db.Put(key, data)
}

func (s *Store) rawList(key []byte) ([][]byte, error) {
	data, err := s.db.Get(key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var raws [][]byte
	if err := rlp.DecodeBytes(data, &raws); err != nil {
		return nil, fmt.Errorf("decode %q list: %w", key, err)
	}
	return raws, nil
}
