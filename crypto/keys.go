package crypto

import (
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
)

// AddressPrefix defines the human-readable prefix carried by encoded addresses.
type AddressPrefix string

const (
	// AccountPrefix marks user, liquidator, and admin accounts.
	AccountPrefix AddressPrefix = "slnd"
	// ContractPrefix marks token contracts and AMM protocol endpoints.
	ContractPrefix AddressPrefix = "sct"
)

// AddressLength is the raw byte length of every address.
const AddressLength = 20

// Address represents a 20-byte StellarLend address with a specific prefix. It
// is a comparable value type so addresses and asset identifiers can key maps
// directly.
type Address struct {
	prefix AddressPrefix
	bytes  [AddressLength]byte
}

// NewAddress wraps the raw bytes with the supplied prefix.
func NewAddress(prefix AddressPrefix, b []byte) Address {
	if len(b) != AddressLength {
		panic("address must be 20 bytes long")
	}
	addr := Address{prefix: prefix}
	copy(addr.bytes[:], b)
	return addr
}

// String renders the address in bech32 form.
func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Bytes returns a copy of the raw 20-byte payload.
func (a Address) Bytes() []byte {
	b := a.bytes
	return b[:]
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

// IsZero reports whether the address is the uninitialised zero value.
func (a Address) IsZero() bool {
	return a == Address{}
}

// DecodeAddress parses a bech32 encoded address back into its raw form.
func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	if len(conv) != AddressLength {
		return Address{}, fmt.Errorf("address payload must be %d bytes, got %d", AddressLength, len(conv))
	}
	return NewAddress(AddressPrefix(prefix), conv), nil
}
