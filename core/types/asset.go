package types

import (
	"fmt"

	"stellarlend/crypto"
)

// AssetID identifies a reserve asset. An asset is either the chain's native
// asset or an issued token contract; the two cases are an explicit variant so
// every pair and balance lookup handles both exhaustively.
type AssetID struct {
	token  crypto.Address
	native bool
}

// NativeAsset returns the identifier of the chain's native asset.
func NativeAsset() AssetID {
	return AssetID{native: true}
}

// TokenAsset returns the identifier of the token issued by the supplied
// contract address.
func TokenAsset(contract crypto.Address) AssetID {
	return AssetID{token: contract}
}

// IsNative reports whether the identifier refers to the native asset.
func (a AssetID) IsNative() bool {
	return a.native
}

// Token returns the token contract address and reports whether the identifier
// refers to an issued token.
func (a AssetID) Token() (crypto.Address, bool) {
	if a.native {
		return crypto.Address{}, false
	}
	return a.token, true
}

// IsZero reports whether the identifier is the uninitialised zero value,
// which refers to no asset at all.
func (a AssetID) IsZero() bool {
	return !a.native && a.token.IsZero()
}

// String renders the identifier for logs and storage keys.
func (a AssetID) String() string {
	if a.native {
		return "native"
	}
	return a.token.String()
}

// ParseAssetID parses the textual form produced by String.
func ParseAssetID(s string) (AssetID, error) {
	if s == "native" {
		return NativeAsset(), nil
	}
	addr, err := crypto.DecodeAddress(s)
	if err != nil {
		return AssetID{}, fmt.Errorf("invalid asset identifier %q: %w", s, err)
	}
	return TokenAsset(addr), nil
}
