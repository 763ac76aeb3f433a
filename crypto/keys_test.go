package crypto

import (
	"bytes"
	"strings"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	raw := make([]byte, AddressLength)
	for i := range raw {
		raw[i] = byte(i)
	}
	addr := NewAddress(AccountPrefix, raw)

	encoded := addr.String()
	if !strings.HasPrefix(encoded, string(AccountPrefix)+"1") {
		t.Fatalf("encoded = %q, want %q prefix", encoded, AccountPrefix)
	}
	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded != addr {
		t.Fatalf("decoded = %s, want %s", decoded, addr)
	}
	if !bytes.Equal(decoded.Bytes(), raw) {
		t.Fatal("payload did not survive the round trip")
	}
}

func TestAddressPrefixesDistinguishKinds(t *testing.T) {
	raw := make([]byte, AddressLength)
	account := NewAddress(AccountPrefix, raw)
	contract := NewAddress(ContractPrefix, raw)
	if account == contract {
		t.Fatal("same payload under different prefixes must not compare equal")
	}
	if account.Prefix() != AccountPrefix || contract.Prefix() != ContractPrefix {
		t.Fatal("prefix accessor mismatch")
	}
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	if _, err := DecodeAddress("not-bech32"); err == nil {
		t.Fatal("garbage input must be rejected")
	}
	if _, err := DecodeAddress(""); err == nil {
		t.Fatal("empty input must be rejected")
	}
}

func TestNewAddressPanicsOnWrongLength(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for short payload")
		}
	}()
	NewAddress(AccountPrefix, []byte{0x01})
}

func TestIsZero(t *testing.T) {
	var zero Address
	if !zero.IsZero() {
		t.Fatal("zero value must report IsZero")
	}
	raw := make([]byte, AddressLength)
	raw[0] = 1
	if NewAddress(AccountPrefix, raw).IsZero() {
		t.Fatal("non-zero address must not report IsZero")
	}
}

func TestBytesReturnsCopy(t *testing.T) {
	raw := make([]byte, AddressLength)
	addr := NewAddress(AccountPrefix, raw)
	leaked := addr.Bytes()
	leaked[0] = 0xff
	if addr.Bytes()[0] == 0xff {
		t.Fatal("Bytes must return a defensive copy")
	}
}
