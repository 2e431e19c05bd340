package domain

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"

	dErrors "civicledger/pkg/domain-errors"
)

// AddressLength is the byte length of a ledger account address.
const AddressLength = 20

// Address identifies a ledger account: a reporter, an authority, a slash sink
// or a stake token contract.
//
// Invariant: constructed through ParseAddress at trust boundaries. The
// canonical text form is the EIP-55 mixed-case checksum encoding.
type Address [AddressLength]byte

// NativeToken is the sentinel token address meaning "the ledger's native asset".
var NativeToken = Address{}

// ParseAddress accepts a 0x-prefixed 40 hex digit string. All-lower and
// all-upper inputs are accepted as-is; mixed-case inputs must carry a valid
// checksum.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	body, ok := strings.CutPrefix(s, "0x")
	if !ok {
		body, ok = strings.CutPrefix(s, "0X")
	}
	if !ok || len(body) != 2*AddressLength {
		return Address{}, dErrors.New(dErrors.CodeInvalidInput, "address must be 0x followed by 40 hex digits")
	}
	raw, err := hex.DecodeString(body)
	if err != nil {
		return Address{}, dErrors.New(dErrors.CodeInvalidInput, "address contains non-hex characters")
	}
	var a Address
	copy(a[:], raw)

	if isMixedCase(body) && a.String()[2:] != body {
		return Address{}, dErrors.New(dErrors.CodeInvalidInput, "address checksum mismatch")
	}
	return a, nil
}

// MustParseAddress panics on invalid input. Intended for tests and constants.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the EIP-55 checksummed form.
func (a Address) String() string {
	lower := hex.EncodeToString(a[:])

	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(lower))
	digest := h.Sum(nil)

	out := []byte(lower)
	for i := range out {
		if out[i] < 'a' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if nibble >= 8 {
			out[i] -= 'a' - 'A'
		}
	}
	return "0x" + string(out)
}

func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func isMixedCase(s string) bool {
	return strings.ToLower(s) != s && strings.ToUpper(s) != s
}
