// Package domain holds the identifier and value types shared across keygate.
//
// Types here are domain primitives: parsing enforces validity at trust
// boundaries so services never see a malformed principal address, policy ID,
// or fee. Distinct named types keep the compiler from letting a sale ID leak
// into a policy ID parameter.
package domain

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	dErrors "keygate/pkg/domain-errors"
)

// Address identifies a principal: any identity that can hold subscription keys
// and credentials. The wire form is a 0x-prefixed 40-digit hex string with an
// EIP-55 style mixed-case checksum.
type Address [20]byte

// ZeroAddress is the empty principal. It doubles as the native-asset sentinel
// in subscription pricing configuration.
var ZeroAddress Address

// ParseAddress validates and decodes a principal address. Mixed-case input is
// checksum-verified; all-lowercase and all-uppercase forms are accepted
// without a checksum so hand-typed dev configuration stays usable.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return Address{}, dErrors.New(dErrors.CodeInvalidInput, "address cannot be empty")
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return Address{}, dErrors.New(dErrors.CodeInvalidInput, "address must start with 0x")
	}
	body := s[2:]
	if len(body) != 40 {
		return Address{}, dErrors.New(dErrors.CodeInvalidInput, "address must be 20 bytes of hex")
	}
	raw, err := hex.DecodeString(body)
	if err != nil {
		return Address{}, dErrors.New(dErrors.CodeInvalidInput, "address contains non-hex characters")
	}

	var a Address
	copy(a[:], raw)

	if isMixedCase(body) && a.Hex() != "0x"+body {
		return Address{}, dErrors.New(dErrors.CodeInvalidInput, "address checksum mismatch")
	}
	return a, nil
}

// MustAddress parses an address and panics on failure. For package-level
// tables and test fixtures only.
func MustAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Hex returns the checksummed 0x-prefixed form of the address.
func (a Address) Hex() string {
	lower := hex.EncodeToString(a[:])

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	sum := h.Sum(nil)

	out := []byte(lower)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := sum[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[i] = c - ('a' - 'A')
		}
	}
	return "0x" + string(out)
}

func (a Address) String() string {
	return a.Hex()
}

// IsZero reports whether the address is the zero principal.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

func isMixedCase(s string) bool {
	var hasLower, hasUpper bool
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'f':
			hasLower = true
		case c >= 'A' && c <= 'F':
			hasUpper = true
		}
	}
	return hasLower && hasUpper
}

// PolicyID identifies the credential a binding governs.
type PolicyID uint64

// ParsePolicyID rejects the zero policy, which the credential registry
// reserves as "no policy".
func ParsePolicyID(v uint64) (PolicyID, error) {
	if v == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "policy ID cannot be zero")
	}
	return PolicyID(v), nil
}

// SaleID identifies one subscription sale on the ledger.
type SaleID uuid.UUID

// NewSaleID mints a fresh sale identifier.
func NewSaleID() SaleID {
	return SaleID(uuid.New())
}

// ParseSaleID validates a sale ID string.
func ParseSaleID(s string) (SaleID, error) {
	if s == "" {
		return SaleID{}, dErrors.New(dErrors.CodeInvalidInput, "sale ID cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return SaleID{}, dErrors.New(dErrors.CodeInvalidInput, "sale ID must be a valid UUID")
	}
	if u == uuid.Nil {
		return SaleID{}, dErrors.New(dErrors.CodeInvalidInput, "sale ID cannot be the nil UUID")
	}
	return SaleID(u), nil
}

func (s SaleID) String() string {
	return uuid.UUID(s).String()
}

// IsNil reports whether the sale ID is unset.
func (s SaleID) IsNil() bool {
	return uuid.UUID(s) == uuid.Nil
}

// Amount is a price or payment in base units of the pricing asset.
type Amount uint64

// ChainID identifies the network a deployment targets, used to resolve the
// subscription mechanism factory.
type ChainID uint64
