package domain

import (
	"fmt"

	dErrors "keygate/pkg/domain-errors"
)

// BasisPoints expresses a fee split in hundredths of a percent.
type BasisPoints uint16

// MaxBasisPoints is 100%: fees above this are unrepresentable splits.
const MaxBasisPoints BasisPoints = 10000

// ParseBasisPoints validates a fee value at the trust boundary.
func ParseBasisPoints(v uint64) (BasisPoints, error) {
	if v > uint64(MaxBasisPoints) {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "basis points must be at most %d, got %d", MaxBasisPoints, v)
	}
	return BasisPoints(v), nil
}

func (b BasisPoints) String() string {
	return fmt.Sprintf("%dbps", uint16(b))
}
