package engine

import (
	"math/big"

	"github.com/thepaypay420/racepump/internal/constants"
)

// Fee computes floor(amount * bps / 10000). The multiply runs through
// big.Int so the largest uint64 amount cannot overflow the intermediate.
func Fee(amount uint64, bps uint16) uint64 {
	if amount == 0 || bps == 0 {
		return 0
	}

	product := new(big.Int).Mul(
		new(big.Int).SetUint64(amount),
		new(big.Int).SetUint64(uint64(bps)),
	)
	product.Div(product, big.NewInt(constants.FeeDenominator))

	// bps <= 10000 keeps the quotient <= amount, so this cannot fail.
	return product.Uint64()
}
