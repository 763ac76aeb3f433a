package lending

import "math/big"

var (
	basisPoints = big.NewInt(10_000)
	// one is 1.0 in the protocol's 7-decimal fixed point representation.
	one = big.NewInt(10_000_000)
)

// infiniteHealthFactor is the sentinel for positions carrying no debt. Such
// positions are never liquidatable regardless of collateral.
var infiniteHealthFactor = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))

// InfiniteHealthFactor returns the sentinel health factor of a debt-free
// position. A fresh copy is returned on every call.
func InfiniteHealthFactor() *big.Int {
	return new(big.Int).Set(infiniteHealthFactor)
}

// healthFactor computes the 7-decimal fixed point ratio of risk-weighted
// collateral value to debt value. Zero debt yields the infinite sentinel.
func healthFactor(collateralValue, debtValue *big.Int) *big.Int {
	if debtValue == nil || debtValue.Sign() == 0 {
		return InfiniteHealthFactor()
	}
	if collateralValue == nil || collateralValue.Sign() == 0 {
		return big.NewInt(0)
	}
	ratio := new(big.Int).Mul(collateralValue, one)
	return ratio.Quo(ratio, debtValue)
}

// weightedValue scales a balance by its price and collateral factor:
// balance * price * factorBps / 10000, floor division. Price and balance are
// both 7-decimal fixed point; the result keeps the product scale so that
// numerator and denominator of the health factor cancel.
func weightedValue(balance, price *big.Int, factorBps uint64) *big.Int {
	if balance == nil || balance.Sign() == 0 || price == nil || price.Sign() == 0 {
		return big.NewInt(0)
	}
	value := new(big.Int).Mul(balance, price)
	value.Mul(value, new(big.Int).SetUint64(factorBps))
	return value.Quo(value, basisPoints)
}

// rawValue scales a balance by its price without a risk discount.
func rawValue(balance, price *big.Int) *big.Int {
	if balance == nil || balance.Sign() == 0 || price == nil || price.Sign() == 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Mul(balance, price)
}

// maxRepay computes the close factor cap over the borrower's current debt:
// debt * closeFactorBps / 10000, floor division.
func maxRepay(currentDebt *big.Int, closeFactorBps uint64) *big.Int {
	if currentDebt == nil || currentDebt.Sign() <= 0 {
		return big.NewInt(0)
	}
	capped := new(big.Int).Mul(currentDebt, new(big.Int).SetUint64(closeFactorBps))
	return capped.Quo(capped, basisPoints)
}

// seizeAmount computes the collateral owed to the liquidator:
// repay * (10000 + bonusBps) / 10000, floor division.
func seizeAmount(repay *big.Int, bonusBps uint64) *big.Int {
	if repay == nil || repay.Sign() <= 0 {
		return big.NewInt(0)
	}
	seized := new(big.Int).Mul(repay, new(big.Int).SetUint64(10_000+bonusBps))
	return seized.Quo(seized, basisPoints)
}
