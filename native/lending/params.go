package lending

// DefaultCloseFactorBps caps the share of outstanding debt repayable in one
// liquidation call at 50%.
const DefaultCloseFactorBps uint64 = 5_000

// RiskParameters groups the protocol-wide liquidation policy limits. They are
// supplied at construction and may later be changed through the admin-gated
// setters on the engine.
type RiskParameters struct {
	// CloseFactorBps bounds the repayable share of the borrower's current
	// debt per liquidation call, in basis points.
	CloseFactorBps uint64
}

// Normalise fills unset parameters with protocol defaults.
func (p RiskParameters) Normalise() RiskParameters {
	if p.CloseFactorBps == 0 {
		p.CloseFactorBps = DefaultCloseFactorBps
	}
	return p
}
