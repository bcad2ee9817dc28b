/*
pricer.go - Per-kWh pricing modes for individual tenant usage

PURPOSE:
  Derives a cost-per-kWh for a single tenant's sub-metered (air-conditioning)
  usage. Two modes exist because the allocation strategies disagree on what
  "fair" means:

  Marginal rate:
    tier-1 energy + capacity + network (0.2703 + 0.0455 + 0.1285 = 0.4443),
    plus the -0.060/kWh efficiency rebate when THAT TENANT's usage is within
    the 1000 kWh ceiling. Retail charge and both taxes are deliberately
    excluded: they are bill-level threshold charges, not attributable to one
    tenant's marginal consumption.

  Average rate:
    bill total / bill kWh - one blended rate applied uniformly to common-area
    and individual usage alike. Zero usage degenerates to a zero rate.

SEE ALSO:
  - tariff.go: the rate table these modes are built from
*/
package tariff

import (
	"github.com/shopspring/decimal"

	"github.com/warp/tenancy-billing/currency"
)

// MarginalRate returns the combined tier-1 energy + capacity + network rate.
func MarginalRate() decimal.Decimal {
	return EnergyRateTier1.Add(CapacityRate).Add(NetworkRate)
}

// MarginalCost prices a tenant's usage at the marginal rate, applying the
// efficiency rebate when the usage is within the incentive ceiling.
func MarginalCost(usageKWh float64) currency.Amount {
	usage := decimal.NewFromFloat(usageKWh)
	cost := usage.Mul(MarginalRate())
	if !usage.GreaterThan(incentiveCeiling) {
		cost = cost.Add(usage.Mul(IncentiveRate))
	}
	return currency.FromDecimal(cost)
}

// AverageRate returns the blended per-kWh rate of a bill
// (total amount / total usage). Zero usage yields a zero rate.
func AverageRate(b Bill) decimal.Decimal {
	if b.TotalKWh == 0 {
		return decimal.Zero
	}
	return b.TotalAmount.Decimal().Div(decimal.NewFromFloat(b.TotalKWh))
}

// CostAtRate prices a usage quantity at a per-kWh rate, rounding to sen.
func CostAtRate(usageKWh float64, rate decimal.Decimal) currency.Amount {
	return currency.FromDecimal(decimal.NewFromFloat(usageKWh).Mul(rate))
}
