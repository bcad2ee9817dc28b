/*
Package tariff reconstructs an itemized TNB domestic bill from aggregate kWh usage.

PURPOSE:
  Given a month's total kWh, produce the seven bill components of the 2024
  domestic tariff structure (energy, capacity, network, retail, efficiency
  incentive, KWTBB, SST) and the total. The calculation is a pure function:
  same usage in, same bill out, no state, no I/O.

RATE STRUCTURE (2024):
  Energy:     tiered - 0.2703/kWh up to 1500 kWh, 0.3703/kWh for the excess
  Capacity:   0.0455/kWh flat
  Network:    0.1285/kWh flat
  Retail:     RM 10.00 flat, waived at or below 600 kWh
  Incentive:  -0.060/kWh rebate on the WHOLE usage when usage <= 1000 kWh,
              nothing above (all-or-nothing, not tiered)
  KWTBB:      1.6% of subtotal, exempt at or below 300 kWh
  SST:        8% on the portion above 600 kWh, priced at the combined
              tier-1 energy + capacity + network rate

INVOICE OVERRIDE:
  The real invoice may differ from the formula by a few sen (utility-side
  rounding). Callers can supply the transcribed invoice total; it becomes
  TotalAmount while the itemized theoretical breakdown is retained for
  display and audit.

SEE ALSO:
  - pricer.go: per-kWh pricing modes derived from this rate table
  - allocation: distributes the bill total across tenants
*/
package tariff

import (
	"github.com/shopspring/decimal"

	"github.com/warp/tenancy-billing/currency"
)

// =============================================================================
// RATE TABLE - TNB domestic tariff, 2024 structure
// =============================================================================

var (
	// Energy charge tiers
	EnergyRateTier1    = decimal.RequireFromString("0.2703") // per kWh, first 1500 kWh
	EnergyRateTier2    = decimal.RequireFromString("0.3703") // per kWh, above 1500 kWh
	energyTierBoundary = decimal.NewFromInt(1500)

	// Flat per-kWh charges
	CapacityRate = decimal.RequireFromString("0.0455")
	NetworkRate  = decimal.RequireFromString("0.1285")

	// Retail charge: flat fee, waived for low usage
	retailCharge        = decimal.NewFromInt(10)
	retailWaiverCeiling = decimal.NewFromInt(600)

	// Energy efficiency incentive: rebate on the whole usage, or nothing
	IncentiveRate    = decimal.RequireFromString("-0.060")
	incentiveCeiling = decimal.NewFromInt(1000)

	// KWTBB (renewable energy fund): percentage of subtotal above exemption
	kwtbbRate      = decimal.RequireFromString("0.016")
	kwtbbThreshold = decimal.NewFromInt(300)

	// SST: applies to the portion of usage above 600 kWh only
	sstRate      = decimal.RequireFromString("0.08")
	sstThreshold = decimal.NewFromInt(600)
)

// =============================================================================
// BILL - Itemized tariff components
// =============================================================================

// Bill is an itemized TNB bill reconstructed from aggregate usage.
// The invariant TotalAmount == sum(components) holds within rounding
// tolerance unless an invoiced total override was supplied.
type Bill struct {
	TotalKWh float64

	EnergyCharge        currency.Amount
	CapacityCharge      currency.Amount
	NetworkCharge       currency.Amount
	RetailCharge        currency.Amount
	EfficiencyIncentive currency.Amount // negative or zero
	KWTBBTax            currency.Amount
	SSTTax              currency.Amount

	// CalculatedTotal is always the formula result.
	CalculatedTotal currency.Amount

	// TotalAmount is the authoritative total: the invoiced override when
	// supplied, otherwise CalculatedTotal.
	TotalAmount currency.Amount
}

// Subtotal returns the pre-tax sum of the five charge components.
func (b Bill) Subtotal() currency.Amount {
	return currency.Sum(
		b.EnergyCharge,
		b.CapacityCharge,
		b.NetworkCharge,
		b.RetailCharge,
		b.EfficiencyIncentive,
	)
}

// ComputeBill reconstructs the itemized bill for the given usage.
// invoicedTotal, when non-nil, overrides the computed total (the real
// invoice wins; the breakdown stays theoretical).
func ComputeBill(kWh float64, invoicedTotal *float64) Bill {
	usage := decimal.NewFromFloat(kWh)

	// Tiered energy charge
	tier1 := decimal.Min(usage, energyTierBoundary)
	tier2 := decimal.Max(decimal.Zero, usage.Sub(energyTierBoundary))
	energy := currency.FromDecimal(
		tier1.Mul(EnergyRateTier1).Add(tier2.Mul(EnergyRateTier2)))

	capacity := currency.FromDecimal(usage.Mul(CapacityRate))
	network := currency.FromDecimal(usage.Mul(NetworkRate))

	retail := currency.Zero()
	if usage.GreaterThan(retailWaiverCeiling) {
		retail = currency.FromDecimal(retailCharge)
	}

	incentive := currency.Zero()
	if !usage.GreaterThan(incentiveCeiling) {
		incentive = currency.FromDecimal(usage.Mul(IncentiveRate))
	}

	subtotal := currency.Sum(energy, capacity, network, retail, incentive)

	kwtbb := currency.Zero()
	if usage.GreaterThan(kwtbbThreshold) {
		kwtbb = currency.FromDecimal(subtotal.Decimal().Mul(kwtbbRate))
	}

	sst := currency.Zero()
	if usage.GreaterThan(sstThreshold) {
		taxableKWh := usage.Sub(sstThreshold)
		taxableBase := taxableKWh.Mul(MarginalRate())
		sst = currency.FromDecimal(taxableBase.Mul(sstRate))
	}

	calculated := subtotal.Add(kwtbb).Add(sst)

	total := calculated
	if invoicedTotal != nil {
		total = currency.FromFloat(*invoicedTotal)
	}

	return Bill{
		TotalKWh:            kWh,
		EnergyCharge:        energy,
		CapacityCharge:      capacity,
		NetworkCharge:       network,
		RetailCharge:        retail,
		EfficiencyIncentive: incentive,
		KWTBBTax:            kwtbb,
		SSTTax:              sst,
		CalculatedTotal:     calculated,
		TotalAmount:         total,
	}
}
