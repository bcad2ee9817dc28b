package tariff_test

import (
	"testing"

	"github.com/warp/tenancy-billing/currency"
	"github.com/warp/tenancy-billing/tariff"
)

// =============================================================================
// TIER SPLIT
// =============================================================================

func TestComputeBill_EnergyTierSplit(t *testing.T) {
	// GIVEN: Usage at and above the 1500 kWh tier boundary
	// WHEN: Computing the energy charge
	// THEN: The first 1500 kWh price at tier 1, the excess at tier 2

	atBoundary := tariff.ComputeBill(1500, nil)
	if got := atBoundary.EnergyCharge.String(); got != "405.45" {
		t.Errorf("1500 kWh energy charge: got %s, want 405.45 (1500 x 0.2703)", got)
	}

	aboveBoundary := tariff.ComputeBill(2000, nil)
	// 1500 x 0.2703 + 500 x 0.3703 = 405.45 + 185.15
	if got := aboveBoundary.EnergyCharge.String(); got != "590.60" {
		t.Errorf("2000 kWh energy charge: got %s, want 590.60", got)
	}
}

// =============================================================================
// THRESHOLD BOUNDARIES
// =============================================================================

func TestComputeBill_RetailChargeWaiver(t *testing.T) {
	// Retail charge is waived at or below 600 kWh, RM 10 above.
	if got := tariff.ComputeBill(600, nil).RetailCharge; !got.IsZero() {
		t.Errorf("600 kWh retail charge: got %s, want 0", got)
	}
	if got := tariff.ComputeBill(600.01, nil).RetailCharge.String(); got != "10.00" {
		t.Errorf("600.01 kWh retail charge: got %s, want 10.00", got)
	}
}

func TestComputeBill_KWTBBExemption(t *testing.T) {
	if got := tariff.ComputeBill(300, nil).KWTBBTax; !got.IsZero() {
		t.Errorf("300 kWh KWTBB: got %s, want 0", got)
	}
	if got := tariff.ComputeBill(300.01, nil).KWTBBTax; !got.IsPositive() {
		t.Errorf("300.01 kWh KWTBB: got %s, want > 0", got)
	}
}

func TestComputeBill_EfficiencyIncentiveCeiling(t *testing.T) {
	// The rebate applies to the WHOLE usage up to 1000 kWh, then vanishes.
	at := tariff.ComputeBill(1000, nil).EfficiencyIncentive
	if !at.IsNegative() {
		t.Errorf("1000 kWh incentive: got %s, want negative rebate", at)
	}
	if at.String() != "-60.00" {
		t.Errorf("1000 kWh incentive: got %s, want -60.00", at)
	}
	if got := tariff.ComputeBill(1000.01, nil).EfficiencyIncentive; !got.IsZero() {
		t.Errorf("1000.01 kWh incentive: got %s, want 0", got)
	}
}

func TestComputeBill_SSTOnExcessOver600Only(t *testing.T) {
	if got := tariff.ComputeBill(600, nil).SSTTax; !got.IsZero() {
		t.Errorf("600 kWh SST: got %s, want 0", got)
	}
	// 80 kWh excess x 0.4443 x 0.08 = 2.84
	if got := tariff.ComputeBill(680, nil).SSTTax.String(); got != "2.84" {
		t.Errorf("680 kWh SST: got %s, want 2.84", got)
	}
}

// =============================================================================
// TOTALS
// =============================================================================

func TestComputeBill_ItemizedTotal(t *testing.T) {
	// GIVEN: 680 kWh, a usage level that triggers retail, KWTBB and SST
	// WHEN: Computing the bill
	// THEN: Components and total match the 2024 rate table exactly

	bill := tariff.ComputeBill(680, nil)

	want := map[string]string{
		"energy":    "183.80",
		"capacity":  "30.94",
		"network":   "87.38",
		"retail":    "10.00",
		"incentive": "-40.80",
		"kwtbb":     "4.34",
		"sst":       "2.84",
		"total":     "278.50",
	}
	got := map[string]string{
		"energy":    bill.EnergyCharge.String(),
		"capacity":  bill.CapacityCharge.String(),
		"network":   bill.NetworkCharge.String(),
		"retail":    bill.RetailCharge.String(),
		"incentive": bill.EfficiencyIncentive.String(),
		"kwtbb":     bill.KWTBBTax.String(),
		"sst":       bill.SSTTax.String(),
		"total":     bill.TotalAmount.String(),
	}
	for k, w := range want {
		if got[k] != w {
			t.Errorf("%s: got %s, want %s", k, got[k], w)
		}
	}
}

func TestComputeBill_TotalMatchesComponentSum(t *testing.T) {
	for _, kWh := range []float64{0, 150, 300, 450, 600, 680, 1000, 1200, 1500, 2200} {
		bill := tariff.ComputeBill(kWh, nil)
		sum := bill.Subtotal().Add(bill.KWTBBTax).Add(bill.SSTTax)
		if !bill.TotalAmount.Equal(sum) {
			t.Errorf("%v kWh: total %s != component sum %s", kWh, bill.TotalAmount, sum)
		}
	}
}

func TestComputeBill_Monotonicity(t *testing.T) {
	// The bill never decreases with more usage, despite the rebate ceiling
	// and the retail waiver threshold.
	usages := []float64{
		0, 50, 299.99, 300, 300.01, 450, 599.99, 600, 600.01,
		750, 999.99, 1000, 1000.01, 1200, 1499.99, 1500, 1500.01, 2000, 3000,
	}
	prev := currency.Zero()
	for i, kWh := range usages {
		total := tariff.ComputeBill(kWh, nil).TotalAmount
		if i > 0 && total.LessThan(prev) {
			t.Errorf("total decreased: %v kWh -> %s, previous %s", kWh, total, prev)
		}
		prev = total
	}
}

func TestComputeBill_InvoicedTotalOverride(t *testing.T) {
	// GIVEN: A real invoice total transcribed from a physical bill
	// WHEN: Computing the bill with the override
	// THEN: TotalAmount is the invoiced figure, the breakdown stays theoretical

	invoiced := 299.99
	bill := tariff.ComputeBill(850, &invoiced)

	if got := bill.TotalAmount.String(); got != "299.99" {
		t.Errorf("total: got %s, want 299.99", got)
	}
	if bill.CalculatedTotal.Equal(bill.TotalAmount) {
		t.Error("calculated total should retain the formula result, not the override")
	}
	if !bill.EnergyCharge.IsPositive() {
		t.Error("itemized breakdown should still be populated under an override")
	}
}

// =============================================================================
// PRICER
// =============================================================================

func TestMarginalCost_IncludesRebateWithinCeiling(t *testing.T) {
	// 120 kWh x 0.4443 - 120 x 0.060 = 53.316 - 7.20 = 46.12
	if got := tariff.MarginalCost(120).String(); got != "46.12" {
		t.Errorf("got %s, want 46.12", got)
	}
}

func TestMarginalCost_NoRebateAboveCeiling(t *testing.T) {
	// 1200 kWh x 0.4443 = 533.16, no rebate
	if got := tariff.MarginalCost(1200).String(); got != "533.16" {
		t.Errorf("got %s, want 533.16", got)
	}
}

func TestAverageRate_ZeroUsageDegeneratesToZero(t *testing.T) {
	bill := tariff.ComputeBill(0, nil)
	if !tariff.AverageRate(bill).IsZero() {
		t.Error("zero usage should yield a zero average rate")
	}
}

func TestAverageRate_BlendedRate(t *testing.T) {
	bill := tariff.ComputeBill(680, nil)
	rate := tariff.AverageRate(bill)

	// 278.50 / 680 applied back to the full usage reproduces the total.
	if got := tariff.CostAtRate(680, rate).String(); got != "278.50" {
		t.Errorf("rate round-trip: got %s, want 278.50", got)
	}
}
