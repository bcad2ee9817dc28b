/*
layered.go - Layered-Precise electricity pricing

Shared-meter properties:
  Common-area usage is run through the full tariff bracket on its own, as if
  it were a standalone bill, then divided equally. Whatever remains of the
  real bill total is the pool attributable to individual usage; an implied
  rate (remainder / total individual kWh) prices each tenant's consumption.

Individually-metered properties invert the derivation:
  Each tenant's usage prices directly at the marginal rate - the sub-meters
  are ground truth. The sum of those costs subtracts from the real bill
  total, and the remainder IS the common-area cost, divided equally.
  Common-area usage here is definitionally "whatever is left".

Recommended when usage varies significantly across tenants (a spread above
roughly 50 kWh), because it stops low-usage tenants cross-subsidizing the
tiered-rate benefits enjoyed by high-usage tenants.
*/
package allocation

import (
	"github.com/shopspring/decimal"

	"github.com/warp/tenancy-billing/currency"
	"github.com/warp/tenancy-billing/tariff"
)

type layeredPrecise struct{}

func (layeredPrecise) method() Method { return MethodLayeredPrecise }

func (s layeredPrecise) electricity(bill tariff.Bill, expense MonthlyExpense, active []Tenant, opts Options) []electricityShare {
	if opts.HasIndividualMeters {
		return s.individualFirst(bill, active)
	}
	return s.commonFirst(bill, expense, active)
}

// commonFirst: common-area bracket computed directly, individual usage
// priced from the remainder of the real bill.
func (layeredPrecise) commonFirst(bill tariff.Bill, expense MonthlyExpense, active []Tenant) []electricityShare {
	n := len(active)
	commonBill := tariff.ComputeBill(expense.CommonKWh(), nil)
	commonShare := commonBill.TotalAmount.DivInt(n)

	remainder := bill.TotalAmount.Sub(commonBill.TotalAmount)
	impliedRate := decimal.Zero
	if totalUsage := totalIndividualUsage(active); totalUsage > 0 {
		impliedRate = remainder.Decimal().Div(decimal.NewFromFloat(totalUsage))
	}

	shares := make([]electricityShare, n)
	for i, t := range active {
		shares[i] = electricityShare{
			common:     commonShare,
			individual: tariff.CostAtRate(t.Usage(), impliedRate),
		}
	}
	return shares
}

// individualFirst: sub-metered usage is ground truth, common area is the
// remainder.
func (layeredPrecise) individualFirst(bill tariff.Bill, active []Tenant) []electricityShare {
	n := len(active)
	shares := make([]electricityShare, n)

	individualSum := currency.Zero()
	for i, t := range active {
		cost := tariff.MarginalCost(t.Usage())
		shares[i].individual = cost
		individualSum = individualSum.Add(cost)
	}

	commonShare := bill.TotalAmount.Sub(individualSum).DivInt(n)
	for i := range shares {
		shares[i].common = commonShare
	}
	return shares
}
