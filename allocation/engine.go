/*
engine.go - The Allocate entry point and the fixed-charge splits shared by
both strategies.

FLOW:
  1. Filter to active tenants; an empty list short-circuits to a zero Result
     (a valid degenerate input: no one to bill yet).
  2. Split the fixed charges (rent, internet, water, misc) equally, with
     assigned unit rents overriding the equal rent split.
  3. Delegate electricity pricing to the selected strategy.
  4. Sum each tenant's shares through the currency rounding discipline.

The authoritative Result.TotalAmount is fixed charges + bill total, NOT the
sum of tenant totals - those may differ by a few sen of rounding drift.
*/
package allocation

import (
	"time"

	"github.com/warp/tenancy-billing/currency"
	"github.com/warp/tenancy-billing/tariff"
)

// electricityShare is a strategy's pricing of one tenant's electricity,
// ordered the same as the active tenant list.
type electricityShare struct {
	common     currency.Amount
	individual currency.Amount
}

// strategy prices electricity for all active tenants. Fixed-charge splits
// are identical across strategies and live in Allocate itself.
type strategy interface {
	method() Method
	electricity(bill tariff.Bill, expense MonthlyExpense, active []Tenant, opts Options) []electricityShare
}

func strategyFor(m Method) strategy {
	switch m {
	case MethodLayeredPrecise:
		return layeredPrecise{}
	default:
		return simpleAverage{}
	}
}

// ActiveTenants filters a tenant list to the active ones, preserving order.
func ActiveTenants(tenants []Tenant) []Tenant {
	var active []Tenant
	for _, t := range tenants {
		if t.Active {
			active = append(active, t)
		}
	}
	return active
}

// Allocate distributes the month's costs across active tenants using the
// given method. It never fails: degenerate inputs produce a degenerate
// Result, and data-entry inconsistencies are the province of Validate.
func Allocate(expense MonthlyExpense, bill tariff.Bill, tenants []Tenant, method Method, opts Options) Result {
	active := ActiveTenants(tenants)
	if len(active) == 0 {
		return Result{
			Method:            method,
			TotalAmount:       currency.Zero(),
			ActiveTenantCount: 0,
			CalculatedAt:      time.Now(),
		}
	}

	n := len(active)
	internetShare := currency.FromFloat(expense.InternetFee).DivInt(n)
	waterShare := currency.FromFloat(expense.WaterBill).DivInt(n)
	equalRentShare := currency.FromFloat(expense.BaseRent).DivInt(n)

	miscShare := currency.Zero()
	if expense.SplitMiscellaneous {
		miscShare = currency.FromFloat(expense.Miscellaneous).DivInt(n)
	}

	shares := strategyFor(method).electricity(bill, expense, active, opts)

	breakdowns := make([]TenantBreakdown, n)
	for i, t := range active {
		rentShare := equalRentShare
		if assigned, ok := opts.AssignedRents[t.ID]; ok {
			// A unit's assigned rent is the full rent for that unit, not a split.
			rentShare = currency.FromFloat(assigned)
		}

		total := currency.Sum(
			rentShare,
			internetShare,
			waterShare,
			miscShare,
			shares[i].common,
			shares[i].individual,
		)

		breakdowns[i] = TenantBreakdown{
			TenantID:               t.ID,
			TenantName:             t.Name,
			UsageKWh:               t.Usage(),
			RentShare:              rentShare,
			InternetShare:          internetShare,
			WaterShare:             waterShare,
			CommonElectricityShare: shares[i].common,
			IndividualUsageCost:    shares[i].individual,
			MiscellaneousShare:     miscShare,
			TotalAmount:            total,
		}
	}

	return Result{
		Method:            method,
		TotalAmount:       expense.FixedCharges().Add(bill.TotalAmount),
		ActiveTenantCount: n,
		Breakdowns:        breakdowns,
		CalculatedAt:      time.Now(),
	}
}

// totalIndividualUsage sums the active tenants' sub-metered usage.
func totalIndividualUsage(active []Tenant) float64 {
	var total float64
	for _, t := range active {
		total += t.Usage()
	}
	return total
}
