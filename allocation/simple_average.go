/*
simple_average.go - Simple-Average electricity pricing

All electricity, common-area and individual alike, prices at the bill's
blended average rate (total amount / total kWh). The mental model is
"you pay your share of total usage at the bill's effective rate".
Recommended when individual usage variance across tenants is small
(roughly 20 kWh or less), where per-tenant marginal precision buys nothing.
*/
package allocation

import (
	"github.com/warp/tenancy-billing/tariff"
)

type simpleAverage struct{}

func (simpleAverage) method() Method { return MethodSimpleAverage }

func (simpleAverage) electricity(bill tariff.Bill, expense MonthlyExpense, active []Tenant, _ Options) []electricityShare {
	rate := tariff.AverageRate(bill)
	commonPerTenantKWh := expense.CommonKWh() / float64(len(active))

	shares := make([]electricityShare, len(active))
	for i, t := range active {
		shares[i] = electricityShare{
			common:     tariff.CostAtRate(commonPerTenantKWh, rate),
			individual: tariff.CostAtRate(t.Usage(), rate),
		}
	}
	return shares
}
