package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/tenancy-billing/api"
	"github.com/warp/tenancy-billing/store/sqlite"
)

func newTestRouter(t *testing.T) http.Handler {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return api.NewRouter(api.NewHandler(store))
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
	}
	return rec
}

// seedHousehold builds the usual three-tenant house: property rent 1500 and
// internet 89, tenants Aisyah/Ben/Chen using 120/100/80 kWh in March 2024,
// expense 680 kWh total with 300 kWh on sub-meters plus a 35.80 water bill.
func seedHousehold(t *testing.T, router http.Handler) api.PropertyDTO {
	t.Helper()

	var prop api.PropertyDTO
	rec := doJSON(t, router, "POST", "/api/properties", api.SavePropertyRequest{
		Name: "Desa Aman 12A", BaseRent: 1500, InternetFee: 89,
	}, &prop)
	require.Equal(t, http.StatusCreated, rec.Code)

	usages := []struct {
		name     string
		previous float64
		current  float64
	}{
		{"Aisyah", 1000, 1120},
		{"Ben", 2000, 2100},
		{"Chen", 500, 580},
	}
	for _, u := range usages {
		var tenant api.TenantDTO
		rec = doJSON(t, router, "POST", "/api/properties/"+prop.ID+"/tenants", api.SaveTenantRequest{
			Name: u.name, IsActive: true,
		}, &tenant)
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = doJSON(t, router, "POST", "/api/tenants/"+tenant.ID+"/readings", api.SaveReadingRequest{
			Year: 2024, Month: 3, PreviousKWh: u.previous, CurrentKWh: u.current,
		}, nil)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec = doJSON(t, router, "POST", "/api/properties/"+prop.ID+"/expenses", api.SaveExpenseRequest{
		Year: 2024, Month: 3, TotalKWh: 680, ACKWh: 300, WaterBill: 35.80,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	return prop
}

func TestAPI_PropertyRoundTrip(t *testing.T) {
	router := newTestRouter(t)

	var created api.PropertyDTO
	rec := doJSON(t, router, "POST", "/api/properties", api.SavePropertyRequest{
		Name: "Desa Aman 12A", BaseRent: 1500, InternetFee: 89,
	}, &created)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, created.ID)

	var listed []api.PropertyDTO
	rec = doJSON(t, router, "GET", "/api/properties", nil, &listed)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
}

func TestAPI_SaveProperty_RequiresName(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/properties", api.SavePropertyRequest{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Calculate_SimpleAverage(t *testing.T) {
	router := newTestRouter(t)
	prop := seedHousehold(t, router)

	var result api.CalculationDTO
	rec := doJSON(t, router, "POST", "/api/properties/"+prop.ID+"/calculate", api.CalculateRequest{
		Year: 2024, Month: 3, Method: "simple_average",
	}, &result)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "simple_average", result.Method)
	assert.Equal(t, 3, result.ActiveTenantCount)
	assert.InDelta(t, 1903.30, result.TotalAmount, 0.001)
	require.NotNil(t, result.Bill)
	assert.InDelta(t, 278.50, result.Bill.TotalAmount, 0.001)
	assert.Empty(t, result.ValidationIssues)

	require.Len(t, result.Breakdowns, 3)
	assert.Equal(t, "Aisyah", result.Breakdowns[0].TenantName)
	assert.InDelta(t, 642.63, result.Breakdowns[0].TotalAmount, 0.001)
	assert.InDelta(t, result.TotalAmount, result.BreakdownSum, 0.03)
}

func TestAPI_Calculate_UnknownMethod(t *testing.T) {
	router := newTestRouter(t)
	prop := seedHousehold(t, router)

	rec := doJSON(t, router, "POST", "/api/properties/"+prop.ID+"/calculate", api.CalculateRequest{
		Year: 2024, Month: 3, Method: "by-vibes",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Calculate_MissingExpense(t *testing.T) {
	router := newTestRouter(t)
	prop := seedHousehold(t, router)

	rec := doJSON(t, router, "POST", "/api/properties/"+prop.ID+"/calculate", api.CalculateRequest{
		Year: 2024, Month: 12, Method: "simple_average",
	}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_Calculate_SurfacesValidationIssues(t *testing.T) {
	// A reversed meter pair flags an issue but the calculation still runs.
	router := newTestRouter(t)
	prop := seedHousehold(t, router)

	var tenant api.TenantDTO
	rec := doJSON(t, router, "POST", "/api/properties/"+prop.ID+"/tenants", api.SaveTenantRequest{
		Name: "Dina", IsActive: true,
	}, &tenant)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, router, "POST", "/api/tenants/"+tenant.ID+"/readings", api.SaveReadingRequest{
		Year: 2024, Month: 3, PreviousKWh: 900, CurrentKWh: 850,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var result api.CalculationDTO
	rec = doJSON(t, router, "POST", "/api/properties/"+prop.ID+"/calculate", api.CalculateRequest{
		Year: 2024, Month: 3, Method: "simple_average",
	}, &result)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, result.ValidationIssues)
	assert.Equal(t, 4, result.ActiveTenantCount)
}

func TestAPI_Calculate_PersistsAndSupersedes(t *testing.T) {
	router := newTestRouter(t)
	prop := seedHousehold(t, router)

	rec := doJSON(t, router, "POST", "/api/properties/"+prop.ID+"/calculate", api.CalculateRequest{
		Year: 2024, Month: 3, Method: "simple_average",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, router, "POST", "/api/properties/"+prop.ID+"/calculate", api.CalculateRequest{
		Year: 2024, Month: 3, Method: "layered_precise",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var results []api.CalculationDTO
	rec = doJSON(t, router, "GET", "/api/properties/"+prop.ID+"/results", nil, &results)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, results, 1, "recalculating a month replaces its stored result")
	assert.Equal(t, "layered_precise", results[0].Method)
	assert.Len(t, results[0].Breakdowns, 3)
}

func TestAPI_ExportResult(t *testing.T) {
	router := newTestRouter(t)
	prop := seedHousehold(t, router)

	rec := doJSON(t, router, "POST", "/api/properties/"+prop.ID+"/calculate", api.CalculateRequest{
		Year: 2024, Month: 3, Method: "simple_average",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	for _, tc := range []struct {
		format      string
		contentType string
		magic       string
	}{
		{"pdf", "application/pdf", "%PDF"},
		{"csv", "text/csv", "tenant,"},
		{"xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "PK"},
	} {
		t.Run(tc.format, func(t *testing.T) {
			path := fmt.Sprintf("/api/properties/%s/results/2024/3/export?format=%s", prop.ID, tc.format)
			req := httptest.NewRequest("GET", path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tc.contentType, rec.Header().Get("Content-Type"))
			assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte(tc.magic)),
				"unexpected %s payload prefix", tc.format)
		})
	}
}

func TestAPI_ExportResult_NoResult(t *testing.T) {
	router := newTestRouter(t)
	prop := seedHousehold(t, router)

	req := httptest.NewRequest("GET", "/api/properties/"+prop.ID+"/results/2024/3/export", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_TariffPreview(t *testing.T) {
	router := newTestRouter(t)

	var bill api.BillDTO
	rec := doJSON(t, router, "GET", "/api/tariff/preview?kwh=680", nil, &bill)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 278.50, bill.TotalAmount, 0.001)
	assert.InDelta(t, 10.00, bill.RetailCharge, 0.001)

	rec = doJSON(t, router, "GET", "/api/tariff/preview?kwh=-5", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
