/*
Package sqlite provides the SQLite-backed persistence layer for the billing app.

PURPOSE:
  Stores the data-entry side of the system - properties, rental units,
  tenants, sub-meter readings, monthly expenses - and the calculation
  results the allocation engine produces. The engine itself never touches
  this package: it receives plain structs and returns plain structs, and
  the handlers move data between the two worlds.

KEY TABLES:
  properties:          Property configuration (rents, fees, meter setup)
  units:               Rental units with their assigned monthly rent
  tenants:             Tenant records, optionally linked to a unit
  meter_readings:      Per-tenant sub-meter pairs, one row per month
  expenses:            Aggregate expense record, one row per property-month
  calculation_results: Result header + per-tenant breakdowns as JSON

SUPERSESSION:
  Recalculating a month replaces that expense's stored result: SaveResult
  deletes any previous row for the expense in the same transaction. The
  engine has no notion of "latest"; this is where it lives.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block and crash recovery improves.

USAGE:
  store, err := sqlite.New("./data/tenancy.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - api: the only consumer of this package
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store implements persistence on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a store backed by the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT,
		base_rent REAL NOT NULL DEFAULT 0,
		internet_fee REAL NOT NULL DEFAULT 0,
		has_individual_meters INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS units (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL REFERENCES properties(id),
		name TEXT NOT NULL,
		monthly_rent REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_units_property ON units(property_id);

	CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL REFERENCES properties(id),
		unit_id TEXT REFERENCES units(id),
		name TEXT NOT NULL,
		phone TEXT,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tenants_property ON tenants(property_id);
	CREATE INDEX IF NOT EXISTS idx_tenants_property_active ON tenants(property_id, is_active);

	CREATE TABLE IF NOT EXISTS meter_readings (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL REFERENCES tenants(id),
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		previous_kwh REAL NOT NULL DEFAULT 0,
		current_kwh REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		UNIQUE(tenant_id, year, month)
	);
	CREATE INDEX IF NOT EXISTS idx_readings_tenant_period ON meter_readings(tenant_id, year, month);

	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL REFERENCES properties(id),
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		total_kwh REAL NOT NULL DEFAULT 0,
		ac_kwh REAL NOT NULL DEFAULT 0,
		base_rent REAL NOT NULL DEFAULT 0,
		internet_fee REAL NOT NULL DEFAULT 0,
		water_bill REAL NOT NULL DEFAULT 0,
		miscellaneous REAL NOT NULL DEFAULT 0,
		split_miscellaneous INTEGER NOT NULL DEFAULT 0,
		invoiced_total REAL,
		created_at TEXT NOT NULL,
		UNIQUE(property_id, year, month)
	);
	CREATE INDEX IF NOT EXISTS idx_expenses_property_period ON expenses(property_id, year, month);

	CREATE TABLE IF NOT EXISTS calculation_results (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL REFERENCES properties(id),
		expense_id TEXT NOT NULL REFERENCES expenses(id),
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		method TEXT NOT NULL,
		total_amount REAL NOT NULL,
		active_tenant_count INTEGER NOT NULL,
		breakdowns_json TEXT NOT NULL,
		calculated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_results_property ON calculation_results(property_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_results_expense ON calculation_results(expense_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RECORD TYPES
// =============================================================================

type Property struct {
	ID                  string
	Name                string
	Address             string
	BaseRent            float64
	InternetFee         float64
	HasIndividualMeters bool
	CreatedAt           time.Time
}

type Unit struct {
	ID          string
	PropertyID  string
	Name        string
	MonthlyRent float64
	CreatedAt   time.Time
}

type Tenant struct {
	ID         string
	PropertyID string
	UnitID     *string
	Name       string
	Phone      string
	IsActive   bool
	CreatedAt  time.Time
}

type MeterReading struct {
	ID          string
	TenantID    string
	Year        int
	Month       int
	PreviousKWh float64
	CurrentKWh  float64
	CreatedAt   time.Time
}

type Expense struct {
	ID                 string
	PropertyID         string
	Year               int
	Month              int
	TotalKWh           float64
	ACKWh              float64
	BaseRent           float64
	InternetFee        float64
	WaterBill          float64
	Miscellaneous      float64
	SplitMiscellaneous bool
	InvoicedTotal      *float64
	CreatedAt          time.Time
}

// StoredBreakdown is the JSON shape of one tenant's breakdown at rest.
type StoredBreakdown struct {
	TenantID               string  `json:"tenant_id"`
	TenantName             string  `json:"tenant_name"`
	UsageKWh               float64 `json:"usage_kwh"`
	RentShare              float64 `json:"rent_share"`
	InternetShare          float64 `json:"internet_share"`
	WaterShare             float64 `json:"water_share"`
	CommonElectricityShare float64 `json:"common_electricity_share"`
	IndividualUsageCost    float64 `json:"individual_usage_cost"`
	MiscellaneousShare     float64 `json:"miscellaneous_share"`
	TotalAmount            float64 `json:"total_amount"`
}

// CalculationRecord is one persisted allocation result.
type CalculationRecord struct {
	ID                string
	PropertyID        string
	ExpenseID         string
	Year              int
	Month             int
	Method            string
	TotalAmount       float64
	ActiveTenantCount int
	Breakdowns        []StoredBreakdown
	CalculatedAt      time.Time
}

func ensureID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// =============================================================================
// PROPERTIES
// =============================================================================

func (s *Store) SaveProperty(ctx context.Context, p Property) (Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = ensureID(p.ID)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO properties (id, name, address, base_rent, internet_fee, has_individual_meters, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, address=excluded.address, base_rent=excluded.base_rent,
			internet_fee=excluded.internet_fee, has_individual_meters=excluded.has_individual_meters`,
		p.ID, p.Name, p.Address, p.BaseRent, p.InternetFee, p.HasIndividualMeters,
		p.CreatedAt.Format(time.RFC3339))
	return p, err
}

func (s *Store) GetProperty(ctx context.Context, id string) (*Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, address, base_rent, internet_fee, has_individual_meters, created_at
		FROM properties WHERE id = ?`, id)
	return scanProperty(row)
}

func (s *Store) ListProperties(ctx context.Context) ([]Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, address, base_rent, internet_fee, has_individual_meters, created_at
		FROM properties ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var properties []Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		properties = append(properties, *p)
	}
	return properties, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProperty(row rowScanner) (*Property, error) {
	var p Property
	var address sql.NullString
	var createdAt string
	var hasMeters int
	err := row.Scan(&p.ID, &p.Name, &address, &p.BaseRent, &p.InternetFee, &hasMeters, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Address = address.String
	p.HasIndividualMeters = hasMeters != 0
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

// =============================================================================
// UNITS
// =============================================================================

func (s *Store) SaveUnit(ctx context.Context, u Unit) (Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u.ID = ensureID(u.ID)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO units (id, property_id, name, monthly_rent, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, monthly_rent=excluded.monthly_rent`,
		u.ID, u.PropertyID, u.Name, u.MonthlyRent, u.CreatedAt.Format(time.RFC3339))
	return u, err
}

func (s *Store) ListUnits(ctx context.Context, propertyID string) ([]Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, property_id, name, monthly_rent, created_at
		FROM units WHERE property_id = ? ORDER BY name`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []Unit
	for rows.Next() {
		var u Unit
		var createdAt string
		if err := rows.Scan(&u.ID, &u.PropertyID, &u.Name, &u.MonthlyRent, &createdAt); err != nil {
			return nil, err
		}
		u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		units = append(units, u)
	}
	return units, rows.Err()
}

// =============================================================================
// TENANTS
// =============================================================================

func (s *Store) SaveTenant(ctx context.Context, t Tenant) (Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = ensureID(t.ID)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenants (id, property_id, unit_id, name, phone, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			unit_id=excluded.unit_id, name=excluded.name, phone=excluded.phone,
			is_active=excluded.is_active`,
		t.ID, t.PropertyID, t.UnitID, t.Name, t.Phone, t.IsActive,
		t.CreatedAt.Format(time.RFC3339))
	return t, err
}

func (s *Store) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, property_id, unit_id, name, phone, is_active, created_at
		FROM tenants WHERE id = ?`, id)
	return scanTenant(row)
}

func (s *Store) ListTenants(ctx context.Context, propertyID string) ([]Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, property_id, unit_id, name, phone, is_active, created_at
		FROM tenants WHERE property_id = ? ORDER BY name`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, *t)
	}
	return tenants, rows.Err()
}

func scanTenant(row rowScanner) (*Tenant, error) {
	var t Tenant
	var createdAt string
	var phone sql.NullString
	var active int
	err := row.Scan(&t.ID, &t.PropertyID, &t.UnitID, &t.Name, &phone, &active, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.Phone = phone.String
	t.IsActive = active != 0
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &t, nil
}

// =============================================================================
// METER READINGS
// =============================================================================

// SaveReading upserts a tenant's reading for a period. One row per
// tenant-month: re-entering a reading replaces the old pair.
func (s *Store) SaveReading(ctx context.Context, r MeterReading) (MeterReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.ID = ensureID(r.ID)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meter_readings (id, tenant_id, year, month, previous_kwh, current_kwh, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, year, month) DO UPDATE SET
			previous_kwh=excluded.previous_kwh, current_kwh=excluded.current_kwh`,
		r.ID, r.TenantID, r.Year, r.Month, r.PreviousKWh, r.CurrentKWh,
		r.CreatedAt.Format(time.RFC3339))
	return r, err
}

// ReadingsForPeriod returns all readings for a property's tenants in a
// period, keyed by tenant ID.
func (s *Store) ReadingsForPeriod(ctx context.Context, propertyID string, year, month int) (map[string]MeterReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.tenant_id, r.year, r.month, r.previous_kwh, r.current_kwh, r.created_at
		FROM meter_readings r
		JOIN tenants t ON t.id = r.tenant_id
		WHERE t.property_id = ? AND r.year = ? AND r.month = ?`,
		propertyID, year, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	readings := make(map[string]MeterReading)
	for rows.Next() {
		var r MeterReading
		var createdAt string
		if err := rows.Scan(&r.ID, &r.TenantID, &r.Year, &r.Month, &r.PreviousKWh, &r.CurrentKWh, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		readings[r.TenantID] = r
	}
	return readings, rows.Err()
}

// =============================================================================
// EXPENSES
// =============================================================================

func (s *Store) SaveExpense(ctx context.Context, e Expense) (Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = ensureID(e.ID)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, property_id, year, month, total_kwh, ac_kwh,
			base_rent, internet_fee, water_bill, miscellaneous, split_miscellaneous,
			invoiced_total, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(property_id, year, month) DO UPDATE SET
			total_kwh=excluded.total_kwh, ac_kwh=excluded.ac_kwh,
			base_rent=excluded.base_rent, internet_fee=excluded.internet_fee,
			water_bill=excluded.water_bill, miscellaneous=excluded.miscellaneous,
			split_miscellaneous=excluded.split_miscellaneous,
			invoiced_total=excluded.invoiced_total`,
		e.ID, e.PropertyID, e.Year, e.Month, e.TotalKWh, e.ACKWh,
		e.BaseRent, e.InternetFee, e.WaterBill, e.Miscellaneous, e.SplitMiscellaneous,
		e.InvoicedTotal, e.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return e, err
	}

	// An upsert on the period key keeps the original row id; read it back.
	row := s.db.QueryRowContext(ctx,
		`SELECT id FROM expenses WHERE property_id = ? AND year = ? AND month = ?`,
		e.PropertyID, e.Year, e.Month)
	if scanErr := row.Scan(&e.ID); scanErr != nil {
		return e, scanErr
	}
	return e, nil
}

func (s *Store) GetExpense(ctx context.Context, propertyID string, year, month int) (*Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, property_id, year, month, total_kwh, ac_kwh, base_rent,
			internet_fee, water_bill, miscellaneous, split_miscellaneous,
			invoiced_total, created_at
		FROM expenses WHERE property_id = ? AND year = ? AND month = ?`,
		propertyID, year, month)
	return scanExpense(row)
}

func (s *Store) ListExpenses(ctx context.Context, propertyID string) ([]Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, property_id, year, month, total_kwh, ac_kwh, base_rent,
			internet_fee, water_bill, miscellaneous, split_miscellaneous,
			invoiced_total, created_at
		FROM expenses WHERE property_id = ? ORDER BY year DESC, month DESC`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

func scanExpense(row rowScanner) (*Expense, error) {
	var e Expense
	var createdAt string
	var split int
	var invoiced sql.NullFloat64
	err := row.Scan(&e.ID, &e.PropertyID, &e.Year, &e.Month, &e.TotalKWh, &e.ACKWh,
		&e.BaseRent, &e.InternetFee, &e.WaterBill, &e.Miscellaneous, &split,
		&invoiced, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.SplitMiscellaneous = split != 0
	if invoiced.Valid {
		v := invoiced.Float64
		e.InvoicedTotal = &v
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &e, nil
}

// =============================================================================
// CALCULATION RESULTS
// =============================================================================

// SaveResult persists an allocation result, superseding any previous result
// for the same expense in a single transaction.
func (s *Store) SaveResult(ctx context.Context, rec CalculationRecord) (CalculationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = ensureID(rec.ID)
	breakdowns, err := json.Marshal(rec.Breakdowns)
	if err != nil {
		return rec, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rec, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM calculation_results WHERE expense_id = ?`, rec.ExpenseID); err != nil {
		return rec, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO calculation_results (id, property_id, expense_id, year, month,
			method, total_amount, active_tenant_count, breakdowns_json, calculated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.PropertyID, rec.ExpenseID, rec.Year, rec.Month,
		rec.Method, rec.TotalAmount, rec.ActiveTenantCount, string(breakdowns),
		rec.CalculatedAt.Format(time.RFC3339)); err != nil {
		return rec, err
	}
	return rec, tx.Commit()
}

func (s *Store) GetResult(ctx context.Context, expenseID string) (*CalculationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, property_id, expense_id, year, month, method, total_amount,
			active_tenant_count, breakdowns_json, calculated_at
		FROM calculation_results WHERE expense_id = ?`, expenseID)
	return scanResult(row)
}

func (s *Store) ListResults(ctx context.Context, propertyID string) ([]CalculationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, property_id, expense_id, year, month, method, total_amount,
			active_tenant_count, breakdowns_json, calculated_at
		FROM calculation_results WHERE property_id = ?
		ORDER BY year DESC, month DESC`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []CalculationRecord
	for rows.Next() {
		rec, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func scanResult(row rowScanner) (*CalculationRecord, error) {
	var rec CalculationRecord
	var breakdowns, calculatedAt string
	err := row.Scan(&rec.ID, &rec.PropertyID, &rec.ExpenseID, &rec.Year, &rec.Month,
		&rec.Method, &rec.TotalAmount, &rec.ActiveTenantCount, &breakdowns, &calculatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(breakdowns), &rec.Breakdowns); err != nil {
		return nil, err
	}
	rec.CalculatedAt, _ = time.Parse(time.RFC3339, calculatedAt)
	return &rec, nil
}
