/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements pay.RuleStore, tax.CoefficientStore, and tax.TxLedgerStore on
  SQLite. In production the same patterns apply to PostgreSQL - only minor
  SQL dialect differences.

KEY TABLES:
  rate_profiles:    Pay parameters per rate profile
  penalty_rules:    Day/time-window loadings per profile
  public_holidays:  Calendar dates that suppress other rules
  tax_coefficients: Bracket rows per (scale, tax-year); the supplementary
                    ladder is stored under the reserved 'stsl' scale
  tax_settings:     Per-user declared circumstances
  pay_periods:      Period records with their last ledger contribution
  ytd_tax:          Year-to-date ledger, one row per (user, tax-year)

DECIMALS:
  All monetary and rate columns are TEXT holding decimal strings. SQLite's
  numeric affinity would silently convert to float; text round-trips the
  decimal type exactly.

CONCURRENCY:
  Opened in WAL mode with a busy timeout. WithTx additionally serializes
  writers behind a process-local mutex, so the year-to-date
  read-modify-write can never interleave within this process; cross-process
  writers are serialized by SQLite itself.

SEE ALSO:
  - store/memory: In-memory implementation for tests
  - tax/store.go, pay/store.go: Interface definitions
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/pay"
	"github.com/warp/payroll-engine/tax"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex // serializes WithTx writers within the process
}

// New creates a SQLite store at dbPath. Use ":memory:" for an in-memory
// database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
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
	CREATE TABLE IF NOT EXISTS rate_profiles (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		base_rate TEXT NOT NULL,
		casual_loading TEXT NOT NULL,
		ot_tier1_multiplier TEXT NOT NULL,
		ot_tier2_multiplier TEXT NOT NULL,
		ordinary_span_json TEXT NOT NULL,
		daily_threshold_hours TEXT NOT NULL,
		special_threshold_hours TEXT NOT NULL,
		special_threshold_day INTEGER,
		tier2_all_day INTEGER,
		ot_on_span_boundary INTEGER NOT NULL DEFAULT 0,
		ot_on_daily_limit INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS penalty_rules (
		id TEXT PRIMARY KEY,
		profile_id TEXT NOT NULL REFERENCES rate_profiles(id),
		name TEXT NOT NULL,
		start_minute INTEGER NOT NULL,
		end_minute INTEGER NOT NULL,
		day INTEGER,
		multiplier TEXT NOT NULL,
		priority INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1
	);
	CREATE INDEX IF NOT EXISTS idx_penalty_rules_profile
		ON penalty_rules(profile_id);

	CREATE TABLE IF NOT EXISTS public_holidays (
		id TEXT PRIMARY KEY,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		day INTEGER NOT NULL,
		name TEXT NOT NULL,
		jurisdiction TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_public_holidays_date
		ON public_holidays(year, month, day);

	CREATE TABLE IF NOT EXISTS tax_coefficients (
		scale TEXT NOT NULL,
		tax_year TEXT NOT NULL,
		lower_bound TEXT NOT NULL,
		upper_bound TEXT,
		coefficient_a TEXT NOT NULL,
		coefficient_b TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tax_coefficients_key
		ON tax_coefficients(scale, tax_year);

	CREATE TABLE IF NOT EXISTS tax_settings (
		user_id TEXT PRIMARY KEY,
		claimed_threshold INTEGER NOT NULL DEFAULT 0,
		foreign_resident INTEGER NOT NULL DEFAULT 0,
		has_tfn INTEGER NOT NULL DEFAULT 1,
		medicare_exemption TEXT NOT NULL DEFAULT 'none',
		supplementary_debt INTEGER NOT NULL DEFAULT 0,
		extra_withholding TEXT NOT NULL DEFAULT '0'
	);

	CREATE TABLE IF NOT EXISTS pay_periods (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		period_type TEXT NOT NULL,
		end_date TEXT NOT NULL,
		time_zone TEXT NOT NULL DEFAULT 'UTC',
		gross TEXT,
		taxed INTEGER NOT NULL DEFAULT 0,
		last_taxed_gross TEXT NOT NULL DEFAULT '0',
		last_taxed_amount TEXT NOT NULL DEFAULT '0'
	);
	CREATE INDEX IF NOT EXISTS idx_pay_periods_user
		ON pay_periods(user_id);

	CREATE TABLE IF NOT EXISTS ytd_tax (
		user_id TEXT NOT NULL,
		tax_year TEXT NOT NULL,
		gross_income TEXT NOT NULL,
		total_withheld TEXT NOT NULL,
		last_updated TEXT NOT NULL,
		PRIMARY KEY (user_id, tax_year)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// pay.RuleStore
// =============================================================================

type spanJSON struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (s *Store) RateProfile(ctx context.Context, id string) (pay.RateProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, base_rate, casual_loading,
		       ot_tier1_multiplier, ot_tier2_multiplier, ordinary_span_json,
		       daily_threshold_hours, special_threshold_hours,
		       special_threshold_day, tier2_all_day,
		       ot_on_span_boundary, ot_on_daily_limit
		FROM rate_profiles WHERE id = ?`, id)

	var p pay.RateProfile
	var baseRate, loading, ot1, ot2, daily, special string
	var spanBlob string
	var specialDay, tier2Day sql.NullInt64
	var onSpan, onDaily int

	err := row.Scan(&p.ID, &p.Name, &baseRate, &loading, &ot1, &ot2, &spanBlob,
		&daily, &special, &specialDay, &tier2Day, &onSpan, &onDaily)
	if err == sql.ErrNoRows {
		return pay.RateProfile{}, pay.ErrRateProfileNotFound
	}
	if err != nil {
		return pay.RateProfile{}, err
	}

	if p.BaseRate, err = decimal.NewFromString(baseRate); err != nil {
		return pay.RateProfile{}, err
	}
	if p.CasualLoading, err = decimal.NewFromString(loading); err != nil {
		return pay.RateProfile{}, err
	}
	if p.OvertimeTier1Multiplier, err = decimal.NewFromString(ot1); err != nil {
		return pay.RateProfile{}, err
	}
	if p.OvertimeTier2Multiplier, err = decimal.NewFromString(ot2); err != nil {
		return pay.RateProfile{}, err
	}
	if p.DailyOvertimeThresholdHours, err = decimal.NewFromString(daily); err != nil {
		return pay.RateProfile{}, err
	}
	if p.SpecialDailyThresholdHours, err = decimal.NewFromString(special); err != nil {
		return pay.RateProfile{}, err
	}

	var spans [7]spanJSON
	if err := json.Unmarshal([]byte(spanBlob), &spans); err != nil {
		return pay.RateProfile{}, fmt.Errorf("profile %s: bad span json: %w", id, err)
	}
	for i, sp := range spans {
		p.OrdinarySpan[i] = pay.DaySpan{StartMinute: sp.Start, EndMinute: sp.End}
	}

	if specialDay.Valid {
		d := time.Weekday(specialDay.Int64)
		p.SpecialThresholdDay = &d
	}
	if tier2Day.Valid {
		d := time.Weekday(tier2Day.Int64)
		p.Tier2AllDay = &d
	}
	p.OvertimeOnSpanBoundary = onSpan != 0
	p.OvertimeOnDailyLimit = onDaily != 0
	return p, nil
}

func (s *Store) SaveRateProfile(ctx context.Context, p pay.RateProfile) error {
	var spans [7]spanJSON
	for i, sp := range p.OrdinarySpan {
		spans[i] = spanJSON{Start: sp.StartMinute, End: sp.EndMinute}
	}
	spanBlob, err := json.Marshal(spans)
	if err != nil {
		return err
	}

	var specialDay, tier2Day any
	if p.SpecialThresholdDay != nil {
		specialDay = int(*p.SpecialThresholdDay)
	}
	if p.Tier2AllDay != nil {
		tier2Day = int(*p.Tier2AllDay)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rate_profiles (
			id, name, base_rate, casual_loading,
			ot_tier1_multiplier, ot_tier2_multiplier, ordinary_span_json,
			daily_threshold_hours, special_threshold_hours,
			special_threshold_day, tier2_all_day,
			ot_on_span_boundary, ot_on_daily_limit
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			base_rate = excluded.base_rate,
			casual_loading = excluded.casual_loading,
			ot_tier1_multiplier = excluded.ot_tier1_multiplier,
			ot_tier2_multiplier = excluded.ot_tier2_multiplier,
			ordinary_span_json = excluded.ordinary_span_json,
			daily_threshold_hours = excluded.daily_threshold_hours,
			special_threshold_hours = excluded.special_threshold_hours,
			special_threshold_day = excluded.special_threshold_day,
			tier2_all_day = excluded.tier2_all_day,
			ot_on_span_boundary = excluded.ot_on_span_boundary,
			ot_on_daily_limit = excluded.ot_on_daily_limit`,
		p.ID, p.Name, p.BaseRate.String(), p.CasualLoading.String(),
		p.OvertimeTier1Multiplier.String(), p.OvertimeTier2Multiplier.String(),
		string(spanBlob),
		p.DailyOvertimeThresholdHours.String(), p.SpecialDailyThresholdHours.String(),
		specialDay, tier2Day,
		boolInt(p.OvertimeOnSpanBoundary), boolInt(p.OvertimeOnDailyLimit))
	return err
}

func (s *Store) PenaltyRules(ctx context.Context, profileID string) ([]pay.PenaltyRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, start_minute, end_minute, day, multiplier, priority, active
		FROM penalty_rules WHERE profile_id = ?
		ORDER BY priority DESC, id`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []pay.PenaltyRule
	for rows.Next() {
		var r pay.PenaltyRule
		var day sql.NullInt64
		var multiplier string
		var active int
		if err := rows.Scan(&r.ID, &r.Name, &r.StartMinute, &r.EndMinute, &day,
			&multiplier, &r.Priority, &active); err != nil {
			return nil, err
		}
		if r.Multiplier, err = decimal.NewFromString(multiplier); err != nil {
			return nil, err
		}
		if day.Valid {
			d := time.Weekday(day.Int64)
			r.Day = &d
		}
		r.Active = active != 0
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (s *Store) SavePenaltyRule(ctx context.Context, profileID string, r pay.PenaltyRule) error {
	var day any
	if r.Day != nil {
		day = int(*r.Day)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO penalty_rules (id, profile_id, name, start_minute, end_minute, day, multiplier, priority, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			profile_id = excluded.profile_id,
			name = excluded.name,
			start_minute = excluded.start_minute,
			end_minute = excluded.end_minute,
			day = excluded.day,
			multiplier = excluded.multiplier,
			priority = excluded.priority,
			active = excluded.active`,
		r.ID, profileID, r.Name, r.StartMinute, r.EndMinute, day,
		r.Multiplier.String(), r.Priority, boolInt(r.Active))
	return err
}

func (s *Store) PublicHolidays(ctx context.Context, from, to time.Time) ([]pay.PublicHoliday, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT year, month, day, name, jurisdiction FROM public_holidays`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location())

	var holidays []pay.PublicHoliday
	for rows.Next() {
		var h pay.PublicHoliday
		var month int
		if err := rows.Scan(&h.Year, &month, &h.Day, &h.Name, &h.Jurisdiction); err != nil {
			return nil, err
		}
		h.Month = time.Month(month)
		date := time.Date(h.Year, h.Month, h.Day, 0, 0, 0, 0, from.Location())
		if !date.Before(fromDay) && !date.After(toDay) {
			holidays = append(holidays, h)
		}
	}
	return holidays, rows.Err()
}

func (s *Store) SavePublicHoliday(ctx context.Context, id string, h pay.PublicHoliday) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO public_holidays (id, year, month, day, name, jurisdiction)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			year = excluded.year, month = excluded.month, day = excluded.day,
			name = excluded.name, jurisdiction = excluded.jurisdiction`,
		id, h.Year, int(h.Month), h.Day, h.Name, h.Jurisdiction)
	return err
}

// =============================================================================
// tax.CoefficientStore
// =============================================================================

func (s *Store) Table(ctx context.Context, scale tax.Scale, taxYear string) ([]tax.TaxCoefficient, error) {
	return s.loadTable(ctx, scale, taxYear)
}

func (s *Store) SupplementaryTable(ctx context.Context, taxYear string) ([]tax.TaxCoefficient, error) {
	return s.loadTable(ctx, tax.SupplementaryScale, taxYear)
}

func (s *Store) loadTable(ctx context.Context, scale tax.Scale, taxYear string) ([]tax.TaxCoefficient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT lower_bound, upper_bound, coefficient_a, coefficient_b
		FROM tax_coefficients WHERE scale = ? AND tax_year = ?
		ORDER BY CAST(lower_bound AS REAL)`, string(scale), taxYear)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var table []tax.TaxCoefficient
	for rows.Next() {
		var c tax.TaxCoefficient
		var lower, a, b string
		var upper sql.NullString
		if err := rows.Scan(&lower, &upper, &a, &b); err != nil {
			return nil, err
		}
		c.Scale = scale
		if c.LowerBound, err = decimal.NewFromString(lower); err != nil {
			return nil, err
		}
		if upper.Valid {
			u, err := decimal.NewFromString(upper.String)
			if err != nil {
				return nil, err
			}
			c.UpperBound = &u
		}
		if c.A, err = decimal.NewFromString(a); err != nil {
			return nil, err
		}
		if c.B, err = decimal.NewFromString(b); err != nil {
			return nil, err
		}
		table = append(table, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(table) == 0 {
		return nil, tax.ErrTableNotFound
	}
	return table, nil
}

// SaveTable replaces the stored table for (table[0].Scale, taxYear).
func (s *Store) SaveTable(ctx context.Context, taxYear string, table []tax.TaxCoefficient) error {
	if len(table) == 0 {
		return nil
	}
	scale := table[0].Scale
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM tax_coefficients WHERE scale = ? AND tax_year = ?`,
		string(scale), taxYear); err != nil {
		return err
	}
	for _, c := range table {
		var upper any
		if c.UpperBound != nil {
			upper = c.UpperBound.String()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tax_coefficients (scale, tax_year, lower_bound, upper_bound, coefficient_a, coefficient_b)
			VALUES (?, ?, ?, ?, ?, ?)`,
			string(scale), taxYear, c.LowerBound.String(), upper,
			c.A.String(), c.B.String()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// =============================================================================
// tax.TxLedgerStore
// =============================================================================

func (s *Store) PayPeriod(ctx context.Context, id string) (tax.PayPeriod, error) {
	return payPeriod(ctx, s.db, id)
}

func payPeriod(ctx context.Context, q querier, id string) (tax.PayPeriod, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, user_id, period_type, end_date, time_zone, gross,
		       taxed, last_taxed_gross, last_taxed_amount
		FROM pay_periods WHERE id = ?`, id)

	var p tax.PayPeriod
	var periodType, endDate string
	var gross sql.NullString
	var taxed int
	var lastGross, lastAmount string

	err := row.Scan(&p.ID, &p.UserID, &periodType, &endDate, &p.TimeZone,
		&gross, &taxed, &lastGross, &lastAmount)
	if err == sql.ErrNoRows {
		return tax.PayPeriod{}, tax.ErrPayPeriodNotFound
	}
	if err != nil {
		return tax.PayPeriod{}, err
	}

	p.Type = tax.PeriodType(periodType)
	loc, err := time.LoadLocation(p.TimeZone)
	if err != nil {
		loc = time.UTC
	}
	if p.EndDate, err = time.ParseInLocation("2006-01-02", endDate, loc); err != nil {
		return tax.PayPeriod{}, err
	}
	if gross.Valid {
		g, err := decimal.NewFromString(gross.String)
		if err != nil {
			return tax.PayPeriod{}, err
		}
		p.Gross = &g
	}
	p.Taxed = taxed != 0
	if p.LastTaxedGross, err = decimal.NewFromString(lastGross); err != nil {
		return tax.PayPeriod{}, err
	}
	if p.LastTaxedAmount, err = decimal.NewFromString(lastAmount); err != nil {
		return tax.PayPeriod{}, err
	}
	return p, nil
}

func (s *Store) SavePayPeriod(ctx context.Context, p tax.PayPeriod) error {
	var gross any
	if p.Gross != nil {
		gross = p.Gross.String()
	}
	tz := p.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pay_periods (id, user_id, period_type, end_date, time_zone, gross, taxed, last_taxed_gross, last_taxed_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			period_type = excluded.period_type,
			end_date = excluded.end_date,
			time_zone = excluded.time_zone,
			gross = excluded.gross`,
		p.ID, p.UserID, string(p.Type), p.EndDate.Format("2006-01-02"), tz,
		gross, boolInt(p.Taxed), p.LastTaxedGross.String(), p.LastTaxedAmount.String())
	return err
}

func (s *Store) TaxSettings(ctx context.Context, userID string) (tax.TaxSettings, error) {
	return taxSettings(ctx, s.db, userID)
}

func taxSettings(ctx context.Context, q querier, userID string) (tax.TaxSettings, error) {
	row := q.QueryRowContext(ctx, `
		SELECT claimed_threshold, foreign_resident, has_tfn, medicare_exemption,
		       supplementary_debt, extra_withholding
		FROM tax_settings WHERE user_id = ?`, userID)

	var settings tax.TaxSettings
	var claimed, foreign, tfn, debt int
	var exemption, extra string

	err := row.Scan(&claimed, &foreign, &tfn, &exemption, &debt, &extra)
	if err == sql.ErrNoRows {
		return tax.TaxSettings{}, tax.ErrUserNotFound
	}
	if err != nil {
		return tax.TaxSettings{}, err
	}

	settings.ClaimedTaxFreeThreshold = claimed != 0
	settings.ForeignResident = foreign != 0
	settings.HasTaxFileNumber = tfn != 0
	settings.MedicareExemption = tax.MedicareExemption(exemption)
	settings.HasSupplementaryDebt = debt != 0
	if settings.ExtraWithholding, err = decimal.NewFromString(extra); err != nil {
		return tax.TaxSettings{}, err
	}
	return settings, nil
}

func (s *Store) SaveTaxSettings(ctx context.Context, userID string, settings tax.TaxSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tax_settings (user_id, claimed_threshold, foreign_resident, has_tfn, medicare_exemption, supplementary_debt, extra_withholding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			claimed_threshold = excluded.claimed_threshold,
			foreign_resident = excluded.foreign_resident,
			has_tfn = excluded.has_tfn,
			medicare_exemption = excluded.medicare_exemption,
			supplementary_debt = excluded.supplementary_debt,
			extra_withholding = excluded.extra_withholding`,
		userID, boolInt(settings.ClaimedTaxFreeThreshold), boolInt(settings.ForeignResident),
		boolInt(settings.HasTaxFileNumber), string(settings.MedicareExemption),
		boolInt(settings.HasSupplementaryDebt), settings.ExtraWithholding.String())
	return err
}

func (s *Store) YearToDate(ctx context.Context, userID, taxYear string) (tax.YearToDateTax, error) {
	return yearToDate(ctx, s.db, userID, taxYear)
}

func yearToDate(ctx context.Context, q querier, userID, taxYear string) (tax.YearToDateTax, error) {
	row := q.QueryRowContext(ctx, `
		SELECT gross_income, total_withheld, last_updated
		FROM ytd_tax WHERE user_id = ? AND tax_year = ?`, userID, taxYear)

	ytd := tax.YearToDateTax{
		UserID:        userID,
		TaxYear:       taxYear,
		GrossIncome:   decimal.Zero,
		TotalWithheld: decimal.Zero,
	}
	var gross, withheld, updated string
	err := row.Scan(&gross, &withheld, &updated)
	if err == sql.ErrNoRows {
		// Created lazily with zero values on first use.
		return ytd, nil
	}
	if err != nil {
		return tax.YearToDateTax{}, err
	}
	if ytd.GrossIncome, err = decimal.NewFromString(gross); err != nil {
		return tax.YearToDateTax{}, err
	}
	if ytd.TotalWithheld, err = decimal.NewFromString(withheld); err != nil {
		return tax.YearToDateTax{}, err
	}
	if ytd.LastUpdated, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return tax.YearToDateTax{}, err
	}
	return ytd, nil
}

func (s *Store) SaveYearToDate(ctx context.Context, ytd tax.YearToDateTax) error {
	return saveYearToDate(ctx, s.db, ytd)
}

func saveYearToDate(ctx context.Context, q querier, ytd tax.YearToDateTax) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO ytd_tax (user_id, tax_year, gross_income, total_withheld, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, tax_year) DO UPDATE SET
			gross_income = excluded.gross_income,
			total_withheld = excluded.total_withheld,
			last_updated = excluded.last_updated`,
		ytd.UserID, ytd.TaxYear, ytd.GrossIncome.String(), ytd.TotalWithheld.String(),
		ytd.LastUpdated.Format(time.RFC3339Nano))
	return err
}

func (s *Store) MarkPayPeriodTaxed(ctx context.Context, id string, taxedGross, taxedAmount decimal.Decimal) error {
	return markPayPeriodTaxed(ctx, s.db, id, taxedGross, taxedAmount)
}

func markPayPeriodTaxed(ctx context.Context, q querier, id string, taxedGross, taxedAmount decimal.Decimal) error {
	res, err := q.ExecContext(ctx, `
		UPDATE pay_periods SET taxed = 1, last_taxed_gross = ?, last_taxed_amount = ?
		WHERE id = ?`, taxedGross.String(), taxedAmount.String(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return tax.ErrPayPeriodNotFound
	}
	return nil
}

// WithTx runs fn inside a database transaction. Writers are additionally
// serialized behind a process-local mutex so the year-to-date
// read-modify-write cannot interleave within this process.
func (s *Store) WithTx(ctx context.Context, fn func(tax.LedgerStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	view := &txView{tx: dbTx}
	if err := fn(view); err != nil {
		dbTx.Rollback()
		return err
	}
	return dbTx.Commit()
}

// txView adapts *sql.Tx to tax.LedgerStore.
type txView struct {
	tx *sql.Tx
}

func (tv *txView) PayPeriod(ctx context.Context, id string) (tax.PayPeriod, error) {
	return payPeriod(ctx, tv.tx, id)
}

func (tv *txView) TaxSettings(ctx context.Context, userID string) (tax.TaxSettings, error) {
	return taxSettings(ctx, tv.tx, userID)
}

func (tv *txView) YearToDate(ctx context.Context, userID, taxYear string) (tax.YearToDateTax, error) {
	return yearToDate(ctx, tv.tx, userID, taxYear)
}

func (tv *txView) SaveYearToDate(ctx context.Context, ytd tax.YearToDateTax) error {
	return saveYearToDate(ctx, tv.tx, ytd)
}

func (tv *txView) MarkPayPeriodTaxed(ctx context.Context, id string, taxedGross, taxedAmount decimal.Decimal) error {
	return markPayPeriodTaxed(ctx, tv.tx, id, taxedGross, taxedAmount)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
