/*
Package memory provides in-memory store implementations for testing and
development.

The single Store type implements pay.RuleStore, tax.CoefficientStore, and
tax.TxLedgerStore behind one mutex. WithTx simulates a transaction with a
snapshot of the mutable ledger state, restored on error - the same shape
the SQLite store gets from a real database transaction.
*/
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/pay"
	"github.com/warp/payroll-engine/tax"
)

// Store is an in-memory implementation of every store interface the
// engines consume. Safe for concurrent use.
type Store struct {
	mu sync.Mutex

	profiles map[string]pay.RateProfile
	rules    map[string][]pay.PenaltyRule
	holidays []pay.PublicHoliday

	tables     map[tableKey][]tax.TaxCoefficient
	stslTables map[string][]tax.TaxCoefficient
	settings   map[string]tax.TaxSettings
	periods    map[string]tax.PayPeriod
	yearToDate map[ytdKey]tax.YearToDateTax
}

type tableKey struct {
	Scale   tax.Scale
	TaxYear string
}

type ytdKey struct {
	UserID  string
	TaxYear string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		profiles:   make(map[string]pay.RateProfile),
		rules:      make(map[string][]pay.PenaltyRule),
		tables:     make(map[tableKey][]tax.TaxCoefficient),
		stslTables: make(map[string][]tax.TaxCoefficient),
		settings:   make(map[string]tax.TaxSettings),
		periods:    make(map[string]tax.PayPeriod),
		yearToDate: make(map[ytdKey]tax.YearToDateTax),
	}
}

// =============================================================================
// SEEDING
// =============================================================================

func (s *Store) PutRateProfile(p pay.RateProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
}

func (s *Store) PutPenaltyRule(profileID string, r pay.PenaltyRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[profileID] = append(s.rules[profileID], r)
}

func (s *Store) PutPublicHoliday(h pay.PublicHoliday) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holidays = append(s.holidays, h)
}

func (s *Store) PutTable(taxYear string, table []tax.TaxCoefficient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(table) == 0 {
		return
	}
	s.tables[tableKey{Scale: table[0].Scale, TaxYear: taxYear}] = table
}

func (s *Store) PutSupplementaryTable(taxYear string, table []tax.TaxCoefficient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stslTables[taxYear] = table
}

func (s *Store) PutTaxSettings(userID string, settings tax.TaxSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[userID] = settings
}

func (s *Store) PutPayPeriod(p tax.PayPeriod) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.periods[p.ID] = p
}

// =============================================================================
// API-FACING WRITES
// =============================================================================

// SavePublicHoliday mirrors the SQLite store's signature so both stores
// satisfy the API's store interface. The id is unused here; holidays are
// keyed by their calendar date.
func (s *Store) SavePublicHoliday(_ context.Context, _ string, h pay.PublicHoliday) error {
	s.PutPublicHoliday(h)
	return nil
}

// SavePayPeriod upserts a period. An update keeps the existing ledger
// contribution markers, matching the SQLite upsert.
func (s *Store) SavePayPeriod(_ context.Context, p tax.PayPeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.periods[p.ID]; ok {
		p.Taxed = existing.Taxed
		p.LastTaxedGross = existing.LastTaxedGross
		p.LastTaxedAmount = existing.LastTaxedAmount
	}
	s.periods[p.ID] = p
	return nil
}

// =============================================================================
// pay.RuleStore
// =============================================================================

func (s *Store) RateProfile(_ context.Context, id string) (pay.RateProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return pay.RateProfile{}, pay.ErrRateProfileNotFound
	}
	return p, nil
}

func (s *Store) PenaltyRules(_ context.Context, profileID string) ([]pay.PenaltyRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rules := make([]pay.PenaltyRule, len(s.rules[profileID]))
	copy(rules, s.rules[profileID])
	return rules, nil
}

func (s *Store) PublicHolidays(_ context.Context, from, to time.Time) ([]pay.PublicHoliday, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []pay.PublicHoliday
	for _, h := range s.holidays {
		date := time.Date(h.Year, h.Month, h.Day, 0, 0, 0, 0, from.Location())
		if !date.Before(dayOf(from)) && !date.After(dayOf(to)) {
			out = append(out, h)
		}
	}
	return out, nil
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// =============================================================================
// tax.CoefficientStore
// =============================================================================

func (s *Store) Table(_ context.Context, scale tax.Scale, taxYear string) ([]tax.TaxCoefficient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table, ok := s.tables[tableKey{Scale: scale, TaxYear: taxYear}]
	if !ok {
		return nil, tax.ErrTableNotFound
	}
	out := make([]tax.TaxCoefficient, len(table))
	copy(out, table)
	return out, nil
}

func (s *Store) SupplementaryTable(_ context.Context, taxYear string) ([]tax.TaxCoefficient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table, ok := s.stslTables[taxYear]
	if !ok {
		return nil, tax.ErrTableNotFound
	}
	out := make([]tax.TaxCoefficient, len(table))
	copy(out, table)
	return out, nil
}

// =============================================================================
// tax.TxLedgerStore
// =============================================================================

func (s *Store) PayPeriod(_ context.Context, id string) (tax.PayPeriod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payPeriodLocked(id)
}

func (s *Store) payPeriodLocked(id string) (tax.PayPeriod, error) {
	p, ok := s.periods[id]
	if !ok {
		return tax.PayPeriod{}, tax.ErrPayPeriodNotFound
	}
	return p, nil
}

func (s *Store) TaxSettings(_ context.Context, userID string) (tax.TaxSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings, ok := s.settings[userID]
	if !ok {
		return tax.TaxSettings{}, tax.ErrUserNotFound
	}
	return settings, nil
}

func (s *Store) YearToDate(_ context.Context, userID, taxYear string) (tax.YearToDateTax, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.yearToDateLocked(userID, taxYear), nil
}

func (s *Store) yearToDateLocked(userID, taxYear string) tax.YearToDateTax {
	if ytd, ok := s.yearToDate[ytdKey{UserID: userID, TaxYear: taxYear}]; ok {
		return ytd
	}
	// Created lazily with zero values on first use.
	return tax.YearToDateTax{
		UserID:        userID,
		TaxYear:       taxYear,
		GrossIncome:   decimal.Zero,
		TotalWithheld: decimal.Zero,
	}
}

func (s *Store) SaveYearToDate(_ context.Context, ytd tax.YearToDateTax) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.yearToDate[ytdKey{UserID: ytd.UserID, TaxYear: ytd.TaxYear}] = ytd
	return nil
}

func (s *Store) MarkPayPeriodTaxed(_ context.Context, id string, taxedGross, taxedAmount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.payPeriodLocked(id)
	if err != nil {
		return err
	}
	p.Taxed = true
	p.LastTaxedGross = taxedGross
	p.LastTaxedAmount = taxedAmount
	s.periods[id] = p
	return nil
}

// WithTx executes fn under the store lock with snapshot/rollback of the
// mutable ledger state. Holding the lock for the whole transaction
// serializes concurrent year-to-date updates, which is stricter than the
// per-row locking a database gives but preserves the same contract.
func (s *Store) WithTx(_ context.Context, fn func(tax.LedgerStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.snapshotLocked()
	if err := fn(&txView{parent: s}); err != nil {
		s.restoreLocked(snapshot)
		return err
	}
	return nil
}

type ledgerSnapshot struct {
	periods    map[string]tax.PayPeriod
	yearToDate map[ytdKey]tax.YearToDateTax
}

func (s *Store) snapshotLocked() ledgerSnapshot {
	periods := make(map[string]tax.PayPeriod, len(s.periods))
	for k, v := range s.periods {
		periods[k] = v
	}
	ytd := make(map[ytdKey]tax.YearToDateTax, len(s.yearToDate))
	for k, v := range s.yearToDate {
		ytd[k] = v
	}
	return ledgerSnapshot{periods: periods, yearToDate: ytd}
}

func (s *Store) restoreLocked(snap ledgerSnapshot) {
	s.periods = snap.periods
	s.yearToDate = snap.yearToDate
}

// txView is the LedgerStore handed to WithTx callbacks. The parent lock is
// already held, so it goes straight at the maps.
type txView struct {
	parent *Store
}

func (tv *txView) PayPeriod(_ context.Context, id string) (tax.PayPeriod, error) {
	return tv.parent.payPeriodLocked(id)
}

func (tv *txView) TaxSettings(_ context.Context, userID string) (tax.TaxSettings, error) {
	settings, ok := tv.parent.settings[userID]
	if !ok {
		return tax.TaxSettings{}, tax.ErrUserNotFound
	}
	return settings, nil
}

func (tv *txView) YearToDate(_ context.Context, userID, taxYear string) (tax.YearToDateTax, error) {
	return tv.parent.yearToDateLocked(userID, taxYear), nil
}

func (tv *txView) SaveYearToDate(_ context.Context, ytd tax.YearToDateTax) error {
	tv.parent.yearToDate[ytdKey{UserID: ytd.UserID, TaxYear: ytd.TaxYear}] = ytd
	return nil
}

func (tv *txView) MarkPayPeriodTaxed(_ context.Context, id string, taxedGross, taxedAmount decimal.Decimal) error {
	p, err := tv.parent.payPeriodLocked(id)
	if err != nil {
		return err
	}
	p.Taxed = true
	p.LastTaxedGross = taxedGross
	p.LastTaxedAmount = taxedAmount
	tv.parent.periods[id] = p
	return nil
}
