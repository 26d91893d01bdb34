package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/gym-management/internal/model"
)

// ReportStore runs the aggregate queries behind reports.
type ReportStore interface {
	RevenueByType(ctx context.Context, from, to time.Time) (map[model.PaymentType]int64, error)
	NewMembers(ctx context.Context, from, to time.Time) (int64, error)
	ActiveMemberships(ctx context.Context, day time.Time) (int64, error)
	ExpiringBetween(ctx context.Context, from, to time.Time) (int64, error)
	PendingPayments(ctx context.Context) (int64, error)
	CheckIns(ctx context.Context, from, to time.Time) (int64, error)
	ClassBookings(ctx context.Context, from, to time.Time) (int64, error)
	PayrollPaid(ctx context.Context, from, to time.Time) (int64, error)
}

// ReportService builds business reports.
type ReportService struct {
	reports ReportStore
	now     func() time.Time
}

// NewReportService constructs a ReportService.
func NewReportService(r ReportStore) *ReportService {
	return &ReportService{reports: r, now: time.Now}
}

// Summary is the revenue and activity report for a date range.
type Summary struct {
	From              time.Time                   `json:"from"`
	To                time.Time                   `json:"to"`
	RevenueCents      int64                       `json:"revenue_cents"`
	RevenueByType     map[model.PaymentType]int64 `json:"revenue_by_type"`
	NewMembers        int64                       `json:"new_members"`
	ActiveMemberships int64                       `json:"active_memberships"`
	CheckIns          int64                       `json:"check_ins"`
	ClassBookings     int64                       `json:"class_bookings"`
	PayrollPaidCents  int64                       `json:"payroll_paid_cents"`
	NetIncomeCents    int64                       `json:"net_income_cents"`
}

// Summary aggregates [from, to).  The reads are independent and are
// issued concurrently; the first failure cancels the rest.
func (s *ReportService) Summary(ctx context.Context, from, to time.Time) (Summary, error) {
	if from.IsZero() || to.IsZero() || !to.After(from) {
		return Summary{}, invalid("from must be before to")
	}
	out := Summary{From: from, To: to}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.RevenueByType, err = s.reports.RevenueByType(gctx, from, to)
		return err
	})
	g.Go(func() (err error) { out.NewMembers, err = s.reports.NewMembers(gctx, from, to); return err })
	g.Go(func() (err error) { out.ActiveMemberships, err = s.reports.ActiveMemberships(gctx, s.now().UTC()); return err })
	g.Go(func() (err error) { out.CheckIns, err = s.reports.CheckIns(gctx, from, to); return err })
	g.Go(func() (err error) { out.ClassBookings, err = s.reports.ClassBookings(gctx, from, to); return err })
	g.Go(func() (err error) { out.PayrollPaidCents, err = s.reports.PayrollPaid(gctx, from, to); return err })
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	for _, v := range out.RevenueByType {
		out.RevenueCents += v
	}
	out.NetIncomeCents = out.RevenueCents - out.PayrollPaidCents
	return out, nil
}

// Dashboard holds the front-desk counters.
type Dashboard struct {
	CheckInsToday     int64 `json:"check_ins_today"`
	ActiveMembers     int64 `json:"active_members"`
	ExpiringSoon      int64 `json:"expiring_within_7_days"`
	PendingPayments   int64 `json:"pending_payments"`
	RevenueTodayCents int64 `json:"revenue_today_cents"`
}

// Dashboard is the front-desk overview for the current UTC day.
func (s *ReportService) Dashboard(ctx context.Context) (Dashboard, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)

	var (
		out     Dashboard
		revenue map[model.PaymentType]int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { out.CheckInsToday, err = s.reports.CheckIns(gctx, today, tomorrow); return err })
	g.Go(func() (err error) { out.ActiveMembers, err = s.reports.ActiveMemberships(gctx, today); return err })
	g.Go(func() (err error) {
		out.ExpiringSoon, err = s.reports.ExpiringBetween(gctx, today, today.AddDate(0, 0, 7))
		return err
	})
	g.Go(func() (err error) { out.PendingPayments, err = s.reports.PendingPayments(gctx); return err })
	g.Go(func() (err error) { revenue, err = s.reports.RevenueByType(gctx, today, tomorrow); return err })
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	for _, v := range revenue {
		out.RevenueTodayCents += v
	}
	return out, nil
}
