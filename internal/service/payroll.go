package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/gym-management/internal/model"
	"github.com/iliyamo/gym-management/internal/repository"
)

// PayrollStore persists payroll records.
type PayrollStore interface {
	Create(ctx context.Context, p *model.Payroll) error
	MarkPaid(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (model.Payroll, error)
	List(ctx context.Context, staffID string, status model.PayrollStatus) ([]model.Payroll, error)
}

// RoleReader reads the role stored for a user.
type RoleReader interface {
	Get(ctx context.Context, userID string) (model.Role, error)
}

// PayrollService manages staff payroll.
type PayrollService struct {
	payroll PayrollStore
	roles   RoleReader
}

// NewPayrollService constructs a PayrollService.
func NewPayrollService(p PayrollStore, r RoleReader) *PayrollService {
	return &PayrollService{payroll: p, roles: r}
}

// PayrollInput is one pay period for one staff member.
type PayrollInput struct {
	StaffID         string
	PeriodStart     time.Time
	PeriodEnd       time.Time
	SalaryCents     int64
	BonusCents      int64
	DeductionsCents int64
}

// Create enters a pending payroll record.  The net amount is computed
// here once; deductions above salary plus bonus give a negative net,
// which is stored as entered.
func (s *PayrollService) Create(ctx context.Context, in PayrollInput) (model.Payroll, error) {
	in.StaffID = strings.TrimSpace(in.StaffID)
	if in.StaffID == "" {
		return model.Payroll{}, invalid("staff_id is required")
	}
	if in.PeriodStart.IsZero() || in.PeriodEnd.Before(in.PeriodStart) {
		return model.Payroll{}, invalid("period_end must not be before period_start")
	}
	if in.SalaryCents < 0 || in.BonusCents < 0 {
		return model.Payroll{}, invalid("salary and bonus cannot be negative")
	}
	role, err := s.roles.Get(ctx, in.StaffID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Payroll{}, invalid("unknown staff member")
	}
	if err != nil {
		return model.Payroll{}, err
	}
	if role == model.RoleMember {
		return model.Payroll{}, invalid("members are not on the payroll")
	}

	p := model.Payroll{
		StaffID:         in.StaffID,
		PeriodStart:     in.PeriodStart,
		PeriodEnd:       in.PeriodEnd,
		SalaryCents:     in.SalaryCents,
		BonusCents:      in.BonusCents,
		DeductionsCents: in.DeductionsCents,
		NetCents:        model.PayrollNet(in.SalaryCents, in.BonusCents, in.DeductionsCents),
	}
	if err := s.payroll.Create(ctx, &p); err != nil {
		return model.Payroll{}, err
	}
	return p, nil
}

// Pay marks a record paid.  Paying twice is a conflict.
func (s *PayrollService) Pay(ctx context.Context, id string) (model.Payroll, error) {
	if err := s.payroll.MarkPaid(ctx, id); err != nil {
		return model.Payroll{}, err
	}
	return s.payroll.GetByID(ctx, id)
}

// List returns payroll records, optionally filtered by staff and status.
func (s *PayrollService) List(ctx context.Context, staffID string, status model.PayrollStatus) ([]model.Payroll, error) {
	if status != "" && status != model.PayrollPending && status != model.PayrollPaid {
		return nil, invalid("unknown status %q", status)
	}
	return s.payroll.List(ctx, staffID, status)
}
