package model

import "time"

// Payroll is a staff payout for a period.  NetCents is fixed when the
// record is entered and is not recomputed later.
type Payroll struct {
	ID              string        `json:"id"`
	StaffID         string        `json:"staff_id"`
	StaffName       string        `json:"staff_name,omitempty"` // joined reads only
	PeriodStart     time.Time     `json:"period_start"`
	PeriodEnd       time.Time     `json:"period_end"`
	SalaryCents     int64         `json:"salary_cents"`
	BonusCents      int64         `json:"bonus_cents"`
	DeductionsCents int64         `json:"deductions_cents"`
	NetCents        int64         `json:"net_cents"`
	Status          PayrollStatus `json:"status"`
	PaidAt          *time.Time    `json:"paid_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// PayrollNet is salary + bonus - deductions.  Deductions larger than the
// gross produce a negative net, which is accepted as entered.
func PayrollNet(salary, bonus, deductions int64) int64 {
	return salary + bonus - deductions
}
