package model

// Role is the app_role enumeration.  Each user holds exactly one role,
// stored in user_roles separately from the profile.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStaff   Role = "staff"
	RoleTrainer Role = "trainer"
	RoleMember  Role = "member"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleTrainer, RoleMember:
		return true
	}
	return false
}

// MembershipStatus is the membership_status enumeration.
type MembershipStatus string

const (
	MembershipActive  MembershipStatus = "active"
	MembershipExpired MembershipStatus = "expired"
	MembershipPending MembershipStatus = "pending"
	MembershipFrozen  MembershipStatus = "frozen"
)

func (s MembershipStatus) Valid() bool {
	switch s {
	case MembershipActive, MembershipExpired, MembershipPending, MembershipFrozen:
		return true
	}
	return false
}

// PaymentStatus tracks whether a membership has been paid for.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// PaymentMethod is the payment_method enumeration.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodCard         PaymentMethod = "card"
	MethodUPI          PaymentMethod = "upi"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodOnline       PaymentMethod = "online"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodUPI, MethodBankTransfer, MethodOnline:
		return true
	}
	return false
}

// PaymentType is the payment_type enumeration.
type PaymentType string

const (
	PaymentTypeMembership       PaymentType = "membership"
	PaymentTypeProduct          PaymentType = "product"
	PaymentTypeClass            PaymentType = "class"
	PaymentTypePersonalTraining PaymentType = "personal_training"
	PaymentTypeOther            PaymentType = "other"
)

func (t PaymentType) Valid() bool {
	switch t {
	case PaymentTypeMembership, PaymentTypeProduct, PaymentTypeClass, PaymentTypePersonalTraining, PaymentTypeOther:
		return true
	}
	return false
}

// BookingStatus is the booking_status enumeration.
type BookingStatus string

const (
	BookingBooked    BookingStatus = "booked"
	BookingCancelled BookingStatus = "cancelled"
	BookingAttended  BookingStatus = "attended"
	BookingNoShow    BookingStatus = "no_show"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingBooked, BookingCancelled, BookingAttended, BookingNoShow:
		return true
	}
	return false
}

// NotificationType is the notification_type enumeration.
type NotificationType string

const (
	NotificationInfo       NotificationType = "info"
	NotificationMembership NotificationType = "membership"
	NotificationPayment    NotificationType = "payment"
	NotificationClass      NotificationType = "class"
	NotificationSystem     NotificationType = "system"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationInfo, NotificationMembership, NotificationPayment, NotificationClass, NotificationSystem:
		return true
	}
	return false
}

// PayrollStatus tracks whether a payroll record has been paid out.
type PayrollStatus string

const (
	PayrollPending PayrollStatus = "pending"
	PayrollPaid    PayrollStatus = "paid"
)
