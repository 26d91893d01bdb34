package service

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"time"

	"github.com/iliyamo/gym-management/internal/model"
	"github.com/iliyamo/gym-management/internal/queue"
	"github.com/iliyamo/gym-management/internal/repository"
)

// state is everything the application store holds.  fakeTx snapshots it
// before fn runs and restores it when fn fails.
type state struct {
	profiles    map[string]model.Profile
	roles       map[string]model.Role
	trainers    map[string]model.Trainer
	memberships map[string]model.Membership
	payments    []model.Payment
	saleItems   map[string][]model.SaleItem
	attendance  map[string]model.Attendance
	classes     map[string]model.Class
	bookings    map[string]model.Booking
	products    map[string]model.Product
	coupons     map[string]model.Coupon
	payroll     map[string]model.Payroll
}

func (s state) clone() state {
	return state{
		profiles:    maps.Clone(s.profiles),
		roles:       maps.Clone(s.roles),
		trainers:    maps.Clone(s.trainers),
		memberships: maps.Clone(s.memberships),
		payments:    append([]model.Payment(nil), s.payments...),
		saleItems:   maps.Clone(s.saleItems),
		attendance:  maps.Clone(s.attendance),
		classes:     maps.Clone(s.classes),
		bookings:    maps.Clone(s.bookings),
		products:    maps.Clone(s.products),
		coupons:     maps.Clone(s.coupons),
		payroll:     maps.Clone(s.payroll),
	}
}

type fakeDB struct {
	st   state
	fail map[string]error // "store.Method" -> injected error
	seq  int
	txs  int
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		st: state{
			profiles:    map[string]model.Profile{},
			roles:       map[string]model.Role{},
			trainers:    map[string]model.Trainer{},
			memberships: map[string]model.Membership{},
			saleItems:   map[string][]model.SaleItem{},
			attendance:  map[string]model.Attendance{},
			classes:     map[string]model.Class{},
			bookings:    map[string]model.Booking{},
			products:    map[string]model.Product{},
			coupons:     map[string]model.Coupon{},
			payroll:     map[string]model.Payroll{},
		},
		fail: map[string]error{},
	}
}

func (db *fakeDB) injected(op string) error { return db.fail[op] }

func (db *fakeDB) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%d", prefix, db.seq)
}

type fakeTx struct{ db *fakeDB }

func (t fakeTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.db.txs++
	snap := t.db.st.clone()
	if err := fn(ctx); err != nil {
		t.db.st = snap
		return err
	}
	return nil
}

// --- auth provider, outside any transaction ---

type fakeAccounts struct {
	byID      map[string]string
	createErr error
	deleted   []string
	seq       int
}

func newFakeAccounts() *fakeAccounts { return &fakeAccounts{byID: map[string]string{}} }

func (a *fakeAccounts) Create(_ context.Context, email, _ string) (string, error) {
	if a.createErr != nil {
		return "", a.createErr
	}
	for _, e := range a.byID {
		if e == email {
			return "", repository.ErrEmailExists
		}
	}
	a.seq++
	id := fmt.Sprintf("3fa85f64-5717-4562-b3fc-%012d", a.seq)
	a.byID[id] = email
	return id, nil
}

func (a *fakeAccounts) GetByID(_ context.Context, id string) (model.Account, error) {
	email, ok := a.byID[id]
	if !ok {
		return model.Account{}, repository.ErrNotFound
	}
	return model.Account{ID: id, Email: email, IsActive: true}, nil
}

func (a *fakeAccounts) Delete(_ context.Context, id string) error {
	delete(a.byID, id)
	a.deleted = append(a.deleted, id)
	return nil
}

// --- profiles / roles / trainers ---

type fakeProfiles struct{ *fakeDB }

func (f fakeProfiles) Create(_ context.Context, p model.Profile) error {
	if err := f.injected("profiles.Create"); err != nil {
		return err
	}
	f.st.profiles[p.ID] = p
	return nil
}

func (f fakeProfiles) GetByID(_ context.Context, id string) (model.Profile, error) {
	p, ok := f.st.profiles[id]
	if !ok {
		return p, repository.ErrNotFound
	}
	p.Role = f.st.roles[id]
	return p, nil
}

func (f fakeProfiles) List(_ context.Context, role model.Role, _ string) ([]model.Profile, error) {
	out := []model.Profile{}
	for id, p := range f.st.profiles {
		p.Role = f.st.roles[id]
		if role == "" || p.Role == role {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (f fakeProfiles) Lock(_ context.Context, id string) error {
	if _, ok := f.st.profiles[id]; !ok {
		return repository.ErrNotFound
	}
	return nil
}

func (f fakeProfiles) Delete(_ context.Context, id string) error {
	if err := f.injected("profiles.Delete"); err != nil {
		return err
	}
	delete(f.st.profiles, id)
	return nil
}

type fakeRoles struct{ *fakeDB }

func (f fakeRoles) Get(_ context.Context, userID string) (model.Role, error) {
	r, ok := f.st.roles[userID]
	if !ok {
		return "", repository.ErrNotFound
	}
	return r, nil
}

func (f fakeRoles) Insert(_ context.Context, userID string, role model.Role) error {
	if err := f.injected("roles.Insert"); err != nil {
		return err
	}
	if _, ok := f.st.roles[userID]; ok {
		return repository.ErrConflict
	}
	f.st.roles[userID] = role
	return nil
}

func (f fakeRoles) Delete(_ context.Context, userID string) error {
	delete(f.st.roles, userID)
	return nil
}

type fakeTrainers struct{ *fakeDB }

func (f fakeTrainers) Create(_ context.Context, t model.Trainer) (string, error) {
	if err := f.injected("trainers.Create"); err != nil {
		return "", err
	}
	t.ID = f.nextID("trainer")
	f.st.trainers[t.UserID] = t
	return t.ID, nil
}

func (f fakeTrainers) DeleteByUser(_ context.Context, userID string) error {
	delete(f.st.trainers, userID)
	return nil
}

func (f fakeTrainers) GetByUser(_ context.Context, userID string) (model.Trainer, error) {
	t, ok := f.st.trainers[userID]
	if !ok {
		return t, repository.ErrNotFound
	}
	return t, nil
}

type fakeAvatars struct {
	err     error
	saved   map[string]string
	deleted []string
}

func (a *fakeAvatars) Save(_ context.Context, userID, _ string) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	if a.saved == nil {
		a.saved = map[string]string{}
	}
	url := "http://localhost/avatars/" + userID + ".png"
	a.saved[userID] = url
	return url, nil
}

func (a *fakeAvatars) Delete(_ context.Context, userID string) error {
	a.deleted = append(a.deleted, userID)
	return nil
}

type fakeSessions struct{ cleared []string }

func (s *fakeSessions) DeleteForUser(_ context.Context, userID string) error {
	s.cleared = append(s.cleared, userID)
	return nil
}

// --- memberships / plans ---

type fakePlans map[string]model.Plan

func (f fakePlans) GetByID(_ context.Context, id string) (model.Plan, error) {
	p, ok := f[id]
	if !ok {
		return p, repository.ErrNotFound
	}
	return p, nil
}

type fakeMemberships struct{ *fakeDB }

func current(s model.MembershipStatus) bool {
	return s == model.MembershipActive || s == model.MembershipPending || s == model.MembershipFrozen
}

func (f fakeMemberships) GetByID(_ context.Context, id string) (model.Membership, error) {
	m, ok := f.st.memberships[id]
	if !ok {
		return m, repository.ErrNotFound
	}
	return m, nil
}

func (f fakeMemberships) GetForUpdate(ctx context.Context, id string) (model.Membership, error) {
	return f.GetByID(ctx, id)
}

func (f fakeMemberships) GetByQRToken(_ context.Context, token string) (model.Membership, error) {
	for _, m := range f.st.memberships {
		if m.QRToken == token {
			return m, nil
		}
	}
	return model.Membership{}, repository.ErrNotFound
}

func (f fakeMemberships) GetCurrent(ctx context.Context, userID string) (model.Membership, error) {
	return f.GetCurrentForUpdate(ctx, userID)
}

func (f fakeMemberships) GetCurrentForUpdate(_ context.Context, userID string) (model.Membership, error) {
	for _, m := range f.st.memberships {
		if m.UserID == userID && current(m.Status) {
			return m, nil
		}
	}
	return model.Membership{}, repository.ErrNotFound
}

func (f fakeMemberships) Create(_ context.Context, m model.Membership) error {
	f.st.memberships[m.ID] = m
	return nil
}

func (f fakeMemberships) Reassign(_ context.Context, id, planID string, start, end time.Time) error {
	m, ok := f.st.memberships[id]
	if !ok {
		return repository.ErrNotFound
	}
	m.PlanID, m.StartDate, m.EndDate = planID, start, end
	m.Status, m.PaymentStatus = model.MembershipPending, model.PaymentPending
	m.FreezeStart, m.FreezeEnd = nil, nil
	f.st.memberships[id] = m
	return nil
}

func (f fakeMemberships) MarkPaid(_ context.Context, id string) error {
	if err := f.injected("memberships.MarkPaid"); err != nil {
		return err
	}
	m, ok := f.st.memberships[id]
	if !ok {
		return repository.ErrNotFound
	}
	m.PaymentStatus, m.Status = model.PaymentPaid, model.MembershipActive
	f.st.memberships[id] = m
	return nil
}

func (f fakeMemberships) SaveState(_ context.Context, m model.Membership) error {
	cur, ok := f.st.memberships[m.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Status, cur.FreezeStart, cur.FreezeEnd = m.Status, m.FreezeStart, m.FreezeEnd
	f.st.memberships[m.ID] = cur
	return nil
}

func (f fakeMemberships) List(_ context.Context, status model.MembershipStatus) ([]model.Membership, error) {
	out := []model.Membership{}
	for _, m := range f.st.memberships {
		if status == "" || m.Status == status {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- payments / coupons / products ---

type fakePayments struct{ *fakeDB }

func (f fakePayments) Create(_ context.Context, p *model.Payment) error {
	p.ID = f.nextID("pay")
	f.st.payments = append(f.st.payments, *p)
	return nil
}

func (f fakePayments) AddSaleItems(_ context.Context, paymentID string, items []model.SaleItem) error {
	f.st.saleItems[paymentID] = items
	return nil
}

func (f fakePayments) List(_ context.Context, fl repository.PaymentFilter) ([]model.Payment, error) {
	out := []model.Payment{}
	for _, p := range f.st.payments {
		if fl.UserID == "" || (p.UserID != nil && *p.UserID == fl.UserID) {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeCoupons struct{ *fakeDB }

func (f fakeCoupons) GetByCode(_ context.Context, code string) (model.Coupon, error) {
	c, ok := f.st.coupons[code]
	if !ok {
		return c, repository.ErrNotFound
	}
	return c, nil
}

func (f fakeCoupons) GetByCodeForUpdate(ctx context.Context, code string) (model.Coupon, error) {
	return f.GetByCode(ctx, code)
}

func (f fakeCoupons) Redeem(_ context.Context, id string) error {
	for code, c := range f.st.coupons {
		if c.ID == id {
			c.UsedCount++
			f.st.coupons[code] = c
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeProducts struct{ *fakeDB }

func (f fakeProducts) GetForUpdate(_ context.Context, id string) (model.Product, error) {
	p, ok := f.st.products[id]
	if !ok {
		return p, repository.ErrNotFound
	}
	return p, nil
}

func (f fakeProducts) DecrementStock(_ context.Context, id string, qty int) error {
	p, ok := f.st.products[id]
	if !ok || p.Stock < qty {
		return repository.ErrNotFound
	}
	p.Stock -= qty
	f.st.products[id] = p
	return nil
}

// --- attendance ---

type fakeAttendance struct{ *fakeDB }

func (f fakeAttendance) HasOpenVisit(_ context.Context, userID string) (bool, error) {
	for _, a := range f.st.attendance {
		if a.UserID == userID && a.CheckOutAt == nil {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeAttendance) CheckIn(_ context.Context, userID string, at time.Time) (model.Attendance, error) {
	a := model.Attendance{ID: f.nextID("visit"), UserID: userID, CheckInAt: at}
	f.st.attendance[a.ID] = a
	return a, nil
}

func (f fakeAttendance) CheckOut(_ context.Context, id string, at time.Time) error {
	a, ok := f.st.attendance[id]
	if !ok || a.CheckOutAt != nil {
		return repository.ErrNotFound
	}
	a.CheckOutAt = &at
	f.st.attendance[id] = a
	return nil
}

func (f fakeAttendance) List(_ context.Context, userID string, from, to time.Time) ([]model.Attendance, error) {
	out := []model.Attendance{}
	for _, a := range f.st.attendance {
		if (userID == "" || a.UserID == userID) && !a.CheckInAt.Before(from) && a.CheckInAt.Before(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

// --- classes / bookings ---

type fakeClasses struct{ *fakeDB }

func (f fakeClasses) Create(_ context.Context, c *model.Class) error {
	c.ID = f.nextID("class")
	f.st.classes[c.ID] = *c
	return nil
}

func (f fakeClasses) Update(_ context.Context, c model.Class) error {
	if _, ok := f.st.classes[c.ID]; !ok {
		return repository.ErrNotFound
	}
	f.st.classes[c.ID] = c
	return nil
}

func (f fakeClasses) Cancel(_ context.Context, id string) error {
	c, ok := f.st.classes[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.IsCancelled = true
	f.st.classes[id] = c
	return nil
}

func (f fakeClasses) GetByID(_ context.Context, id string) (model.Class, error) {
	c, ok := f.st.classes[id]
	if !ok {
		return c, repository.ErrNotFound
	}
	c.Booked = f.activeBookings(id)
	return c, nil
}

func (f fakeClasses) GetForUpdate(ctx context.Context, id string) (model.Class, error) {
	return f.GetByID(ctx, id)
}

func (f fakeClasses) List(_ context.Context, from, to time.Time) ([]model.Class, error) {
	out := []model.Class{}
	for _, c := range f.st.classes {
		if !c.IsCancelled && !c.StartsAt.Before(from) && c.StartsAt.Before(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (db *fakeDB) activeBookings(classID string) int {
	n := 0
	for _, b := range db.st.bookings {
		if b.ClassID == classID && (b.Status == model.BookingBooked || b.Status == model.BookingAttended) {
			n++
		}
	}
	return n
}

type fakeBookings struct{ *fakeDB }

func (f fakeBookings) CountActive(_ context.Context, classID string) (int, error) {
	return f.activeBookings(classID), nil
}

func (f fakeBookings) HasActive(_ context.Context, classID, userID string) (bool, error) {
	for _, b := range f.st.bookings {
		if b.ClassID == classID && b.UserID == userID && (b.Status == model.BookingBooked || b.Status == model.BookingAttended) {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeBookings) Create(_ context.Context, classID, userID string) (model.Booking, error) {
	b := model.Booking{ID: f.nextID("booking"), ClassID: classID, UserID: userID, Status: model.BookingBooked}
	f.st.bookings[b.ID] = b
	return b, nil
}

func (f fakeBookings) GetByID(_ context.Context, id string) (model.Booking, error) {
	b, ok := f.st.bookings[id]
	if !ok {
		return b, repository.ErrNotFound
	}
	return b, nil
}

func (f fakeBookings) SetStatus(_ context.Context, id string, from, to model.BookingStatus) error {
	b, ok := f.st.bookings[id]
	if !ok || b.Status != from {
		return repository.ErrNotFound
	}
	b.Status = to
	f.st.bookings[id] = b
	return nil
}

func (f fakeBookings) ListByClass(_ context.Context, classID string) ([]model.Booking, error) {
	out := []model.Booking{}
	for _, b := range f.st.bookings {
		if b.ClassID == classID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f fakeBookings) ListByUser(_ context.Context, userID string) ([]model.Booking, error) {
	out := []model.Booking{}
	for _, b := range f.st.bookings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

// --- payroll ---

type fakePayroll struct{ *fakeDB }

func (f fakePayroll) Create(_ context.Context, p *model.Payroll) error {
	p.ID = f.nextID("payroll")
	p.Status = model.PayrollPending
	f.st.payroll[p.ID] = *p
	return nil
}

func (f fakePayroll) MarkPaid(_ context.Context, id string) error {
	p, ok := f.st.payroll[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Status == model.PayrollPaid {
		return repository.ErrConflict
	}
	now := time.Now()
	p.Status, p.PaidAt = model.PayrollPaid, &now
	f.st.payroll[id] = p
	return nil
}

func (f fakePayroll) GetByID(_ context.Context, id string) (model.Payroll, error) {
	p, ok := f.st.payroll[id]
	if !ok {
		return p, repository.ErrNotFound
	}
	return p, nil
}

func (f fakePayroll) List(_ context.Context, staffID string, status model.PayrollStatus) ([]model.Payroll, error) {
	out := []model.Payroll{}
	for _, p := range f.st.payroll {
		if (staffID == "" || p.StaffID == staffID) && (status == "" || p.Status == status) {
			out = append(out, p)
		}
	}
	return out, nil
}

// --- events ---

type fakeEvents struct {
	events []queue.Event
	err    error
}

func (f *fakeEvents) Publish(_ context.Context, ev queue.Event) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeEvents) types() []queue.EventType {
	out := make([]queue.EventType, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

var testNow = time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

// seedMember adds a member profile and, when status is set, a membership
// running from February to the end of April 2024.
func seedMember(db *fakeDB, userID string, status model.MembershipStatus) model.Membership {
	db.st.profiles[userID] = model.Profile{ID: userID, FullName: "Member " + userID, Email: userID + "@gym.test"}
	db.st.roles[userID] = model.RoleMember
	if status == "" {
		return model.Membership{}
	}
	m := model.Membership{
		ID:            "ms-" + userID,
		UserID:        userID,
		PlanID:        "plan-monthly",
		StartDate:     time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC),
		Status:        status,
		PaymentStatus: model.PaymentPending,
		QRToken:       model.NewQRToken(userID, testNow.Add(-time.Hour)),
	}
	if status == model.MembershipActive {
		m.PaymentStatus = model.PaymentPaid
	}
	db.st.memberships[m.ID] = m
	return m
}
