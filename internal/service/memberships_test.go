package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/gym-management/internal/model"
	"github.com/iliyamo/gym-management/internal/queue"
	"github.com/iliyamo/gym-management/internal/repository"
)

func testPlans() fakePlans {
	return fakePlans{
		"plan-monthly":   {ID: "plan-monthly", Name: "Monthly", PriceCents: 4000, DurationMonths: 1, IsActive: true},
		"plan-quarterly": {ID: "plan-quarterly", Name: "Quarterly", PriceCents: 11000, DurationMonths: 3, IsActive: true},
		"plan-retired":   {ID: "plan-retired", Name: "Legacy", PriceCents: 1000, DurationMonths: 1},
	}
}

func newMembershipFixture() (*fakeDB, *fakeEvents, *MembershipService) {
	db, ev := newFakeDB(), &fakeEvents{}
	svc := NewMembershipService(fakeTx{db}, testPlans(), fakeMemberships{db}, fakeProfiles{db}, ev, zap.NewNop())
	svc.now = fixedNow
	return db, ev, svc
}

func TestAssign_CreatesPendingMembership(t *testing.T) {
	db, ev, svc := newMembershipFixture()
	seedMember(db, "abcdefgh-1234", "")

	m, err := svc.Assign(context.Background(), "abcdefgh-1234", "plan-monthly", time.Date(2024, 1, 31, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), m.StartDate)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), m.EndDate)
	assert.Equal(t, model.MembershipPending, m.Status)
	assert.Equal(t, model.PaymentPending, m.PaymentStatus)
	assert.True(t, strings.HasPrefix(m.QRToken, "GYM-ABCDEFGH-"), m.QRToken)
	assert.Equal(t, "Monthly", m.PlanName)
	assert.Equal(t, m.QRToken, db.st.memberships[m.ID].QRToken)
	assert.Equal(t, []queue.EventType{queue.MembershipAssigned}, ev.types())
}

func TestAssign_ReusesCurrentMembership(t *testing.T) {
	db, _, svc := newMembershipFixture()
	existing := seedMember(db, "u1", model.MembershipActive)

	m, err := svc.Assign(context.Background(), "u1", "plan-quarterly", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, existing.ID, m.ID)
	assert.Equal(t, existing.QRToken, m.QRToken, "QR token is issued once")
	assert.Len(t, db.st.memberships, 1)

	stored := db.st.memberships[existing.ID]
	assert.Equal(t, "plan-quarterly", stored.PlanID)
	assert.Equal(t, time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), stored.EndDate)
	assert.Equal(t, model.MembershipPending, stored.Status)
	assert.Equal(t, model.PaymentPending, stored.PaymentStatus)
}

func TestAssign_ExpiredMembershipGetsNewRow(t *testing.T) {
	db, _, svc := newMembershipFixture()
	old := seedMember(db, "u1", model.MembershipExpired)

	m, err := svc.Assign(context.Background(), "u1", "plan-monthly", testNow)
	require.NoError(t, err)
	assert.NotEqual(t, old.ID, m.ID)
	assert.Len(t, db.st.memberships, 2)
}

func TestAssign_Rejects(t *testing.T) {
	db, _, svc := newMembershipFixture()
	seedMember(db, "u1", "")
	ctx := context.Background()

	_, err := svc.Assign(ctx, "u1", "plan-retired", testNow)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Assign(ctx, "u1", "plan-missing", testNow)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.Assign(ctx, "u1", "plan-monthly", time.Time{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Assign(ctx, "ghost", "plan-monthly", testNow)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, db.st.memberships)
}

func TestFreezeAndUnfreeze(t *testing.T) {
	db, _, svc := newMembershipFixture()
	m := seedMember(db, "u1", model.MembershipActive)
	ctx := context.Background()
	from, until := testNow, testNow.AddDate(0, 0, 14)

	_, err := svc.Freeze(ctx, m.ID, until, from)
	assert.ErrorIs(t, err, ErrInvalidInput)

	frozen, err := svc.Freeze(ctx, m.ID, from, until)
	require.NoError(t, err)
	assert.Equal(t, model.MembershipFrozen, frozen.Status)
	assert.Equal(t, model.MembershipFrozen, db.st.memberships[m.ID].Status)
	assert.Equal(t, m.EndDate, db.st.memberships[m.ID].EndDate)

	_, err = svc.Freeze(ctx, m.ID, from, until)
	assert.ErrorIs(t, err, repository.ErrConflict)

	active, err := svc.Unfreeze(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MembershipActive, active.Status)
	assert.Nil(t, db.st.memberships[m.ID].FreezeStart)

	_, err = svc.Unfreeze(ctx, m.ID)
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestExpire(t *testing.T) {
	db, _, svc := newMembershipFixture()
	m := seedMember(db, "u1", model.MembershipActive)

	out, err := svc.Expire(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MembershipExpired, out.Status)

	_, err = svc.Expire(context.Background(), m.ID)
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestList_UsesEffectiveStatus(t *testing.T) {
	db, _, svc := newMembershipFixture()
	seedMember(db, "current", model.MembershipActive)
	lapsed := seedMember(db, "lapsed", model.MembershipActive)
	lapsed.EndDate = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	db.st.memberships[lapsed.ID] = lapsed
	seedMember(db, "waiting", model.MembershipPending)

	active, err := svc.List(context.Background(), model.MembershipActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "current", active[0].UserID)

	expired, err := svc.List(context.Background(), model.MembershipExpired)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "lapsed", expired[0].UserID)

	pending, err := svc.List(context.Background(), model.MembershipPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, err = svc.List(context.Background(), "paused")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestResolveQR(t *testing.T) {
	db, _, svc := newMembershipFixture()
	m := seedMember(db, "u1", model.MembershipActive)

	got, err := svc.ResolveQR(context.Background(), " "+strings.ToLower(m.QRToken)+" ")
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)

	_, err = svc.ResolveQR(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
