package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/gym-management/internal/model"
	"github.com/iliyamo/gym-management/internal/repository"
)

func newAttendanceFixture() (*fakeDB, *AttendanceService) {
	db := newFakeDB()
	svc := NewAttendanceService(fakeTx{db}, fakeAttendance{db}, fakeMemberships{db}, fakeProfiles{db})
	svc.now = fixedNow
	return db, svc
}

func TestCheckIn_ByQRToken(t *testing.T) {
	db, svc := newAttendanceFixture()
	m := seedMember(db, "u1", model.MembershipActive)
	ctx := context.Background()

	a, err := svc.CheckIn(ctx, m.QRToken, "")
	require.NoError(t, err)
	assert.Equal(t, "u1", a.UserID)
	assert.Equal(t, testNow, a.CheckInAt)

	_, err = svc.CheckIn(ctx, m.QRToken, "")
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)

	require.NoError(t, svc.CheckOut(ctx, a.ID))
	assert.ErrorIs(t, svc.CheckOut(ctx, a.ID), repository.ErrNotFound)

	_, err = svc.CheckIn(ctx, "", "u1")
	require.NoError(t, err)
	assert.Len(t, db.st.attendance, 2)
}

func TestCheckIn_RequiresActiveMembership(t *testing.T) {
	cases := map[string]func(db *fakeDB) model.Membership{
		"pending": func(db *fakeDB) model.Membership { return seedMember(db, "u1", model.MembershipPending) },
		"frozen":  func(db *fakeDB) model.Membership { return seedMember(db, "u1", model.MembershipFrozen) },
		"expired": func(db *fakeDB) model.Membership { return seedMember(db, "u1", model.MembershipExpired) },
		"lapsed": func(db *fakeDB) model.Membership {
			m := seedMember(db, "u1", model.MembershipActive)
			m.EndDate = time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
			db.st.memberships[m.ID] = m
			return m
		},
		"not started": func(db *fakeDB) model.Membership {
			m := seedMember(db, "u1", model.MembershipActive)
			m.StartDate = time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
			db.st.memberships[m.ID] = m
			return m
		},
	}
	for name, seed := range cases {
		t.Run(name, func(t *testing.T) {
			db, svc := newAttendanceFixture()
			m := seed(db)
			_, err := svc.CheckIn(context.Background(), m.QRToken, "")
			assert.ErrorIs(t, err, ErrMembershipInactive)
			assert.Empty(t, db.st.attendance)
		})
	}
}

func TestCheckIn_LastDayStillValid(t *testing.T) {
	db, svc := newAttendanceFixture()
	m := seedMember(db, "u1", model.MembershipActive)
	m.EndDate = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	db.st.memberships[m.ID] = m

	_, err := svc.CheckIn(context.Background(), m.QRToken, "")
	assert.NoError(t, err)
}

func TestCheckIn_UnknownMember(t *testing.T) {
	db, svc := newAttendanceFixture()
	seedMember(db, "u1", "")

	_, err := svc.CheckIn(context.Background(), "", "u1")
	assert.ErrorIs(t, err, ErrMembershipInactive)

	_, err = svc.CheckIn(context.Background(), "GYM-NOPE-1", "")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.CheckIn(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAttendanceForDay(t *testing.T) {
	db, svc := newAttendanceFixture()
	db.st.attendance["a1"] = model.Attendance{ID: "a1", UserID: "u1", CheckInAt: testNow}
	db.st.attendance["a2"] = model.Attendance{ID: "a2", UserID: "u1", CheckInAt: testNow.AddDate(0, 0, -1)}

	got, err := svc.ForDay(context.Background(), "", testNow)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a1", got[0].ID)

	_, err = svc.History(context.Background(), "u1", testNow, testNow.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrInvalidInput)
}
