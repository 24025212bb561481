package rentals_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pavitra93/colony-rent-manager/shared/apperrors"
	"github.com/pavitra93/colony-rent-manager/shared/models"
	"github.com/pavitra93/colony-rent-manager/shared/rent"
	"github.com/pavitra93/colony-rent-manager/shared/rentals"
	"github.com/pavitra93/colony-rent-manager/shared/store/storetest"
	"github.com/pavitra93/colony-rent-manager/shared/summary"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.RentalEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event models.RentalEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []models.RentalEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.RentalEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	svc    *rentals.Service
	db     *gorm.DB
	events *recordingPublisher
	colony *models.Colony
	rooms  []models.Room
}

func setup(t *testing.T, roomNumbers ...string) *fixture {
	t.Helper()
	ctx := context.Background()

	s, db := storetest.NewStore(t)
	events := &recordingPublisher{}
	svc := rentals.NewService(s, events)

	colony, err := svc.Colonies.Create(ctx, "user-1", "Green Park", nil)
	require.NoError(t, err)

	f := &fixture{svc: svc, db: db, events: events, colony: colony}
	for _, number := range roomNumbers {
		room, err := svc.Allocator.AddRoom(ctx, colony.ID, number)
		require.NoError(t, err)
		f.rooms = append(f.rooms, *room)
	}
	return f
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "expected %s, got %s", want, got)
}

func acme(rent string, start time.Time) rentals.Terms {
	return rentals.Terms{CompanyName: "Acme", MonthlyRent: dec(rent), StartDate: start}
}

func (f *fixture) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func (f *fixture) room(t *testing.T, id uuid.UUID) models.RoomWithRental {
	t.Helper()
	rooms, err := f.svc.Colonies.Rooms(context.Background(), f.colony.ID)
	require.NoError(t, err)
	for _, r := range rooms {
		if r.ID == id {
			return r
		}
	}
	t.Fatalf("room %s not found", id)
	return models.RoomWithRental{}
}

func TestBulkAllotThenPay(t *testing.T) {
	f := setup(t, "R1", "R2")
	ctx := context.Background()

	created, err := f.svc.Allocator.BulkAllot(ctx, []uuid.UUID{f.rooms[0].ID, f.rooms[1].ID}, acme("3000", date(2024, time.January, 15)))
	require.NoError(t, err)
	require.Len(t, created, 2)

	for i, rental := range created {
		assertAmount(t, "1645.16", rental.FirstMonthRent)
		assert.True(t, rental.PaidAmount.IsZero())
		room := f.room(t, f.rooms[i].ID)
		assert.Equal(t, models.RoomStatusRented, room.Status)
		require.NotNil(t, room.Rental)
		assert.Equal(t, rental.ID, room.Rental.ID)
	}

	paid, err := f.svc.Ledger.ApplyPayment(ctx, created[0].ID, dec("1645.16"))
	require.NoError(t, err)
	assertAmount(t, "1645.16", paid.PaidAmount)

	room := f.room(t, f.rooms[0].ID)
	assertAmount(t, "1645.16", room.Rental.PaidAmount)
	stats := summary.Dashboard([]models.RoomWithRental{room}, date(2024, time.January, 20))
	assert.True(t, stats.TotalPending.IsZero())

	assert.Equal(t, []models.RentalEventType{
		models.EventRentalCreated, models.EventRentalCreated, models.EventPaymentApplied,
	}, f.events.types())
}

func TestBulkAllot_AllOrNothing(t *testing.T) {
	f := setup(t, "R1", "R2", "R3")
	ctx := context.Background()

	_, err := f.svc.Ledger.CreateRental(ctx, f.rooms[1].ID, acme("1000", date(2024, time.January, 1)))
	require.NoError(t, err)

	tests := []struct {
		name  string
		ids   []uuid.UUID
		terms rentals.Terms
	}{
		{"one room already rented", []uuid.UUID{f.rooms[0].ID, f.rooms[1].ID, f.rooms[2].ID}, acme("1000", date(2024, time.January, 1))},
		{"unknown room", []uuid.UUID{f.rooms[0].ID, uuid.New()}, acme("1000", date(2024, time.January, 1))},
		{"duplicate room", []uuid.UUID{f.rooms[0].ID, f.rooms[0].ID}, acme("1000", date(2024, time.January, 1))},
		{"no rooms", nil, acme("1000", date(2024, time.January, 1))},
		{"empty company", []uuid.UUID{f.rooms[0].ID}, rentals.Terms{CompanyName: "  ", MonthlyRent: dec("10"), StartDate: date(2024, time.January, 1)}},
		{"negative rent", []uuid.UUID{f.rooms[0].ID}, acme("-1", date(2024, time.January, 1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Allocator.BulkAllot(ctx, tt.ids, tt.terms)
			assert.ErrorIs(t, err, apperrors.ErrValidation)

			assert.Equal(t, int64(1), f.count(t, &models.Rental{}))
			assert.Equal(t, models.RoomStatusFree, f.room(t, f.rooms[0].ID).Status)
			assert.Equal(t, models.RoomStatusFree, f.room(t, f.rooms[2].ID).Status)
		})
	}
}

func TestBulkAllotInColony_RejectsForeignRoom(t *testing.T) {
	f := setup(t, "R1")
	ctx := context.Background()

	other, err := f.svc.Colonies.Create(ctx, "user-1", "Elsewhere", nil)
	require.NoError(t, err)
	foreign, err := f.svc.Allocator.AddRoom(ctx, other.ID, "X1")
	require.NoError(t, err)

	_, err = f.svc.Allocator.BulkAllotInColony(ctx, f.colony.ID, []uuid.UUID{f.rooms[0].ID, foreign.ID}, acme("1000", date(2024, time.January, 1)))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, int64(0), f.count(t, &models.Rental{}))
}

func TestBulkAllot_StoreFailureRollsBack(t *testing.T) {
	f := setup(t, "R1", "R2")
	storetest.FailOn(t, f.db, "update", "rooms")

	_, err := f.svc.Allocator.BulkAllot(context.Background(), []uuid.UUID{f.rooms[0].ID, f.rooms[1].ID}, acme("1000", date(2024, time.January, 1)))
	assert.ErrorIs(t, err, apperrors.ErrStore)
	assert.Equal(t, int64(0), f.count(t, &models.Rental{}))
	assert.Empty(t, f.events.types())
}

func TestGenerateRooms(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rooms, err := f.svc.Allocator.GenerateRooms(ctx, f.colony.ID, 3, "B", 5)
	require.NoError(t, err)

	numbers := make([]string, 0, len(rooms))
	for _, r := range rooms {
		numbers = append(numbers, r.RoomNumber)
		assert.Equal(t, models.RoomStatusFree, r.Status)
		assert.NotEqual(t, uuid.Nil, r.ID)
	}
	assert.Equal(t, []string{"B5", "B6", "B7"}, numbers)

	_, err = f.svc.Allocator.GenerateRooms(ctx, f.colony.ID, 0, "B", 5)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.Allocator.GenerateRooms(ctx, uuid.New(), 2, "B", 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.svc.Allocator.GenerateRooms(ctx, f.colony.ID, rent.MaxRoomBatch+1, "C", 1)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestGenerateRooms_FullBatch(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rooms, err := f.svc.Allocator.GenerateRooms(ctx, f.colony.ID, rent.MaxRoomBatch, "R", 1)
	require.NoError(t, err)
	assert.Len(t, rooms, rent.MaxRoomBatch)
	assert.Equal(t, int64(rent.MaxRoomBatch), f.count(t, &models.Room{}))
}

func TestApplyPayment_Validation(t *testing.T) {
	f := setup(t, "R1")
	ctx := context.Background()

	rental, err := f.svc.Ledger.CreateRental(ctx, f.rooms[0].ID, acme("1000", date(2024, time.January, 1)))
	require.NoError(t, err)

	_, err = f.svc.Distributor.ApplyToRental(ctx, rental.ID, dec("-1"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.Distributor.ApplyToRental(ctx, rental.ID, dec("0.001"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.Distributor.ApplyToRental(ctx, uuid.New(), dec("10"))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// overpayment is allowed
	paid, err := f.svc.Distributor.ApplyToRental(ctx, rental.ID, dec("5000"))
	require.NoError(t, err)
	paid, err = f.svc.Distributor.ApplyToRental(ctx, rental.ID, dec("0.5"))
	require.NoError(t, err)
	assertAmount(t, "5000.5", paid.PaidAmount)
}

func TestApplyToCompany_Proportional(t *testing.T) {
	f := setup(t, "R1", "R2", "R3")
	ctx := context.Background()

	low, err := f.svc.Ledger.CreateRental(ctx, f.rooms[0].ID, acme("1000", date(2024, time.January, 1)))
	require.NoError(t, err)
	high, err := f.svc.Ledger.CreateRental(ctx, f.rooms[1].ID, acme("3000", date(2024, time.January, 1)))
	require.NoError(t, err)
	other, err := f.svc.Ledger.CreateRental(ctx, f.rooms[2].ID, rentals.Terms{CompanyName: "Globex", MonthlyRent: dec("2000"), StartDate: date(2024, time.January, 1)})
	require.NoError(t, err)

	updated, err := f.svc.Distributor.ApplyToCompany(ctx, f.colony.ID, "Acme", dec("400"))
	require.NoError(t, err)
	require.Len(t, updated, 2)

	paid := map[uuid.UUID]decimal.Decimal{}
	for _, r := range updated {
		paid[r.ID] = r.PaidAmount
	}
	assertAmount(t, "100", paid[low.ID])
	assertAmount(t, "300", paid[high.ID])

	assert.True(t, f.room(t, f.rooms[2].ID).Rental.PaidAmount.IsZero(), "rental %s of another company was touched", other.ID)
}

func TestApplyToCompany_Errors(t *testing.T) {
	f := setup(t, "R1", "R2")
	ctx := context.Background()

	_, err := f.svc.Ledger.CreateRental(ctx, f.rooms[0].ID, acme("0", date(2024, time.January, 1)))
	require.NoError(t, err)

	_, err = f.svc.Distributor.ApplyToCompany(ctx, f.colony.ID, "Acme", dec("100"))
	assert.ErrorIs(t, err, apperrors.ErrValidation, "zero total rent")

	_, err = f.svc.Distributor.ApplyToCompany(ctx, f.colony.ID, "acme", dec("100"))
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "company names are case-sensitive")

	_, err = f.svc.Distributor.ApplyToCompany(ctx, uuid.New(), "Acme", dec("100"))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.svc.Distributor.ApplyToCompany(ctx, f.colony.ID, "Acme", dec("-5"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestApplyToCompany_SharesSumToPayment(t *testing.T) {
	f := setup(t, "R1", "R2", "R3")
	ctx := context.Background()

	_, err := f.svc.Allocator.BulkAllot(ctx, []uuid.UUID{f.rooms[0].ID, f.rooms[1].ID, f.rooms[2].ID}, acme("1000", date(2024, time.January, 1)))
	require.NoError(t, err)

	updated, err := f.svc.Distributor.ApplyToCompany(ctx, f.colony.ID, "Acme", dec("100"))
	require.NoError(t, err)

	total := decimal.Zero
	for _, r := range updated {
		total = total.Add(r.PaidAmount)
		assert.True(t, r.PaidAmount.Sub(dec("33.33")).Abs().LessThanOrEqual(dec("0.01")))
	}
	assertAmount(t, "100", total)
}

func TestCloseRental(t *testing.T) {
	f := setup(t, "R1")
	ctx := context.Background()

	rental, err := f.svc.Ledger.CreateRental(ctx, f.rooms[0].ID, acme("1000", date(2024, time.January, 16)))
	require.NoError(t, err)
	_, err = f.svc.Ledger.ApplyPayment(ctx, rental.ID, dec("700"))
	require.NoError(t, err)

	record, err := f.svc.Ledger.CloseRental(ctx, rental.ID, date(2024, time.March, 2))
	require.NoError(t, err)

	assert.Equal(t, rental.ID, record.RentalID)
	assert.Equal(t, "R1", record.RoomNumber)
	assert.Equal(t, "user-1", record.UserID)
	assertAmount(t, "700", record.TotalPaid)
	// 1000 * 16/31 rounded, plus two monthly rents
	assertAmount(t, "2516.13", record.TotalExpected)
	assert.True(t, record.ContractEndDate.Equal(date(2024, time.March, 2)))

	assert.Equal(t, int64(0), f.count(t, &models.Rental{}))
	assert.Equal(t, int64(1), f.count(t, &models.RentalHistory{}))
	room := f.room(t, f.rooms[0].ID)
	assert.Equal(t, models.RoomStatusFree, room.Status)
	assert.Nil(t, room.Rental)

	_, err = f.svc.Ledger.CloseRental(ctx, rental.ID, date(2024, time.March, 3))
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, int64(1), f.count(t, &models.RentalHistory{}))

	_, err = f.svc.Ledger.CloseRental(ctx, uuid.New(), date(2024, time.March, 3))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// the room can be allotted again
	_, err = f.svc.Ledger.CreateRental(ctx, f.rooms[0].ID, acme("1200", date(2024, time.April, 1)))
	assert.NoError(t, err)
}

func TestCloseRental_AtomicOnFailure(t *testing.T) {
	for _, tc := range []struct{ op, table string }{
		{"create", "rental_history"},
		{"delete", "rentals"},
		{"update", "rooms"},
	} {
		t.Run(tc.op+" "+tc.table, func(t *testing.T) {
			f := setup(t, "R1")
			ctx := context.Background()

			rental, err := f.svc.Ledger.CreateRental(ctx, f.rooms[0].ID, acme("1000", date(2024, time.January, 1)))
			require.NoError(t, err)

			storetest.FailOn(t, f.db, tc.op, tc.table)

			_, err = f.svc.Ledger.CloseRental(ctx, rental.ID, date(2024, time.February, 1))
			assert.ErrorIs(t, err, apperrors.ErrStore)
			assert.True(t, errors.Is(err, storetest.ErrInjected))

			assert.Equal(t, int64(1), f.count(t, &models.Rental{}))
			assert.Equal(t, int64(0), f.count(t, &models.RentalHistory{}))
			room := f.room(t, f.rooms[0].ID)
			assert.Equal(t, models.RoomStatusRented, room.Status)
			require.NotNil(t, room.Rental)
		})
	}
}

func TestDeleteRoom(t *testing.T) {
	f := setup(t, "R1", "R2")
	ctx := context.Background()

	_, err := f.svc.Ledger.CreateRental(ctx, f.rooms[0].ID, acme("1000", date(2024, time.January, 1)))
	require.NoError(t, err)

	err = f.svc.Allocator.DeleteRoom(ctx, f.rooms[0].ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	require.NoError(t, f.svc.Allocator.DeleteRoom(ctx, f.rooms[1].ID))
	assert.Equal(t, int64(1), f.count(t, &models.Room{}))

	err = f.svc.Allocator.DeleteRoom(ctx, f.rooms[1].ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	f := setup(t, "R1")
	f.events.err = errors.New("broker down")

	rental, err := f.svc.Ledger.CreateRental(context.Background(), f.rooms[0].ID, acme("1000", date(2024, time.January, 1)))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, rental.ID)
	assert.Equal(t, int64(1), f.count(t, &models.Rental{}))
}

func TestColonies(t *testing.T) {
	f := setup(t, "R10", "R2", "R1")
	ctx := context.Background()

	_, err := f.svc.Colonies.Create(ctx, "user-1", " ", nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	rooms, err := f.svc.Colonies.Rooms(ctx, f.colony.ID)
	require.NoError(t, err)
	numbers := []string{}
	for _, r := range rooms {
		numbers = append(numbers, r.RoomNumber)
	}
	assert.Equal(t, []string{"R1", "R2", "R10"}, numbers)

	address := "  12 Lake Road "
	updated, err := f.svc.Colonies.Update(ctx, f.colony.ID, "Green Park West", &address)
	require.NoError(t, err)
	require.NotNil(t, updated.Address)
	assert.Equal(t, "12 Lake Road", *updated.Address)

	second, err := f.svc.Colonies.Create(ctx, "user-1", "Blue Hills", nil)
	require.NoError(t, err)
	_, err = f.svc.Allocator.GenerateRooms(ctx, second.ID, 2, "B", 1)
	require.NoError(t, err)
	_, err = f.svc.Colonies.Create(ctx, "user-2", "Not Mine", nil)
	require.NoError(t, err)

	portfolio, err := f.svc.Colonies.Portfolio(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, portfolio.Colonies)
	assert.Len(t, portfolio.Rooms, 5)

	_, err = f.svc.Ledger.CreateRental(ctx, f.rooms[0].ID, acme("1000", date(2024, time.January, 1)))
	require.NoError(t, err)
	require.NoError(t, f.svc.Colonies.Delete(ctx, f.colony.ID))

	_, err = f.svc.Colonies.Get(ctx, f.colony.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, int64(0), f.count(t, &models.Rental{}))
	assert.Equal(t, int64(2), f.count(t, &models.Room{}))
}

func TestRentalInColony(t *testing.T) {
	f := setup(t, "R1")
	ctx := context.Background()

	rental, err := f.svc.Ledger.CreateRental(ctx, f.rooms[0].ID, acme("1000", date(2024, time.January, 1)))
	require.NoError(t, err)

	assert.NoError(t, f.svc.Colonies.RentalInColony(ctx, f.colony.ID, rental.ID))
	assert.ErrorIs(t, f.svc.Colonies.RentalInColony(ctx, uuid.New(), rental.ID), apperrors.ErrNotFound)
	assert.NoError(t, f.svc.Colonies.RoomInColony(ctx, f.colony.ID, f.rooms[0].ID))
	assert.ErrorIs(t, f.svc.Colonies.RoomInColony(ctx, uuid.New(), f.rooms[0].ID), apperrors.ErrNotFound)

	_, err = f.svc.Ledger.CloseRental(ctx, rental.ID, date(2024, time.February, 1))
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Colonies.RentalInColony(ctx, f.colony.ID, rental.ID), apperrors.ErrConflict)

	// a closed rental of another colony looks like any unknown id
	other, err := f.svc.Colonies.Create(ctx, "user-1", "Lake View", nil)
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Colonies.RentalInColony(ctx, other.ID, rental.ID), apperrors.ErrNotFound)
}
