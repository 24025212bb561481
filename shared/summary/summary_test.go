package summary

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pavitra93/colony-rent-manager/shared/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var asOf = time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func freeRoom(number string) models.RoomWithRental {
	return models.RoomWithRental{ID: uuid.New(), RoomNumber: number, Status: models.RoomStatusFree}
}

// rentedRoom starts on the 1st of January 2024 so first-month rent equals monthly rent
func rentedRoom(number, company, monthly, paid string) models.RoomWithRental {
	room := models.RoomWithRental{ID: uuid.New(), RoomNumber: number, Status: models.RoomStatusRented}
	room.Rental = &models.Rental{
		ID:                uuid.New(),
		RoomID:            room.ID,
		CompanyName:       company,
		MonthlyRent:       dec(monthly),
		FirstMonthRent:    dec(monthly),
		PaidAmount:        dec(paid),
		ContractStartDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	return room
}

func history(company, expected, paid string) models.RentalHistory {
	return models.RentalHistory{
		ID:                uuid.New(),
		RentalID:          uuid.New(),
		CompanyName:       company,
		TotalExpected:     dec(expected),
		TotalPaid:         dec(paid),
		ContractStartDate: time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
		ContractEndDate:   time.Date(2023, time.April, 6, 0, 0, 0, 0, time.UTC),
	}
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "expected %s, got %s", want, got)
}

func TestByCompany(t *testing.T) {
	rooms := []models.RoomWithRental{
		rentedRoom("R1", "Initech", "500", "0"),
		rentedRoom("R2", "Acme", "1000", "1000"),
		freeRoom("R3"),
		rentedRoom("R4", "Acme", "2000", "500"),
		rentedRoom("R5", "acme", "100", "0"),
	}

	summaries := ByCompany(rooms, asOf)
	require.Len(t, summaries, 3)

	acme := summaries[0]
	assert.Equal(t, "Acme", acme.CompanyName)
	assert.Equal(t, 2, acme.RoomsCount)
	// January through March accrues three monthly rents
	assertAmount(t, "9000", acme.TotalExpected)
	assertAmount(t, "1500", acme.TotalPaid)
	assertAmount(t, "7500", acme.TotalPending)

	// ties keep first-seen order, and names are case-sensitive
	assert.Equal(t, "Initech", summaries[1].CompanyName)
	assert.Equal(t, "acme", summaries[2].CompanyName)
}

func TestMergeHistory(t *testing.T) {
	rooms := []models.RoomWithRental{
		rentedRoom("R1", "Acme", "1000", "3000"),
		freeRoom("R2"),
	}
	records := []models.RentalHistory{
		history("Globex", "4000", "3500"),
		history("Globex", "2000", "2000"),
		history("Acme", "1000", "1000"),
		history("Hooli", "100", "0"),
	}

	merged := MergeHistory(rooms, records, asOf)
	require.Len(t, merged, 3)

	assert.Equal(t, "Acme", merged[0].CompanyName)
	assert.True(t, merged[0].IsActive)
	assert.Equal(t, 2, merged[0].TotalRoomsEver)
	assertAmount(t, "4000", merged[0].TotalExpectedEver)
	assertAmount(t, "4000", merged[0].TotalPaidEver)

	globex := merged[1]
	assert.Equal(t, "Globex", globex.CompanyName)
	assert.False(t, globex.IsActive)
	assert.Equal(t, 2, globex.TotalRoomsEver)
	assert.Empty(t, globex.CurrentRooms)
	assertAmount(t, "6000", globex.TotalExpectedEver)
	assertAmount(t, "5500", globex.TotalPaidEver)

	assert.Equal(t, "Hooli", merged[2].CompanyName)
}

func TestDashboard(t *testing.T) {
	rooms := []models.RoomWithRental{
		rentedRoom("R1", "Acme", "1000", "5000"),
		rentedRoom("R2", "Globex", "500", "0"),
		freeRoom("R3"),
	}

	stats := Dashboard(rooms, asOf)
	assert.Equal(t, 3, stats.TotalRooms)
	assert.Equal(t, 2, stats.RentedRooms)
	assert.Equal(t, 1, stats.FreeRooms)
	assertAmount(t, "4500", stats.TotalExpected)
	assertAmount(t, "5000", stats.TotalReceived)
	// overpayment shows as negative pending
	assertAmount(t, "-500", stats.TotalPending)
	assert.Equal(t, 0, stats.TotalColonies)
}

func TestDashboard_Empty(t *testing.T) {
	stats := Dashboard(nil, asOf)
	assert.Equal(t, 0, stats.TotalRooms)
	assert.True(t, stats.TotalPending.IsZero())
}

func TestDashboard_FutureContractOwesNothing(t *testing.T) {
	room := rentedRoom("R1", "Acme", "1000", "0")
	room.Rental.ContractStartDate = asOf.AddDate(0, 0, 1)

	stats := Dashboard([]models.RoomWithRental{room}, asOf)
	assert.True(t, stats.TotalExpected.IsZero())
}

func TestPortfolio(t *testing.T) {
	rooms := []models.RoomWithRental{rentedRoom("R1", "Acme", "1000", "0"), freeRoom("A1")}

	stats := Portfolio(2, rooms, asOf)
	assert.Equal(t, 2, stats.TotalColonies)
	assert.Equal(t, 2, stats.TotalRooms)
	assertAmount(t, "3000", stats.TotalExpected)
}

func TestHistory(t *testing.T) {
	entries := History([]models.RentalHistory{history("Globex", "4000", "3500")})
	require.Len(t, entries, 1)
	assert.Equal(t, "3 months 5 days", entries[0].Duration.Text)
	assertAmount(t, "500", entries[0].Balance)
}
