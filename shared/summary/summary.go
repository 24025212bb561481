package summary

import (
	"sort"
	"time"

	"github.com/pavitra93/colony-rent-manager/shared/models"
	"github.com/pavitra93/colony-rent-manager/shared/rent"
	"github.com/shopspring/decimal"
)

// CompanySummary aggregates a company's active rentals
type CompanySummary struct {
	CompanyName   string                  `json:"company_name"`
	RoomsCount    int                     `json:"rooms_count"`
	Rooms         []models.RoomWithRental `json:"rooms"`
	TotalExpected decimal.Decimal         `json:"total_expected_rent"`
	TotalPaid     decimal.Decimal         `json:"total_paid"`
	TotalPending  decimal.Decimal         `json:"total_pending"`
}

// CompanyWithHistory merges a company's active rooms with its closed rentals
type CompanyWithHistory struct {
	CompanyName       string                  `json:"company_name"`
	CurrentRooms      []models.RoomWithRental `json:"current_rooms"`
	HistoryRecords    []models.RentalHistory  `json:"history_records"`
	TotalRoomsEver    int                     `json:"total_rooms_ever"`
	TotalPaidEver     decimal.Decimal         `json:"total_paid_ever"`
	TotalExpectedEver decimal.Decimal         `json:"total_expected_ever"`
	IsActive          bool                    `json:"is_active"`
}

// DashboardStats rolls up room counts and money totals
type DashboardStats struct {
	TotalColonies int             `json:"total_colonies,omitempty"`
	TotalRooms    int             `json:"total_rooms"`
	RentedRooms   int             `json:"rented_rooms"`
	FreeRooms     int             `json:"free_rooms"`
	TotalExpected decimal.Decimal `json:"total_expected_rent"`
	TotalReceived decimal.Decimal `json:"total_received"`
	TotalPending  decimal.Decimal `json:"total_pending"`
}

// Expected returns the accrued expected rent of a room's rental as of asOf
func Expected(room *models.RoomWithRental, asOf time.Time) decimal.Decimal {
	if room.Rental == nil {
		return decimal.Zero
	}
	r := room.Rental
	return rent.AccruedExpected(r.MonthlyRent, r.FirstMonthRent, r.ContractStartDate, asOf)
}

// ByCompany groups active rentals by company, most rooms first
func ByCompany(rooms []models.RoomWithRental, asOf time.Time) []CompanySummary {
	index := make(map[string]int)
	summaries := make([]CompanySummary, 0)

	for i := range rooms {
		room := &rooms[i]
		if room.Rental == nil {
			continue
		}

		key := models.CompanyKey(room.Rental.CompanyName)
		pos, ok := index[key]
		if !ok {
			pos = len(summaries)
			index[key] = pos
			summaries = append(summaries, CompanySummary{
				CompanyName:   room.Rental.CompanyName,
				TotalExpected: decimal.Zero,
				TotalPaid:     decimal.Zero,
			})
		}

		s := &summaries[pos]
		s.RoomsCount++
		s.Rooms = append(s.Rooms, *room)
		s.TotalExpected = s.TotalExpected.Add(Expected(room, asOf))
		s.TotalPaid = s.TotalPaid.Add(room.Rental.PaidAmount)
	}

	for i := range summaries {
		summaries[i].TotalPending = summaries[i].TotalExpected.Sub(summaries[i].TotalPaid)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].RoomsCount > summaries[j].RoomsCount
	})
	return summaries
}

// MergeHistory unions companies seen in active rentals and in history.
// Active companies come first, then companies with more rooms ever.
func MergeHistory(rooms []models.RoomWithRental, history []models.RentalHistory, asOf time.Time) []CompanyWithHistory {
	index := make(map[string]int)
	companies := make([]CompanyWithHistory, 0)

	lookup := func(name string) *CompanyWithHistory {
		key := models.CompanyKey(name)
		pos, ok := index[key]
		if !ok {
			pos = len(companies)
			index[key] = pos
			companies = append(companies, CompanyWithHistory{
				CompanyName:       name,
				CurrentRooms:      []models.RoomWithRental{},
				HistoryRecords:    []models.RentalHistory{},
				TotalPaidEver:     decimal.Zero,
				TotalExpectedEver: decimal.Zero,
			})
		}
		return &companies[pos]
	}

	for i := range rooms {
		room := &rooms[i]
		if room.Rental == nil {
			continue
		}
		c := lookup(room.Rental.CompanyName)
		c.CurrentRooms = append(c.CurrentRooms, *room)
		c.TotalExpectedEver = c.TotalExpectedEver.Add(Expected(room, asOf))
		c.TotalPaidEver = c.TotalPaidEver.Add(room.Rental.PaidAmount)
	}

	for _, record := range history {
		c := lookup(record.CompanyName)
		c.HistoryRecords = append(c.HistoryRecords, record)
		c.TotalExpectedEver = c.TotalExpectedEver.Add(record.TotalExpected)
		c.TotalPaidEver = c.TotalPaidEver.Add(record.TotalPaid)
	}

	for i := range companies {
		c := &companies[i]
		c.TotalRoomsEver = len(c.CurrentRooms) + len(c.HistoryRecords)
		c.IsActive = len(c.CurrentRooms) > 0
	}

	sort.SliceStable(companies, func(i, j int) bool {
		if companies[i].IsActive != companies[j].IsActive {
			return companies[i].IsActive
		}
		return companies[i].TotalRoomsEver > companies[j].TotalRoomsEver
	})
	return companies
}

// Dashboard rolls up one colony's rooms as of asOf. Pending is not clamped.
func Dashboard(rooms []models.RoomWithRental, asOf time.Time) DashboardStats {
	stats := DashboardStats{
		TotalRooms:    len(rooms),
		TotalExpected: decimal.Zero,
		TotalReceived: decimal.Zero,
	}

	for i := range rooms {
		room := &rooms[i]
		if room.Status == models.RoomStatusRented {
			stats.RentedRooms++
		}
		if room.Rental != nil {
			stats.TotalExpected = stats.TotalExpected.Add(Expected(room, asOf))
			stats.TotalReceived = stats.TotalReceived.Add(room.Rental.PaidAmount)
		}
	}

	stats.FreeRooms = stats.TotalRooms - stats.RentedRooms
	stats.TotalPending = stats.TotalExpected.Sub(stats.TotalReceived)
	return stats
}

// Portfolio rolls up rooms across all of a user's colonies
func Portfolio(colonies int, rooms []models.RoomWithRental, asOf time.Time) DashboardStats {
	stats := Dashboard(rooms, asOf)
	stats.TotalColonies = colonies
	return stats
}

// HistoryEntry is a closed rental with its display duration and balance
type HistoryEntry struct {
	models.RentalHistory
	Duration rent.Duration   `json:"duration"`
	Balance  decimal.Decimal `json:"balance"`
}

// History decorates archived rentals for display
func History(records []models.RentalHistory) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, HistoryEntry{
			RentalHistory: record,
			Duration:      rent.DurationBetween(record.ContractStartDate, record.ContractEndDate),
			Balance:       record.Balance(),
		})
	}
	return entries
}
