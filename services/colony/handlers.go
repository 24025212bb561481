package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pavitra93/colony-rent-manager/shared/middleware"
	"github.com/pavitra93/colony-rent-manager/shared/rent"
	"github.com/pavitra93/colony-rent-manager/shared/rentals"
	"github.com/pavitra93/colony-rent-manager/shared/summary"
	"github.com/pavitra93/colony-rent-manager/shared/utils"
)

// ColonyRequest represents the create and update colony request
type ColonyRequest struct {
	Name    string  `json:"name" binding:"required"`
	Address *string `json:"address"`
}

// AddRoomRequest represents the add room request
type AddRoomRequest struct {
	RoomNumber string `json:"room_number" binding:"required"`
}

// GenerateRoomsRequest represents the batch room generation request
type GenerateRoomsRequest struct {
	Count     int     `json:"count" binding:"required"`
	Prefix    *string `json:"prefix"`
	StartFrom *int    `json:"start_from"`
}

// AllotRequest represents the bulk allotment request
type AllotRequest struct {
	RoomIDs           []uuid.UUID     `json:"room_ids" binding:"required"`
	CompanyName       string          `json:"company_name"`
	MonthlyRent       decimal.Decimal `json:"monthly_rent"`
	ContractStartDate string          `json:"contract_start_date" binding:"required"`
}

// PaymentRequest represents a payment against one rental
type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// CompanyPaymentRequest represents a lump payment for a company
type CompanyPaymentRequest struct {
	CompanyName string          `json:"company_name" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
}

// CloseRentalRequest represents the end-rental request
type CloseRentalRequest struct {
	EndDate string `json:"end_date"`
}

// ProrateResponse is the first-month preview shown before allotment
type ProrateResponse struct {
	MonthlyRent    decimal.Decimal `json:"monthly_rent"`
	StartDate      string          `json:"start_date"`
	FirstMonthRent decimal.Decimal `json:"first_month_rent"`
	RemainingDays  int             `json:"remaining_days"`
	DaysInMonth    int             `json:"days_in_month"`
}

// Clock supplies "today" in the business timezone
type Clock struct {
	Location *time.Location
	Now      func() time.Time
}

// Today returns the current business date
func (c Clock) Today() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return rent.Today(now(), c.Location)
}

// asOf reads the as_of query parameter, defaulting to today
func asOf(c *gin.Context, clock Clock) (time.Time, error) {
	value := c.Query("as_of")
	if value == "" {
		return clock.Today(), nil
	}
	return rent.ParseDate(value)
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// handleCreateColony handles creating a colony for the caller
func handleCreateColony(svc *rentals.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := middleware.GetUserInfoFromContext(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "User not authenticated")
			return
		}

		var req ColonyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		colony, err := svc.Colonies.Create(c.Request.Context(), user.CognitoID, req.Name, req.Address)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.CreatedResponse(c, "Colony created successfully", colony)
	}
}

// handleListColonies handles listing the caller's colonies
func handleListColonies(svc *rentals.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := middleware.GetUserInfoFromContext(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "User not authenticated")
			return
		}

		colonies, err := svc.Colonies.List(c.Request.Context(), user.CognitoID)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.OKResponse(c, "Colonies retrieved successfully", colonies)
	}
}

func handleGetColony(svc *rentals.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		colonyID, ok := paramUUID(c, "id")
		if !ok {
			return
		}

		colony, err := svc.Colonies.Get(c.Request.Context(), colonyID)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.OKResponse(c, "Colony retrieved successfully", colony)
	}
}

func handleUpdateColony(svc *rentals.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		colonyID, ok := paramUUID(c, "id")
		if !ok {
			return
		}

		var req ColonyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		colony, err := svc.Colonies.Update(c.Request.Context(), colonyID, req.Name, req.Address)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.OKResponse(c, "Colony updated successfully", colony)
	}
}

// handleDeleteColony deletes a colony with its rooms, rentals and history
func handleDeleteColony(svc *rentals.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		colonyID, ok := paramUUID(c, "id")
		if !ok {
			return
		}

		if err := svc.Colonies.Delete(c.Request.Context(), colonyID); err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.OKResponse(c, "Colony deleted successfully", nil)
	}
}

func handleListRooms(svc *rentals.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		colonyID, ok := paramUUID(c, "id")
		if !ok {
			return
		}

		rooms, err := svc.Colonies.Rooms(c.Request.Context(), colonyID)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.OKResponse(c, "Rooms retrieved successfully", rooms)
	}
}

func handleAddRoom(svc *rentals.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		colonyID, ok := paramUUID(c, "id")
		if !ok {
			return
		}

		var req AddRoomRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		room, err := svc.Allocator.AddRoom(c.Request.Context(), colonyID, req.RoomNumber)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.CreatedResponse(c, "Room added successfully", room)
	}
}

// handleGenerateRooms creates a numbered batch of rooms
func handleGenerateRooms(svc *rentals.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		colonyID, ok := paramUUID(c, "id")
		if !ok {
			return
		}

		var req GenerateRoomsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		prefix := rent.DefaultRoomPrefix
		if req.Prefix != nil {
			prefix = *req.Prefix
		}
		startFrom := 1
		if req.StartFrom != nil {
			startFrom = *req.StartFrom
		}

		rooms, err := svc.Allocator.GenerateRooms(c.Request.Context(), colonyID, req.Count, prefix, startFrom)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.CreatedResponse(c, "Rooms generated successfully", rooms)
	}
}

func handleDeleteRoom(svc *rentals.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		colonyID, ok := paramUUID(c, "id")
		if !ok {
			return
		}
		roomID, ok := paramUUID(c, "room_id")
		if !ok {
			return
		}

		ctx := c.Request.Context()
		if err := svc.Colonies.RoomInColony(ctx, colonyID, roomID); err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}
		if err := svc.Allocator.DeleteRoom(ctx, roomID); err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.OKResponse(c, "Room deleted successfully", nil)
	}
}

// handleAllotRooms allots one or more free rooms to a company
func handleAllotRooms(svc *rentals.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		colonyID, ok := paramUUID(c, "id")
		if !ok {
			return
		}

		var req AllotRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		start, err := rent.ParseDate(req.ContractStartDate)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		terms := rentals.Terms{CompanyName: req.CompanyName, MonthlyRent: req.MonthlyRent, StartDate: start}
		created, err := svc.Allocator.BulkAllotInColony(c.Request.Context(), colonyID, req.RoomIDs, terms)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.CreatedResponse(c, "Rooms allotted successfully", created)
	}
}

func handleRentalPayment(svc *rentals.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		colonyID, ok := paramUUID(c, "id")
		if !ok {
			return
		}
		rentalID, ok := paramUUID(c, "rental_id")
		if !ok {
			return
		}

		var req PaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		ctx := c.Request.Context()
		if err := svc.Colonies.RentalInColony(ctx, colonyID, rentalID); err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		rental, err := svc.Distributor.ApplyToRental(ctx, rentalID, req.Amount)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.OKResponse(c, "Payment recorded successfully", rental)
	}
}

// handleCompanyPayment splits a lump payment across a company's rentals
func handleCompanyPayment(svc *rentals.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		colonyID, ok := paramUUID(c, "id")
		if !ok {
			return
		}

		var req CompanyPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		updated, err := svc.Distributor.ApplyToCompany(c.Request.Context(), colonyID, req.CompanyName, req.Amount)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.OKResponse(c, "Payment distributed successfully", updated)
	}
}

// handleCloseRental ends a rental and archives it into history
func handleCloseRental(svc *rentals.Service, clock Clock) gin.HandlerFunc {
	return func(c *gin.Context) {
		colonyID, ok := paramUUID(c, "id")
		if !ok {
			return
		}
		rentalID, ok := paramUUID(c, "rental_id")
		if !ok {
			return
		}

		var req CloseRentalRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				utils.BadRequestResponse(c, "Invalid request format")
				return
			}
		}

		end := clock.Today()
		if req.EndDate != "" {
			var err error
			if end, err = rent.ParseDate(req.EndDate); err != nil {
				utils.DomainErrorResponse(c, err)
				return
			}
		}

		ctx := c.Request.Context()
		if err := svc.Colonies.RentalInColony(ctx, colonyID, rentalID); err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		record, err := svc.Ledger.CloseRental(ctx, rentalID, end)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.OKResponse(c, "Rental closed successfully", record)
	}
}

// handleDashboard returns the colony's room counts and money totals
func handleDashboard(svc *rentals.Service, clock Clock) gin.HandlerFunc {
	return func(c *gin.Context) {
		colonyID, ok := paramUUID(c, "id")
		if !ok {
			return
		}
		date, err := asOf(c, clock)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		snapshot, err := svc.Colonies.Snapshot(c.Request.Context(), colonyID)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.OKResponse(c, "Dashboard retrieved successfully", summary.Dashboard(snapshot.Rooms, date))
	}
}

func handleCompanies(svc *rentals.Service, clock Clock) gin.HandlerFunc {
	return func(c *gin.Context) {
		colonyID, ok := paramUUID(c, "id")
		if !ok {
			return
		}
		date, err := asOf(c, clock)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		snapshot, err := svc.Colonies.Snapshot(c.Request.Context(), colonyID)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.OKResponse(c, "Companies retrieved successfully", summary.ByCompany(snapshot.Rooms, date))
	}
}

func handleCompanyHistory(svc *rentals.Service, clock Clock) gin.HandlerFunc {
	return func(c *gin.Context) {
		colonyID, ok := paramUUID(c, "id")
		if !ok {
			return
		}
		date, err := asOf(c, clock)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		snapshot, err := svc.Colonies.Snapshot(c.Request.Context(), colonyID)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		companies := summary.MergeHistory(snapshot.Rooms, snapshot.History, date)
		utils.OKResponse(c, "Company history retrieved successfully", companies)
	}
}

func handleHistory(svc *rentals.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		colonyID, ok := paramUUID(c, "id")
		if !ok {
			return
		}

		records, err := svc.Colonies.History(c.Request.Context(), colonyID)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.OKResponse(c, "History retrieved successfully", summary.History(records))
	}
}

// handlePortfolioDashboard rolls up every colony the caller owns
func handlePortfolioDashboard(svc *rentals.Service, clock Clock) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := middleware.GetUserInfoFromContext(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "User not authenticated")
			return
		}
		date, err := asOf(c, clock)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		portfolio, err := svc.Colonies.Portfolio(c.Request.Context(), user.CognitoID)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		stats := summary.Portfolio(portfolio.Colonies, portfolio.Rooms, date)
		utils.OKResponse(c, "Portfolio retrieved successfully", stats)
	}
}

// handleProrate previews the first-month rent for a start date
func handleProrate() gin.HandlerFunc {
	return func(c *gin.Context) {
		monthly, err := decimal.NewFromString(c.Query("monthly_rent"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid monthly_rent")
			return
		}
		start, err := rent.ParseDate(c.Query("start_date"))
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		first, err := rent.Prorate(monthly, start)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.OKResponse(c, "First month rent calculated", ProrateResponse{
			MonthlyRent:    monthly,
			StartDate:      start.Format(rent.DateLayout),
			FirstMonthRent: first,
			RemainingDays:  rent.RemainingDays(start),
			DaysInMonth:    rent.DaysInMonth(start),
		})
	}
}
