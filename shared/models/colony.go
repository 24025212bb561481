package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Colony represents a managed property owned by one user
type Colony struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    string    `json:"user_id" gorm:"type:varchar(255);not null;index"`
	Name      string    `json:"name" gorm:"not null"`
	Address   *string   `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Rooms []Room `json:"rooms,omitempty" gorm:"foreignKey:ColonyID"`
}

// TableName returns the table name for the Colony model
func (Colony) TableName() string {
	return "colonies"
}

func (c *Colony) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// RoomStatus represents the occupancy of a room
type RoomStatus string

const (
	RoomStatusFree   RoomStatus = "Free"
	RoomStatusRented RoomStatus = "Rented"
)

// Room represents a rentable unit inside a colony
type Room struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	ColonyID   uuid.UUID  `json:"colony_id" gorm:"type:uuid;not null;index"`
	RoomNumber string     `json:"room_number" gorm:"type:varchar(50);not null"`
	Status     RoomStatus `json:"status" gorm:"type:varchar(10);not null;default:'Free'"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// Relationships
	Rental *Rental `json:"rental,omitempty" gorm:"foreignKey:RoomID"`
}

// TableName returns the table name for the Room model
func (Room) TableName() string {
	return "rooms"
}

func (r *Room) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// IsFree reports whether the room can be allotted
func (r *Room) IsFree() bool {
	return r.Status == RoomStatusFree && r.Rental == nil
}

// Rental represents an active lease between a room and a company
type Rental struct {
	ID                uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	RoomID            uuid.UUID       `json:"room_id" gorm:"type:uuid;not null;uniqueIndex"`
	CompanyName       string          `json:"company_name" gorm:"not null;index"`
	MonthlyRent       decimal.Decimal `json:"monthly_rent" gorm:"type:decimal(12,2);not null"`
	ContractStartDate time.Time       `json:"contract_start_date" gorm:"type:date;not null"`
	FirstMonthRent    decimal.Decimal `json:"first_month_rent" gorm:"type:decimal(12,2);not null"`
	PaidAmount        decimal.Decimal `json:"paid_amount" gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TableName returns the table name for the Rental model
func (Rental) TableName() string {
	return "rentals"
}

func (r *Rental) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RentalHistory is the immutable archive of a closed rental
type RentalHistory struct {
	ID                uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	RentalID          uuid.UUID       `json:"rental_id" gorm:"type:uuid;not null;uniqueIndex"`
	RoomID            uuid.UUID       `json:"room_id" gorm:"type:uuid;not null;index"`
	ColonyID          uuid.UUID       `json:"colony_id" gorm:"type:uuid;not null;index"`
	RoomNumber        string          `json:"room_number" gorm:"type:varchar(50);not null"`
	CompanyName       string          `json:"company_name" gorm:"not null"`
	MonthlyRent       decimal.Decimal `json:"monthly_rent" gorm:"type:decimal(12,2);not null"`
	FirstMonthRent    decimal.Decimal `json:"first_month_rent" gorm:"type:decimal(12,2);not null"`
	ContractStartDate time.Time       `json:"contract_start_date" gorm:"type:date;not null"`
	ContractEndDate   time.Time       `json:"contract_end_date" gorm:"type:date;not null;index"`
	TotalPaid         decimal.Decimal `json:"total_paid" gorm:"type:decimal(12,2);not null"`
	TotalExpected     decimal.Decimal `json:"total_expected" gorm:"type:decimal(12,2);not null"`
	UserID            string          `json:"user_id" gorm:"type:varchar(255)"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TableName returns the table name for the RentalHistory model
func (RentalHistory) TableName() string {
	return "rental_history"
}

func (h *RentalHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// Balance returns what was still owed when the rental closed
func (h *RentalHistory) Balance() decimal.Decimal {
	return h.TotalExpected.Sub(h.TotalPaid)
}

// RoomWithRental is a room joined with its active rental, if any.
// It is the snapshot row every summary is folded from.
type RoomWithRental = Room

// CompanyKey returns the grouping identity of a company name.
// Companies are matched by exact, case-sensitive name.
func CompanyKey(name string) string {
	return name
}

// AllModels returns every persisted model in migration order
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Colony{},
		&Room{},
		&Rental{},
		&RentalHistory{},
		&FailedDelivery{},
	}
}
