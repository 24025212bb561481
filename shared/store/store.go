package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/pavitra93/colony-rent-manager/shared/apperrors"
	"github.com/pavitra93/colony-rent-manager/shared/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Tx is the set of store operations available inside a unit of work
type Tx interface {
	CreateColony(ctx context.Context, colony *models.Colony) error
	GetColony(ctx context.Context, id uuid.UUID) (*models.Colony, error)
	ListColonies(ctx context.Context, userID string) ([]models.Colony, error)
	SaveColony(ctx context.Context, colony *models.Colony) error
	DeleteColony(ctx context.Context, id uuid.UUID) error

	CreateRooms(ctx context.Context, rooms []models.Room) error
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	FindRooms(ctx context.Context, ids []uuid.UUID) ([]models.Room, error)
	RoomsInColonies(ctx context.Context, colonyIDs []uuid.UUID) ([]models.RoomWithRental, error)
	SetRoomStatus(ctx context.Context, ids []uuid.UUID, status models.RoomStatus) error
	DeleteRoom(ctx context.Context, id uuid.UUID) error

	CreateRentals(ctx context.Context, rentals []models.Rental) error
	GetRental(ctx context.Context, id uuid.UUID) (*models.Rental, error)
	RentalsInColony(ctx context.Context, colonyID uuid.UUID) ([]models.Rental, error)
	AddPaidAmount(ctx context.Context, rental *models.Rental, amount decimal.Decimal) error
	DeleteRental(ctx context.Context, id uuid.UUID) error

	CreateHistory(ctx context.Context, record *models.RentalHistory) error
	HistoryForColony(ctx context.Context, colonyID uuid.UUID) ([]models.RentalHistory, error)
	ClosedRental(ctx context.Context, rentalID uuid.UUID) (*models.RentalHistory, error)
}

// UnitOfWork runs store operations either atomically or as plain reads
type UnitOfWork interface {
	// Update runs fn in one transaction; any error rolls back every write
	Update(ctx context.Context, fn func(tx Tx) error) error
	// View runs fn against the store without a transaction
	View(ctx context.Context, fn func(tx Tx) error) error
}

// GormStore implements UnitOfWork on top of gorm
type GormStore struct {
	db *gorm.DB
}

// New creates a new gorm-backed store
func New(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Update runs fn inside a database transaction
func (s *GormStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&gormTx{db: db})
	})
	if err != nil && apperrors.Kind(err) == "internal" {
		return apperrors.Store("commit transaction", err)
	}
	return err
}

// View runs fn without a transaction
func (s *GormStore) View(ctx context.Context, fn func(tx Tx) error) error {
	return fn(&gormTx{db: s.db.WithContext(ctx)})
}

// Migrate creates or updates every table the store uses
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.AllModels()...)
}
