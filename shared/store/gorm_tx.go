package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pavitra93/colony-rent-manager/shared/apperrors"
	"github.com/pavitra93/colony-rent-manager/shared/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// insertBatchSize keeps multi-row inserts under driver bind-variable limits
const insertBatchSize = 500

type gormTx struct {
	db *gorm.DB
}

// translate maps a gorm error onto the domain error taxonomy
func translate(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.NotFound("%s", op)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.Conflict("%s: duplicate key", op)
	default:
		return apperrors.Store(op, err)
	}
}

func (t *gormTx) CreateColony(ctx context.Context, colony *models.Colony) error {
	if err := t.db.WithContext(ctx).Omit("Rooms").Create(colony).Error; err != nil {
		return translate("create colony", err)
	}
	return nil
}

func (t *gormTx) GetColony(ctx context.Context, id uuid.UUID) (*models.Colony, error) {
	var colony models.Colony
	if err := t.db.WithContext(ctx).Where("id = ?", id).First(&colony).Error; err != nil {
		return nil, translate("colony "+id.String(), err)
	}
	return &colony, nil
}

func (t *gormTx) ListColonies(ctx context.Context, userID string) ([]models.Colony, error) {
	var colonies []models.Colony
	err := t.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&colonies).Error
	if err != nil {
		return nil, translate("list colonies", err)
	}
	return colonies, nil
}

func (t *gormTx) SaveColony(ctx context.Context, colony *models.Colony) error {
	result := t.db.WithContext(ctx).Model(&models.Colony{}).
		Where("id = ?", colony.ID).
		Updates(map[string]interface{}{
			"name":    colony.Name,
			"address": colony.Address,
		})
	if result.Error != nil {
		return translate("update colony", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("colony %s", colony.ID)
	}
	return nil
}

// DeleteColony removes the colony with its history, rentals and rooms
func (t *gormTx) DeleteColony(ctx context.Context, id uuid.UUID) error {
	db := t.db.WithContext(ctx)
	roomIDs := db.Model(&models.Room{}).Select("id").Where("colony_id = ?", id)

	if err := db.Where("colony_id = ?", id).Delete(&models.RentalHistory{}).Error; err != nil {
		return translate("delete colony history", err)
	}
	if err := db.Where("room_id IN (?)", roomIDs).Delete(&models.Rental{}).Error; err != nil {
		return translate("delete colony rentals", err)
	}
	if err := db.Where("colony_id = ?", id).Delete(&models.Room{}).Error; err != nil {
		return translate("delete colony rooms", err)
	}

	result := db.Where("id = ?", id).Delete(&models.Colony{})
	if result.Error != nil {
		return translate("delete colony", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("colony %s", id)
	}
	return nil
}

func (t *gormTx) CreateRooms(ctx context.Context, rooms []models.Room) error {
	if len(rooms) == 0 {
		return nil
	}
	if err := t.db.WithContext(ctx).Omit("Rental").CreateInBatches(&rooms, insertBatchSize).Error; err != nil {
		return translate("create rooms", err)
	}
	return nil
}

func (t *gormTx) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	var room models.Room
	if err := t.db.WithContext(ctx).Preload("Rental").Where("id = ?", id).First(&room).Error; err != nil {
		return nil, translate("room "+id.String(), err)
	}
	return &room, nil
}

func (t *gormTx) FindRooms(ctx context.Context, ids []uuid.UUID) ([]models.Room, error) {
	var rooms []models.Room
	if err := t.db.WithContext(ctx).Preload("Rental").Where("id IN ?", ids).Find(&rooms).Error; err != nil {
		return nil, translate("find rooms", err)
	}
	return rooms, nil
}

func (t *gormTx) RoomsInColonies(ctx context.Context, colonyIDs []uuid.UUID) ([]models.RoomWithRental, error) {
	var rooms []models.RoomWithRental
	if len(colonyIDs) == 0 {
		return rooms, nil
	}
	err := t.db.WithContext(ctx).
		Preload("Rental").
		Where("colony_id IN ?", colonyIDs).
		Order("created_at, id").
		Find(&rooms).Error
	if err != nil {
		return nil, translate("list rooms", err)
	}
	return rooms, nil
}

func (t *gormTx) SetRoomStatus(ctx context.Context, ids []uuid.UUID, status models.RoomStatus) error {
	result := t.db.WithContext(ctx).Model(&models.Room{}).
		Where("id IN ?", ids).
		Update("status", status)
	if result.Error != nil {
		return translate("update room status", result.Error)
	}
	if result.RowsAffected != int64(len(ids)) {
		return apperrors.NotFound("updated %d of %d rooms", result.RowsAffected, len(ids))
	}
	return nil
}

func (t *gormTx) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	result := t.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Room{})
	if result.Error != nil {
		return translate("delete room", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("room %s", id)
	}
	return nil
}

func (t *gormTx) CreateRentals(ctx context.Context, rentals []models.Rental) error {
	if len(rentals) == 0 {
		return nil
	}
	if err := t.db.WithContext(ctx).CreateInBatches(&rentals, insertBatchSize).Error; err != nil {
		return translate("create rentals", err)
	}
	return nil
}

func (t *gormTx) GetRental(ctx context.Context, id uuid.UUID) (*models.Rental, error) {
	var rental models.Rental
	if err := t.db.WithContext(ctx).Where("id = ?", id).First(&rental).Error; err != nil {
		return nil, translate("rental "+id.String(), err)
	}
	return &rental, nil
}

// RentalsInColony returns the active rentals of a colony, oldest first
func (t *gormTx) RentalsInColony(ctx context.Context, colonyID uuid.UUID) ([]models.Rental, error) {
	db := t.db.WithContext(ctx)
	roomIDs := db.Model(&models.Room{}).Select("id").Where("colony_id = ?", colonyID)

	var rentals []models.Rental
	if err := db.Where("room_id IN (?)", roomIDs).Order("created_at, id").Find(&rentals).Error; err != nil {
		return nil, translate("list colony rentals", err)
	}
	return rentals, nil
}

// AddPaidAmount increments paid_amount in the database and reloads it into rental
func (t *gormTx) AddPaidAmount(ctx context.Context, rental *models.Rental, amount decimal.Decimal) error {
	db := t.db.WithContext(ctx)
	result := db.Model(&models.Rental{}).
		Where("id = ?", rental.ID).
		Update("paid_amount", gorm.Expr("paid_amount + ?", amount))
	if result.Error != nil {
		return translate("update paid amount", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("rental %s", rental.ID)
	}

	var current models.Rental
	if err := db.Select("paid_amount", "updated_at").Where("id = ?", rental.ID).First(&current).Error; err != nil {
		return translate("reload paid amount", err)
	}
	rental.PaidAmount = current.PaidAmount
	rental.UpdatedAt = current.UpdatedAt
	return nil
}

func (t *gormTx) DeleteRental(ctx context.Context, id uuid.UUID) error {
	result := t.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Rental{})
	if result.Error != nil {
		return translate("delete rental", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.Conflict("rental %s is no longer active", id)
	}
	return nil
}

func (t *gormTx) CreateHistory(ctx context.Context, record *models.RentalHistory) error {
	if err := t.db.WithContext(ctx).Create(record).Error; err != nil {
		return translate("create rental history", err)
	}
	return nil
}

// HistoryForColony returns archived rentals, most recently closed first
func (t *gormTx) HistoryForColony(ctx context.Context, colonyID uuid.UUID) ([]models.RentalHistory, error) {
	var records []models.RentalHistory
	err := t.db.WithContext(ctx).
		Where("colony_id = ?", colonyID).
		Order("contract_end_date DESC, created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, translate("list rental history", err)
	}
	return records, nil
}

// ClosedRental returns the history row archived for rentalID
func (t *gormTx) ClosedRental(ctx context.Context, rentalID uuid.UUID) (*models.RentalHistory, error) {
	var record models.RentalHistory
	if err := t.db.WithContext(ctx).Where("rental_id = ?", rentalID).First(&record).Error; err != nil {
		return nil, translate("closed rental "+rentalID.String(), err)
	}
	return &record, nil
}
