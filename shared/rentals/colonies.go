package rentals

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pavitra93/colony-rent-manager/shared/apperrors"
	"github.com/pavitra93/colony-rent-manager/shared/models"
	"github.com/pavitra93/colony-rent-manager/shared/rent"
	"github.com/pavitra93/colony-rent-manager/shared/store"
	"github.com/sirupsen/logrus"
)

// Colonies manages colonies and serves the read snapshots summaries fold over
type Colonies struct {
	uow store.UnitOfWork
}

// NewColonies creates a new colony directory
func NewColonies(uow store.UnitOfWork) *Colonies {
	return &Colonies{uow: uow}
}

// Snapshot is everything a colony's summaries are derived from
type Snapshot struct {
	Colony  *models.Colony
	Rooms   []models.RoomWithRental
	History []models.RentalHistory
}

// Portfolio is every room across a user's colonies
type Portfolio struct {
	Colonies int
	Rooms    []models.RoomWithRental
}

func normalizeAddress(address *string) *string {
	if address == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*address)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Create creates a colony owned by userID
func (c *Colonies) Create(ctx context.Context, userID, name string, address *string) (*models.Colony, error) {
	if userID == "" {
		return nil, apperrors.Validation("owner is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("colony name is required")
	}

	colony := &models.Colony{UserID: userID, Name: name, Address: normalizeAddress(address)}
	err := c.uow.Update(ctx, func(tx store.Tx) error {
		return tx.CreateColony(ctx, colony)
	})
	if err != nil {
		logFailure("create_colony", err, logrus.Fields{"user_id": userID})
		return nil, err
	}
	return colony, nil
}

// Update renames a colony or changes its address
func (c *Colonies) Update(ctx context.Context, colonyID uuid.UUID, name string, address *string) (*models.Colony, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("colony name is required")
	}

	var colony *models.Colony
	err := c.uow.Update(ctx, func(tx store.Tx) error {
		var err error
		colony, err = tx.GetColony(ctx, colonyID)
		if err != nil {
			return err
		}
		colony.Name = name
		colony.Address = normalizeAddress(address)
		return tx.SaveColony(ctx, colony)
	})
	if err != nil {
		logFailure("update_colony", err, logrus.Fields{"colony_id": colonyID})
		return nil, err
	}
	return colony, nil
}

// Get returns one colony
func (c *Colonies) Get(ctx context.Context, colonyID uuid.UUID) (*models.Colony, error) {
	var colony *models.Colony
	err := c.uow.View(ctx, func(tx store.Tx) error {
		var err error
		colony, err = tx.GetColony(ctx, colonyID)
		return err
	})
	return colony, err
}

// List returns a user's colonies, newest first
func (c *Colonies) List(ctx context.Context, userID string) ([]models.Colony, error) {
	var colonies []models.Colony
	err := c.uow.View(ctx, func(tx store.Tx) error {
		var err error
		colonies, err = tx.ListColonies(ctx, userID)
		return err
	})
	return colonies, err
}

// Delete removes a colony and everything in it. This cannot be undone.
func (c *Colonies) Delete(ctx context.Context, colonyID uuid.UUID) error {
	err := c.uow.Update(ctx, func(tx store.Tx) error {
		return tx.DeleteColony(ctx, colonyID)
	})
	if err != nil {
		logFailure("delete_colony", err, logrus.Fields{"colony_id": colonyID})
	}
	return err
}

// Rooms returns a colony's rooms with their active rentals in room-number order
func (c *Colonies) Rooms(ctx context.Context, colonyID uuid.UUID) ([]models.RoomWithRental, error) {
	snapshot, err := c.Snapshot(ctx, colonyID)
	if err != nil {
		return nil, err
	}
	return snapshot.Rooms, nil
}

// History returns a colony's closed rentals, most recently closed first
func (c *Colonies) History(ctx context.Context, colonyID uuid.UUID) ([]models.RentalHistory, error) {
	snapshot, err := c.Snapshot(ctx, colonyID)
	if err != nil {
		return nil, err
	}
	return snapshot.History, nil
}

// Snapshot fetches a colony's rooms and history in one pass
func (c *Colonies) Snapshot(ctx context.Context, colonyID uuid.UUID) (*Snapshot, error) {
	snapshot := &Snapshot{}
	err := c.uow.View(ctx, func(tx store.Tx) error {
		var err error
		if snapshot.Colony, err = tx.GetColony(ctx, colonyID); err != nil {
			return err
		}
		if snapshot.Rooms, err = tx.RoomsInColonies(ctx, []uuid.UUID{colonyID}); err != nil {
			return err
		}
		snapshot.History, err = tx.HistoryForColony(ctx, colonyID)
		return err
	})
	if err != nil {
		return nil, err
	}

	SortRooms(snapshot.Rooms)
	return snapshot, nil
}

// Portfolio fetches every room across a user's colonies
func (c *Colonies) Portfolio(ctx context.Context, userID string) (*Portfolio, error) {
	portfolio := &Portfolio{}
	err := c.uow.View(ctx, func(tx store.Tx) error {
		colonies, err := tx.ListColonies(ctx, userID)
		if err != nil {
			return err
		}

		ids := make([]uuid.UUID, 0, len(colonies))
		for _, colony := range colonies {
			ids = append(ids, colony.ID)
		}
		portfolio.Colonies = len(colonies)
		portfolio.Rooms, err = tx.RoomsInColonies(ctx, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return portfolio, nil
}

// RoomInColony returns not found unless the room belongs to the colony
func (c *Colonies) RoomInColony(ctx context.Context, colonyID, roomID uuid.UUID) error {
	return c.uow.View(ctx, func(tx store.Tx) error {
		room, err := tx.GetRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if room.ColonyID != colonyID {
			return apperrors.NotFound("room %s", roomID)
		}
		return nil
	})
}

// RentalInColony returns not found unless the rental's room belongs to the colony.
// A rental that was already closed from this colony is reported as a conflict;
// one closed from another colony is not found.
func (c *Colonies) RentalInColony(ctx context.Context, colonyID, rentalID uuid.UUID) error {
	return c.uow.View(ctx, func(tx store.Tx) error {
		rental, err := tx.GetRental(ctx, rentalID)
		if errors.Is(err, apperrors.ErrNotFound) {
			record, checkErr := tx.ClosedRental(ctx, rentalID)
			if checkErr != nil && !errors.Is(checkErr, apperrors.ErrNotFound) {
				return checkErr
			}
			if record != nil && record.ColonyID == colonyID {
				return apperrors.Conflict("rental %s is already closed", rentalID)
			}
		}
		if err != nil {
			return err
		}

		room, err := tx.GetRoom(ctx, rental.RoomID)
		if err != nil {
			return err
		}
		if room.ColonyID != colonyID {
			return apperrors.NotFound("rental %s", rentalID)
		}
		return nil
	})
}

// SortRooms orders rooms by room number, numbers compared numerically
func SortRooms(rooms []models.RoomWithRental) {
	sort.SliceStable(rooms, func(i, j int) bool {
		return rent.CompareRoomNumbers(rooms[i].RoomNumber, rooms[j].RoomNumber) < 0
	})
}
