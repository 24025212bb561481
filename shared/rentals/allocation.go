package rentals

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pavitra93/colony-rent-manager/shared/apperrors"
	"github.com/pavitra93/colony-rent-manager/shared/models"
	"github.com/pavitra93/colony-rent-manager/shared/rent"
	"github.com/pavitra93/colony-rent-manager/shared/store"
	"github.com/sirupsen/logrus"
)

// Allocator manages rooms and their allotment to companies
type Allocator struct {
	uow    store.UnitOfWork
	ledger *Ledger
}

// NewAllocator creates a new room allocation manager
func NewAllocator(uow store.UnitOfWork, ledger *Ledger) *Allocator {
	return &Allocator{uow: uow, ledger: ledger}
}

// AddRoom creates one free room in a colony
func (a *Allocator) AddRoom(ctx context.Context, colonyID uuid.UUID, roomNumber string) (*models.Room, error) {
	roomNumber = strings.TrimSpace(roomNumber)
	if roomNumber == "" {
		return nil, apperrors.Validation("room number is required")
	}

	room := models.Room{ColonyID: colonyID, RoomNumber: roomNumber, Status: models.RoomStatusFree}
	err := a.uow.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.GetColony(ctx, colonyID); err != nil {
			return err
		}
		rooms := []models.Room{room}
		if err := tx.CreateRooms(ctx, rooms); err != nil {
			return err
		}
		room = rooms[0]
		return nil
	})
	if err != nil {
		logFailure("add_room", err, logrus.Fields{"colony_id": colonyID})
		return nil, err
	}
	return &room, nil
}

// GenerateRooms creates count free rooms numbered prefix{startFrom} onwards
func (a *Allocator) GenerateRooms(ctx context.Context, colonyID uuid.UUID, count int, prefix string, startFrom int) ([]models.Room, error) {
	numbers, err := rent.RoomNumbers(count, prefix, startFrom)
	if err != nil {
		return nil, err
	}

	rooms := make([]models.Room, 0, len(numbers))
	for _, number := range numbers {
		rooms = append(rooms, models.Room{ColonyID: colonyID, RoomNumber: number, Status: models.RoomStatusFree})
	}

	err = a.uow.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.GetColony(ctx, colonyID); err != nil {
			return err
		}
		return tx.CreateRooms(ctx, rooms)
	})
	if err != nil {
		logFailure("generate_rooms", err, logrus.Fields{"colony_id": colonyID, "count": count})
		return nil, err
	}
	return rooms, nil
}

// BulkAllot creates one rental per room under the same terms.
// Either every room is allotted or none is.
func (a *Allocator) BulkAllot(ctx context.Context, roomIDs []uuid.UUID, terms Terms) ([]models.Rental, error) {
	return a.BulkAllotInColony(ctx, uuid.Nil, roomIDs, terms)
}

// BulkAllotInColony is BulkAllot restricted to rooms of one colony.
// A nil colonyID disables the restriction.
func (a *Allocator) BulkAllotInColony(ctx context.Context, colonyID uuid.UUID, roomIDs []uuid.UUID, terms Terms) ([]models.Rental, error) {
	if len(roomIDs) == 0 {
		return nil, apperrors.Validation("at least one room is required")
	}
	seen := make(map[uuid.UUID]bool, len(roomIDs))
	for _, id := range roomIDs {
		if seen[id] {
			return nil, apperrors.Validation("room %s is listed more than once", id)
		}
		seen[id] = true
	}
	if err := terms.Validate(); err != nil {
		return nil, err
	}

	var created []models.Rental
	var events []models.RentalEvent

	err := a.uow.Update(ctx, func(tx store.Tx) error {
		found, err := tx.FindRooms(ctx, roomIDs)
		if err != nil {
			return err
		}

		byID := make(map[uuid.UUID]models.Room, len(found))
		for _, room := range found {
			byID[room.ID] = room
		}

		// keep the caller's order
		rooms := make([]models.Room, 0, len(roomIDs))
		for _, id := range roomIDs {
			room, ok := byID[id]
			if !ok || (colonyID != uuid.Nil && room.ColonyID != colonyID) {
				return apperrors.Validation("room %s does not exist", id)
			}
			rooms = append(rooms, room)
		}

		created, events, err = a.ledger.allot(ctx, tx, rooms, terms)
		return err
	})
	if err != nil {
		logFailure("bulk_allot", err, logrus.Fields{"rooms": len(roomIDs), "company": terms.CompanyName})
		return nil, err
	}

	publishAll(ctx, a.ledger.events, events)
	return created, nil
}

// DeleteRoom removes a room that has no active rental
func (a *Allocator) DeleteRoom(ctx context.Context, roomID uuid.UUID) error {
	err := a.uow.Update(ctx, func(tx store.Tx) error {
		room, err := tx.GetRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if stateOf(room) == StateActive {
			return apperrors.Conflict("room %s has an active rental, end it first", room.RoomNumber)
		}
		return tx.DeleteRoom(ctx, roomID)
	})
	if err != nil {
		logFailure("delete_room", err, logrus.Fields{"room_id": roomID})
	}
	return err
}
