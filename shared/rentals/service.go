package rentals

import (
	"github.com/pavitra93/colony-rent-manager/shared/store"
)

// Service bundles the rental components over one store
type Service struct {
	Colonies    *Colonies
	Ledger      *Ledger
	Allocator   *Allocator
	Distributor *Distributor
}

// NewService wires every rental component to uow and events
func NewService(uow store.UnitOfWork, events Publisher) *Service {
	ledger := NewLedger(uow, events)
	return &Service{
		Colonies:    NewColonies(uow),
		Ledger:      ledger,
		Allocator:   NewAllocator(uow, ledger),
		Distributor: NewDistributor(uow, ledger),
	}
}
