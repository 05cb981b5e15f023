package trade

import (
	"context"

	"github.com/hospital/pharmacy/internal/domain/inventory"
	"github.com/hospital/pharmacy/internal/domain/sequence"
	"github.com/hospital/pharmacy/internal/domain/trade"
)

// TransactionScope runs fn inside one database transaction. If fn returns
// an error every write made through repos is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories are repositories bound to the running transaction
type TransactionalRepositories interface {
	Items() inventory.ItemRepository
	Drafts() trade.DraftRepository
	Purchases() trade.PurchaseRepository
	Dispenses() trade.DispenseRepository
	Returns() trade.ReturnRepository
	Counters() sequence.CounterRepository
}
