package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	apptrade "github.com/hospital/pharmacy/internal/application/trade"
	"github.com/hospital/pharmacy/internal/domain/shared"
	"github.com/hospital/pharmacy/internal/domain/trade"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDraft(t *testing.T, supplier, invoice string) *trade.Draft {
	t.Helper()
	expiry := testNow.AddDate(2, 0, 0)
	draft, err := trade.NewDraft(trade.DraftInput{
		SupplierName:  supplier,
		InvoiceNumber: invoice,
		Discount:      dec("10"),
		Taxes:         []trade.InvoiceTax{{Name: "VAT", ApplyOn: trade.ApplyOnTaxable, Type: trade.TaxPercent, Value: dec("5")}},
		Lines: []trade.InvoiceLine{
			{Name: "Paracetamol", UnitsPerPack: dec("10"), Packs: dec("5"), BuyPerPack: dec("70"), SalePerPack: dec("100"), ExpiryDate: &expiry},
			{Name: "Amoxicillin", UnitsPerPack: dec("12"), Packs: dec("2"), BuyPerPack: dec("24")},
		},
	}, testNow)
	require.NoError(t, err)
	return draft
}

func newTestPurchase(t *testing.T, draft *trade.Draft) *trade.Purchase {
	t.Helper()
	committable, _ := draft.CommittableLines()
	lines := make([]trade.PurchaseLine, len(committable))
	for i, l := range committable {
		id := uuid.New()
		lines[i] = trade.PurchaseLine{LineNo: l.LineNo, ItemID: &id, InvoiceLine: l.InvoiceLine}
	}
	return trade.NewPurchase(draft, draft.InvoiceNumber, lines, testNow)
}

func TestGormDraftRepository(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormDraftRepository(db.DB)
	ctx := context.Background()

	draft := newTestDraft(t, "Acme Pharma", "INV-100")
	require.NoError(t, repo.Create(ctx, draft))

	t.Run("round trips lines, taxes and totals", func(t *testing.T) {
		found, err := repo.FindByID(ctx, draft.ID)
		require.NoError(t, err)
		assert.Equal(t, "Acme Pharma", found.SupplierName)
		require.Len(t, found.Lines, 2)
		assert.Equal(t, "Paracetamol", found.Lines[0].Name)
		assert.True(t, draft.Lines[0].AfterTaxUnitCost.Equal(found.Lines[0].AfterTaxUnitCost))
		require.NotNil(t, found.Lines[0].ExpiryDate)
		require.Len(t, found.Taxes, 1)
		assert.Equal(t, trade.ApplyOnTaxable, found.Taxes[0].ApplyOn)
		assert.True(t, draft.Totals.Net.Equal(found.Totals.Net))
	})

	t.Run("optimistic update", func(t *testing.T) {
		stale, err := repo.FindByIDForUpdate(ctx, draft.ID)
		require.NoError(t, err)

		require.NoError(t, draft.Update(trade.DraftInput{SupplierName: "Acme Pharma", InvoiceNumber: "INV-101"}, testNow))
		require.NoError(t, repo.SaveWithLock(ctx, draft))

		require.NoError(t, stale.Update(trade.DraftInput{SupplierName: "Other"}, testNow))
		err = repo.SaveWithLock(ctx, stale)
		assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))

		found, err := repo.FindByID(ctx, draft.ID)
		require.NoError(t, err)
		assert.Equal(t, "INV-101", found.InvoiceNumber)
		assert.Empty(t, found.Lines)
	})

	t.Run("list searches supplier and invoice", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, newTestDraft(t, "Medline", "M-7")))

		all, total, err := repo.List(ctx, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, all, 2)

		found, total, err := repo.List(ctx, shared.Filter{Search: "medl"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "M-7", found[0].InvoiceNumber)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, draft.ID))
		_, err := repo.FindByID(ctx, draft.ID)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
		assert.True(t, errors.Is(repo.Delete(ctx, draft.ID), shared.ErrNotFound))
	})
}

func TestGormPurchaseRepository(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormPurchaseRepository(db.DB)
	ctx := context.Background()

	draft := newTestDraft(t, "Acme Pharma", "INV-100")
	purchase := newTestPurchase(t, draft)
	require.NoError(t, repo.Create(ctx, purchase))

	t.Run("find by draft id loads ordered lines", func(t *testing.T) {
		found, err := repo.FindByDraftID(ctx, draft.ID)
		require.NoError(t, err)
		assert.Equal(t, purchase.ID, found.ID)
		require.Len(t, found.Lines, 2)
		assert.Equal(t, 1, found.Lines[0].LineNo)
		assert.Equal(t, "Paracetamol", found.Lines[0].Name)
		assert.Equal(t, purchase.Lines[0].ItemID, found.Lines[0].ItemID)
		assert.True(t, purchase.TotalAmount.Equal(found.TotalAmount))
		assert.True(t, purchase.Totals.Net.Equal(found.Totals.Net))
	})

	t.Run("draft id is unique", func(t *testing.T) {
		again := newTestPurchase(t, draft)
		assert.Error(t, repo.Create(ctx, again))
	})

	t.Run("invoice lookup narrows by supplier", func(t *testing.T) {
		other := newTestPurchase(t, newTestDraft(t, "Medline", "INV-100"))
		require.NoError(t, repo.Create(ctx, other))

		found, err := repo.FindByInvoiceNumberForUpdate(ctx, "INV-100", "acme pharma")
		require.NoError(t, err)
		assert.Equal(t, purchase.ID, found.ID)

		_, err = repo.FindByInvoiceNumberForUpdate(ctx, "INV-999", "")
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("supplier return rewrites lines", func(t *testing.T) {
		found, err := repo.FindByID(ctx, purchase.ID)
		require.NoError(t, err)

		_, err = found.ApplySupplierReturn([]trade.ReturnLineRequest{{Name: "paracetamol", Quantity: dec("15")}}, testNow)
		require.NoError(t, err)
		require.NoError(t, repo.SaveWithLock(ctx, found))

		reloaded, err := repo.FindByID(ctx, purchase.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, reloaded.Version)
		require.Len(t, reloaded.Lines, 2)
		assert.True(t, dec("35").Equal(reloaded.Lines[0].TotalItems))
		assert.True(t, found.TotalAmount.Equal(reloaded.TotalAmount))
	})
}

func TestGormDispenseRepository(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormDispenseRepository(db.DB)
	ctx := context.Background()

	paraID := uuid.New()
	bill := trade.NewDispense("B-260314-0001", "walk-in", "cash", dec("10"), []trade.DispenseLine{
		{ItemID: &paraID, Name: "Paracetamol", UnitPrice: dec("10"), Quantity: dec("20"), CostPerUnit: dec("6")},
		{Name: "Vitamin C", UnitPrice: dec("4"), Quantity: dec("5"), CostPerUnit: decimal.Zero},
	}, testNow)
	require.NoError(t, repo.Create(ctx, bill))

	found, err := repo.FindByBillNumber(ctx, "B-260314-0001")
	require.NoError(t, err)
	require.Len(t, found.Lines, 2)
	assert.Nil(t, found.Lines[1].ItemID)
	assert.True(t, bill.Total.Equal(found.Total))
	assert.True(t, bill.Profit.Equal(found.Profit))

	locked, err := repo.FindByBillNumberForUpdate(ctx, "B-260314-0001")
	require.NoError(t, err)
	_, err = locked.ApplyCustomerReturn([]trade.ReturnLineRequest{{Name: "vitamin c", Quantity: dec("5")}}, testNow)
	require.NoError(t, err)
	require.NoError(t, repo.SaveWithLock(ctx, locked))

	reloaded, err := repo.FindByBillNumber(ctx, "B-260314-0001")
	require.NoError(t, err)
	require.Len(t, reloaded.Lines, 1)
	assert.Equal(t, "Paracetamol", reloaded.Lines[0].Name)
	assert.True(t, locked.Total.Equal(reloaded.Total))

	err = repo.SaveWithLock(ctx, found)
	assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict), "stale bill version")

	_, err = repo.FindByBillNumber(ctx, "B-000000-0000")
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestGormReturnRepository(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormReturnRepository(db.DB)
	ctx := context.Background()

	lines := []trade.ReversedLine{{LineNo: 1, Name: "Paracetamol", Quantity: dec("2"), Amount: dec("18")}}
	first := trade.NewReturnEntry("RET-202603-0001", trade.ReturnCustomer, "B-1", "walk-in", nil, lines, testNow)
	first.IdempotencyKey = "req-1"
	require.NoError(t, repo.Create(ctx, first))

	// entries without a key do not collide on the unique index
	require.NoError(t, repo.Create(ctx, trade.NewReturnEntry("RET-202603-0002", trade.ReturnCustomer, "B-1", "", nil, lines, testNow.Add(1))))
	require.NoError(t, repo.Create(ctx, trade.NewReturnEntry("RET-202603-0003", trade.ReturnManual, "", "", nil, lines, testNow.Add(2))))

	found, err := repo.FindByIdempotencyKey(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
	assert.Equal(t, "req-1", found.IdempotencyKey)
	require.Len(t, found.Lines, 1)
	assert.True(t, dec("18").Equal(found.TotalValue))

	_, err = repo.FindByIdempotencyKey(ctx, "")
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	byRef, err := repo.ListByReference(ctx, "B-1")
	require.NoError(t, err)
	require.Len(t, byRef, 2)
	assert.Equal(t, "RET-202603-0001", byRef[0].ReturnNumber)
	assert.Equal(t, "", byRef[1].IdempotencyKey)

	dup := trade.NewReturnEntry("RET-202603-0004", trade.ReturnCustomer, "B-1", "", nil, lines, testNow)
	dup.IdempotencyKey = "req-1"
	assert.Error(t, repo.Create(ctx, dup))
}

func TestGormCounterRepository(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormCounterRepository(db.DB)
	ctx := context.Background()

	current, err := repo.Current(ctx, "B-260314")
	require.NoError(t, err)
	assert.Equal(t, int64(0), current)

	for want := int64(1); want <= 3; want++ {
		got, err := repo.Next(ctx, "B-260314")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	got, err := repo.Next(ctx, "B-260315")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got, "a new period starts over")

	current, err = repo.Current(ctx, "B-260314")
	require.NoError(t, err)
	assert.Equal(t, int64(3), current)
}

func TestGormTransactionScope_RollsBack(t *testing.T) {
	db := newTestDatabase(t)
	scope := NewGormTransactionScope(db.DB)
	ctx := context.Background()
	boom := errors.New("boom")

	item := newStockedItem(t, "Paracetamol", "10", "1", "0")
	err := scope.Execute(ctx, func(repos apptrade.TransactionalRepositories) error {
		if err := repos.Items().Create(ctx, item); err != nil {
			return err
		}
		if _, err := repos.Counters().Next(ctx, "B-260314"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = NewGormInventoryItemRepository(db.DB).FindByID(ctx, item.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
	current, err := NewGormCounterRepository(db.DB).Current(ctx, "B-260314")
	require.NoError(t, err)
	assert.Equal(t, int64(0), current)

	err = scope.Execute(ctx, func(repos apptrade.TransactionalRepositories) error {
		return repos.Items().Create(ctx, item)
	})
	require.NoError(t, err)
	_, err = NewGormInventoryItemRepository(db.DB).FindByID(ctx, item.ID)
	assert.NoError(t, err)
}
