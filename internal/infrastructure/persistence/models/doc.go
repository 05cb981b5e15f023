// Package models holds the GORM persistence models. Each model converts to
// and from its domain aggregate with ToDomain and FromDomain; domain types
// carry no GORM tags.
package models

// All lists every model, in dependency order, for schema creation in tests
// and development databases. Production schemas come from migrations/.
func All() []any {
	return []any{
		&InventoryItemModel{},
		&PurchaseDraftModel{},
		&PurchaseModel{},
		&PurchaseLineModel{},
		&DispenseModel{},
		&DispenseLineModel{},
		&ReturnEntryModel{},
		&ReturnLineModel{},
		&DocumentCounterModel{},
	}
}
