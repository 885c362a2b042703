package models

// All lists every persisted model, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&Account{},
		&Category{},
		&Medicine{},
		&InventoryRecord{},
		&Prescription{},
		&PrescriptionItem{},
		&Sale{},
		&SaleItem{},
		&Discount{},
	}
}
