package schema

// Business entity definitions. Relation graphs stay acyclic in the
// traversed subset; the deepest supported chain is order → site → vendor.

// DefaultRegistry registers the platform's queryable entities.
func DefaultRegistry() *Registry {
	registry, err := NewRegistry([]*Entity{
		vendorEntity(),
		siteEntity(),
		clientEntity(),
		orderEntity(),
		categoryEntity(),
	})
	if err != nil {
		// Definitions below are static; a failure here is a programming error.
		panic(err)
	}
	return registry
}

func vendorEntity() *Entity {
	return &Entity{
		Name:  "vendor",
		Table: "vendors",
		Columns: []Column{
			{Name: "id", Kind: KindString, SQLName: "id"},
			{Name: "name", Kind: KindString, SQLName: "name"},
			{Name: "email", Kind: KindString, Nullable: true, SQLName: "email"},
			{Name: "phone", Kind: KindString, Nullable: true, SQLName: "phone"},
			{Name: "remark", Kind: KindString, Nullable: true, SQLName: "remark"},
			{Name: "status", Kind: KindEnum, Enum: "VendorStatus", SQLName: "status"},
			{Name: "createdAt", Kind: KindDateTime, SQLName: "created_at"},
		},
	}
}

func siteEntity() *Entity {
	return &Entity{
		Name:  "site",
		Table: "sites",
		Columns: []Column{
			{Name: "id", Kind: KindString, SQLName: "id"},
			{Name: "website", Kind: KindString, SQLName: "website"},
			{Name: "costPrice", Kind: KindInt, Nullable: true, SQLName: "cost_price"},
			{Name: "sellPrice", Kind: KindInt, Nullable: true, SQLName: "sell_price"},
			{Name: "remark", Kind: KindString, Nullable: true, SQLName: "remark"},
			{Name: "status", Kind: KindEnum, Enum: "SiteStatus", SQLName: "status"},
			{Name: "vendorId", Kind: KindString, Nullable: true, SQLName: "vendor_id"},
			{Name: "createdAt", Kind: KindDateTime, SQLName: "created_at"},
		},
		Relations: []Relation{
			{Name: "vendor", Target: "vendor", ForeignKey: "vendor_id"},
			{Name: "categories", Target: "category", Many: true, JoinTable: "site_categories", JoinSource: "site_id", JoinTarget: "category_id"},
		},
	}
}

func clientEntity() *Entity {
	return &Entity{
		Name:  "client",
		Table: "clients",
		Columns: []Column{
			{Name: "id", Kind: KindString, SQLName: "id"},
			{Name: "name", Kind: KindString, SQLName: "name"},
			{Name: "email", Kind: KindString, Nullable: true, SQLName: "email"},
			{Name: "company", Kind: KindString, Nullable: true, SQLName: "company"},
			{Name: "remark", Kind: KindString, Nullable: true, SQLName: "remark"},
			{Name: "status", Kind: KindEnum, Enum: "ClientStatus", SQLName: "status"},
			{Name: "createdAt", Kind: KindDateTime, SQLName: "created_at"},
		},
	}
}

func orderEntity() *Entity {
	return &Entity{
		Name:  "order",
		Table: "orders",
		Columns: []Column{
			{Name: "id", Kind: KindString, SQLName: "id"},
			{Name: "orderNumber", Kind: KindString, SQLName: "order_number"},
			{Name: "amount", Kind: KindInt, SQLName: "amount"},
			{Name: "remark", Kind: KindString, Nullable: true, SQLName: "remark"},
			{Name: "status", Kind: KindEnum, Enum: "OrderStatus", SQLName: "status"},
			{Name: "clientId", Kind: KindString, Nullable: true, SQLName: "client_id"},
			{Name: "siteId", Kind: KindString, Nullable: true, SQLName: "site_id"},
			{Name: "orderedAt", Kind: KindDateTime, Nullable: true, SQLName: "ordered_at"},
			{Name: "createdAt", Kind: KindDateTime, SQLName: "created_at"},
		},
		Relations: []Relation{
			{Name: "client", Target: "client", ForeignKey: "client_id"},
			{Name: "site", Target: "site", ForeignKey: "site_id"},
		},
	}
}

func categoryEntity() *Entity {
	return &Entity{
		Name:  "category",
		Table: "categories",
		Columns: []Column{
			{Name: "id", Kind: KindString, SQLName: "id"},
			{Name: "name", Kind: KindString, SQLName: "name"},
		},
	}
}
