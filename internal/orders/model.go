package orders

// Order is the durable record written once the consistency gate accepts an
// order-creation request. Provider webhooks reconcile against it later.
type Order struct {
	OrderID          string `gorm:"column:order_id;primaryKey;size:190;not null"`
	VariantID        int64  `gorm:"column:variant_id;not null;index:idx_orders_variant"`
	TemplateID       string `gorm:"column:template_id;size:190"`
	TemplateStoreID  string `gorm:"column:template_store_id;size:190"`
	Quantity         int    `gorm:"column:quantity;not null;default:1"`
	UnitPriceCents   int64  `gorm:"column:unit_price_cents;not null"`
	Currency         string `gorm:"column:currency;size:8;not null"`
	PricingSource    string `gorm:"column:pricing_source;size:32;not null;default:''"`
	Email            string `gorm:"column:email;size:320"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null;index:idx_orders_created"`
}

// TableName provides the explicit table binding for GORM.
func (Order) TableName() string {
	return "orders"
}
