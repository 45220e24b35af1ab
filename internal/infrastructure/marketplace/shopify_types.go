package marketplace

// shopifyProductEnvelope wraps the Admin API product resource
type shopifyProductEnvelope struct {
	Product *shopifyProduct `json:"product"`
}

// shopifyProduct is the subset of the product resource the engine reads
type shopifyProduct struct {
	ID       int64            `json:"id,omitempty"`
	Title    string           `json:"title,omitempty"`
	Handle   string           `json:"handle,omitempty"`
	Tags     string           `json:"tags,omitempty"`
	Status   string           `json:"status,omitempty"`
	Variants []shopifyVariant `json:"variants,omitempty"`
}

// shopifyVariant carries price and stock for a product variant
type shopifyVariant struct {
	ID                int64  `json:"id,omitempty"`
	SKU               string `json:"sku,omitempty"`
	Price             string `json:"price,omitempty"`
	InventoryQuantity int64  `json:"inventory_quantity,omitempty"`
}

// shopifyErrorResponse is returned by the Admin API on failures
type shopifyErrorResponse struct {
	Errors any `json:"errors"`
}
