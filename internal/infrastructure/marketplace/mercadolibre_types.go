package marketplace

// meliItem is the subset of the MercadoLibre item resource the engine reads
// and writes. The sync version rides in seller_custom_field, a free-text slot
// MercadoLibre reserves for seller bookkeeping.
type meliItem struct {
	ID                string   `json:"id,omitempty"`
	SiteID            string   `json:"site_id,omitempty"`
	Title             string   `json:"title,omitempty"`
	Price             *float64 `json:"price,omitempty"`
	AvailableQuantity *int64   `json:"available_quantity,omitempty"`
	Status            string   `json:"status,omitempty"`
	SellerCustomField string   `json:"seller_custom_field,omitempty"`
}

// meliErrorResponse is returned by the API on failures
type meliErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}
