package cart

type addItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  *int   `json:"quantity" validate:"omitempty,min=1,max=999"`
}

func (r addItemRequest) quantity() int {
	if r.Quantity == nil {
		return 1
	}
	return *r.Quantity
}

// Zero removes the line.
type setQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0,max=999"`
}
