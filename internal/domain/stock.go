package domain

// Stock is a non-negative on-hand quantity. Like Money it is a value:
// Decrease and Increase return the next state instead of mutating.
type Stock struct {
	quantity int
}

func NewStock(quantity int) (Stock, error) {
	if quantity < 0 {
		return Stock{}, ErrInvalidQuantity
	}
	return Stock{quantity: quantity}, nil
}

func (s Stock) Quantity() int { return s.quantity }

// Decrease removes amount units. The returned error is an
// *InsufficientStockError when the request exceeds what is on hand;
// the aggregate holding the stock fills in its product id.
func (s Stock) Decrease(amount int) (Stock, error) {
	if amount <= 0 {
		return Stock{}, ErrInvalidAmount
	}
	if amount > s.quantity {
		return Stock{}, &InsufficientStockError{Requested: amount, Available: s.quantity}
	}
	return Stock{quantity: s.quantity - amount}, nil
}

func (s Stock) Increase(amount int) (Stock, error) {
	if amount <= 0 {
		return Stock{}, ErrInvalidAmount
	}
	return Stock{quantity: s.quantity + amount}, nil
}
