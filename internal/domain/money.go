package domain

// Money is a non-negative amount in the smallest currency unit.
// Every operation returns a new value; a Money is never mutated.
type Money struct {
	amount int64
}

// MoneyZero is the additive identity, used to seed total folds.
var MoneyZero = Money{}

func NewMoney(amount int64) (Money, error) {
	if amount < 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{amount: amount}, nil
}

func (m Money) Amount() int64 { return m.amount }

func (m Money) Add(other Money) Money {
	return Money{amount: m.amount + other.amount}
}

// Multiply scales the amount by an item quantity. The quantity must be
// at least 1.
func (m Money) Multiply(quantity int) (Money, error) {
	if quantity <= 0 {
		return Money{}, ErrInvalidQuantity
	}
	return Money{amount: m.amount * int64(quantity)}, nil
}
