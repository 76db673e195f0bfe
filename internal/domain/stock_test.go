package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStock(t *testing.T) {
	s, err := NewStock(100)
	require.NoError(t, err)
	assert.Equal(t, 100, s.Quantity())

	_, err = NewStock(-1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestStockDecrease(t *testing.T) {
	s, _ := NewStock(100)

	next, err := s.Decrease(2)
	require.NoError(t, err)
	assert.Equal(t, 98, next.Quantity())
	// value semantics: the original is unchanged
	assert.Equal(t, 100, s.Quantity())

	drained, err := next.Decrease(98)
	require.NoError(t, err)
	assert.Equal(t, 0, drained.Quantity())
}

func TestStockDecreaseInsufficient(t *testing.T) {
	s, _ := NewStock(5)

	_, err := s.Decrease(10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	var ins *InsufficientStockError
	require.ErrorAs(t, err, &ins)
	assert.Equal(t, 10, ins.Requested)
	assert.Equal(t, 5, ins.Available)
}

func TestStockDecreaseInvalidAmount(t *testing.T) {
	s, _ := NewStock(5)

	_, err := s.Decrease(0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = s.Decrease(-2)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestStockIncrease(t *testing.T) {
	s, _ := NewStock(3)

	next, err := s.Increase(4)
	require.NoError(t, err)
	assert.Equal(t, 7, next.Quantity())

	_, err = s.Increase(0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
