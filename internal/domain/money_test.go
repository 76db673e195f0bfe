package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	m, err := NewMoney(10000)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), m.Amount())

	_, err = NewMoney(-1)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	z, err := NewMoney(0)
	require.NoError(t, err)
	assert.Equal(t, MoneyZero, z)
}

func TestMoneyAdd(t *testing.T) {
	a, _ := NewMoney(10000)
	b, _ := NewMoney(20000)

	sum := a.Add(b)
	assert.Equal(t, int64(30000), sum.Amount())
	// operands are untouched
	assert.Equal(t, int64(10000), a.Amount())
	assert.Equal(t, int64(20000), b.Amount())

	assert.Equal(t, a, MoneyZero.Add(a))
}

func TestMoneyMultiply(t *testing.T) {
	unit, _ := NewMoney(20000)

	total, err := unit.Multiply(2)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), total.Amount())

	one, err := unit.Multiply(1)
	require.NoError(t, err)
	assert.Equal(t, unit, one)

	_, err = unit.Multiply(0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = unit.Multiply(-3)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}
