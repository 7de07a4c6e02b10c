package order

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orbitcart/orbitcart-backend/internal/models"
)

func TestMinorUnits(t *testing.T) {
	cases := []struct {
		price float64
		want  int64
	}{
		{0, 0},
		{0.01, 1},
		{1, 100},
		{19.99, 1999},
		{9.999, 1000},
		{1234.56, 123456},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MinorUnits(tc.price), "price %v", tc.price)
	}
}

func TestSnapshotPrices(t *testing.T) {
	products := map[int64]*models.Product{
		1: {ID: 1, Price: 19.99},
		2: {ID: 2, Price: 5},
	}

	prices := SnapshotPrices(products)
	assert.Equal(t, int64(1999), prices.UnitPrice(1))
	assert.Equal(t, int64(500), prices.UnitPrice(2))
	assert.Equal(t, int64(0), prices.UnitPrice(404))
}
