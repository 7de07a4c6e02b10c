package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShipmentStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from    ShipmentStatus
		to      ShipmentStatus
		allowed bool
	}{
		{ShipmentStatusAssigned, ShipmentStatusInTransit, true},
		{ShipmentStatusAssigned, ShipmentStatusFailed, true},
		{ShipmentStatusAssigned, ShipmentStatusDelivered, false},
		{ShipmentStatusInTransit, ShipmentStatusDelivered, true},
		{ShipmentStatusInTransit, ShipmentStatusFailed, true},
		{ShipmentStatusInTransit, ShipmentStatusAssigned, false},
		{ShipmentStatusFailed, ShipmentStatusReturned, true},
		{ShipmentStatusFailed, ShipmentStatusInTransit, true},
		{ShipmentStatusFailed, ShipmentStatusDelivered, false},
		{ShipmentStatusDelivered, ShipmentStatusReturned, false},
		{ShipmentStatusReturned, ShipmentStatusInTransit, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestShipmentStatus_Valid(t *testing.T) {
	assert.True(t, ShipmentStatusAssigned.Valid())
	assert.True(t, ShipmentStatusReturned.Valid())
	assert.False(t, ShipmentStatus("lost").Valid())
}

func TestInventoryRecord_StockFlags(t *testing.T) {
	rec := &InventoryRecord{Quantity: 10, LowStockThreshold: 3}
	assert.False(t, rec.IsLowStock())
	assert.False(t, rec.IsOutOfStock())

	rec.Quantity = 3
	assert.True(t, rec.IsLowStock())
	assert.False(t, rec.IsOutOfStock())

	rec.Quantity = 0
	assert.False(t, rec.IsLowStock())
	assert.True(t, rec.IsOutOfStock())
}

func TestUser_CanFulfil(t *testing.T) {
	assert.True(t, (&User{Role: RoleCourier}).CanFulfil())
	assert.False(t, (&User{Role: RoleManager}).CanFulfil())
	assert.False(t, (&User{Role: RoleDropshipper}).CanFulfil())
}
