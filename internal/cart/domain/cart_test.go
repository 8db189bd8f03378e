package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func sofa(stock int) Item {
	return Item{ProductID: "p1", Name: "Chesterfield", Price: decimal.RequireFromString("45000.50"), StockQuantity: stock}
}

func TestAddIncrementsAndCaps(t *testing.T) {
	var c Cart
	c.Add(sofa(3), now)
	c.Add(sofa(3), now)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)

	c.Add(Item{ProductID: "p1", Quantity: 5}, now)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, now, c.Items[0].AddedAt)
}

func TestAddWithoutKnownStock(t *testing.T) {
	var c Cart
	c.Add(Item{ProductID: "p2", Quantity: 7}, now)
	assert.Equal(t, 7, c.Items[0].Quantity)
}

func TestSetQuantityClamps(t *testing.T) {
	var c Cart
	c.Add(sofa(4), now)

	require.NoError(t, c.SetQuantity("p1", 10, now))
	assert.Equal(t, 4, c.Items[0].Quantity)
	require.NoError(t, c.SetQuantity("p1", 0, now))
	assert.Equal(t, 1, c.Items[0].Quantity)
	require.NoError(t, c.SetQuantity("p1", -3, now))
	assert.Equal(t, 1, c.Items[0].Quantity)

	assert.ErrorIs(t, c.SetQuantity("nope", 2, now), ErrItemNotFound)
}

func TestTotalsRemoveClear(t *testing.T) {
	var c Cart
	c.Add(sofa(5), now)
	c.Add(Item{ProductID: "p2", Price: decimal.RequireFromString("1000"), Quantity: 2}, now)
	require.NoError(t, c.SetQuantity("p1", 2, now))

	assert.Equal(t, "92001", c.Total().String())
	assert.Equal(t, 4, c.Count())

	c.Remove("p1", now)
	assert.Len(t, c.Items, 1)
	c.Clear(now)
	assert.Empty(t, c.Items)
	assert.True(t, c.Total().IsZero())
}
