package domain

import (
	"errors"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("cart not found")
	ErrItemNotFound = errors.New("cart item not found")
)

type Item struct {
	ProductID     string          `json:"productId"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Image         string          `json:"image"`
	StockQuantity int             `json:"stockQuantity"`
	Quantity      int             `json:"quantity"`
	AddedAt       time.Time       `json:"addedAt"`
}

type Cart struct {
	ID        string    `json:"id"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// clamp bounds qty to [1, stock]; a stock of zero or less means unknown.
func clamp(qty, stock int) int {
	if stock > 0 && qty > stock {
		qty = stock
	}
	return max(qty, 1)
}

// Add puts item in the cart. An item already present has its quantity
// increased instead, capped at the known stock.
func (c *Cart) Add(item Item, now time.Time) {
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	if i := c.index(item.ProductID); i >= 0 {
		existing := &c.Items[i]
		if item.StockQuantity > 0 {
			existing.StockQuantity = item.StockQuantity
		}
		existing.Quantity = clamp(existing.Quantity+item.Quantity, existing.StockQuantity)
		c.UpdatedAt = now
		return
	}
	item.Quantity = clamp(item.Quantity, item.StockQuantity)
	item.AddedAt = now
	c.Items = append(c.Items, item)
	c.UpdatedAt = now
}

func (c *Cart) SetQuantity(productID string, qty int, now time.Time) error {
	i := c.index(productID)
	if i < 0 {
		return ErrItemNotFound
	}
	c.Items[i].Quantity = clamp(qty, c.Items[i].StockQuantity)
	c.UpdatedAt = now
	return nil
}

func (c *Cart) Remove(productID string, now time.Time) {
	c.Items = slices.DeleteFunc(c.Items, func(it Item) bool { return it.ProductID == productID })
	c.UpdatedAt = now
}

func (c *Cart) Clear(now time.Time) {
	c.Items = []Item{}
	c.UpdatedAt = now
}

func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

func (c Cart) Count() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

func (c Cart) index(productID string) int {
	return slices.IndexFunc(c.Items, func(it Item) bool { return it.ProductID == productID })
}
