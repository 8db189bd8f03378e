package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	catalog "github.com/dmehra2102/sofa-storefront/internal/catalog/domain"
	"github.com/dmehra2102/sofa-storefront/internal/order/domain"
)

var errUsage = errors.New(`usage:
  storefrontctl orders list --email <email>
  storefrontctl orders get <id>
  storefrontctl orders set-status <id> <Processing|Shipped|Delivered|Cancelled>
  storefrontctl products list`)

type Orders interface {
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	ListOrders(ctx context.Context, userID, email string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, next domain.OrderStatus) (domain.Order, error)
}

type Products interface {
	ListProducts(ctx context.Context) ([]catalog.Product, error)
}

type app struct {
	orders   Orders
	products Products
	out      io.Writer
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	switch args[0] + " " + args[1] {
	case "orders list":
		fs := flag.NewFlagSet("orders list", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		email := fs.String("email", "", "customer email")
		if err := fs.Parse(args[2:]); err != nil || *email == "" {
			return errUsage
		}
		// Listing filters by email only; the user id just has to be present.
		orders, err := a.orders.ListOrders(ctx, "storefrontctl", *email)
		if err != nil {
			return err
		}
		return a.orderTable(orders...)
	case "orders get":
		if len(args) != 3 {
			return errUsage
		}
		o, err := a.orders.GetOrder(ctx, args[2])
		if err != nil {
			return err
		}
		if err := a.orderTable(o); err != nil {
			return err
		}
		return a.itemTable(o.Items)
	case "orders set-status":
		if len(args) != 4 {
			return errUsage
		}
		next, err := domain.ParseStatus(args[3])
		if err != nil {
			return err
		}
		o, err := a.orders.UpdateStatus(ctx, args[2], next)
		if err != nil {
			return err
		}
		return a.orderTable(o)
	case "products list":
		products, err := a.products.ListProducts(ctx)
		if err != nil {
			return err
		}
		return a.productTable(products)
	}
	return errUsage
}

func (a *app) orderTable(orders ...domain.Order) error {
	table := tablewriter.NewWriter(a.out)
	table.Header("Order", "ID", "Email", "Total", "Status", "Payment", "Created")
	for _, o := range orders {
		if err := table.Append([]string{
			o.OrderNumber, o.ID, o.Email, o.TotalAmount.StringFixed(2),
			string(o.Status), string(o.PaymentStatus), o.CreatedAt.Format("2006-01-02 15:04"),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func (a *app) itemTable(items []domain.OrderItem) error {
	table := tablewriter.NewWriter(a.out)
	table.Header("Product", "Name", "Price", "Qty")
	for _, it := range items {
		if err := table.Append([]string{it.ProductID, it.Name, it.Price.StringFixed(2), strconv.Itoa(it.Quantity)}); err != nil {
			return err
		}
	}
	return table.Render()
}

func (a *app) productTable(products []catalog.Product) error {
	table := tablewriter.NewWriter(a.out)
	table.Header("Slug", "Name", "Category", "Price", "Stock")
	for _, p := range products {
		if err := table.Append([]string{
			p.Slug, p.Name, string(p.Category), p.Price.StringFixed(2), fmt.Sprintf("%d", p.StockQuantity),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}
