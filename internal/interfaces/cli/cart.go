package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/storefront/backend/internal/domain/cart"
)

func (a *App) runCart(ctx context.Context, args []string) error {
	if a.cart == nil {
		return errors.New("cart store not configured")
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: cart needs a subcommand", ErrUsage)
	}

	switch args[0] {
	case "add":
		return a.cartAdd(ctx, args[1:])

	case "remove":
		if len(args) != 2 {
			return fmt.Errorf("%w: cart remove ID", ErrUsage)
		}
		if err := a.cart.RemoveItem(ctx, args[1]); err != nil {
			return err
		}
		return a.showCart()

	case "set":
		if len(args) != 3 {
			return fmt.Errorf("%w: cart set ID QUANTITY", ErrUsage)
		}
		qty, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("%w: quantity must be an integer", ErrUsage)
		}
		if err := a.cart.UpdateQuantity(ctx, args[1], qty); err != nil {
			return err
		}
		return a.showCart()

	case "clear":
		if err := a.cart.ClearCart(ctx); err != nil {
			return err
		}
		a.printf("Cart cleared\n")
		return nil

	case "show":
		return a.showCart()

	default:
		return fmt.Errorf("%w: unknown cart command %q", ErrUsage, args[0])
	}
}

func (a *App) cartAdd(ctx context.Context, args []string) error {
	var p cart.Product
	fs := flag.NewFlagSet("cart add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&p.ID, "id", "", "Product ID")
	fs.StringVar(&p.Name, "name", "", "Product name")
	fs.StringVar(&p.Price, "price", "", "Unit price, e.g. 12.50")
	fs.StringVar(&p.Reference, "sku", "", "Product reference")
	fs.StringVar(&p.ImageURL, "image", "", "Image URL")
	fs.StringVar(&p.Category, "category", "", "Category")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if err := a.cart.AddItem(ctx, p); err != nil {
		return err
	}
	return a.showCart()
}

func (a *App) showCart() error {
	items := a.cart.Items()
	if len(items) == 0 {
		a.printf("Your cart is empty\n")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPRODUCT\tQTY\tPRICE\tSUBTOTAL")
	for _, it := range items {
		price, _ := it.Product.UnitPrice()
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			it.Product.ID, it.Product.Name, it.Quantity,
			a.money.Format(price), a.money.Format(it.Subtotal()))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	a.printf("%d item(s), total %s\n", a.cart.TotalItems(), a.money.Format(a.cart.TotalPrice()))
	return nil
}
