package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

const (
	payPrompt  = "prompt"
	payConfirm = "confirm"
	payFail    = "fail"
)

// addressFlags binds the shipping form to flags. Unset flags fall back to
// SHOP_SHIPPING_<FIELD>.
type addressFlags struct {
	firstName, lastName, email, phone  string
	address, city, state, zip, country string
}

func (f *addressFlags) register(fs *flag.FlagSet, getenv func(string) string) {
	env := func(field, fallback string) string {
		if v := getenv("SHOP_SHIPPING_" + field); v != "" {
			return v
		}
		return fallback
	}
	fs.StringVar(&f.firstName, "first-name", env("FIRST_NAME", ""), "Shipping first name")
	fs.StringVar(&f.lastName, "last-name", env("LAST_NAME", ""), "Shipping last name")
	fs.StringVar(&f.email, "email", env("EMAIL", ""), "Contact email")
	fs.StringVar(&f.phone, "phone", env("PHONE", ""), "Contact phone")
	fs.StringVar(&f.address, "address", env("ADDRESS", ""), "Street address")
	fs.StringVar(&f.city, "city", env("CITY", ""), "City")
	fs.StringVar(&f.state, "state", env("STATE", ""), "State or province")
	fs.StringVar(&f.zip, "zip", env("ZIP_CODE", ""), "Postal code")
	fs.StringVar(&f.country, "country", env("COUNTRY", valueobject.DefaultCountry), "Country")
}

func (f *addressFlags) value() valueobject.Address {
	return valueobject.Address{
		FirstName: f.firstName,
		LastName:  f.lastName,
		Email:     f.email,
		Phone:     f.phone,
		Address:   f.address,
		City:      f.city,
		State:     f.state,
		ZipCode:   f.zip,
		Country:   f.country,
	}.Normalize()
}

func readAddressFile(path string) (valueobject.Address, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return valueobject.Address{}, fmt.Errorf("read billing address: %w", err)
	}
	var addr valueobject.Address
	if err := json.Unmarshal(data, &addr); err != nil {
		return valueobject.Address{}, fmt.Errorf("parse billing address: %w", err)
	}
	return addr.Normalize(), nil
}

func (a *App) runCheckout(ctx context.Context, args []string) error {
	if a.cart == nil || a.placer == nil || a.payments == nil {
		return errors.New("checkout is not configured")
	}

	var (
		shipping    addressFlags
		billingFile string
		pay         string
	)
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	shipping.register(fs, a.getenv)
	fs.StringVar(&billingFile, "billing", "", "JSON file with a billing address different from shipping")
	fs.StringVar(&pay, "pay", payPrompt, "Payment outcome: prompt, confirm or fail")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	switch pay {
	case payPrompt, payConfirm, payFail:
	default:
		return fmt.Errorf("%w: -pay must be prompt, confirm or fail", ErrUsage)
	}

	var confirmedOrder string
	session := checkout.New(a.cart, a.placer, a.payments,
		checkout.NavigatorFunc(func(orderID string) { confirmedOrder = orderID }),
		checkout.WithUserID(a.userID),
		checkout.WithCurrency(a.currency),
		checkout.WithLogger(a.logger),
		checkout.WithNotifier(checkout.NotifierFunc(func(se *checkout.StageError) {
			a.printf("%s\n", se.Message())
		})),
	)

	if session.IsCartEmpty() {
		a.printf("Your cart is empty\n")
		return checkout.ErrEmptyCart
	}

	ship := shipping.value()
	if err := ship.Validate(); err != nil {
		return fmt.Errorf("shipping: %w", err)
	}
	if err := session.SetShipping(ship); err != nil {
		return err
	}
	if billingFile != "" {
		bill, err := readAddressFile(billingFile)
		if err != nil {
			return err
		}
		if err := bill.Validate(); err != nil {
			return fmt.Errorf("billing: %w", err)
		}
		if err := session.SetBilling(bill); err != nil {
			return err
		}
		if err := session.SetSameAsShipping(false); err != nil {
			return err
		}
	}

	if err := a.continueCheckout(ctx, session); err != nil {
		return err
	}

	switch pay {
	case payConfirm:
		if err := session.OnPaymentSuccess(ctx); err != nil {
			return err
		}
	case payFail:
		return session.OnPaymentFailure(errors.New("card declined"))
	default:
		if err := a.promptPayment(ctx, session); err != nil {
			return err
		}
	}

	if confirmedOrder != "" {
		a.printf("Thank you! Order %s is confirmed.\n", confirmedOrder)
	}
	return nil
}

func (a *App) continueCheckout(ctx context.Context, session *checkout.Orchestrator) error {
	a.printf("Placing order for %s...\n", a.money.Format(a.cart.TotalPrice()))
	if err := session.Continue(ctx); err != nil {
		return err
	}
	snap := session.Snapshot()
	a.printf("Order %s awaiting payment\n", snap.OrderID)
	a.printf("Client secret: %s\n", snap.ClientSecret)
	return nil
}

// promptPayment stands in for the hosted payment UI. It reads commands until
// the payment is confirmed or the shopper quits.
func (a *App) promptPayment(ctx context.Context, session *checkout.Orchestrator) error {
	scanner := bufio.NewScanner(a.in)
	for {
		a.printf("payment> ")
		if !scanner.Scan() {
			session.Abandon()
			if err := scanner.Err(); err != nil {
				return err
			}
			a.printf("\nCheckout abandoned\n")
			return nil
		}

		cmd, rest, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		switch cmd {
		case "":
		case "confirm":
			if session.Snapshot().Step != checkout.StepAwaitingPayment {
				a.printf("Nothing to confirm, run continue first\n")
				continue
			}
			return session.OnPaymentSuccess(ctx)
		case "fail":
			reason := strings.TrimSpace(rest)
			if reason == "" {
				reason = "card declined"
			}
			session.OnPaymentFailure(errors.New(reason))
		case "back":
			if err := session.Back(); err != nil {
				return err
			}
			a.printf("Back to shipping details, order %s kept\n", session.Snapshot().OrderID)
		case "continue":
			if session.Snapshot().Step == checkout.StepAwaitingPayment {
				a.printf("Payment is already initialized, confirm or go back\n")
				continue
			}
			if err := a.continueCheckout(ctx, session); err != nil {
				if checkout.StageOf(err) == "" {
					return err
				}
				a.logger.Debug("Checkout step failed", zap.Error(err))
			}
		case "quit":
			session.Abandon()
			a.printf("Checkout abandoned\n")
			return nil
		default:
			a.printf("Unknown command %q (confirm, fail [reason], back, continue, quit)\n", cmd)
		}
	}
}
