// Package cli implements the shop command: cart editing against the
// persisted cart store and an interactive checkout session.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	cartapp "github.com/storefront/backend/internal/application/cart"
	"github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// ErrUsage is returned for unknown commands and malformed arguments.
var ErrUsage = errors.New("usage error")

// Config contains dependencies for App
type Config struct {
	Cart *cartapp.Store
	// Placer and Payments are only needed by the checkout command.
	Placer   checkout.OrderPlacer
	Payments payment.IntentGateway
	UserID   string
	Tokens   TokenIssuer
	Currency valueobject.Currency
	Language language.Tag
	In       io.Reader
	Out      io.Writer
	// Getenv supplies address defaults. Defaults to os.Getenv.
	Getenv func(string) string
	Logger *zap.Logger
}

// App runs shop commands
type App struct {
	cart     *cartapp.Store
	placer   checkout.OrderPlacer
	payments payment.IntentGateway
	userID   string
	tokens   TokenIssuer
	currency valueobject.Currency
	money    moneyFormatter
	in       io.Reader
	out      io.Writer
	getenv   func(string) string
	logger   *zap.Logger
}

// New creates an App
func New(cfg Config) *App {
	a := &App{
		cart:     cfg.Cart,
		placer:   cfg.Placer,
		payments: cfg.Payments,
		userID:   cfg.UserID,
		tokens:   cfg.Tokens,
		currency: cfg.Currency,
		in:       cfg.In,
		out:      cfg.Out,
		getenv:   cfg.Getenv,
		logger:   cfg.Logger,
	}
	if a.currency == "" {
		a.currency = valueobject.DefaultCurrency
	}
	tag := cfg.Language
	if tag == language.Und {
		tag = language.English
	}
	a.money = newMoneyFormatter(tag, a.currency)
	if a.in == nil {
		a.in = os.Stdin
	}
	if a.out == nil {
		a.out = os.Stdout
	}
	if a.getenv == nil {
		a.getenv = os.Getenv
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	return a
}

// Run executes one command line, without the program name.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.Usage()
		return ErrUsage
	}
	switch args[0] {
	case "cart":
		return a.runCart(ctx, args[1:])
	case "checkout":
		return a.runCheckout(ctx, args[1:])
	case "token":
		return a.runToken(args[1:])
	case "help", "-h", "--help":
		a.Usage()
		return nil
	default:
		a.Usage()
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
}

// Usage prints the command summary
func (a *App) Usage() {
	fmt.Fprint(a.out, strings.TrimLeft(`
Usage: shop <command> [arguments]

Cart:
  cart add -id ID -name NAME -price PRICE [-sku SKU] [-image URL] [-category NAME]
  cart remove ID
  cart set ID QUANTITY        quantity 0 or less removes the item
  cart clear
  cart show

Checkout:
  checkout [address flags] [-billing FILE] [-pay prompt|confirm|fail]

  Shipping fields default to SHOP_SHIPPING_<FIELD> environment variables.
  In prompt mode the session accepts: confirm, fail [reason], back, continue, quit.

Other:
  token -user ID [-email EMAIL] [-role customer|admin]
`, "\n"))
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
