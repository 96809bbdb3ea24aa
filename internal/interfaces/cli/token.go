package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/storefront/backend/internal/infrastructure/auth"
)

// TokenIssuer signs access tokens for local testing against the API.
type TokenIssuer interface {
	IssueAccessToken(input auth.IssueTokenInput) (string, time.Time, error)
}

func (a *App) runToken(args []string) error {
	if a.tokens == nil {
		return errors.New("token signing is not configured, set jwt.secret")
	}
	var input auth.IssueTokenInput
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&input.UserID, "user", "", "User ID")
	fs.StringVar(&input.Email, "email", "", "Email")
	fs.StringVar(&input.Role, "role", auth.RoleCustomer, "Role (customer or admin)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if input.Role != auth.RoleCustomer && input.Role != auth.RoleAdmin {
		return fmt.Errorf("%w: unknown role %q", ErrUsage, input.Role)
	}

	token, expiresAt, err := a.tokens.IssueAccessToken(input)
	if err != nil {
		return err
	}
	a.printf("%s\n", token)
	a.logger.Sugar().Infof("token for %s expires at %s", input.UserID, expiresAt.Format(time.RFC3339))
	return nil
}
