package doctor

import (
	"context"
	"errors"

	"github.com/hay-kot/huddle/internal/core/chat"
)

// AccountCheck verifies the configured token resolves to an account.
type AccountCheck struct {
	accounts chat.Accounts
	token    string
}

// NewAccountCheck creates a new account check.
func NewAccountCheck(accounts chat.Accounts, token string) *AccountCheck {
	return &AccountCheck{accounts: accounts, token: token}
}

func (c *AccountCheck) Name() string {
	return "Account"
}

func (c *AccountCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	if c.token == "" {
		result.Items = append(result.Items, CheckItem{
			Label:  "Token",
			Status: StatusWarn,
			Detail: "no token configured; run 'huddle account add <email>'",
		})
		return result
	}

	id, err := c.accounts.Whoami(ctx, c.token)
	switch {
	case errors.Is(err, chat.ErrUnauthorized):
		result.Items = append(result.Items, CheckItem{
			Label:  "Token",
			Status: StatusFail,
			Detail: "token is not registered",
		})
	case err != nil:
		result.Items = append(result.Items, CheckItem{
			Label:  "Token",
			Status: StatusFail,
			Detail: err.Error(),
		})
	default:
		result.Items = append(result.Items, CheckItem{
			Label:  "Token",
			Status: StatusPass,
			Detail: "signed in as " + id.String(),
		})
	}

	return result
}
