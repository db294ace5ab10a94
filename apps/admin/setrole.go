package main

import (
	"context"
	"fmt"

	"github.com/DeathRaider12/HUB-TUTORIUM/core"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/account"
)

// operator is the synthetic actor the CLI acts as; role checks still run.
var operator = &account.Session{
	ID:          "admin:cli",
	DisplayName: "operator",
	Verified:    true,
	Role:        account.RoleAdmin,
	Privileged:  true,
}

func (cli *commandLine) setRole(email, role string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)
	role = core.CleanString(role, true /* lower */)

	recs, err := cli.accountSvc.QueryAll(ctx, operator)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if rec.Email == email {
			rec, err = cli.accountSvc.SetRole(ctx, operator, rec.ID, account.Role(role))
			if err != nil {
				return err
			}
			fmt.Printf("%s is now %s\n", rec.Email, rec.Role)
			return nil
		}
	}
	return fmt.Errorf("no account found for %q", email)
}
