package main

import (
	"context"

	"github.com/mavuno/sokoni/core"
	"github.com/mavuno/sokoni/core/user"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrRepo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = user.NowFunc().UTC()
	if _, err = cli.usrRepo.UpdateUser(ctx, usr, nil); err != nil {
		return err
	}
	// force re-login everywhere
	return cli.usrRepo.DeleteUserSessions(ctx, usr.ID)
}
