package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/tutoring/core"
	"github.com/trezcool/tutoring/core/user"
)

// addUser updates or creates an active user.User
func (cli *commandLine) addUser(name, email, role, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	if !user.IsValidRole(role) {
		return fmt.Errorf("invalid role %q", role)
	}
	if err := user.ValidatePassword(pwd, name, email); err != nil {
		return err
	}

	now := user.NowFunc().UTC()
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	switch {
	case err == nil:
		usr.Name = name
		usr.Role = role
		usr.IsActive = true
		usr.TemporaryAt = time.Time{}
		usr.UpdatedAt = now
		if err = usr.SetPassword(pwd); err != nil {
			return err
		}
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
		return errors.Wrap(err, "updating user")
	case errors.Cause(err) != user.ErrNotFound:
		return err
	}

	usr = user.User{
		Name:               name,
		Email:              email,
		Role:               role,
		IsActive:           true,
		OnboardingComplete: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.usrRepo.CreateUser(ctx, usr)
	return errors.Wrap(err, "creating user")
}
