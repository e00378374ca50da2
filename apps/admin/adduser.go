package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/qlearn/core"
	"github.com/trezcool/qlearn/core/user"
)

func (cli *commandLine) addUserCmd() *cobra.Command {
	var name, email, role string
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user or update the one with the same email; the password is prompted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pwd, err := cli.promptPassword()
			if err != nil {
				return err
			}
			usr, err := cli.addUser(cmd.Context(), name, email, role, pwd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "%s <%s> saved as %s (id %d)\n", usr.Name, usr.Email, usr.Role, usr.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "the user's email")
	cmd.Flags().StringVar(&name, "name", "", "the user's full name (defaults to the email)")
	cmd.Flags().StringVar(&role, "role", user.RoleAdmin, "one of admin, instructor, student, parent")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// addUser updates or creates an active user.User
func (cli *commandLine) addUser(ctx context.Context, name, email, role, pwd string) (user.User, error) {
	email = core.CleanString(email, true /* lower */)
	role = core.CleanString(role, true /* lower */)
	if !user.HasAnyRole(role, user.AllRoles...) {
		return user.User{}, errors.Errorf("invalid role %q", role)
	}

	now := time.Now().UTC()
	usr, err := cli.users.GetUser(ctx, user.GetFilter{Email: email})
	exists := err == nil
	if err != nil {
		if !core.IsNotFound(err) {
			return user.User{}, err
		}
		usr = user.User{Email: email, CreatedAt: now}
	}
	if name = core.CleanString(name); name != "" {
		usr.Name = name
	} else if usr.Name == "" {
		usr.Name = email
	}
	usr.Role = role
	usr.IsActive = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return user.User{}, err
	}

	if exists {
		return cli.users.UpdateUser(ctx, usr)
	}
	return cli.users.CreateUser(ctx, usr)
}
