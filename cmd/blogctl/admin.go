package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/sushihentaime/blogdesk/internal/userservice"
)

const (
	usernameFlag   = "username"
	emailFlag      = "email"
	passwordFlag   = "password"
	permissionFlag = "permission"

	// passwordEnv keeps the password out of the process list.
	passwordEnv = "BLOGDESK_ADMIN_PASSWORD"

	commandTimeout = 10 * time.Second
)

func newAdminCommand() *cobra.Command {
	adminCmd := &cobra.Command{
		Use:   "admin [create|grant]",
		Short: "Manage accounts allowed into the admin area",
	}

	adminCmd.AddCommand(newAdminCreateCommand())
	adminCmd.AddCommand(newAdminGrantCommand())

	return adminCmd
}

func newAdminCreateCommand() *cobra.Command {
	flags := connectionFlags()
	flags[usernameFlag] = &cobraflags.StringFlag{Name: usernameFlag, Usage: "Account username (required)"}
	flags[emailFlag] = &cobraflags.StringFlag{Name: emailFlag, Usage: "Account e-mail address (required)"}
	flags[passwordFlag] = &cobraflags.StringFlag{Name: passwordFlag, Usage: "Account password. Defaults to $" + passwordEnv}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an activated account holding " + string(userservice.PermissionWritePosts),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password := flags[passwordFlag].GetString()
			if password == "" {
				password = os.Getenv(passwordEnv)
			}

			db, err := openDB(flags)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			s := userservice.NewUserService(db, nil)

			user, err := s.CreateAdmin(ctx, flags[usernameFlag].GetString(), flags[emailFlag].GetString(), password)
			if err != nil {
				return fmt.Errorf("error creating admin: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (id %d)\n", user.Username, user.ID)
			return nil
		},
	}

	cobraflags.RegisterMap(cmd, flags)
	return cmd
}

func newAdminGrantCommand() *cobra.Command {
	flags := connectionFlags()
	flags[usernameFlag] = &cobraflags.StringFlag{Name: usernameFlag, Usage: "Account username (required)"}
	flags[permissionFlag] = &cobraflags.StringFlag{
		Name:  permissionFlag,
		Value: string(userservice.PermissionWritePosts),
		Usage: "Permission to grant",
	}

	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Grant a permission to an existing account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB(flags)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			s := userservice.NewUserService(db, nil)

			username := flags[usernameFlag].GetString()
			permission := userservice.Permission(flags[permissionFlag].GetString())

			if err := s.GrantPermission(ctx, username, permission); err != nil {
				return fmt.Errorf("error granting %s to %s: %w", permission, username, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "granted %s to %s\n", permission, username)
			return nil
		},
	}

	cobraflags.RegisterMap(cmd, flags)
	return cmd
}
