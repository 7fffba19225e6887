package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	internalauth "exportal/internal/auth"
	"exportal/internal/config"
	"exportal/internal/store"
)

func newAdminUserCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage admin users for the management API",
	}
	cmd.AddCommand(newAdminUserAddCmd(cfg, jsonOutput))
	cmd.AddCommand(newAdminUserListCmd(cfg, jsonOutput))
	cmd.AddCommand(newAdminUserSetDisabledCmd(cfg, jsonOutput, "disable", "Disable one admin user", true))
	cmd.AddCommand(newAdminUserSetDisabledCmd(cfg, jsonOutput, "enable", "Enable one admin user", false))
	cmd.AddCommand(newAdminUserPasswdCmd(cfg, jsonOutput))
	return cmd
}

func newAdminUserAddCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create one admin user",
		Args:  requireExactlyArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, password, err := usernameAndPassword(args[0], passwordStdin)
			if err != nil {
				return err
			}

			hash, err := internalauth.HashPassword(password)
			if err != nil {
				return err
			}

			return withStore(cfg, func(st *store.Store) error {
				created, err := st.CreateAdminUser(cmd.Context(), username, hash, time.Now().UTC())
				if err != nil {
					return err
				}

				if *jsonOutput {
					return writeJSON(userPayload(created))
				}
				return writePlain("created admin user %s (%s)\n", created.Username, created.ID)
			})
		},
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read password from stdin")
	return cmd
}

func newAdminUserListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List provisioned admin users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cfg, func(st *store.Store) error {
				users, err := st.ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					payloads := make([]map[string]any, 0, len(users))
					for i := range users {
						payloads = append(payloads, userPayload(&users[i]))
					}
					return writeJSON(map[string]any{"count": len(users), "users": payloads})
				}
				if len(users) == 0 {
					return writePlain("no admin users configured\n")
				}
				if err := writePlain("USERNAME\tROLE\tSTATUS\tID\n"); err != nil {
					return err
				}
				for _, user := range users {
					status := "enabled"
					if user.Disabled {
						status = "disabled"
					}
					if err := writePlain("%s\t%s\t%s\t%s\n", user.Username, user.Role, status, user.ID); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newAdminUserSetDisabledCmd(cfg *config.Config, jsonOutput *bool, name, short string, disabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <username>",
		Short: short,
		Args:  requireExactlyArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := internalauth.NormalizeUsername(args[0])
			if err != nil {
				return err
			}

			return withStore(cfg, func(st *store.Store) error {
				updated, err := st.SetUserDisabled(cmd.Context(), username, disabled, time.Now().UTC())
				if err != nil {
					return err
				}

				if *jsonOutput {
					return writeJSON(userPayload(updated))
				}

				action := "enabled"
				if disabled {
					action = "disabled"
				}
				return writePlain("%s admin user %s\n", action, updated.Username)
			})
		},
	}
}

func newAdminUserPasswdCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "passwd <username>",
		Short: "Set a new password for one admin user",
		Args:  requireExactlyArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, password, err := usernameAndPassword(args[0], passwordStdin)
			if err != nil {
				return err
			}

			hash, err := internalauth.HashPassword(password)
			if err != nil {
				return err
			}

			return withStore(cfg, func(st *store.Store) error {
				updated, err := st.SetUserPasswordHash(cmd.Context(), username, hash, time.Now().UTC())
				if err != nil {
					return err
				}

				if *jsonOutput {
					return writeJSON(userPayload(updated))
				}
				return writePlain("updated password for %s\n", updated.Username)
			})
		},
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read password from stdin")
	return cmd
}

func usernameAndPassword(rawUsername string, passwordStdin bool) (string, string, error) {
	if !passwordStdin {
		return "", "", fmt.Errorf("--password-stdin is required")
	}

	username, err := internalauth.NormalizeUsername(rawUsername)
	if err != nil {
		return "", "", err
	}

	passwordBytes, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", "", err
	}
	password := strings.TrimSpace(string(passwordBytes))
	if err := internalauth.ValidatePassword(password); err != nil {
		return "", "", err
	}
	return username, password, nil
}

func userPayload(user *store.AuthUser) map[string]any {
	return map[string]any{
		"id":       user.ID,
		"username": user.Username,
		"role":     user.Role,
		"disabled": user.Disabled,
	}
}

func withStore(cfg *config.Config, fn func(*store.Store) error) error {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}
