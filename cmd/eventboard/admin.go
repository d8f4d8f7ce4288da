package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/dukerupert/eventboard/internal/store"
)

const (
	emailFlag  = "email"
	revokeFlag = "revoke"
)

var grantAdminFlags = map[string]cobraflags.Flag{
	configFlag: configFlagDef(),
	emailFlag: &cobraflags.StringFlag{
		Name:  emailFlag,
		Value: "",
		Usage: "Email of a user who has signed in at least once (required)",
	},
	revokeFlag: &cobraflags.StringFlag{
		Name:  revokeFlag,
		Value: "false",
		Usage: "Set to true to revoke global administrator rights instead",
	},
}

// newGrantAdminCommand changes the admin flag of an existing user, for
// bootstrapping before anyone can use PUT /users/{id}/admin.
func newGrantAdminCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant-admin",
		Short: "Grant or revoke global administrator rights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email := strings.ToLower(strings.TrimSpace(grantAdminFlags[emailFlag].GetString()))
			if email == "" {
				return errors.New("--email is required")
			}
			revoke, err := strconv.ParseBool(grantAdminFlags[revokeFlag].GetString())
			if err != nil {
				return fmt.Errorf("--revoke: %w", err)
			}

			_, db, logger, err := setup(grantAdminFlags[configFlag].GetString())
			if err != nil {
				return err
			}
			defer db.Close()

			users := store.NewUserStore(db)
			user, err := users.GetByEmail(cmd.Context(), email)
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("no user with email %s; they must sign in first", email)
			}
			if err := users.SetAdmin(cmd.Context(), user.ID, !revoke); err != nil {
				return err
			}
			logger.Info("admin flag changed", "user_id", user.ID, "admin", !revoke, "by", "cli")
			fmt.Fprintf(cmd.OutOrStdout(), "user %d (%s) admin=%t\n", user.ID, user.Email, !revoke)
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, grantAdminFlags)
	return cmd
}
