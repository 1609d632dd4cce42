package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/todosync/internal/api"
	"github.com/nhle/todosync/internal/credential"
)

func newLoginCmd(o *rootOptions) *cobra.Command {
	var skipVerify bool

	cmd := &cobra.Command{
		Use:   "login [token]",
		Short: "Store the API token in the system keyring",
		Long: `Store the API token in the system keyring. The token is read from the
argument or, when omitted, from the first line of stdin. It is checked
against the server before it is saved unless --skip-verify is set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				fmt.Fprint(cmd.ErrOrStderr(), "API token: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading token: %w", err)
				}
				token = line
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return errors.New("token must not be empty")
			}

			if !skipVerify {
				c := api.NewClientFromConfig(o.cfg.API, token, o.logger)
				if _, err := c.ListProjects(cmd.Context()); err != nil {
					if api.IsUnauthorized(err) {
						return errors.New("server rejected the token")
					}
					return fmt.Errorf("verifying token: %w", err)
				}
			}

			if err := saveToken(token); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Token saved.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipVerify, "skip-verify", false, "Save without checking the token against the server")
	return cmd
}

func newLogoutCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the API token from the system keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := forgetToken()
			if errors.Is(err, credential.ErrNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), "No token stored.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Token removed.")
			return nil
		},
	}
}
