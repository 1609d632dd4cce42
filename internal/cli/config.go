package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/todosync/internal/model"
)

func newConfigCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(o.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", o.configPath)
			}
			if err := model.SaveConfig(o.configPath, model.DefaultAppConfig()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", o.configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := o.cfg
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintf(tw, "config\t%s\n", o.configPath)
			fmt.Fprintf(tw, "api.base_url\t%s\n", c.API.BaseURL)
			fmt.Fprintf(tw, "api.timeout_sec\t%d\n", c.API.TimeoutSec)
			fmt.Fprintf(tw, "api.max_retries\t%d\n", c.API.MaxRetries)
			fmt.Fprintf(tw, "api.rate_per_sec\t%g\n", c.API.RatePerSec)
			fmt.Fprintf(tw, "store.page_size\t%d\n", c.Store.PageSize)
			fmt.Fprintf(tw, "store.freshness_sec\t%d\n", c.Store.FreshnessSec)
			fmt.Fprintf(tw, "sync.interval_sec\t%d\n", c.Sync.IntervalSec)
			fmt.Fprintf(tw, "server.addr\t%s\n", c.Server.Addr)
			fmt.Fprintf(tw, "server.db_path\t%s\n", c.Server.DBPath)
			fmt.Fprintf(tw, "server.token\t%s\n", mask(c.Server.Token))
			fmt.Fprintf(tw, "log.level\t%s\n", c.Log.Level)
			return tw.Flush()
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

func mask(secret string) string {
	if secret == "" {
		return "-"
	}
	return "********"
}
