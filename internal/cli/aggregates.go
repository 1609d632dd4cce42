package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/todosync/internal/sync"
)

func newProjectsCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List projects with their todo counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := o.store()
			if err := st.FetchProjects(cmd.Context()); err != nil {
				return err
			}
			return printProjects(cmd.OutOrStdout(), st.Snapshot().Projects)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>...",
		Short: "Create a project",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := o.client().CreateProject(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s: %s\n", project.ID, project.Name)
			return nil
		},
	})
	return cmd
}

func newLabelsCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "labels",
		Short: "List labels in use by open todos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := o.store()
			if err := st.FetchLabels(cmd.Context()); err != nil {
				return err
			}
			return printLabels(cmd.OutOrStdout(), st.Snapshot().Labels)
		},
	}
}

func newCountsCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Show inbox, today, upcoming and completed counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := o.store()
			if err := st.FetchTodoCounts(cmd.Context()); err != nil {
				return err
			}
			return printCounts(cmd.OutOrStdout(), st.Snapshot().Counts)
		},
	}
}

func newWatchCmd(o *rootOptions) *cobra.Command {
	var (
		interval time.Duration
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh projects, labels and counts periodically",
		Long: `Refresh projects, labels and counts in the background and print the
counters after every refresh. Stops on Ctrl-C or after --count refreshes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("interval") {
				interval = o.cfg.Sync.Interval()
			}

			st := o.store()
			poller := sync.New(st, interval, sync.WithLogger(o.logger))
			poller.Start(cmd.Context())
			defer poller.Stop()

			out := cmd.OutOrStdout()
			for seen := 0; limit <= 0 || seen < limit; seen++ {
				select {
				case <-cmd.Context().Done():
					return nil
				case res := <-poller.Results():
					if res.AuthError {
						return fmt.Errorf("server rejected the API token, run \"todosync login\": %w", res.Error)
					}
					if res.Error != nil {
						o.logger.Warn("refresh failed", zap.Error(res.Error))
						fmt.Fprintf(out, "%s  refresh failed: %v\n", res.At.Format(time.TimeOnly), res.Error)
						continue
					}
					c := st.Snapshot().Counts
					fmt.Fprintf(out, "%s  inbox %d  today %d  upcoming %d  completed %d\n",
						res.At.Format(time.TimeOnly), c.Inbox, c.Today, c.Upcoming, c.Completed)
				}
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Refresh interval (defaults to sync.interval_sec)")
	cmd.Flags().IntVar(&limit, "count", 0, "Stop after this many refreshes (0 runs until interrupted)")
	return cmd
}
