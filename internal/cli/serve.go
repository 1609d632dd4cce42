package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/todosync/internal/server"
	"github.com/nhle/todosync/internal/store"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	var addr, dbPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the todo API backed by a local SQLite database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = o.cfg.Server.Addr
			}
			if dbPath == "" {
				dbPath = o.cfg.Server.DBPath
			}
			if dbPath != ":memory:" {
				if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
					return fmt.Errorf("creating database directory: %w", err)
				}
			}

			st, err := store.NewSQLiteStore(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			if !o.verbose {
				gin.SetMode(gin.ReleaseMode)
			}
			srv := server.New(st,
				server.WithLogger(o.logger),
				server.WithToken(o.cfg.Server.Token),
			)
			o.logger.Info("starting todo API",
				zap.String("addr", addr),
				zap.String("db", dbPath),
				zap.Bool("auth", o.cfg.Server.Token != ""),
			)
			return srv.Run(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to server.addr)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (defaults to server.db_path)")
	return cmd
}
