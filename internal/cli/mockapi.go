package cli

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"todo-cli/internal/mockapi"
	"todo-cli/internal/store"

	"github.com/spf13/cobra"
)

func newMockAPICmd(app *App) *cobra.Command {
	var (
		addr     string
		dbPath   string
		latency  time.Duration
		failRate float64
	)

	cmd := &cobra.Command{
		Use:   "mockapi",
		Short: "Serve a local stand-in for the task API (SQLite-backed)",
		Long: strings.TrimSpace(`
Serve GET/POST /tasks and PATCH/DELETE /tasks/{id} from a local SQLite file.

--latency and --fail-rate slow down or randomly fail task requests, which makes
the optimistic states of the UIs (placeholder rows, pending spinners, error
banners and rollbacks) easy to watch.
`),
		Example: strings.TrimSpace(`
todo mockapi
todo mockapi --latency 500ms --fail-rate 0.25
todo mockapi --db :memory:
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				return writeErr(cmd, errors.New("mockapi: missing --addr"))
			}
			path := strings.TrimSpace(dbPath)
			if path == "" {
				dir, err := store.StateDir()
				if err != nil {
					return writeErr(cmd, err)
				}
				path = filepath.Join(dir, "mockapi.sqlite")
			}

			db, err := store.OpenTaskDB(cmd.Context(), path)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer db.Close()

			srv, err := mockapi.NewServer(mockapi.ServerConfig{
				DB:       db,
				Latency:  latency,
				FailRate: failRate,
				Logger:   app.log.WithPrefix("mockapi"),
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return writeErr(cmd, err)
			}
			base := "http://" + ln.Addr().String()

			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":     ln.Addr().String(),
					"apiBase":  base,
					"db":       db.Path(),
					"latency":  latency.String(),
					"failRate": failRate,
				},
				"_hints": []string{"todo --api " + base + " list"},
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "todo mockapi serving %s (db=%s)\n", base, db.Path())

			return http.Serve(ln, srv.Handler())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3335", "Bind address (host:port or :port)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite file (default: $XDG_STATE_HOME/todo/mockapi.sqlite; :memory: for a throwaway store)")
	cmd.Flags().DurationVar(&latency, "latency", 0, "Delay every task request by this long")
	cmd.Flags().Float64Var(&failRate, "fail-rate", 0, "Probability (0..1) that a task request answers 503")
	return cmd
}
