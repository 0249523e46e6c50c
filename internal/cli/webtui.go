package cli

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"todo-cli/internal/webtui"

	"github.com/spf13/cobra"
)

func newWebTUICmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "webtui",
		Short: "Run the terminal UI in your browser (pty + websocket)",
		Long: strings.TrimSpace(`
Run the terminal UI over the web via a server-side pty and a browser terminal
emulator.

Each browser tab starts its own "todo tui" process on the server, pointed at
the same API and owner as this command. There is no authentication: bind to
localhost.
`),
		Example: strings.TrimSpace(`
todo webtui --addr 127.0.0.1:3337
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			childArgs := []string{
				"--api", app.cfg.APIBase,
				"--owner", strconv.Itoa(app.cfg.OwnerID),
			}
			if app.cfgPath != "" {
				childArgs = append(childArgs, "--config", app.cfgPath)
			}
			childArgs = append(childArgs, "tui")

			srv, err := webtui.NewServer(webtui.ServerConfig{
				Addr:   strings.TrimSpace(addr),
				Args:   childArgs,
				Logger: app.log.WithPrefix("webtui"),
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			listenAddr := srv.Addr()
			if listenAddr == "" {
				return writeErr(cmd, errors.New("webtui: missing --addr"))
			}

			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      listenAddr,
					"url":       "http://" + listenAddr + "/terminal",
					"api":       app.cfg.APIBase,
					"owner":     app.cfg.OwnerID,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "todo webtui running at http://%s/terminal\n", listenAddr)

			return http.ListenAndServe(listenAddr, srv.Handler())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3337", "Bind address (host:port or :port)")
	return cmd
}
