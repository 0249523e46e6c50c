package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"todo-cli/internal/web"

	"github.com/spf13/cobra"
)

func newWebCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the todo list as a live-updating web page",
		Long: strings.TrimSpace(`
Serve the todo list from a local HTTP server.

Pages are rendered on the server. Each open page keeps a Datastar event
stream, so pending rows and error banners update without a reload.
`),
		Example: strings.TrimSpace(`
# Serve on the configured address (default 127.0.0.1:3336)
todo web

# Against a local mock backend
todo --api http://127.0.0.1:3335 web --addr :8080
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr := strings.TrimSpace(app.cfg.Web.Addr)
			if cmd.Flags().Changed("addr") {
				listenAddr = strings.TrimSpace(addr)
			}
			if listenAddr == "" {
				return writeErr(cmd, errors.New("web: missing --addr"))
			}

			l := app.log.WithPrefix("web")
			ctl, err := app.newController(l)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer ctl.Close()

			srv, err := web.NewServer(web.ServerConfig{Addr: listenAddr, Controller: ctl, Logger: l})
			if err != nil {
				return writeErr(cmd, err)
			}

			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return writeErr(cmd, err)
			}

			go func() {
				if err := ctl.Load(context.WithoutCancel(cmd.Context())); err != nil {
					l.Warn("initial load failed", "err", err)
				}
			}()

			actualAddr := ln.Addr().String()
			url := "http://" + actualAddr + "/"
			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      actualAddr,
					"url":       url,
					"api":       app.cfg.APIBase,
					"owner":     app.cfg.OwnerID,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
				"_hints": []string{"open " + url},
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "todo web running at %s (api=%s owner=%d)\n", url, app.cfg.APIBase, app.cfg.OwnerID)

			return http.Serve(ln, srv.Handler())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Bind address (host:port or :port; default from config web.addr)")
	return cmd
}
