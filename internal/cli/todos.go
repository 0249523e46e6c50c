package cli

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"todo-cli/internal/model"
	"todo-cli/internal/state"

	"github.com/spf13/cobra"
)

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id <= 0 {
		return 0, errors.New("invalid todo id: " + strconv.Quote(s))
	}
	return id, nil
}

func listMeta(snap state.Snapshot, f model.Filter) map[string]any {
	return map[string]any{
		"filter":    string(f),
		"total":     len(snap.Todos),
		"active":    snap.ActiveCount,
		"completed": snap.CompletedCount,
	}
}

func newListCmd(app *App) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List todos",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := model.ParseFilter(filter)
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.withLoaded(cmd, func(ctx context.Context, ctl *state.Controller) error {
				snap := ctl.Snapshot()
				return writeOut(cmd, app, map[string]any{
					"data": model.FilterTodos(snap.Todos, f),
					"meta": listMeta(snap, f),
				})
			})
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "all", "Which todos to show (all|active|completed)")
	return cmd
}

func newShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.withLoaded(cmd, func(ctx context.Context, ctl *state.Controller) error {
				t, ok := ctl.Snapshot().Find(id)
				if !ok {
					return errNotFound("todo", id)
				}
				return writeOut(cmd, app, map[string]any{"data": t})
			})
		},
	}
}

func newAddCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add <title...>",
		Short: "Create a todo",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			return app.withLoaded(cmd, func(ctx context.Context, ctl *state.Controller) error {
				created, err := ctl.Create(ctx, title)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{
					"data":   created,
					"_hints": []string{"todo toggle " + strconv.Itoa(created.ID)},
				})
			})
		},
	}
}

func newToggleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a todo between active and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.withLoaded(cmd, func(ctx context.Context, ctl *state.Controller) error {
				if err := ctl.Toggle(ctx, id); err != nil {
					if errors.Is(err, state.ErrUnknownTodo) {
						return errNotFound("todo", id)
					}
					return err
				}
				t, _ := ctl.Snapshot().Find(id)
				return writeOut(cmd, app, map[string]any{"data": t})
			})
		},
	}
}

func newRenameCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title...>",
		Short: "Change a todo's title (an empty title deletes it)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			title := strings.Join(args[1:], " ")
			return app.withLoaded(cmd, func(ctx context.Context, ctl *state.Controller) error {
				if err := ctl.Rename(ctx, id, title); err != nil {
					if errors.Is(err, state.ErrUnknownTodo) {
						return errNotFound("todo", id)
					}
					return err
				}
				t, ok := ctl.Snapshot().Find(id)
				if !ok {
					return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": id, "deleted": true}})
				}
				return writeOut(cmd, app, map[string]any{"data": t})
			})
		},
	}
}

func newRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a todo",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.withLoaded(cmd, func(ctx context.Context, ctl *state.Controller) error {
				if err := ctl.Delete(ctx, id); err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": id, "deleted": true}})
			})
		},
	}
}

func newToggleAllCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle-all",
		Short: "Complete every todo, or reopen all when everything is completed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withLoaded(cmd, func(ctx context.Context, ctl *state.Controller) error {
				if err := ctl.ToggleAll(ctx); err != nil {
					return err
				}
				snap := ctl.Snapshot()
				return writeOut(cmd, app, map[string]any{"data": snap.Todos, "meta": listMeta(snap, model.FilterAll)})
			})
		},
	}
}

func newClearCompletedCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-completed",
		Short: "Delete every completed todo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withLoaded(cmd, func(ctx context.Context, ctl *state.Controller) error {
				before := ctl.Snapshot().CompletedCount
				if err := ctl.ClearCompleted(ctx); err != nil {
					return err
				}
				snap := ctl.Snapshot()
				meta := listMeta(snap, model.FilterAll)
				meta["removed"] = before - snap.CompletedCount
				return writeOut(cmd, app, map[string]any{"data": snap.Todos, "meta": meta})
			})
		},
	}
}
