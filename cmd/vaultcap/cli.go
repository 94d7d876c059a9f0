package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dailyaf/vaultcap/internal/capsule"
	"github.com/dailyaf/vaultcap/internal/errors"
	"github.com/dailyaf/vaultcap/internal/ops"
	"github.com/dailyaf/vaultcap/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *ops.Env) *cli.App {
	app := &cli.App{
		Name:    "vaultcap",
		Usage:   "Install and manage capsules in a notes vault",
		Version: Version,
		Commands: []*cli.Command{
			initCmd(env),
			catalogCmd(env),
			refreshCmd(env),
			installCmd(env),
			updateCmd(env),
			removeCmd(env),
			statusCmd(env),
			outdatedCmd(env),
			modulesCmd(env),
			activitiesCmd(env),
			historyCmd(env),
			serveCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// initCmd creates the init command.
func initCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create the settings document if the vault has none",
		Action: func(c *cli.Context) error {
			output, err := ops.InitSettings(env)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// catalogCmd creates the catalog command.
func catalogCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "List capsules in the manifest with their install state",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "Filter by source (all, core, community, ...)"},
			&cli.StringFlag{Name: "state", Usage: "Filter by state: available|installed|update-available"},
			&cli.BoolFlag{Name: "refresh", Aliases: []string{"r"}, Usage: "Refetch the manifest first"},
		},
		Action: func(c *cli.Context) error {
			ctx := commandContext(c)
			if c.Bool("refresh") {
				if _, err := ops.Refresh(ctx, env); err != nil {
					return outputError(err)
				}
			}

			output, err := ops.Catalog(ctx, env, ops.CatalogInput{
				Source: c.String("source"),
				State:  capsule.InstallState(c.String("state")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// refreshCmd creates the refresh command.
func refreshCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "Refetch the capsule manifest",
		Action: func(c *cli.Context) error {
			output, err := ops.Refresh(commandContext(c), env)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// installCmd creates the install command.
func installCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "install",
		Usage:     "Install a capsule into the vault",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := requireArg(c, "capsule id")
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Install(commandContext(c), env, ops.InstallInput{ID: id})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// updateCmd creates the update command.
func updateCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Update an installed capsule to the manifest version",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Reinstall even if already current"},
		},
		Action: func(c *cli.Context) error {
			id, err := requireArg(c, "capsule id")
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Update(commandContext(c), env, ops.InstallInput{
				ID:    id,
				Force: c.Bool("force"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// removeCmd creates the remove command.
func removeCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Usage:     "Remove an installed capsule's files and settings entries",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := requireArg(c, "capsule id")
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Remove(commandContext(c), env, ops.RemoveInput{ID: id})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// statusCmd creates the status command.
func statusCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show installed capsules",
		ArgsUsage: "[id]",
		Action: func(c *cli.Context) error {
			output, err := ops.ListInstalled(commandContext(c), env, ops.InstalledInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// outdatedCmd creates the outdated command.
func outdatedCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "outdated",
		Usage: "Show installed capsules with a newer manifest version",
		Action: func(c *cli.Context) error {
			output, err := ops.ListInstalled(commandContext(c), env, ops.InstalledInput{Outdated: true})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// modulesCmd creates the modules command and its subcommands.
func modulesCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "modules",
		Usage: "Show or reorder dashboard modules",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List modules in display order",
				Action: func(c *cli.Context) error {
					output, err := ops.ListModules(env)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "move",
				Usage:     "Swap a module with its neighbour",
				ArgsUsage: "<id> <up|down>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return outputError(errors.NewInvalidRequest("usage: modules move <id> <up|down>"))
					}
					output, err := ops.MoveModule(env, ops.MoveModuleInput{
						ID:        c.Args().Get(0),
						Direction: c.Args().Get(1),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "order",
				Usage:     "Set the module order; unlisted modules keep their relative order at the end",
				ArgsUsage: "<id>...",
				Action: func(c *cli.Context) error {
					output, err := ops.SetModuleOrder(env, ops.SetModuleOrderInput{IDs: parseIDs(c.Args().Slice())})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// activitiesCmd creates the activities command.
func activitiesCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "activities",
		Usage: "List tracked activities",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Filter by type: boolean|value|rating|count"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ListActivities(env, ops.ActivitiesInput{Type: capsule.ActivityType(c.String("type"))})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
		Subcommands: []*cli.Command{
			{
				Name:  "sync",
				Usage: "Recompute activities from the installed capsules",
				Action: func(c *cli.Context) error {
					output, err := ops.SyncActivities(commandContext(c), env)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// historyCmd creates the history command.
func historyCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "List journaled operations, newest first",
		ArgsUsage: "[capsule-id]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Usage: "Items to skip"},
			&cli.StringFlag{Name: "op", Usage: "Show one operation with its backups"},
		},
		Action: func(c *cli.Context) error {
			ctx := commandContext(c)
			if op := c.String("op"); op != "" {
				output, err := ops.GetOperation(ctx, env, op)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(output)
			}

			output, err := ops.History(ctx, env, ops.HistoryInput{
				CapsuleID: c.Args().First(),
				Limit:     c.Int("limit"),
				Offset:    c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind to"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8787, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(env, Version, c.String("bind"), c.Int("port"))
			if err := web.Run(srv, env.Logger); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// Helper functions

// commandContext returns the command's context, or Background outside app.Run.
func commandContext(c *cli.Context) context.Context {
	if c.Context != nil {
		return c.Context
	}
	return context.Background()
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI as "[CODE] message".
func outputError(err error) error {
	ve := errors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", ve.Code, ve.Message), 1)
}

// requireArg returns the first positional argument.
func requireArg(c *cli.Context, what string) (string, error) {
	id := strings.TrimSpace(c.Args().First())
	if id == "" {
		return "", errors.NewInvalidRequest(what + " is required")
	}
	return id, nil
}

// parseIDs accepts ids as separate arguments or comma-separated, dropping blanks.
func parseIDs(args []string) []string {
	ids := make([]string, 0, len(args))
	for _, arg := range args {
		for _, p := range strings.Split(arg, ",") {
			if id := strings.TrimSpace(p); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
