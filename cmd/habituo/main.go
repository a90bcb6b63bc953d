/*
main.go - Application entry point

PURPOSE:
  Parses configuration, builds the logger and the store, then runs the
  selected subcommand.

COMMANDS:
  serve       HTTP API (default)
  status      Streak and rollups of one habit for one user
  complete    Mark a habit complete for today
  analytics   Global counters
  seed        Reset the store and load a demo scenario

CONFIGURATION:
  Flags, HABITUO_* environment variables and a YAML file. See package
  config for precedence.

EXAMPLES:
  # Serve a SQLite file on port 3000
  habituo serve --store-dsn=./data/habituo.db --port=3000

  # Serve an in-memory store preloaded with the community scenario
  habituo serve --store-backend=memory --scenario=community

  # Complete a habit against the upstream service
  habituo complete 65f0c1 --user=alice@example.com \
      --store-backend=remote --remote-url=https://api.habituo.app

SEE ALSO:
  - serve.go: Server startup and graceful shutdown
  - commands.go: One-shot commands
  - config/config.go: Flags and YAML resolver
*/
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/habituo/habit-engine/config"
	"github.com/habituo/habit-engine/logging"
)

var version = "dev"

type CLI struct {
	config.Config `embed:""`

	Version kong.VersionFlag `help:"Print version and exit."`

	Serve     ServeCmd     `cmd:"" default:"withargs" help:"Run the HTTP API."`
	Status    StatusCmd    `cmd:"" help:"Show a habit's streak for a user."`
	Complete  CompleteCmd  `cmd:"" help:"Mark a habit complete for today."`
	Analytics AnalyticsCmd `cmd:"" help:"Print global counters."`
	Seed      SeedCmd      `cmd:"" help:"Reset the store and load a demo scenario."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("habituo"),
		kong.Description("Habit completion engine"),
		kong.UsageOnError(),
		kong.Configuration(config.YAML, config.DefaultPaths...),
		kong.Vars{"version": version},
	)

	logger, err := logging.New(cli.Logging())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	err = ctx.Run(&App{Config: &cli.Config, Logger: logger, Out: os.Stdout})
	if err != nil {
		logger.Error("command failed", zap.String("command", ctx.Command()), zap.Error(err))
	}
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
