package main

import (
	"fmt"
	"os"

	"github.com/simplege/gamenet/config"
	"github.com/simplege/gamenet/logger"
	"github.com/urfave/cli/v2"
)

func main() {
	defaultRPC := os.Getenv("GAMENET_HOST_RPC")
	if defaultRPC == "" {
		defaultRPC = "http://127.0.0.1:6860"
	}

	app := cli.NewApp()
	app.Name = "gamenet"
	app.Usage = "Host or join a LAN game session and keep every view of the world in sync."
	app.Version = config.BuildVersion
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "the TOML configuration file, defaults are used when empty",
		},
		&cli.StringFlag{
			Name:    "game",
			Aliases: []string{"g"},
			Usage:   "the game id, overrides the configuration",
		},
		&cli.IntFlag{
			Name:    "log",
			Aliases: []string{"l"},
			Usage:   "the log level, overrides the configuration",
		},
		&cli.StringFlag{
			Name:  "filter",
			Usage: "the RE2 regex pattern to filter log",
		},
		&cli.StringFlag{
			Name:    "node",
			Aliases: []string{"n"},
			Value:   defaultRPC,
			Usage:   "the host RPC endpoint, and the default value is read from environment variable GAMENET_HOST_RPC",
		},
	}
	app.EnableBashCompletion = true
	app.Commands = []*cli.Command{
		{
			Name:    "host",
			Aliases: []string{"h"},
			Usage:   "Host a game session with a bouncing logo",
			Action:  hostCmd,
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "port",
					Aliases: []string{"p"},
					Usage:   "the TCP control port, overrides the configuration",
				},
				&cli.StringFlag{
					Name:  "name",
					Usage: "the host name announced to searching clients",
				},
				&cli.BoolFlag{
					Name:  "hidden",
					Usage: "do not answer discovery requests",
				},
				&cli.IntFlag{
					Name:  "rpc",
					Usage: "the status RPC port, overrides the configuration",
				},
			},
		},
		{
			Name:    "join",
			Aliases: []string{"j"},
			Usage:   "Join a game session, searching the LAN when no address is given",
			Action:  joinCmd,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "addr",
					Aliases: []string{"a"},
					Usage:   "the host control address HOST:PORT",
				},
				&cli.StringSliceFlag{
					Name:  "static",
					Usage: "the known host addresses to pick from instead of searching",
				},
			},
		},
		{
			Name:   "search",
			Usage:  "Search the LAN for hosts of the game",
			Action: searchCmd,
			Flags: []cli.Flag{
				&cli.DurationFlag{
					Name:  "window",
					Usage: "how long to collect answers, overrides the configuration",
				},
			},
		},
		{
			Name:   "getinfo",
			Usage:  "Get info from the host",
			Action: getInfoCmd,
		},
		{
			Name:   "listpeers",
			Usage:  "List all the admitted peers of the host",
			Action: listPeersCmd,
		},
		{
			Name:   "getmetric",
			Usage:  "Get the message counters of the host",
			Action: getMetricCmd,
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		fmt.Println(err)
	}
}

func setupConfig(c *cli.Context) (*config.Custom, *logger.Logger, error) {
	custom := config.Default()
	if file := c.String("config"); file != "" {
		var err error
		custom, err = config.Initialize(file)
		if err != nil {
			return nil, nil, err
		}
	}
	if game := c.String("game"); game != "" {
		custom.Game.Id = game
	}
	if level := c.Int("log"); level > 0 {
		custom.Log.Level = level
	}
	if filter := c.String("filter"); filter != "" {
		custom.Log.Filter = filter
	}

	log := logger.New(custom.Log.Level)
	log.SetLimiter(custom.Log.Limiter)
	err := log.SetFilter(custom.Log.Filter)
	if err != nil {
		return nil, nil, err
	}
	return custom, log, nil
}
