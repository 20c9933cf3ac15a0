package command

import (
	"github.com/urfave/cli/v2"

	"github.com/pqcall/pqcall-go/internal/infra/buildinfo"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "pqcall-cli",
		Usage:   "pqcall command-line management tool",
		Version: buildinfo.Get().String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			TokenCommand(),
			CallCommand(),
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "pqcall server address (e.g., http://localhost:5180)",
			EnvVars: []string{"PQCALL_SERVER"},
			Value:   "http://localhost:5180",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Request timeout",
			Value: defaultRequestTimeout,
		},
	}
}
