package command

import (
	"net/http"

	"github.com/urfave/cli/v2"
)

// CallCommand returns the call subcommand group.
func CallCommand() *cli.Command {
	return &cli.Command{
		Name:  "call",
		Usage: "Manage anonymous call sessions",
		Subcommands: []*cli.Command{
			{
				Name:  "initiate",
				Usage: "Initiate a call with a scanned QR payload",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "token",
						Aliases:  []string{"t"},
						Usage:    "Scanned QR payload",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "caller-id",
						Usage: "Existing caller anonymous ID (omit to mint one)",
					},
				},
				Action: callInitiate,
			},
			{
				Name:      "get",
				Usage:     "Show a call session",
				ArgsUsage: "SESSION_ID",
				Action:    callGet,
			},
			{
				Name:      "status",
				Usage:     "Advance a call session's status",
				ArgsUsage: "SESSION_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "to",
						Usage:    "Target status (ringing, connected, ended, failed)",
						Required: true,
					},
				},
				Action: callStatus,
			},
			{
				Name:      "terminate",
				Usage:     "Terminate a call session",
				ArgsUsage: "SESSION_ID",
				Action:    callTerminate,
			},
			{
				Name:   "stats",
				Usage:  "Show routing statistics",
				Action: callStats,
			},
		},
	}
}

func callInitiate(c *cli.Context) error {
	var resp map[string]any
	err := newClient(c).call(http.MethodPost, "/calls", map[string]string{
		"scanned_token":       c.String("token"),
		"caller_anonymous_id": c.String("caller-id"),
	}, &resp)
	if err != nil {
		return err
	}
	return printJSON(c, resp)
}

func callGet(c *cli.Context) error {
	sessionID, err := requireArg(c, "SESSION_ID")
	if err != nil {
		return err
	}

	var resp map[string]any
	if err := newClient(c).call(http.MethodGet, "/calls/"+sessionID, nil, &resp); err != nil {
		return err
	}
	return printJSON(c, resp)
}

func callStatus(c *cli.Context) error {
	sessionID, err := requireArg(c, "SESSION_ID")
	if err != nil {
		return err
	}

	var resp map[string]any
	err = newClient(c).call(http.MethodPost, "/calls/"+sessionID+"/status",
		map[string]string{"status": c.String("to")}, &resp)
	if err != nil {
		return err
	}
	return printJSON(c, resp)
}

func callTerminate(c *cli.Context) error {
	sessionID, err := requireArg(c, "SESSION_ID")
	if err != nil {
		return err
	}

	var resp map[string]any
	if err := newClient(c).call(http.MethodPost, "/calls/"+sessionID+"/terminate", nil, &resp); err != nil {
		return err
	}
	return printJSON(c, resp)
}

func callStats(c *cli.Context) error {
	var resp map[string]any
	if err := newClient(c).call(http.MethodGet, "/stats", nil, &resp); err != nil {
		return err
	}
	return printJSON(c, resp)
}
