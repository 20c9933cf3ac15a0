package command

import (
	"fmt"
	"net/http"

	"github.com/urfave/cli/v2"

	"github.com/pqcall/pqcall-go/internal/core/domain"
)

// TokenCommand returns the token subcommand group.
func TokenCommand() *cli.Command {
	return &cli.Command{
		Name:    "token",
		Aliases: []string{"tok"},
		Usage:   "Manage QR scan tokens",
		Subcommands: []*cli.Command{
			{
				Name:   "mint",
				Usage:  "Mint a standalone QR payload offline (not registered anywhere)",
				Action: tokenMint,
			},
			{
				Name:      "inspect",
				Usage:     "Parse and validate a QR payload offline",
				ArgsUsage: "QR_PAYLOAD",
				Action:    tokenInspect,
			},
			{
				Name:      "digest",
				Usage:     "Print the lookup digest of a QR payload offline",
				ArgsUsage: "QR_PAYLOAD",
				Action:    tokenDigest,
			},
			{
				Name:  "issue",
				Usage: "Issue a new token for a user",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user-id",
						Aliases:  []string{"u"},
						Usage:    "Owning user ID",
						Required: true,
					},
				},
				Action: tokenIssue,
			},
			{
				Name:      "validate",
				Usage:     "Validate a QR payload against the server",
				ArgsUsage: "QR_PAYLOAD",
				Action:    tokenValidate,
			},
			{
				Name:      "revoke",
				Usage:     "Revoke the token behind a QR payload",
				ArgsUsage: "QR_PAYLOAD",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "reason",
						Usage: "Revocation reason",
					},
				},
				Action: tokenRevoke,
			},
			{
				Name:      "revoke-all",
				Usage:     "Revoke all tokens for a user",
				ArgsUsage: "USER_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "reason",
						Usage: "Revocation reason",
					},
				},
				Action: tokenRevokeAll,
			},
		},
	}
}

// requireArg returns the single positional argument or a usage error.
func requireArg(c *cli.Context, name string) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one argument: %s", name)
	}
	return c.Args().First(), nil
}

func tokenMint(c *cli.Context) error {
	tok, err := domain.NewSecureToken()
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, tok.FormatQR())
	return nil
}

func tokenInspect(c *cli.Context) error {
	raw, err := requireArg(c, "QR_PAYLOAD")
	if err != nil {
		return err
	}

	tok, err := domain.ParseQR(raw)
	if err != nil {
		return fmt.Errorf("payload rejected: %w", err)
	}

	return printJSON(c, map[string]any{
		"version":  tok.Version,
		"value":    domain.MaskTokenValue(tok.Value),
		"checksum": tok.Checksum,
		"valid":    true,
	})
}

func tokenDigest(c *cli.Context) error {
	raw, err := requireArg(c, "QR_PAYLOAD")
	if err != nil {
		return err
	}

	tok, err := domain.ParseQR(raw)
	if err != nil {
		return fmt.Errorf("payload rejected: %w", err)
	}

	fmt.Fprintln(c.App.Writer, domain.LookupDigest(tok.Value))
	return nil
}

func tokenIssue(c *cli.Context) error {
	var resp struct {
		QRPayload string `json:"qr_payload"`
		ExpiresAt int64  `json:"expires_at"`
	}
	err := newClient(c).call(http.MethodPost, "/tokens",
		map[string]string{"user_id": c.String("user-id")}, &resp)
	if err != nil {
		return err
	}
	return printJSON(c, resp)
}

func tokenValidate(c *cli.Context) error {
	raw, err := requireArg(c, "QR_PAYLOAD")
	if err != nil {
		return err
	}

	var resp struct {
		Valid   bool   `json:"valid"`
		Message string `json:"message,omitempty"`
	}
	err = newClient(c).call(http.MethodPost, "/tokens/validate",
		map[string]string{"qr_payload": raw}, &resp)
	if err != nil {
		return err
	}
	return printJSON(c, resp)
}

func tokenRevoke(c *cli.Context) error {
	raw, err := requireArg(c, "QR_PAYLOAD")
	if err != nil {
		return err
	}

	var resp struct {
		Revoked bool `json:"revoked"`
	}
	err = newClient(c).call(http.MethodPost, "/tokens/revoke",
		map[string]string{"qr_payload": raw, "reason": c.String("reason")}, &resp)
	if err != nil {
		return err
	}
	return printJSON(c, resp)
}

func tokenRevokeAll(c *cli.Context) error {
	userID, err := requireArg(c, "USER_ID")
	if err != nil {
		return err
	}

	var resp struct {
		RevokedCount int `json:"revoked_count"`
	}
	err = newClient(c).call(http.MethodPost, "/users/"+userID+"/tokens/revoke",
		map[string]string{"reason": c.String("reason")}, &resp)
	if err != nil {
		return err
	}
	return printJSON(c, resp)
}
