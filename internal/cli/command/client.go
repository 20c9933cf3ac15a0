package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

const defaultRequestTimeout = 30 * time.Second

// envelope mirrors the server's standard JSON response wrapper.
type envelope struct {
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// client is a minimal HTTP client for the pqcall server API.
type client struct {
	baseURL string
	http    *http.Client
}

// newClient builds a client from the global CLI flags.
func newClient(c *cli.Context) *client {
	return &client{
		baseURL: strings.TrimRight(c.String("server"), "/"),
		http:    &http.Client{Timeout: c.Duration("timeout")},
	}
}

// call issues a JSON request and decodes the envelope's data field into
// out when non-nil. Error envelopes become Go errors carrying the
// server's error code.
func (c *client) call(method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s: %s", env.Code, env.Message)
	}
	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

// printJSON renders a value as indented JSON on the command's writer.
func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
