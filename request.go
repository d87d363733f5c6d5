package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

func newRequestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "request <VERB> <path> [name=value...]",
		Short: "Send a raw request and print the JSON response",
		Long: `Send one request through the session: the path is validated, the
session authenticates if needed, and the decoded JSON is printed.
Parameters go to the query string for GET and to the form body for POST
and PUT.`,
		Args: cobra.MinimumNArgs(2),
		RunE: runRequest,
	}
}

func runRequest(cmd *cobra.Command, args []string) error {
	cc, err := cliContextFrom(cmd.Context())
	if err != nil {
		return err
	}

	verb := strings.ToUpper(args[0])
	path := args[1]

	assignments, err := parseAssignments(args[2:])
	if err != nil {
		return err
	}

	params := url.Values{}
	for k, v := range assignments {
		params.Set(k, v)
	}

	cc.Logger.Debug("request", slog.String("verb", verb), slog.String("path", path))

	raw, err := cc.Client.Send(cmd.Context(), verb, path, params)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("formatting response: %w", err)
	}

	buf.WriteByte('\n')

	_, err = buf.WriteTo(cc.Out)

	return err
}
