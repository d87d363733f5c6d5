package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/amee-go/internal/api"
)

// errRouteRejected marks a path that failed validation in the route
// command. main maps it to exit status 2.
var errRouteRejected = errors.New("path rejected")

var routeVerbs = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}

func newRouteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route <VERB> [path]",
		Short: "Check a path against the request rules without contacting the service",
		Long: `Check whether a path is acceptable for a verb. Nothing is sent.

With --rules, list the accepted path shapes for the verb instead.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runRoute,
	}

	cmd.Flags().Bool("rules", false, "list accepted path shapes for the verb")

	return cmd
}

// routeJSON is the JSON output schema for route.
type routeJSON struct {
	Verb  string `json:"verb"`
	Path  string `json:"path"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func runRoute(cmd *cobra.Command, args []string) error {
	verb := strings.ToUpper(args[0])
	routes := api.DefaultRoutes()
	out := cmd.OutOrStdout()

	if listRules, _ := cmd.Flags().GetBool("rules"); listRules {
		rules := routes.Rules(verb)
		if len(rules) == 0 {
			return fmt.Errorf("unknown verb %q: expected one of %s", args[0], strings.Join(routeVerbs, ", "))
		}

		for _, r := range rules {
			fmt.Fprintf(out, "%s %s\n", r.Verb, r.Shape)
		}

		return nil
	}

	if len(args) < 2 {
		return errors.New("route: a path is required unless --rules is given")
	}

	path := args[1]
	verr := routes.Validate(path, verb)

	if flagJSON {
		res := routeJSON{Verb: verb, Path: path, Valid: verr == nil}
		if verr != nil {
			res.Error = verr.Error()
		}

		if err := printJSON(out, res); err != nil {
			return err
		}
	} else if verr == nil {
		fmt.Fprintf(out, "ok  %s %s\n", verb, path)
	}

	if verr != nil {
		return fmt.Errorf("%w: %w", errRouteRejected, verr)
	}

	return nil
}
