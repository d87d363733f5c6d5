// Package drill resolves a category path plus a partial set of
// discriminator options into a single data item UID by querying the
// service's drill endpoint one step at a time.
//
// Resolution is driven by the caller: each Resolve call is one round-trip,
// so a UI can present the offered choices between steps. Drill keeps the
// per-resolution state for that loop.
package drill

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// Sender issues one request and returns the decoded JSON body. It is
// satisfied by *api.Client.
type Sender interface {
	Send(ctx context.Context, verb, path string, params url.Values) (json.RawMessage, error)
}

// Step is the outcome of one drill query. Exactly one of UID or
// Discriminator is set.
type Step struct {
	Path          string // category path queried
	Options       Options
	Discriminator string   // next discriminator the service asks for
	Choices       []Choice // values offered for Discriminator, in service order
	UID           string   // resolved item identifier
}

// Terminal reports whether the step resolved to a UID.
func (s *Step) Terminal() bool {
	return s.UID != ""
}

// Values maps each choice's display name to its option value.
func (s *Step) Values() map[string]string {
	m := make(map[string]string, len(s.Choices))
	for _, c := range s.Choices {
		m[c.Name] = c.Value
	}

	return m
}

// Offers reports whether v is one of the step's choices, matched against
// the option value first and the display name second. It returns the
// option value to send.
func (s *Step) Offers(v string) (string, bool) {
	for _, c := range s.Choices {
		if c.Value == v {
			return c.Value, true
		}
	}

	for _, c := range s.Choices {
		if c.Name == v {
			return c.Value, true
		}
	}

	return "", false
}

// Resolver queries the drill endpoint through a Sender.
type Resolver struct {
	sender Sender
	logger *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(sender Sender, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{sender: sender, logger: logger}
}

// Resolve performs one drill step for basePath with the given options.
// A terminal response with exactly one entry yields a Step carrying the
// UID; a terminal response with zero or several entries fails with
// *AmbiguousError; otherwise the Step names the next discriminator.
func (r *Resolver) Resolve(ctx context.Context, basePath string, opts Options) (*Step, error) {
	base := CleanPath(basePath)

	params := url.Values{}
	for k, v := range opts {
		params.Set(k, v)
	}

	raw, err := r.sender.Send(ctx, http.MethodGet, DrillPath(base), params)
	if err != nil {
		return nil, err
	}

	name, choices, err := parseChoices(raw, r.logger)
	if err != nil {
		return nil, fmt.Errorf("drill %s: %w", base, err)
	}

	step := &Step{Path: base, Options: opts.Clone()}

	if name == uidDiscriminator {
		if len(choices) != 1 {
			r.logger.Warn("drill-down did not resolve to one item",
				slog.String("path", base),
				slog.String("options", opts.String()),
				slog.Int("count", len(choices)),
			)

			return nil, &AmbiguousError{Path: base, Options: opts.Clone(), Count: len(choices)}
		}

		if choices[0].Value == "" {
			return nil, fmt.Errorf("drill %s: %w: terminal entry has no value", base, ErrMalformed)
		}

		step.UID = choices[0].Value

		r.logger.Debug("drill-down resolved",
			slog.String("path", base),
			slog.String("uid", step.UID),
		)

		return step, nil
	}

	step.Discriminator = name
	step.Choices = choices

	r.logger.Debug("drill-down needs discriminator",
		slog.String("path", base),
		slog.String("discriminator", name),
		slog.Int("choices", len(choices)),
	)

	return step, nil
}

// ResolveUID performs one drill step that must be terminal. A response
// still asking for a discriminator fails with *IncompleteError.
func (r *Resolver) ResolveUID(ctx context.Context, basePath string, opts Options) (string, error) {
	step, err := r.Resolve(ctx, basePath, opts)
	if err != nil {
		return "", err
	}

	if !step.Terminal() {
		return "", &IncompleteError{
			Path:          step.Path,
			Options:       step.Options,
			Discriminator: step.Discriminator,
			Choices:       step.Choices,
		}
	}

	return step.UID, nil
}

// CleanPath normalizes a category path to one leading slash and no
// trailing slash. The root category is "".
func CleanPath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}

	return "/" + p
}

// DrillPath returns the drill endpoint for a cleaned category path.
func DrillPath(base string) string {
	return "/data" + base + "/drill"
}
