package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/amee-go/internal/drill"
)

func newDrillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drill <category-path> [name=value...]",
		Short: "Resolve a category item by drilling down its choices",
		Long: `Query the drill endpoint of a category with the given options and show
either the next choice the service asks for or the resolved data item UID.

With --interactive, keep prompting for each remaining choice until a
single data item is resolved.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runDrill,
	}

	cmd.Flags().BoolP("interactive", "i", false, "prompt for each remaining choice (requires a terminal)")

	return cmd
}

func runDrill(cmd *cobra.Command, args []string) error {
	cc, err := cliContextFrom(cmd.Context())
	if err != nil {
		return err
	}

	opts, err := parseAssignments(args[1:])
	if err != nil {
		return err
	}

	if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
		fd := os.Stdin.Fd()
		if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
			return errors.New("--interactive requires a terminal on stdin")
		}

		return drillInteractive(cmd.Context(), cc, args[0], drill.Options(opts), os.Stdin, cmd.ErrOrStderr())
	}

	step, err := cc.Resolver().Resolve(cmd.Context(), args[0], drill.Options(opts))
	if err != nil {
		return fmt.Errorf("drilling %s: %w", drill.CleanPath(args[0]), err)
	}

	return printStep(cc, step)
}

// drillInteractive walks a drill to its UID, reading one answer per
// step from in. An answer may be the choice's value, its display name,
// or its 1-based position in the list.
func drillInteractive(
	ctx context.Context,
	cc *CLIContext,
	path string,
	opts drill.Options,
	in io.Reader,
	prompt io.Writer,
) error {
	d := cc.Resolver().Start(path, opts)
	scanner := bufio.NewScanner(in)
	heading := color.New(color.FgCyan, color.Bold)
	warn := color.New(color.FgRed)

	for {
		step, err := d.Next(ctx)
		if err != nil {
			return fmt.Errorf("drilling %s with %s: %w", d.Path(), d.Selected(), err)
		}

		if step.Terminal() {
			return printStep(cc, step)
		}

		heading.Fprintf(prompt, "%s:\n", step.Discriminator)

		for i, c := range step.Choices {
			fmt.Fprintf(prompt, "  %2d) %s\n", i+1, c.Name)
		}

		for {
			fmt.Fprint(prompt, "> ")

			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("reading answer: %w", err)
				}

				return fmt.Errorf("drill abandoned at %q", step.Discriminator)
			}

			answer := pickChoice(step, strings.TrimSpace(scanner.Text()))

			err := d.Select(step.Discriminator, answer)
			if err == nil {
				break
			}

			if !errors.Is(err, drill.ErrInvalidChoice) {
				return err
			}

			warn.Fprintf(prompt, "%q is not one of the choices\n", answer)
		}
	}
}

// pickChoice maps a list position to its value. Anything the step offers
// verbatim wins over a positional reading.
func pickChoice(step *drill.Step, answer string) string {
	if _, ok := step.Offers(answer); ok {
		return answer
	}

	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(step.Choices) {
		return step.Choices[n-1].Value
	}

	return answer
}

// stepJSON is the JSON output schema for a drill step.
type stepJSON struct {
	Path          string            `json:"path"`
	Options       map[string]string `json:"options"`
	Discriminator string            `json:"discriminator,omitempty"`
	Choices       []choiceJSON      `json:"choices,omitempty"`
	UID           string            `json:"uid,omitempty"`
}

type choiceJSON struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func printStep(cc *CLIContext, step *drill.Step) error {
	if cc.Flags.JSON {
		out := stepJSON{
			Path:          step.Path,
			Options:       step.Options.Clone(),
			Discriminator: step.Discriminator,
			UID:           step.UID,
		}

		for _, c := range step.Choices {
			out.Choices = append(out.Choices, choiceJSON(c))
		}

		return printJSON(cc.Out, out)
	}

	if step.Terminal() {
		fmt.Fprintln(cc.Out, step.UID)
		return nil
	}

	cc.Statusf("%s %s needs %q\n", step.Path, step.Options, step.Discriminator)

	rows := make([][]string, 0, len(step.Choices))
	for _, c := range step.Choices {
		rows = append(rows, []string{c.Name, c.Value})
	}

	printTable(cc.Out, []string{"NAME", "VALUE"}, rows)

	return nil
}
