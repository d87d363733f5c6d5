package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/amee-go/internal/profile"
)

func newProfilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List and create profiles",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List profiles visible to the configured project",
		Args:  cobra.NoArgs,
		RunE:  runProfilesList,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Create an empty profile and print its ID",
		Args:  cobra.NoArgs,
		RunE:  runProfilesCreate,
	})

	return cmd
}

// profileJSON is the JSON output schema for a profile.
type profileJSON struct {
	ID         string `json:"id"`
	CreatedAt  string `json:"created_at,omitempty"`
	ModifiedAt string `json:"modified_at,omitempty"`
}

func toProfileJSON(p *profile.Profile) profileJSON {
	return profileJSON{
		ID:         p.ID,
		CreatedAt:  formatRFC3339(p.CreatedAt),
		ModifiedAt: formatRFC3339(p.ModifiedAt),
	}
}

func runProfilesList(cmd *cobra.Command, _ []string) error {
	cc, err := cliContextFrom(cmd.Context())
	if err != nil {
		return err
	}

	profiles, err := cc.Profiles().ListProfiles(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing profiles: %w", err)
	}

	if cc.Flags.JSON {
		out := make([]profileJSON, 0, len(profiles))
		for _, p := range profiles {
			out = append(out, toProfileJSON(p))
		}

		return printJSON(cc.Out, out)
	}

	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		rows = append(rows, []string{p.ID, formatTime(p.CreatedAt), formatTime(p.ModifiedAt)})
	}

	printTable(cc.Out, []string{"ID", "CREATED", "MODIFIED"}, rows)

	return nil
}

func runProfilesCreate(cmd *cobra.Command, _ []string) error {
	cc, err := cliContextFrom(cmd.Context())
	if err != nil {
		return err
	}

	p, err := cc.Profiles().CreateProfile(cmd.Context())
	if err != nil {
		return fmt.Errorf("creating profile: %w", err)
	}

	if cc.Flags.JSON {
		return printJSON(cc.Out, toProfileJSON(p))
	}

	cc.Statusf("Created profile %s\n", p.ID)
	fmt.Fprintln(cc.Out, p.ID)

	return nil
}
