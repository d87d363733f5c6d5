package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/amee-go/internal/drill"
	"github.com/tonimelisma/amee-go/internal/profile"
)

func newItemsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Manage the items of a profile",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list <profile-id> <category-path>",
		Short: "List a profile's items under a category",
		Args:  cobra.ExactArgs(2),
		RunE:  runItemsList,
	})

	add := &cobra.Command{
		Use:   "add <profile-id> <category-path>",
		Short: "Create an item from a category data item",
		Long: `Create a profile item. The data item is either given directly with
--uid or resolved by drilling the category with --option name=value
pairs. Options that do not single out one data item are an error and
nothing is created.`,
		Args: cobra.ExactArgs(2),
		RunE: runItemsAdd,
	}
	add.Flags().String("uid", "", "data item UID (skips drill resolution)")
	add.Flags().StringArray("option", nil, "drill option as name=value (repeatable)")
	add.Flags().StringArray("value", nil, "item value as name=value (repeatable)")
	cmd.AddCommand(add)

	update := &cobra.Command{
		Use:   "update <profile-id> <category-path> <item-id>",
		Short: "Update an item's values",
		Args:  cobra.ExactArgs(3),
		RunE:  runItemsUpdate,
	}
	update.Flags().StringArray("value", nil, "item value as name=value (repeatable)")
	cmd.AddCommand(update)

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <profile-id> <category-path> <item-id>",
		Short: "Delete an item",
		Args:  cobra.ExactArgs(3),
		RunE:  runItemsRm,
	})

	return cmd
}

// itemJSON is the JSON output schema for a profile item.
type itemJSON struct {
	ID          string  `json:"id"`
	Name        string  `json:"name,omitempty"`
	Category    string  `json:"category"`
	DataItemUID string  `json:"data_item_uid,omitempty"`
	Amount      float64 `json:"amount"`
	Unit        string  `json:"unit,omitempty"`
	CreatedAt   string  `json:"created_at,omitempty"`
	ModifiedAt  string  `json:"modified_at,omitempty"`
}

func toItemJSON(item profile.Item) itemJSON {
	return itemJSON{
		ID:          item.ID,
		Name:        item.Name,
		Category:    item.CategoryPath,
		DataItemUID: item.DataItemUID,
		Amount:      item.Amount,
		Unit:        item.Unit,
		CreatedAt:   formatRFC3339(item.CreatedAt),
		ModifiedAt:  formatRFC3339(item.ModifiedAt),
	}
}

func printItems(cc *CLIContext, items []profile.Item) error {
	if cc.Flags.JSON {
		out := make([]itemJSON, 0, len(items))
		for _, item := range items {
			out = append(out, toItemJSON(item))
		}

		return printJSON(cc.Out, out)
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.ID,
			item.Name,
			strconv.FormatFloat(item.Amount, 'f', -1, 64),
			item.Unit,
			formatTime(item.ModifiedAt),
		})
	}

	printTable(cc.Out, []string{"ID", "NAME", "AMOUNT", "UNIT", "MODIFIED"}, rows)

	return nil
}

func printItem(cc *CLIContext, item profile.Item) error {
	if cc.Flags.JSON {
		return printJSON(cc.Out, toItemJSON(item))
	}

	return printItems(cc, []profile.Item{item})
}

// stringArrayAssignments reads a repeatable name=value flag.
func stringArrayAssignments(cmd *cobra.Command, name string) (map[string]string, error) {
	raw, err := cmd.Flags().GetStringArray(name)
	if err != nil {
		return nil, err
	}

	vals, err := parseAssignments(raw)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}

	return vals, nil
}

func runItemsList(cmd *cobra.Command, args []string) error {
	cc, err := cliContextFrom(cmd.Context())
	if err != nil {
		return err
	}

	p := profile.NewProfile(profile.Meta{ID: args[0]})

	items, err := cc.Profiles().ListItems(cmd.Context(), p, args[1])
	if err != nil {
		return fmt.Errorf("listing items: %w", err)
	}

	return printItems(cc, items)
}

func runItemsAdd(cmd *cobra.Command, args []string) error {
	cc, err := cliContextFrom(cmd.Context())
	if err != nil {
		return err
	}

	uid, err := cmd.Flags().GetString("uid")
	if err != nil {
		return err
	}

	opts, err := stringArrayAssignments(cmd, "option")
	if err != nil {
		return err
	}

	values, err := stringArrayAssignments(cmd, "value")
	if err != nil {
		return err
	}

	if uid != "" && len(opts) > 0 {
		return errors.New("--uid and --option are mutually exclusive")
	}

	p := profile.NewProfile(profile.Meta{ID: args[0]})
	svc := cc.Profiles()

	var item profile.Item
	if uid != "" {
		item, err = svc.CreateItem(cmd.Context(), p, args[1], uid, profile.Values(values))
	} else {
		item, err = svc.CreateItemFromDrill(cmd.Context(), p, args[1], drill.Options(opts), profile.Values(values))
	}

	if err != nil {
		return fmt.Errorf("adding item: %w", err)
	}

	cc.Statusf("Created item %s in profile %s\n", item.ID, p.ID)

	return printItem(cc, item)
}

func runItemsUpdate(cmd *cobra.Command, args []string) error {
	cc, err := cliContextFrom(cmd.Context())
	if err != nil {
		return err
	}

	values, err := stringArrayAssignments(cmd, "value")
	if err != nil {
		return err
	}

	p := profile.NewProfile(profile.Meta{ID: args[0]})
	item := profile.Item{Meta: profile.Meta{ID: args[2]}, CategoryPath: drill.CleanPath(args[1])}

	updated, err := cc.Profiles().UpdateItem(cmd.Context(), p, item, profile.Values(values))
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}

	return printItem(cc, updated)
}

func runItemsRm(cmd *cobra.Command, args []string) error {
	cc, err := cliContextFrom(cmd.Context())
	if err != nil {
		return err
	}

	p := profile.NewProfile(profile.Meta{ID: args[0]})
	item := profile.Item{Meta: profile.Meta{ID: args[2]}, CategoryPath: drill.CleanPath(args[1])}

	if err := cc.Profiles().DeleteItem(cmd.Context(), p, item); err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}

	if cc.Flags.JSON {
		return printJSON(cc.Out, map[string]string{"deleted": item.ID})
	}

	cc.Statusf("Deleted item %s\n", item.ID)

	return nil
}
