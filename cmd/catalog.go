package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/catalog-service/internal/catalog"
)

func openStore(cmd *cobra.Command) (*catalog.FileStore, error) {
	cfg, err := resolveConfig(cmd.Context())
	if err != nil {
		return nil, err
	}
	store, err := catalog.NewFileStore(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	return store, nil
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Prints every catalog entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			data, err := store.ListAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("list catalog: %w", err)
			}
			if _, err := cmd.OutOrStdout().Write(data); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			return nil
		},
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Prints the first entry with the given id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			line, err := store.FindByID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get %q: %w", args[0], err)
			}
			if _, err := fmt.Fprint(cmd.OutOrStdout(), line); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			return nil
		},
	}
}

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <id> <name>",
		Short: "Appends an entry to the catalog",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			if err := store.Insert(cmd.Context(), args[0], args[1]); err != nil {
				return fmt.Errorf("add %q: %w", args[0], err)
			}
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), "Success: Catalog inserted."); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			return nil
		},
	}
}
