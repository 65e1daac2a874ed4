package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newCategoriesCommand(ctx *commandContext) *cobra.Command {
	categoriesCmd := &cobra.Command{
		Use:   "categories",
		Short: "Browse and manage catalog categories",
	}

	categoriesCmd.AddCommand(newCategoriesListCommand(ctx))
	categoriesCmd.AddCommand(newCategoriesAddCommand(ctx))

	return categoriesCmd
}

func newCategoriesListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			categories, err := ctx.client().ListCategories(cmd.Context())
			if err != nil {
				return wrapClientError(err)
			}

			if jsonOutput {
				return writeJSON(cmd, categories)
			}

			out := cmd.OutOrStdout()
			if len(categories) == 0 {
				fmt.Fprintln(out, "No categories found.")
				return nil
			}

			rows := make([][]string, 0, len(categories))
			for _, category := range categories {
				rows = append(rows, []string{
					strconv.FormatInt(category.ID, 10),
					category.Name,
					category.Description,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Name", "Description"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}

func newCategoriesAddCommand(ctx *commandContext) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := ctx.client().CreateCategory(cmd.Context(), args[0], description)
			if err != nil {
				return wrapClientError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created category %q (id %d)\n", category.Name, category.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Category description")
	return cmd
}
