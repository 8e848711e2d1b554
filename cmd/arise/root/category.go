package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"arise/internal/engine"
	"arise/internal/ui"
)

func newCategoryCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage categories",
	}

	var color string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category (or recolor an existing one)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			c, err := svc.AddCategory(ctx, args[0], color)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Category %s %s\n", ui.IconPlus, c.Name, ui.Muted.Render(c.Color))
			return nil
		},
	}
	add.Flags().StringVar(&color, "color", engine.DefaultColor, "Display color")

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			cats, err := svc.ListCategories(ctx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, ui.Muted.Render(engine.DefaultCategory+" (default)"))
			for _, c := range cats {
				fmt.Fprintf(w, "%s %s %s\n", ui.Muted.Render(shortID(c.ID)), c.Name, ui.Muted.Render(c.Color))
			}
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm <name|id>",
		Short: "Delete a category; tasks keep their label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			cats, err := svc.ListCategories(ctx)
			if err != nil {
				return err
			}
			var ids []string
			for _, c := range cats {
				if c.Name == args[0] {
					ids = []string{c.ID}
					args[0] = c.ID
					break
				}
				ids = append(ids, c.ID)
			}
			id, err := resolveID("category", args[0], ids)
			if err != nil {
				return err
			}
			if err := svc.DeleteCategory(ctx, id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted category")
			return nil
		},
	}

	cmd.AddCommand(add, list, rm)
	return cmd
}
