package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deepteaching86-gif/deepreading/internal/itembank"
	"github.com/deepteaching86-gif/deepreading/internal/report"
	"github.com/deepteaching86-gif/deepreading/internal/store"
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Manage the calibrated item bank",
}

var itemsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Validate and load an item bank from YAML or JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := itembank.Load(args[0])
		if err != nil {
			return err
		}
		if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
			fmt.Printf("%d items valid.\n", len(items))
			return nil
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.ItemRepo().Upsert(commandContext(cmd), items...); err != nil {
			return fmt.Errorf("import items: %w", err)
		}
		env.log.Info("item bank imported", zap.String("file", args[0]), zap.Int("items", len(items)))
		fmt.Printf("Imported %d items from %s.\n", len(items), args[0])
		return nil
	},
}

var itemsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List items in the bank",
	RunE: func(cmd *cobra.Command, args []string) error {
		var f store.ItemFilter
		f.Stage, _ = cmd.Flags().GetInt("stage")
		f.Panel, _ = cmd.Flags().GetString("panel")
		f.Domain, _ = cmd.Flags().GetString("domain")
		f.IncludeInactive, _ = cmd.Flags().GetBool("all")

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		items, err := st.ItemRepo().List(commandContext(cmd), f)
		if err != nil {
			return err
		}
		return render(cmd, items, func() string { return report.Items(items) })
	},
}

var itemsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show item counts and exposures per stage panel",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		items, err := st.ItemRepo().List(commandContext(cmd), store.ItemFilter{})
		if err != nil {
			return err
		}
		stats := report.PanelStats(items)
		return render(cmd, stats, func() string { return report.ItemStats(stats) })
	},
}

func init() {
	itemsImportCmd.Flags().Bool("dry-run", false, "Validate the file without writing to the database")

	itemsListCmd.Flags().Int("stage", 0, "Filter by stage (1-3)")
	itemsListCmd.Flags().String("panel", "", "Filter by panel (routing, low, M2, ...)")
	itemsListCmd.Flags().String("domain", "", "Filter by domain (vocabulary, grammar, reading)")
	itemsListCmd.Flags().Bool("all", false, "Include retired and draft items")

	itemsCmd.AddCommand(itemsImportCmd)
	itemsCmd.AddCommand(itemsListCmd)
	itemsCmd.AddCommand(itemsStatsCmd)
}
