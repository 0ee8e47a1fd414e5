package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deepteaching86-gif/deepreading/internal/itembank"
	"github.com/deepteaching86-gif/deepreading/internal/report"
	"github.com/deepteaching86-gif/deepreading/internal/simulate"
	"github.com/deepteaching86-gif/deepreading/internal/store"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run simulated examinees through the test to check recovery and exposure",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)

		var pool []store.Item
		if bank, _ := cmd.Flags().GetString("bank"); bank != "" {
			items, err := itembank.Load(bank)
			if err != nil {
				return err
			}
			pool = items
		} else {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			items, err := st.ItemRepo().List(ctx, store.ItemFilter{})
			if err != nil {
				return err
			}
			pool = items
		}

		opts := simulate.DefaultOptions()
		opts.Selection = env.cfg.Selection
		opts.Estimator = env.cfg.Estimator
		opts.MST = env.cfg.MST
		opts.Scale = env.cfg.Scale
		if env.cfg.Seed != 0 {
			opts.Seed = env.cfg.Seed
		}
		opts.Examinees, _ = cmd.Flags().GetInt("examinees")
		opts.Concurrency, _ = cmd.Flags().GetInt("concurrency")
		opts.FormID, _ = cmd.Flags().GetInt("form")
		opts.TrueMean, _ = cmd.Flags().GetFloat64("mean")
		opts.TrueSD, _ = cmd.Flags().GetFloat64("sd")

		env.log.Info("simulation started",
			zap.Int("examinees", opts.Examinees),
			zap.Int("pool", len(pool)),
			zap.Uint64("seed", opts.Seed))

		rep, err := simulate.Run(ctx, pool, opts)
		if err != nil {
			return fmt.Errorf("simulate: %w", err)
		}
		return render(cmd, rep, func() string { return report.Simulation(rep) })
	},
}

func init() {
	simulateCmd.Flags().String("bank", "", "Item bank file to simulate against instead of the database")
	simulateCmd.Flags().Int("examinees", 1000, "Number of simulated examinees")
	simulateCmd.Flags().Int("concurrency", 1, "Parallel workers (results are reproducible only with 1)")
	simulateCmd.Flags().Int("form", 0, "Restrict to one form (0 = all)")
	simulateCmd.Flags().Float64("mean", 0, "Mean of the true ability distribution")
	simulateCmd.Flags().Float64("sd", 1, "SD of the true ability distribution")
}
