package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deepteaching86-gif/deepreading/internal/tui"
)

var takeCmd = &cobra.Command{
	Use:   "take",
	Short: "Take a test interactively in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		user, _ := cmd.Flags().GetString("user")

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		svc, err := newSessionService(st, nil)
		if err != nil {
			return err
		}
		m, err := tui.Run(ctx, svc, user)
		if err != nil {
			return fmt.Errorf("run test: %w", err)
		}
		if m.Result() == nil && m.SessionID() != "" {
			env.log.Info("session paused", zap.String("session_id", m.SessionID()))
			fmt.Printf("Session %s paused. Resume with: deepreading session status %s\n", m.SessionID(), m.SessionID())
		}
		return nil
	},
}

func init() {
	takeCmd.Flags().StringP("user", "u", "", "Test taker id (prompted when empty)")
	rootCmd.AddCommand(takeCmd)
}
