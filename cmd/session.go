package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deepteaching86-gif/deepreading/internal/feedback"
	"github.com/deepteaching86-gif/deepreading/internal/irt"
	"github.com/deepteaching86-gif/deepreading/internal/llm"
	"github.com/deepteaching86-gif/deepreading/internal/mst"
	"github.com/deepteaching86-gif/deepreading/internal/report"
	"github.com/deepteaching86-gif/deepreading/internal/selection"
	"github.com/deepteaching86-gif/deepreading/internal/session"
	"github.com/deepteaching86-gif/deepreading/internal/store"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Run adaptive test sessions",
}

// newSessionService wires the engine over st. gen may be nil.
func newSessionService(st *store.Store, gen session.FeedbackGenerator) (*session.Service, error) {
	cfg := env.cfg
	est, err := irt.NewEstimator(cfg.Estimator)
	if err != nil {
		return nil, err
	}
	router, err := mst.NewRouter(cfg.MST)
	if err != nil {
		return nil, err
	}
	return session.NewService(session.Deps{
		Items:     st.ItemRepo(),
		Sessions:  st.SessionRepo(),
		Responses: st.ResponseRepo(),
		Estimator: est,
		Router:    router,
		Selector:  selection.NewSelector(cfg.Selection, selection.NewLockedSource(selectionSeed())),
		Scale:     cfg.Scale,
		Feedback:  gen,
		Metrics:   env.metrics,
		Logger:    env.log,
		Config:    cfg.Session,
	})
}

// newFeedbackGenerator builds the LLM-backed feedback service. LLM calls
// are recorded in st's event log.
func newFeedbackGenerator(ctx context.Context, st *store.Store) (*feedback.Service, error) {
	cfg, err := env.cfg.LLM.Resolve()
	if err != nil {
		return nil, err
	}
	provider, err := llm.NewProvider(ctx, cfg, st.EventRepo(), env.log)
	if err != nil {
		return nil, err
	}
	return feedback.NewService(provider, env.cfg.Feedback), nil
}

var sessionStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new test session and show the first item",
	RunE: func(cmd *cobra.Command, args []string) error {
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
		res, err := svc.Start(commandContext(cmd), user)
		if err != nil {
			return err
		}
		return render(cmd, res, func() string { return report.Started(res) })
	},
}

var sessionAnswerCmd = &cobra.Command{
	Use:   "answer <session-id> <item-id> <answer>",
	Short: "Submit an answer and show the next item",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ms, _ := cmd.Flags().GetInt64("time-ms")

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		svc, err := newSessionService(st, nil)
		if err != nil {
			return err
		}
		res, err := svc.Submit(commandContext(cmd), session.SubmitInput{
			SessionID:      args[0],
			ItemID:         args[1],
			Answer:         args[2],
			ResponseTimeMs: ms,
		})
		if err != nil {
			return err
		}
		return render(cmd, res, func() string { return report.Submitted(res) })
	},
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status <session-id>",
	Short: "Show a session's progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		svc, err := newSessionService(st, nil)
		if err != nil {
			return err
		}
		res, err := svc.Status(commandContext(cmd), args[0])
		if err != nil {
			return err
		}
		return render(cmd, res, func() string { return report.Status(res) })
	},
}

var sessionFinalizeCmd = &cobra.Command{
	Use:   "finalize <session-id>",
	Short: "Score a session and print the proficiency report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		var gen session.FeedbackGenerator
		if want, _ := cmd.Flags().GetBool("feedback"); want {
			fb, err := newFeedbackGenerator(ctx, st)
			if err != nil {
				// The report is still produced without narrative feedback.
				env.log.Warn("feedback disabled", zap.Error(err))
			} else {
				gen = fb
				if t := env.cfg.LLM.Timeout; t > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, t)
					defer cancel()
				}
			}
		}

		svc, err := newSessionService(st, gen)
		if err != nil {
			return err
		}
		res, err := svc.Finalize(ctx, args[0])
		if err != nil {
			return err
		}
		return render(cmd, res, func() string { return report.Final(res) })
	},
}

func init() {
	sessionStartCmd.Flags().StringP("user", "u", "", "Test taker id")
	_ = sessionStartCmd.MarkFlagRequired("user")

	sessionAnswerCmd.Flags().Int64("time-ms", 0, "Response time in milliseconds")

	sessionFinalizeCmd.Flags().Bool("feedback", false, "Generate narrative feedback with the configured LLM")

	sessionCmd.AddCommand(sessionStartCmd)
	sessionCmd.AddCommand(sessionAnswerCmd)
	sessionCmd.AddCommand(sessionStatusCmd)
	sessionCmd.AddCommand(sessionFinalizeCmd)
}
