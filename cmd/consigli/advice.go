package main

import (
	"consigli/internal/core"

	"github.com/spf13/cobra"
)

func analyzeCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Generate and store a new advisory from the current expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := st.app(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			adv, err := app.Advisor.Analyze(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), adviceOutput(adv))
		},
	}
}

func adviceCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "advice <id>",
		Short: "Show a stored advisory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			app, err := st.app(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			adv, err := app.Advisor.GetAdvice(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), adviceOutput(adv))
		},
	}
}

func feedbackCmd(st *rootState) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:     "feedback <id> <decision>",
		Short:   "Record the user's decision on an advisory",
		Example: `  consigli feedback 3 ACCEPTED --reason "cutting takeaway this month"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			app, err := st.app(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			adv, err := app.Advisor.SubmitFeedback(cmd.Context(), id, core.Feedback{
				Decision: args[1],
				Reason:   reason,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), adviceOutput(adv))
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "optional free-text reason")
	return cmd
}

func summaryCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print total spend, the category breakdown, the monthly trend and anomalies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := st.app(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			s, err := app.Analyzer.Summary(cmd.Context())
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), s)
		},
	}
}
