package main

import (
	"fmt"
	"strconv"
	"strings"

	"consigli/internal/core"

	"github.com/spf13/cobra"
)

func expenseCmd(st *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expense",
		Short: "Record, list and recategorize expenses",
	}
	cmd.AddCommand(expenseAddCmd(st), expenseListCmd(st), expenseOverrideCmd(st))
	return cmd
}

func expenseAddCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:     "add <description> <amount>",
		Short:   "Record an expense dated today; the category comes from the classifier",
		Example: `  consigli expense add "Grocery run" 42.50`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := core.ParseAmount(args[1])
			if err != nil {
				return fmt.Errorf("amount %q: %w", args[1], err)
			}

			app, err := st.app(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			e, err := app.Expenses.RecordExpense(cmd.Context(), args[0], amount)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), expenseOutput(e))
		},
	}
}

func expenseListCmd(st *rootState) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := st.app(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			expenses, err := app.Expenses.ListExpenses(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				out := make([]expenseJSON, 0, len(expenses))
				for _, e := range expenses {
					out = append(out, expenseOutput(e))
				}
				return printJSON(cmd.OutOrStdout(), out)
			}
			return printExpenseTable(cmd.OutOrStdout(), expenses)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func expenseOverrideCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "override <id> <category>",
		Short: "Set the final category of an expense",
		Args:  cobra.ExactArgs(2),
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

			e, err := app.Expenses.OverrideCategory(cmd.Context(), id, args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), expenseOutput(e))
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
