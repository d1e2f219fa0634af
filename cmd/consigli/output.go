package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"consigli/internal/analysis"
	"consigli/internal/core"
)

type expenseJSON struct {
	ID                int64  `json:"id"`
	Description       string `json:"description"`
	Amount            string `json:"amount"`
	PredictedCategory string `json:"predictedCategory"`
	FinalCategory     string `json:"finalCategory,omitempty"`
	Date              string `json:"date"`
}

func expenseOutput(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:                e.ID,
		Description:       e.Description,
		Amount:            e.Amount.StringFixed(2),
		PredictedCategory: e.PredictedCategory,
		FinalCategory:     e.FinalCategory,
		Date:              e.Date.String(),
	}
}

type adviceJSON struct {
	ID           int64  `json:"id"`
	Category     string `json:"category"`
	Message      string `json:"message"`
	Suggestion   string `json:"suggestion"`
	Confidence   string `json:"confidence"`
	UserDecision string `json:"userDecision,omitempty"`
	UserReason   string `json:"userReason,omitempty"`
	CreatedAt    string `json:"createdAt"`
}

func adviceOutput(a core.Advice) adviceJSON {
	return adviceJSON{
		ID:           a.ID,
		Category:     a.Category,
		Message:      a.Message,
		Suggestion:   a.Suggestion,
		Confidence:   string(a.Confidence),
		UserDecision: a.UserDecision,
		UserReason:   a.UserReason,
		CreatedAt:    a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printExpenseTable(w io.Writer, expenses []core.Expense) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tAMOUNT\tCATEGORY\tDESCRIPTION")
	for _, e := range expenses {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.Date, e.Amount.StringFixed(2), e.EffectiveCategory(), e.Description)
	}
	return tw.Flush()
}

func printSummary(w io.Writer, s core.SpendingSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total\t%s\n", s.Total.StringFixed(2))
	fmt.Fprintf(tw, "Trend\t%s%% (%s)\n", s.Trend.StringFixed(1), s.Direction)
	if len(s.RiskFlags) > 0 {
		fmt.Fprintf(tw, "Risks\t%s\n", strings.Join(s.RiskFlags, ", "))
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "CATEGORY\tAMOUNT\tSHARE")
	for _, c := range s.ByCategory {
		fmt.Fprintf(tw, "%s\t%s\t%s%%\n", c.Name, c.Amount.StringFixed(2), analysis.Percent(c.Amount, s.Total).StringFixed(1))
	}
	if len(s.Anomalies) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "ANOMALY\tPREVIOUS\tCURRENT\tCHANGE")
		for _, a := range s.Anomalies {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s%%\n", a.Code(), a.Previous.StringFixed(2), a.Current.StringFixed(2), a.ChangePercent.StringFixed(1))
		}
	}
	return tw.Flush()
}
