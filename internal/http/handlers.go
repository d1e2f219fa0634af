package http

import (
	"net/http"

	"consigli/internal/core"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorFor(r, err).Write(w)
		return
	}

	e, err := s.deps.Expenses.RecordExpense(r.Context(), req.Description, *req.Amount)
	if err != nil {
		errorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(newExpenseView(e)).Write(w)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.deps.Expenses.ListExpenses(r.Context())
	if err != nil {
		errorFor(r, err).Write(w)
		return
	}
	views := make([]expenseView, 0, len(expenses))
	for _, e := range expenses {
		views = append(views, newExpenseView(e))
	}
	NewJSONResponse().Body(views).Write(w)
}

func (s *Server) handleOverrideCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		errorFor(r, err).Write(w)
		return
	}
	var req overrideCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorFor(r, err).Write(w)
		return
	}

	e, err := s.deps.Expenses.OverrideCategory(r.Context(), id, req.Category)
	if err != nil {
		errorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(newExpenseView(e)).Write(w)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	adv, err := s.deps.Advisor.Analyze(r.Context())
	if err != nil {
		errorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(newAdviceView(adv)).Write(w)
}

func (s *Server) handleGetAdvice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		errorFor(r, err).Write(w)
		return
	}
	adv, err := s.deps.Advisor.GetAdvice(r.Context(), id)
	if err != nil {
		errorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(newAdviceView(adv)).Write(w)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		errorFor(r, err).Write(w)
		return
	}
	var req feedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorFor(r, err).Write(w)
		return
	}

	adv, err := s.deps.Advisor.SubmitFeedback(r.Context(), id, core.Feedback{
		Decision: req.Decision,
		Reason:   req.Reason,
	})
	if err != nil {
		errorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(newAdviceView(adv)).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.deps.Summary.Summary(r.Context())
	if err != nil {
		errorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(newSummaryView(summary)).Write(w)
}
