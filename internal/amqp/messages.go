package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"consigli/internal/core"
)

// Routing keys of the events published on the topic exchange.
const (
	RoutingExpenseRecorded = "expense.recorded"
	RoutingAdviceGenerated = "advice.generated"
	RoutingAdviceFeedback  = "advice.feedback"
)

// Event is the envelope of every published message. Exactly one of Expense
// and Advice is set, depending on Type.
type Event struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Expense   *ExpensePayload `json:"expense,omitempty"`
	Advice    *AdvicePayload  `json:"advice,omitempty"`
}

type ExpensePayload struct {
	ID                int64  `json:"id"`
	Description       string `json:"description"`
	Amount            string `json:"amount"`
	PredictedCategory string `json:"predicted_category"`
	FinalCategory     string `json:"final_category,omitempty"`
	Date              string `json:"date"`
}

type AdvicePayload struct {
	ID           int64  `json:"id"`
	Category     string `json:"category"`
	Message      string `json:"message"`
	Confidence   string `json:"confidence"`
	UserDecision string `json:"user_decision,omitempty"`
	UserReason   string `json:"user_reason,omitempty"`
}

func NewExpenseEvent(e core.Expense) *Event {
	return &Event{
		Type:      RoutingExpenseRecorded,
		Timestamp: time.Now().UTC(),
		Expense: &ExpensePayload{
			ID:                e.ID,
			Description:       e.Description,
			Amount:            e.Amount.String(),
			PredictedCategory: e.PredictedCategory,
			FinalCategory:     e.FinalCategory,
			Date:              e.Date.String(),
		},
	}
}

// NewAdviceEvent builds an advice event; routingKey is RoutingAdviceGenerated
// or RoutingAdviceFeedback.
func NewAdviceEvent(routingKey string, a core.Advice) *Event {
	return &Event{
		Type:      routingKey,
		Timestamp: time.Now().UTC(),
		Advice: &AdvicePayload{
			ID:           a.ID,
			Category:     a.Category,
			Message:      a.Message,
			Confidence:   string(a.Confidence),
			UserDecision: a.UserDecision,
			UserReason:   a.UserReason,
		},
	}
}

// ToJSON converts the event to JSON bytes
func (m *Event) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EventFromJSON decodes an event and checks that its payload matches its type.
func EventFromJSON(data []byte) (*Event, error) {
	var msg Event
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case RoutingExpenseRecorded:
		if msg.Expense == nil {
			return nil, fmt.Errorf("event %s without expense payload", msg.Type)
		}
	case RoutingAdviceGenerated, RoutingAdviceFeedback:
		if msg.Advice == nil {
			return nil, fmt.Errorf("event %s without advice payload", msg.Type)
		}
	default:
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	return &msg, nil
}
