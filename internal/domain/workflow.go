package domain

// Workflow is a finite-state machine shared in shape by financing
// applications and enterprise orders. It is pure data: transitions are a map
// from a state to the states reachable from it, and Terminal marks the states
// that reject all further moves.
type Workflow struct {
	Initial     string
	Transitions map[string][]string
	Terminal    map[string]struct{}
}

// CanTransition reports whether moving from one state to another is allowed.
func (w Workflow) CanTransition(from, to string) bool {
	for _, allowed := range w.Transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the state rejects all further transitions.
func (w Workflow) IsTerminal(state string) bool {
	_, ok := w.Terminal[state]
	return ok
}

// Known reports whether the state belongs to this workflow at all.
func (w Workflow) Known(state string) bool {
	if _, ok := w.Terminal[state]; ok {
		return true
	}
	_, ok := w.Transitions[state]
	return ok
}

// TerminalStates returns the terminal states as a slice, for use in
// NOT-IN guards.
func (w Workflow) TerminalStates() []string {
	states := make([]string, 0, len(w.Terminal))
	for s := range w.Terminal {
		states = append(states, s)
	}
	return states
}

// AllowedSources returns every state from which the given target state is
// reachable. Repositories use this as the guard predicate of a transition
// UPDATE so the check and the write happen atomically.
func (w Workflow) AllowedSources(to string) []string {
	var sources []string
	for from, tos := range w.Transitions {
		for _, t := range tos {
			if t == to {
				sources = append(sources, from)
				break
			}
		}
	}
	return sources
}

// Financing application states.
const (
	StatusPending    = "pending"
	StatusBankReview = "bank_review"
	StatusApproved   = "approved"
	StatusConfirmed  = "confirmed"
	StatusCompleted  = "completed"
	StatusRejected   = "rejected"
)

// Enterprise order states beyond the shared shape: after confirmation the
// order moves through the fulfillment tail instead of a single "completed".
const (
	StatusCreditCheck = "credit_check"
	StatusProcessing  = "processing"
	StatusShipped     = "shipped"
	StatusDelivered   = "delivered"
)

// FinancingWorkflow: pending → bank_review → approved → confirmed →
// completed, with rejected reachable from pending or bank_review.
var FinancingWorkflow = Workflow{
	Initial: StatusPending,
	Transitions: map[string][]string{
		StatusPending:    {StatusBankReview, StatusApproved, StatusRejected},
		StatusBankReview: {StatusApproved, StatusRejected},
		StatusApproved:   {StatusConfirmed},
		StatusConfirmed:  {StatusCompleted},
	},
	Terminal: map[string]struct{}{
		StatusCompleted: {},
		StatusRejected:  {},
	},
}

// EnterpriseWorkflow mirrors the financing shape up to confirmation, then
// completes through processing/shipped/delivered.
var EnterpriseWorkflow = Workflow{
	Initial: StatusPending,
	Transitions: map[string][]string{
		StatusPending:     {StatusCreditCheck, StatusApproved, StatusRejected},
		StatusCreditCheck: {StatusApproved, StatusRejected},
		StatusApproved:    {StatusConfirmed},
		StatusConfirmed:   {StatusProcessing},
		StatusProcessing:  {StatusShipped},
		StatusShipped:     {StatusDelivered},
	},
	Terminal: map[string]struct{}{
		StatusDelivered: {},
		StatusRejected:  {},
	},
}
