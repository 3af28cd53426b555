package workflow

import "fmt"

// Transition error codes.
const (
	CodeTransitionDenied  = "LIFECYCLE_TRANSITION_DENIED"
	CodeInvalidTransition = "LIFECYCLE_INVALID_TRANSITION"
	CodeSubmitNotAllowed  = "LIFECYCLE_SUBMIT_NOT_ALLOWED"
)

// TransitionRule defines an allowed admin status transition.
type TransitionRule struct {
	From AssetStatus
	To   AssetStatus
}

// DefaultTransitions are the explicit admin transitions. Review outcomes
// (approved, changes_requested, rejected) are derived by ComputeStatus and
// in_review is entered by submission, so none of them appear here.
var DefaultTransitions = []TransitionRule{
	{From: AssetApproved, To: AssetPublished},
	{From: AssetApproved, To: AssetArchived},
	{From: AssetPublished, To: AssetArchived},
	{From: AssetArchived, To: AssetDraft},
}

// DisallowedTransitions are explicitly forbidden (return specific error).
var DisallowedTransitions = map[AssetStatus][]AssetStatus{
	AssetDraft:            {AssetPublished, AssetApproved},
	AssetInReview:         {AssetPublished, AssetApproved},
	AssetChangesRequested: {AssetPublished, AssetApproved},
	AssetRejected:         {AssetPublished, AssetApproved},
	AssetArchived:         {AssetPublished},
}

// LifecycleMachine validates admin status transitions.
type LifecycleMachine struct {
	transitions []TransitionRule
	disallowed  map[AssetStatus][]AssetStatus
}

// NewLifecycleMachine creates a machine with default rules.
func NewLifecycleMachine() *LifecycleMachine {
	return &LifecycleMachine{
		transitions: DefaultTransitions,
		disallowed:  DisallowedTransitions,
	}
}

// ValidateTransition checks if a transition from->to is allowed.
// Returns nil if allowed, a *TransitionError with a machine-readable code if not.
func (m *LifecycleMachine) ValidateTransition(from, to AssetStatus) error {
	// Same state is a no-op, allow it.
	if from == to {
		return nil
	}

	if disallowed, ok := m.disallowed[from]; ok {
		for _, d := range disallowed {
			if d == to {
				return &TransitionError{
					Code:    CodeTransitionDenied,
					From:    from,
					To:      to,
					Message: fmt.Sprintf("transition from %s to %s is not allowed", from, to),
				}
			}
		}
	}

	for _, t := range m.transitions {
		if t.From == from && t.To == to {
			return nil
		}
	}

	return &TransitionError{
		Code:    CodeInvalidTransition,
		From:    from,
		To:      to,
		Message: fmt.Sprintf("no transition defined from %s to %s", from, to),
	}
}

// AllowedTransitions returns all valid target states from the given state.
func (m *LifecycleMachine) AllowedTransitions(from AssetStatus) []AssetStatus {
	var allowed []AssetStatus
	for _, t := range m.transitions {
		if t.From == from {
			allowed = append(allowed, t.To)
		}
	}
	return allowed
}

// TransitionError is a structured error for invalid transitions.
type TransitionError struct {
	Code    string      `json:"code"`
	From    AssetStatus `json:"from"`
	To      AssetStatus `json:"to"`
	Message string      `json:"message"`
}

func (e *TransitionError) Error() string {
	return e.Message
}
