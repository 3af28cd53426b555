package workflow

import (
	"errors"
	"testing"
)

func TestLifecycleMachine_ValidateTransition(t *testing.T) {
	m := NewLifecycleMachine()

	tests := []struct {
		name    string
		from    AssetStatus
		to      AssetStatus
		wantErr bool
		errCode string
	}{
		// Valid transitions
		{"approved to published", AssetApproved, AssetPublished, false, ""},
		{"approved to archived", AssetApproved, AssetArchived, false, ""},
		{"published to archived", AssetPublished, AssetArchived, false, ""},
		{"archived to draft", AssetArchived, AssetDraft, false, ""},
		{"same state no-op", AssetPublished, AssetPublished, false, ""},

		// Denied transitions
		{"draft to published denied", AssetDraft, AssetPublished, true, CodeTransitionDenied},
		{"in review to published denied", AssetInReview, AssetPublished, true, CodeTransitionDenied},
		{"in review to approved denied", AssetInReview, AssetApproved, true, CodeTransitionDenied},
		{"rejected to published denied", AssetRejected, AssetPublished, true, CodeTransitionDenied},
		{"archived to published denied", AssetArchived, AssetPublished, true, CodeTransitionDenied},

		// Undefined transitions
		{"draft to archived", AssetDraft, AssetArchived, true, CodeInvalidTransition},
		{"published to draft", AssetPublished, AssetDraft, true, CodeInvalidTransition},
		{"approved to in review", AssetApproved, AssetInReview, true, CodeInvalidTransition},
		{"in review to rejected", AssetInReview, AssetRejected, true, CodeInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.ValidateTransition(tt.from, tt.to)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTransition(%s, %s) error = %v, wantErr %v", tt.from, tt.to, err, tt.wantErr)
			}
			if tt.wantErr && tt.errCode != "" {
				var te *TransitionError
				if !errors.As(err, &te) {
					t.Errorf("expected TransitionError, got %T", err)
				} else if te.Code != tt.errCode {
					t.Errorf("expected code %s, got %s", tt.errCode, te.Code)
				}
			}
		})
	}
}

func TestLifecycleMachine_AllowedTransitions(t *testing.T) {
	m := NewLifecycleMachine()

	tests := []struct {
		name     string
		from     AssetStatus
		expected int
	}{
		{"draft has none", AssetDraft, 0},
		{"approved has 2 transitions", AssetApproved, 2}, // published or archived
		{"published has 1 transition", AssetPublished, 1},
		{"archived has 1 transition", AssetArchived, 1}, // restore to draft
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.AllowedTransitions(tt.from)
			if len(got) != tt.expected {
				t.Errorf("AllowedTransitions(%s) = %d states, want %d (got: %v)", tt.from, len(got), tt.expected, got)
			}
		})
	}
}

func TestTransitionError_Error(t *testing.T) {
	err := &TransitionError{
		Code:    CodeTransitionDenied,
		From:    AssetDraft,
		To:      AssetPublished,
		Message: "transition from draft to published is not allowed",
	}
	want := "transition from draft to published is not allowed"
	if got := err.Error(); got != want {
		t.Errorf("TransitionError.Error() = %q, want %q", got, want)
	}
}
