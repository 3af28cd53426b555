package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records(statuses ...ApprovalStatus) []ApprovalRecord {
	out := make([]ApprovalRecord, len(statuses))
	for i, s := range statuses {
		out[i] = ApprovalRecord{Status: s, VersionReviewed: 1}
	}
	return out
}

func TestComputeStatus(t *testing.T) {
	tests := []struct {
		name        string
		records     []ApprovalRecord
		want        AssetStatus
		wantChanged bool
	}{
		{"empty set is a no-op", nil, "", false},
		{"single pending", records(ApprovalPending), "", false},
		{"pending and approved stays in review", records(ApprovalApproved, ApprovalPending), "", false},
		{"all approved", records(ApprovalApproved, ApprovalApproved, ApprovalApproved), AssetApproved, true},
		{"single approved", records(ApprovalApproved), AssetApproved, true},
		{"rejection overrides approvals", records(ApprovalApproved, ApprovalApproved, ApprovalRejected), AssetRejected, true},
		{"rejection overrides change request", records(ApprovalChangesRequested, ApprovalRejected), AssetRejected, true},
		{"rejection with pending", records(ApprovalPending, ApprovalRejected), AssetRejected, true},
		{"change request with approvals", records(ApprovalApproved, ApprovalChangesRequested), AssetChangesRequested, true},
		{"change request with pending", records(ApprovalPending, ApprovalChangesRequested), AssetChangesRequested, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := ComputeStatus(tt.records)
			assert.Equal(t, tt.wantChanged, changed)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeStatus_RejectedAnywhereWins(t *testing.T) {
	// Every position and every mix of other statuses still yields rejected.
	others := []ApprovalStatus{ApprovalPending, ApprovalApproved, ApprovalChangesRequested}
	for size := 1; size <= 4; size++ {
		for pos := 0; pos < size; pos++ {
			for _, other := range others {
				set := make([]ApprovalRecord, size)
				for i := range set {
					set[i] = ApprovalRecord{Status: other}
				}
				set[pos].Status = ApprovalRejected
				got, changed := ComputeStatus(set)
				require.True(t, changed)
				assert.Equal(t, AssetRejected, got, "size=%d pos=%d other=%s", size, pos, other)
			}
		}
	}
}

// The chain type is stored on the chain but not consulted here: a
// sequential chain with a pending first approver and an approved second
// approver is still evaluated as a whole. Gating later approvers on earlier
// ones is an open product question.
func TestComputeStatus_IgnoresChainOrdering(t *testing.T) {
	set := []ApprovalRecord{
		{UserID: "first", Status: ApprovalPending},
		{UserID: "second", Status: ApprovalRejected},
	}
	got, changed := ComputeStatus(set)
	require.True(t, changed)
	assert.Equal(t, AssetRejected, got)
}

func TestActiveRecords(t *testing.T) {
	set := []ApprovalRecord{
		{ID: "a", VersionReviewed: 1, Status: ApprovalRejected},
		{ID: "b", VersionReviewed: 2, Status: ApprovalApproved},
		{ID: "c", VersionReviewed: 2, Status: ApprovalPending},
	}

	active := ActiveRecords(set, 2)
	require.Len(t, active, 2)
	assert.Equal(t, "b", active[0].ID)
	assert.Equal(t, "c", active[1].ID)

	// The stale rejection from version 1 does not leak into version 2.
	_, changed := ComputeStatus(active)
	assert.False(t, changed)

	assert.Empty(t, ActiveRecords(set, 3))
}

func TestNextVersion(t *testing.T) {
	tests := []struct {
		name     string
		status   AssetStatus
		version  int
		reviewed bool
		want     int
		wantErr  bool
	}{
		{"first submission from draft", AssetDraft, 1, false, 1, false},
		{"restored draft with history", AssetDraft, 2, true, 3, false},
		{"changes requested bumps", AssetChangesRequested, 1, true, 2, false},
		{"changes requested bumps again", AssetChangesRequested, 4, true, 5, false},
		{"rejected bumps", AssetRejected, 1, true, 2, false},
		{"zero version treated as one", AssetDraft, 0, false, 1, false},
		{"in review refused", AssetInReview, 1, true, 0, true},
		{"approved refused", AssetApproved, 1, true, 0, true},
		{"published refused", AssetPublished, 1, true, 0, true},
		{"archived refused", AssetArchived, 1, true, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextVersion(tt.status, tt.version, tt.reviewed)
			if tt.wantErr {
				var te *TransitionError
				require.True(t, errors.As(err, &te))
				assert.Equal(t, CodeSubmitNotAllowed, te.Code)
				assert.Equal(t, tt.status, te.From)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecomputable(t *testing.T) {
	assert.False(t, recomputable(AssetDraft))
	assert.False(t, recomputable(AssetPublished))
	assert.False(t, recomputable(AssetArchived))
	assert.True(t, recomputable(AssetInReview))
	assert.True(t, recomputable(AssetApproved))
	assert.True(t, recomputable(AssetChangesRequested))
	assert.True(t, recomputable(AssetRejected))
}
