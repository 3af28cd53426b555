package workflow

// ComputeStatus derives an asset's status from its active approval records.
// The second return value is false when the records imply no change.
//
// Precedence: any rejection wins, then any change request, then unanimous
// approval. An empty set, or a mix of pending and approved records, leaves
// the status as it is. The chain type is not consulted: every active record
// is evaluated regardless of whether the chain is parallel or sequential.
func ComputeStatus(records []ApprovalRecord) (AssetStatus, bool) {
	if len(records) == 0 {
		return "", false
	}

	approved := 0
	changesRequested := false
	for _, r := range records {
		switch r.Status {
		case ApprovalRejected:
			return AssetRejected, true
		case ApprovalChangesRequested:
			changesRequested = true
		case ApprovalApproved:
			approved++
		}
	}

	if changesRequested {
		return AssetChangesRequested, true
	}
	if approved == len(records) {
		return AssetApproved, true
	}
	return "", false
}

// ActiveRecords filters records to those reviewing the given asset version.
func ActiveRecords(records []ApprovalRecord, version int) []ApprovalRecord {
	var active []ApprovalRecord
	for _, r := range records {
		if r.VersionReviewed == version {
			active = append(active, r)
		}
	}
	return active
}

// recomputable reports whether the status engine may overwrite status.
// Draft, published and archived are set by explicit commands only.
func recomputable(status AssetStatus) bool {
	switch status {
	case AssetDraft, AssetPublished, AssetArchived:
		return false
	}
	return true
}

// NextVersion returns the version an asset is submitted at.
//
// A first submission from draft keeps the current version. A draft that
// already has review records at its version (an archived asset restored to
// draft) moves to a new version, as does a resubmission after changes were
// requested or the asset was rejected. Any other status cannot be submitted.
func NextVersion(status AssetStatus, version int, reviewedAtVersion bool) (int, error) {
	if version < 1 {
		version = 1
	}
	switch status {
	case AssetDraft:
		if reviewedAtVersion {
			return version + 1, nil
		}
		return version, nil
	case AssetChangesRequested, AssetRejected:
		return version + 1, nil
	}
	return 0, &TransitionError{
		Code:    CodeSubmitNotAllowed,
		From:    status,
		To:      AssetInReview,
		Message: "asset cannot be submitted for review while " + string(status),
	}
}
