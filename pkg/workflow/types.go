// Package workflow implements the asset approval workflow: approval chains,
// approver resolution, per-version approval records, the asset status
// engine, and the HTTP API around them.
package workflow

// AssetStatus is the lifecycle status of an asset.
type AssetStatus string

const (
	AssetDraft            AssetStatus = "draft"
	AssetInReview         AssetStatus = "in_review"
	AssetApproved         AssetStatus = "approved"
	AssetChangesRequested AssetStatus = "changes_requested"
	AssetRejected         AssetStatus = "rejected"
	AssetPublished        AssetStatus = "published"
	AssetArchived         AssetStatus = "archived"
)

// ValidAssetStatuses is the set of valid asset statuses.
var ValidAssetStatuses = map[AssetStatus]bool{
	AssetDraft:            true,
	AssetInReview:         true,
	AssetApproved:         true,
	AssetChangesRequested: true,
	AssetRejected:         true,
	AssetPublished:        true,
	AssetArchived:         true,
}

// LibraryStatuses are the statuses shown in the asset library.
var LibraryStatuses = []AssetStatus{AssetApproved, AssetPublished, AssetArchived}

// ApprovalStatus is the state of a single approver's record.
type ApprovalStatus string

const (
	ApprovalPending          ApprovalStatus = "pending"
	ApprovalApproved         ApprovalStatus = "approved"
	ApprovalChangesRequested ApprovalStatus = "changes_requested"
	ApprovalRejected         ApprovalStatus = "rejected"
)

// IsDecision reports whether s is a terminal decision an approver can record.
func (s ApprovalStatus) IsDecision() bool {
	switch s {
	case ApprovalApproved, ApprovalChangesRequested, ApprovalRejected:
		return true
	}
	return false
}

// ChainType controls how a chain's approvers are sequenced.
type ChainType string

const (
	ChainParallel   ChainType = "parallel"
	ChainSequential ChainType = "sequential"
)

// Valid reports whether t is a known chain type.
func (t ChainType) Valid() bool {
	return t == ChainParallel || t == ChainSequential
}

// ContentCategory selects which approval chain applies to an asset.
type ContentCategory string

const (
	CategoryPartnership ContentCategory = "partnership"
	CategoryProduct     ContentCategory = "product"
	CategoryCollecting  ContentCategory = "collecting"
	CategorySpotlight   ContentCategory = "spotlight"
	CategoryHype        ContentCategory = "hype"
	CategoryPR          ContentCategory = "pr"
	CategoryTrust       ContentCategory = "trust"
)

// ValidCategories is the set of valid content categories.
var ValidCategories = map[ContentCategory]bool{
	CategoryPartnership: true,
	CategoryProduct:     true,
	CategoryCollecting:  true,
	CategorySpotlight:   true,
	CategoryHype:        true,
	CategoryPR:          true,
	CategoryTrust:       true,
}

// AssetFormat describes the media format of an asset.
type AssetFormat string

const (
	FormatStatic     AssetFormat = "static"
	FormatCarousel   AssetFormat = "carousel"
	FormatShortVideo AssetFormat = "short_video"
	FormatLongVideo  AssetFormat = "long_video"
	FormatStory      AssetFormat = "story"
	FormatDocument   AssetFormat = "document"
)

// ValidFormats is the set of valid asset formats.
var ValidFormats = map[AssetFormat]bool{
	FormatStatic:     true,
	FormatCarousel:   true,
	FormatShortVideo: true,
	FormatLongVideo:  true,
	FormatStory:      true,
	FormatDocument:   true,
}

// SourceStation records where the content was captured.
type SourceStation string

const (
	StationField    SourceStation = "field"
	StationPackRips SourceStation = "pack_rips"
	StationSocial   SourceStation = "social"
	StationVNR      SourceStation = "vnr"
	StationSigning  SourceStation = "signing"
	StationNA       SourceStation = "na"
)

// ValidStations is the set of valid source stations.
var ValidStations = map[SourceStation]bool{
	StationField:    true,
	StationPackRips: true,
	StationSocial:   true,
	StationVNR:      true,
	StationSigning:  true,
	StationNA:       true,
}
