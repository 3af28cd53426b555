package workflow

import (
	"encoding/json"
	"time"

	"github.com/partnershiphub/hub/pkg/authz"
)

// Asset is the API representation of an asset.
type Asset struct {
	ID              string          `json:"id"`
	ProjectID       string          `json:"projectId"`
	PhaseID         string          `json:"phaseId,omitempty"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	ContentCategory ContentCategory `json:"contentCategory"`
	Platforms       []string        `json:"platforms"`
	Format          AssetFormat     `json:"format,omitempty"`
	SourceStation   SourceStation   `json:"sourceStation,omitempty"`
	ExternalURL     string          `json:"externalUrl,omitempty"`
	ThumbnailURL    string          `json:"thumbnailUrl,omitempty"`
	ApprovalDue     string          `json:"approvalDue,omitempty"`
	PublishDate     string          `json:"publishDate,omitempty"`
	Status          AssetStatus     `json:"status"`
	Version         int             `json:"version"`
	CreatedBy       string          `json:"createdBy"`
	CreatedAt       string          `json:"createdAt"`
	UpdatedAt       string          `json:"updatedAt"`
	AthleteIDs      []string        `json:"athleteIds,omitempty"`
	ClubIDs         []string        `json:"clubIds,omitempty"`
	Approvals       []Approval      `json:"approvals,omitempty"`
	Comments        []Comment       `json:"comments,omitempty"`
	// AllowedTransitions lists the statuses an admin may move the asset to.
	AllowedTransitions []AssetStatus `json:"allowedTransitions,omitempty"`
}

// AssetList is a page of assets.
type AssetList struct {
	Assets        []Asset `json:"assets"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
	TotalSize     int     `json:"totalSize"`
}

// Approval is the API representation of an approval record.
type Approval struct {
	ID              string         `json:"id"`
	AssetID         string         `json:"assetId"`
	UserID          string         `json:"userId"`
	Status          ApprovalStatus `json:"status"`
	Comment         string         `json:"comment,omitempty"`
	RespondedAt     string         `json:"respondedAt,omitempty"`
	VersionReviewed int            `json:"versionReviewed"`
	CreatedAt       string         `json:"createdAt"`
	AssetTitle      string         `json:"assetTitle,omitempty"`
	AssetStatus     AssetStatus    `json:"assetStatus,omitempty"`
	ApprovalDue     string         `json:"approvalDue,omitempty"`
}

// Comment is the API representation of a comment, with its replies.
type Comment struct {
	ID        string    `json:"id"`
	AssetID   string    `json:"assetId"`
	UserID    string    `json:"userId"`
	ParentID  string    `json:"parentId,omitempty"`
	Body      string    `json:"body"`
	CreatedAt string    `json:"createdAt"`
	Replies   []Comment `json:"replies,omitempty"`
}

// Chain is the API representation of an approval chain.
type Chain struct {
	ID              string          `json:"id"`
	ContentCategory ContentCategory `json:"contentCategory"`
	RequiredRoles   []string        `json:"requiredRoles"`
	ChainType       ChainType       `json:"chainType"`
	UpdatedAt       string          `json:"updatedAt"`
}

// Member is the API representation of a project member.
type Member struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	Role         authz.Role `json:"role"`
	RoleLabel    string     `json:"roleLabel"`
	Email        string     `json:"email,omitempty"`
	FullName     string     `json:"fullName,omitempty"`
	Organization string     `json:"organization,omitempty"`
}

// Project is the API representation of a project.
type Project struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	StartDate   string     `json:"startDate,omitempty"`
	EndDate     string     `json:"endDate,omitempty"`
	Role        authz.Role `json:"role,omitempty"`
	CreatedAt   string     `json:"createdAt"`
}

// Phase is the API representation of a phase.
type Phase struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
	SortOrder int    `json:"sortOrder"`
}

// Club is the API representation of a club.
type Club struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Market string `json:"market,omitempty"`
}

// Athlete is the API representation of an athlete.
type Athlete struct {
	ID           string `json:"id"`
	FullName     string `json:"fullName"`
	ClubID       string `json:"clubId,omitempty"`
	ClubName     string `json:"clubName,omitempty"`
	HeadshotURL  string `json:"headshotUrl,omitempty"`
	EmbargoUntil string `json:"embargoUntil,omitempty"`
}

// ActivityEntry is the API representation of an activity log entry.
type ActivityEntry struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId,omitempty"`
	AssetID   string          `json:"assetId,omitempty"`
	Action    string          `json:"action"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt string          `json:"createdAt"`
}

// ActivityList is a page of activity entries.
type ActivityList struct {
	Entries       []ActivityEntry `json:"entries"`
	NextPageToken string          `json:"nextPageToken,omitempty"`
	TotalSize     int             `json:"totalSize"`
}

// DashboardResponse is the API representation of a project dashboard.
type DashboardResponse struct {
	Stats struct {
		TotalAssets      int `json:"totalAssets"`
		PendingApprovals int `json:"pendingApprovals"`
		Overdue          int `json:"overdue"`
		PublishedRecent  int `json:"publishedLast7Days"`
	} `json:"stats"`
	MyApprovals    []Approval      `json:"myApprovals"`
	Timeline       []TimelinePhase `json:"timeline"`
	RecentActivity []ActivityEntry `json:"recentActivity"`
}

// TimelinePhase is one phase of the dashboard timeline.
type TimelinePhase struct {
	Phase
	AssetCounts map[AssetStatus]int `json:"assetCounts"`
	TotalAssets int                 `json:"totalAssets"`
	Progress    string              `json:"progress"`
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var assetLifecycle = NewLifecycleMachine()

func recordToAsset(rec *AssetRecord) Asset {
	platforms := []string(rec.Platforms)
	if platforms == nil {
		platforms = []string{}
	}
	return Asset{
		ID:              rec.ID,
		ProjectID:       rec.ProjectID,
		PhaseID:         derefString(rec.PhaseID),
		Title:           rec.Title,
		Description:     rec.Description,
		ContentCategory: rec.ContentCategory,
		Platforms:       platforms,
		Format:          rec.Format,
		SourceStation:   rec.SourceStation,
		ExternalURL:     rec.ExternalURL,
		ThumbnailURL:    rec.ThumbnailURL,
		ApprovalDue:     formatTime(rec.ApprovalDue),
		PublishDate:     formatTime(rec.PublishDate),
		Status:          rec.Status,
		Version:         rec.Version,
		CreatedBy:       rec.CreatedBy,
		CreatedAt:       rec.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       rec.UpdatedAt.UTC().Format(time.RFC3339),

		AllowedTransitions: assetLifecycle.AllowedTransitions(rec.Status),
	}
}

func detailToAsset(d *AssetDetail) Asset {
	a := recordToAsset(&d.Asset)
	a.AthleteIDs = d.AthleteIDs
	a.ClubIDs = d.ClubIDs
	a.Approvals = recordsToApprovals(d.Approvals)
	a.Comments = nodesToComments(d.Comments)
	return a
}

func recordToApproval(rec *ApprovalRecord) Approval {
	return Approval{
		ID:              rec.ID,
		AssetID:         rec.AssetID,
		UserID:          rec.UserID,
		Status:          rec.Status,
		Comment:         rec.Comment,
		RespondedAt:     formatTime(rec.RespondedAt),
		VersionReviewed: rec.VersionReviewed,
		CreatedAt:       rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func recordsToApprovals(records []ApprovalRecord) []Approval {
	out := make([]Approval, len(records))
	for i := range records {
		out[i] = recordToApproval(&records[i])
	}
	return out
}

func pendingToApprovals(rows []PendingApproval) []Approval {
	out := make([]Approval, len(rows))
	for i := range rows {
		a := recordToApproval(&rows[i].ApprovalRecord)
		a.AssetTitle = rows[i].AssetTitle
		a.AssetStatus = rows[i].AssetStatus
		a.ApprovalDue = formatTime(rows[i].ApprovalDue)
		out[i] = a
	}
	return out
}

func recordToComment(rec *CommentRecord) Comment {
	return Comment{
		ID:        rec.ID,
		AssetID:   rec.AssetID,
		UserID:    rec.UserID,
		ParentID:  derefString(rec.ParentID),
		Body:      rec.Body,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func nodesToComments(nodes []CommentNode) []Comment {
	out := make([]Comment, len(nodes))
	for i := range nodes {
		c := recordToComment(&nodes[i].CommentRecord)
		for j := range nodes[i].Replies {
			c.Replies = append(c.Replies, recordToComment(&nodes[i].Replies[j]))
		}
		out[i] = c
	}
	return out
}

func recordToChain(rec *ApprovalChainRecord) Chain {
	return Chain{
		ID:              rec.ID,
		ContentCategory: rec.ContentCategory,
		RequiredRoles:   []string(rec.RequiredRoles),
		ChainType:       rec.ChainType,
		UpdatedAt:       rec.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func recordToMember(rec *ProjectMemberRecord) Member {
	return Member{ID: rec.ID, UserID: rec.UserID, Role: rec.Role, RoleLabel: rec.Role.Label()}
}

func rowToMember(row *MemberWithUser) Member {
	m := recordToMember(&row.ProjectMemberRecord)
	m.Email = row.Email
	m.FullName = row.FullName
	m.Organization = row.Organization
	return m
}

func recordToProject(rec *ProjectRecord, role authz.Role) Project {
	return Project{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		StartDate:   formatTime(rec.StartDate),
		EndDate:     formatTime(rec.EndDate),
		Role:        role,
		CreatedAt:   rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func recordToPhase(rec *PhaseRecord) Phase {
	return Phase{
		ID:        rec.ID,
		Name:      rec.Name,
		StartDate: formatTime(rec.StartDate),
		EndDate:   formatTime(rec.EndDate),
		SortOrder: rec.SortOrder,
	}
}

func recordToClub(rec *ClubRecord) Club {
	return Club{ID: rec.ID, Name: rec.Name, Market: rec.Market}
}

func rowToAthlete(row *AthleteWithClub) Athlete {
	return Athlete{
		ID:           row.ID,
		FullName:     row.FullName,
		ClubID:       derefString(row.ClubID),
		ClubName:     row.ClubName,
		HeadshotURL:  row.HeadshotURL,
		EmbargoUntil: formatTime(row.EmbargoUntil),
	}
}

func recordToActivity(rec *ActivityRecord) ActivityEntry {
	e := ActivityEntry{
		ID:        rec.ID,
		UserID:    rec.UserID,
		AssetID:   derefString(rec.AssetID),
		Action:    rec.Action,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
	}
	if len(rec.Metadata) > 0 {
		e.Metadata = json.RawMessage(rec.Metadata)
	}
	return e
}

func recordsToActivity(records []ActivityRecord) []ActivityEntry {
	out := make([]ActivityEntry, len(records))
	for i := range records {
		out[i] = recordToActivity(&records[i])
	}
	return out
}

func dashboardToResponse(d *Dashboard) DashboardResponse {
	var resp DashboardResponse
	resp.Stats.TotalAssets = d.Stats.TotalAssets
	resp.Stats.PendingApprovals = d.Stats.PendingApprovals
	resp.Stats.Overdue = d.Stats.Overdue
	resp.Stats.PublishedRecent = d.Stats.PublishedRecent
	resp.MyApprovals = pendingToApprovals(d.MyApprovals)
	resp.Timeline = make([]TimelinePhase, len(d.Timeline))
	for i := range d.Timeline {
		p := d.Timeline[i]
		resp.Timeline[i] = TimelinePhase{
			Phase:       recordToPhase(&p.Phase),
			AssetCounts: p.AssetCounts,
			TotalAssets: p.Total,
			Progress:    p.Label,
		}
	}
	resp.RecentActivity = recordsToActivity(d.RecentActivity)
	return resp
}

// User is the API representation of a user profile.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	FullName     string `json:"fullName,omitempty"`
	Organization string `json:"organization,omitempty"`
	AvatarURL    string `json:"avatarUrl,omitempty"`
}

func recordToUser(rec *UserRecord) User {
	return User{
		ID:           rec.ID,
		Email:        rec.Email,
		FullName:     rec.FullName,
		Organization: rec.Organization,
		AvatarURL:    rec.AvatarURL,
	}
}
