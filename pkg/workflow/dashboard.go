package workflow

import (
	"context"
	"time"
)

// Phase progress labels shown on the dashboard timeline.
const (
	PhaseNotStarted = "Not Started"
	PhaseComplete   = "Complete"
	PhaseApproved   = "Approved"
	PhaseInReview   = "In Review"
	PhaseInProgress = "In Progress"
)

const (
	recentActivityLimit = 20
	publishedWindow     = 7 * 24 * time.Hour
)

// DashboardStats are the headline counters of a project.
type DashboardStats struct {
	TotalAssets      int
	PendingApprovals int
	Overdue          int
	PublishedRecent  int
}

// PhaseProgress is one entry of the dashboard timeline.
type PhaseProgress struct {
	Phase       PhaseRecord
	AssetCounts map[AssetStatus]int
	Total       int
	Label       string
}

// Dashboard aggregates a project's overview for one user.
type Dashboard struct {
	Stats          DashboardStats
	MyApprovals    []PendingApproval
	Timeline       []PhaseProgress
	RecentActivity []ActivityRecord
}

// PhaseLabel derives a phase's progress label from its asset status counts.
func PhaseLabel(counts map[AssetStatus]int) string {
	total := 0
	for _, n := range counts {
		total += n
	}
	switch {
	case total == 0:
		return PhaseNotStarted
	case counts[AssetPublished] == total:
		return PhaseComplete
	case counts[AssetApproved]+counts[AssetPublished] == total:
		return PhaseApproved
	case counts[AssetInReview] > 0:
		return PhaseInReview
	default:
		return PhaseInProgress
	}
}

// Dashboard builds the project overview for userID.
func (s *Service) Dashboard(ctx context.Context, projectID, userID string) (*Dashboard, error) {
	counts, err := s.assets.StatusCounts(ctx, projectID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	overdue, err := s.assets.CountOverdue(ctx, projectID, now)
	if err != nil {
		return nil, err
	}
	published, err := s.assets.CountPublishedSince(ctx, projectID, now.Add(-publishedWindow))
	if err != nil {
		return nil, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}

	mine, err := s.approvals.ListPendingForUser(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}

	phases, err := s.phases.List(ctx, projectID)
	if err != nil {
		return nil, err
	}
	byPhase, err := s.assets.PhaseStatusCounts(ctx, projectID)
	if err != nil {
		return nil, err
	}
	timeline := make([]PhaseProgress, 0, len(phases))
	for _, p := range phases {
		pc := byPhase[p.ID]
		if pc == nil {
			pc = map[AssetStatus]int{}
		}
		n := 0
		for _, c := range pc {
			n += c
		}
		timeline = append(timeline, PhaseProgress{Phase: p, AssetCounts: pc, Total: n, Label: PhaseLabel(pc)})
	}

	recent, err := s.activity.Recent(ctx, projectID, recentActivityLimit)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Stats: DashboardStats{
			TotalAssets:      total,
			PendingApprovals: counts[AssetInReview],
			Overdue:          overdue,
			PublishedRecent:  published,
		},
		MyApprovals:    mine,
		Timeline:       timeline,
		RecentActivity: recent,
	}, nil
}
