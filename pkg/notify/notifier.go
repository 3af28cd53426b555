package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Notification kinds, used for failure accounting.
const (
	KindReviewRequest = "review_request"
	KindStatusChange  = "status_change"
)

const maxConcurrentSends = 4

// Recipient is a user receiving an email.
type Recipient struct {
	Email string
	Name  string
}

// Asset describes the asset a notification is about.
type Asset struct {
	ID          string
	ProjectID   string
	Title       string
	ApprovalDue *time.Time
}

// FailureCounter records undelivered notifications.
type FailureCounter interface {
	IncNotificationFailure(kind string)
}

// Notifier renders workflow emails and hands them to a Sender.
type Notifier struct {
	sender   Sender
	appURL   string
	logger   *zap.Logger
	failures FailureCounter
}

// NewNotifier creates a Notifier. appURL is the base of links in emails.
func NewNotifier(sender Sender, appURL string, logger *zap.Logger, failures FailureCounter) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if appURL == "" {
		appURL = "http://localhost:3000"
	}
	return &Notifier{
		sender:   sender,
		appURL:   strings.TrimRight(appURL, "/"),
		logger:   logger,
		failures: failures,
	}
}

// AssetURL returns the link to the asset's page.
func (n *Notifier) AssetURL(asset Asset) string {
	return fmt.Sprintf("%s/projects/%s/content/%s", n.appURL, asset.ProjectID, asset.ID)
}

// ReviewRequested emails every approver that the asset awaits their review.
// Sends run concurrently; each failure is logged and counted. The returned
// error is the first failure, for callers that want it.
func (n *Notifier) ReviewRequested(ctx context.Context, asset Asset, approvers []Recipient) error {
	if n == nil || n.sender == nil {
		return nil
	}
	due := "No deadline set"
	if asset.ApprovalDue != nil {
		due = asset.ApprovalDue.Format("Jan 2, 2006")
	}

	var g errgroup.Group
	g.SetLimit(maxConcurrentSends)
	for _, r := range approvers {
		if r.Email == "" {
			continue
		}
		g.Go(func() error {
			html, err := render(reviewRequestTmpl, reviewRequestData{
				RecipientName: displayName(r),
				AssetTitle:    asset.Title,
				DueDate:       due,
				URL:           n.AssetURL(asset),
			})
			if err != nil {
				return n.failed(KindReviewRequest, asset, r, err)
			}
			msg := Message{To: r.Email, Subject: "Review Requested: " + asset.Title, HTML: html}
			if err := n.sender.Send(ctx, msg); err != nil {
				return n.failed(KindReviewRequest, asset, r, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// DecisionMade emails the asset's creator that an approver decided.
// action is the past-tense phrase, e.g. "approved" or "requested changes on".
func (n *Notifier) DecisionMade(ctx context.Context, asset Asset, creator Recipient, approverName, action, comment string) error {
	if n == nil || n.sender == nil || creator.Email == "" {
		return nil
	}
	html, err := render(statusChangeTmpl, statusChangeData{
		RecipientName: displayName(creator),
		ApproverName:  approverName,
		Action:        action,
		AssetTitle:    asset.Title,
		Comment:       RenderComment(comment),
		URL:           n.AssetURL(asset),
	})
	if err != nil {
		return n.failed(KindStatusChange, asset, creator, err)
	}
	msg := Message{
		To:      creator.Email,
		Subject: fmt.Sprintf("%s %s \"%s\"", approverName, action, asset.Title),
		HTML:    html,
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return n.failed(KindStatusChange, asset, creator, err)
	}
	return nil
}

func (n *Notifier) failed(kind string, asset Asset, r Recipient, err error) error {
	n.logger.Warn("notification not delivered",
		zap.String("kind", kind),
		zap.String("assetId", asset.ID),
		zap.String("to", r.Email),
		zap.Error(err))
	if n.failures != nil {
		n.failures.IncNotificationFailure(kind)
	}
	return fmt.Errorf("%s to %s: %w", kind, r.Email, err)
}

func displayName(r Recipient) string {
	if r.Name != "" {
		return r.Name
	}
	return r.Email
}
