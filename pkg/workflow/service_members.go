package workflow

import (
	"context"
	"net/mail"
	"strings"

	"gorm.io/gorm"

	"github.com/partnershiphub/hub/pkg/authz"
)

// ListMembers returns the project's members with their profiles.
func (s *Service) ListMembers(ctx context.Context, projectID string) ([]MemberWithUser, error) {
	return s.members.List(ctx, projectID)
}

// InviteMember adds the user with the given email to the project, creating
// a placeholder profile when the email is unknown. Existing members are
// refused with ErrAlreadyMember. Logs "user_invited".
func (s *Service) InviteMember(ctx context.Context, projectID string, actor Actor, email, fullName string, role authz.Role) (*MemberWithUser, error) {
	if actor.Role != authz.RoleAdmin {
		return nil, ErrNotAuthorized
	}
	if !role.Valid() {
		return nil, invalidInput("unknown role %q", role)
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, invalidInput("invalid email address %q", email)
	}
	email = normalizeEmail(addr.Address)

	var member *MemberWithUser
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		user, err := users.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		if user == nil {
			if user, err = users.CreateInvited(ctx, email, fullName); err != nil {
				return err
			}
		}
		added, err := s.members.WithTx(tx).Add(ctx, projectID, user.ID, role)
		if err != nil {
			return err
		}
		member = &MemberWithUser{
			ProjectMemberRecord: *added,
			Email:               user.Email,
			FullName:            user.FullName,
			Organization:        user.Organization,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logActivity(ctx, projectID, actor.UserID, "", InviteDetails{InvitedEmail: email, Role: role})
	return member, nil
}

// ChangeRole sets a member's role and logs "role_changed". The last admin of
// a project cannot be demoted.
func (s *Service) ChangeRole(ctx context.Context, projectID string, actor Actor, memberID string, role authz.Role) (*ProjectMemberRecord, error) {
	if actor.Role != authz.RoleAdmin {
		return nil, ErrNotAuthorized
	}
	if !role.Valid() {
		return nil, invalidInput("unknown role %q", role)
	}
	member, err := s.members.Get(ctx, projectID, memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, notFound("member")
	}
	if member.Role == role {
		return member, nil
	}
	if member.Role == authz.RoleAdmin {
		if err := s.ensureAnotherAdmin(ctx, projectID); err != nil {
			return nil, err
		}
	}

	updated, err := s.members.UpdateRole(ctx, projectID, memberID, role)
	if err != nil {
		return nil, err
	}
	s.logActivity(ctx, projectID, actor.UserID, "", RoleChangeDetails{MemberID: memberID, NewRole: role})
	return updated, nil
}

// RemoveMember removes a membership. The last admin cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, projectID string, actor Actor, memberID string) error {
	if actor.Role != authz.RoleAdmin {
		return ErrNotAuthorized
	}
	member, err := s.members.Get(ctx, projectID, memberID)
	if err != nil {
		return err
	}
	if member == nil {
		return notFound("member")
	}
	if member.Role == authz.RoleAdmin {
		if err := s.ensureAnotherAdmin(ctx, projectID); err != nil {
			return err
		}
	}
	return s.members.Remove(ctx, projectID, memberID)
}

func (s *Service) ensureAnotherAdmin(ctx context.Context, projectID string) error {
	admins, err := s.members.CountAdmins(ctx, projectID)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return invalidInput("a project must keep at least one admin")
	}
	return nil
}

// ListProjects returns the projects the user belongs to.
func (s *Service) ListProjects(ctx context.Context, userID string) ([]ProjectWithRole, error) {
	return s.projects.ListForUser(ctx, userID)
}

// CreateProject creates a project with actorID as its first admin.
func (s *Service) CreateProject(ctx context.Context, actorID string, project *ProjectRecord) (*ProjectRecord, error) {
	project.CreatedBy = actorID
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// GetProject returns a project.
func (s *Service) GetProject(ctx context.Context, projectID string) (*ProjectRecord, error) {
	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, notFound("project")
	}
	return p, nil
}

// ListPhases returns the project's phases in order.
func (s *Service) ListPhases(ctx context.Context, projectID string) ([]PhaseRecord, error) {
	return s.phases.List(ctx, projectID)
}

// CreatePhase adds a phase to the project.
func (s *Service) CreatePhase(ctx context.Context, projectID string, phase *PhaseRecord) (*PhaseRecord, error) {
	phase.ProjectID = projectID
	if err := s.phases.Create(ctx, phase); err != nil {
		return nil, err
	}
	return phase, nil
}

// ListClubs returns the project's clubs.
func (s *Service) ListClubs(ctx context.Context, projectID string) ([]ClubRecord, error) {
	return s.clubs.List(ctx, projectID)
}

// CreateClub adds a club to the project.
func (s *Service) CreateClub(ctx context.Context, projectID string, club *ClubRecord) (*ClubRecord, error) {
	club.ProjectID = projectID
	if err := s.clubs.Create(ctx, club); err != nil {
		return nil, err
	}
	return club, nil
}

// ListAthletes returns the project's athletes with club names.
func (s *Service) ListAthletes(ctx context.Context, projectID string) ([]AthleteWithClub, error) {
	return s.athletes.List(ctx, projectID)
}

// CreateAthlete adds an athlete to the project.
func (s *Service) CreateAthlete(ctx context.Context, projectID string, athlete *AthleteRecord) (*AthleteRecord, error) {
	athlete.ProjectID = projectID
	if err := s.athletes.Create(ctx, athlete); err != nil {
		return nil, err
	}
	return athlete, nil
}

// ListChains returns the project's approval chains.
func (s *Service) ListChains(ctx context.Context, projectID string) ([]ApprovalChainRecord, error) {
	return s.chains.List(ctx, projectID)
}

// PutChain creates or replaces the chain of a content category.
func (s *Service) PutChain(ctx context.Context, projectID string, category ContentCategory, roles []string, chainType ChainType) (*ApprovalChainRecord, error) {
	return s.chains.Upsert(ctx, &ApprovalChainRecord{
		ProjectID:       projectID,
		ContentCategory: category,
		RequiredRoles:   roles,
		ChainType:       chainType,
	})
}

// SetChainType changes how an existing chain is sequenced.
func (s *Service) SetChainType(ctx context.Context, projectID, chainID string, chainType ChainType) (*ApprovalChainRecord, error) {
	return s.chains.SetChainType(ctx, projectID, chainID, chainType)
}
