package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/ainexllc/ainexsuite-bridge/internal/domain"
	"github.com/ainexllc/ainexsuite-bridge/internal/repository"
)

// SpaceService manages spaces and their membership. Invitation acceptance
// mutates membership through InviteService; this service covers creation
// and reads.
type SpaceService struct {
	spaces    repository.SpaceRepository
	snowflake *snowflake.Node
	logger    *zap.Logger
	now       func() time.Time
}

// NewSpaceService wires dependencies.
func NewSpaceService(spaces repository.SpaceRepository, node *snowflake.Node, logger *zap.Logger) *SpaceService {
	return &SpaceService{spaces: spaces, snowflake: node, logger: logger, now: time.Now}
}

// CreateSpace creates a space with the creator as its admin member.
func (s *SpaceService) CreateSpace(ctx context.Context, name, spaceType, creatorUID, creatorDisplayName, creatorPhotoURL string) (domain.Space, error) {
	name = strings.TrimSpace(name)
	uid := strings.TrimSpace(creatorUID)
	if name == "" || uid == "" {
		return domain.Space{}, domain.ErrInvalidInput
	}

	now := s.now().UTC()
	space := domain.Space{
		ID:        s.snowflake.Generate().Int64(),
		Name:      name,
		Type:      strings.TrimSpace(spaceType),
		CreatedBy: uid,
		CreatedAt: now,
		Members: []domain.SpaceMember{{
			UID:         uid,
			DisplayName: creatorDisplayName,
			PhotoURL:    creatorPhotoURL,
			Role:        domain.SpaceRoleAdmin,
			JoinedAt:    now,
		}},
	}

	if err := s.spaces.Create(ctx, space); err != nil {
		return domain.Space{}, fmt.Errorf("create space: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("audit",
			zap.String("event", "space.created"),
			zap.Int64("space_id", space.ID),
			zap.String("uid", uid),
		)
	}
	return space, nil
}

// GetSpace loads a space for one of its members.
func (s *SpaceService) GetSpace(ctx context.Context, spaceID int64, callerUID string) (domain.Space, error) {
	space, err := s.spaces.Get(ctx, spaceID)
	if err != nil {
		return domain.Space{}, err
	}
	if !space.HasMember(callerUID) {
		return domain.Space{}, domain.ErrNotSpaceMember
	}
	return space, nil
}

// ListSpaces returns every space where uid is a member.
func (s *SpaceService) ListSpaces(ctx context.Context, uid string) ([]domain.Space, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.spaces.ListByMember(ctx, uid)
}
