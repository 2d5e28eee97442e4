package service

import (
	"context"
	"log"

	"photogram/internal/model"
	"photogram/internal/repository"
)

// UserService resolves author IDs to display profiles for comment joining.
type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// ResolveAuthors maps each distinct ID to a profile. An ID that does not
// resolve, or a failed lookup, yields the stable deleted-account placeholder
// instead of an error: comment rendering must never break because an author
// account vanished.
func (s *UserService) ResolveAuthors(ctx context.Context, userIDs []string) map[string]model.UserSummary {
	distinct := make([]string, 0, len(userIDs))
	seen := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		distinct = append(distinct, id)
	}

	resolved, err := s.userRepo.GetByIDs(ctx, distinct)
	if err != nil {
		log.Printf("[UserService] Bulk profile lookup failed, using placeholders: %v", err)
		resolved = map[string]model.UserSummary{}
	}

	result := make(map[string]model.UserSummary, len(distinct))
	for _, id := range distinct {
		if profile, ok := resolved[id]; ok {
			result[id] = profile
		} else {
			result[id] = *model.DeletedUserSummary(id)
		}
	}
	return result
}

// Resolve returns a single author profile, placeholder on any miss.
func (s *UserService) Resolve(ctx context.Context, userID string) *model.UserSummary {
	profile, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return model.DeletedUserSummary(userID)
	}
	return profile
}
