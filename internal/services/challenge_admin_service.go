// file: internal/services/challenge_admin_service.go
package services

import (
	"context"

	"goldhub/internal/catalog"
	"goldhub/internal/repositories"

	"go.uber.org/zap"
)

// CatalogInvalidator drops cached catalog state after admin edits.
// Implemented by catalog.StoreProvider.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context)
}

// challengeAdminService manages the store-backed challenge definitions.
// Every write validates the definition and invalidates the catalog cache
// so the engine sees the edit on its next evaluation.
type challengeAdminService struct {
	repo        repositories.ChallengeRepository
	invalidator CatalogInvalidator
	logger      *zap.Logger
}

// NewChallengeAdminService creates the admin challenge service.
// invalidator may be nil when the catalog is not cached.
func NewChallengeAdminService(repo repositories.ChallengeRepository, invalidator CatalogInvalidator, logger *zap.Logger) ChallengeAdminService {
	return &challengeAdminService{repo: repo, invalidator: invalidator, logger: logger}
}

// ListChallenges returns all stored definitions, active or not.
func (s *challengeAdminService) ListChallenges(ctx context.Context) ([]catalog.ChallengeDefinition, error) {
	defs, err := s.repo.ListChallenges(ctx)
	if err != nil {
		return nil, NewInternalError("failed to list challenges")
	}
	return defs, nil
}

// CreateChallenge validates and stores a new definition.
func (s *challengeAdminService) CreateChallenge(ctx context.Context, def *catalog.ChallengeDefinition) error {
	if err := catalog.ValidateChallenge(def); err != nil {
		return NewValidationError("invalid challenge definition", err)
	}

	existing, err := s.repo.GetChallenge(ctx, def.ID)
	if err != nil {
		return NewInternalError("failed to check existing challenge")
	}
	if existing != nil {
		return NewConflictError("challenge already exists", "CHALLENGE_EXISTS")
	}

	if err := s.repo.CreateChallenge(ctx, def); err != nil {
		return NewInternalError("failed to create challenge")
	}
	s.afterEdit(ctx, "created", def.ID)
	return nil
}

// UpdateChallenge validates and replaces a stored definition.
func (s *challengeAdminService) UpdateChallenge(ctx context.Context, def *catalog.ChallengeDefinition) error {
	if err := catalog.ValidateChallenge(def); err != nil {
		return NewValidationError("invalid challenge definition", err)
	}

	existing, err := s.repo.GetChallenge(ctx, def.ID)
	if err != nil {
		return NewInternalError("failed to load challenge")
	}
	if existing == nil {
		return NewNotFoundError("challenge not found")
	}

	if err := s.repo.UpdateChallenge(ctx, def); err != nil {
		return NewInternalError("failed to update challenge")
	}
	s.afterEdit(ctx, "updated", def.ID)
	return nil
}

// DeleteChallenge removes a stored definition. Earned state referencing
// the definition is left untouched; the completed set is monotonic.
func (s *challengeAdminService) DeleteChallenge(ctx context.Context, id string) error {
	existing, err := s.repo.GetChallenge(ctx, id)
	if err != nil {
		return NewInternalError("failed to load challenge")
	}
	if existing == nil {
		return NewNotFoundError("challenge not found")
	}

	if err := s.repo.DeleteChallenge(ctx, id); err != nil {
		return NewInternalError("failed to delete challenge")
	}
	s.afterEdit(ctx, "deleted", id)
	return nil
}

func (s *challengeAdminService) afterEdit(ctx context.Context, verb, id string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
	s.logger.Info("Challenge definition "+verb, zap.String("challenge_id", id))
}
