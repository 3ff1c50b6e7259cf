package services

import (
	"context"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/media"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/repomanager"
)

// Presigner signs upload URLs for profile images.
type Presigner interface {
	PresignUpload(ctx context.Context, accountID string, kind media.Kind) (*media.Upload, error)
}

// MediaService hands out upload URLs for profile images.
type MediaService struct {
	repomanager repomanager.RepositoryManager
	presigner   Presigner
}

func NewMediaService(m repomanager.RepositoryManager, p Presigner) *MediaService {
	return &MediaService{repomanager: m, presigner: p}
}

// RequestImageUpload returns a presigned upload for an image of kind owned by
// accountID. The account must exist.
func (s *MediaService) RequestImageUpload(ctx context.Context, accountID string, kind media.Kind) (*media.Upload, error) {
	if !kind.Valid() {
		return nil, common.NewValidationError("kind must be one of avatar, cnicFront, cnicBack")
	}

	repo, err := s.repomanager.Accounts(ctx)
	if err != nil {
		return nil, internal(err)
	}
	if _, err := repo.FindByID(ctx, accountID); err != nil {
		return nil, storeError(err)
	}

	upload, err := s.presigner.PresignUpload(ctx, accountID, kind)
	if err != nil {
		return nil, internal(err)
	}
	return upload, nil
}
