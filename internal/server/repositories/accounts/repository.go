// Package accounts stores Account records. Three backends share one
// Repository contract: PostgreSQL, MongoDB and an in-memory map.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

// Repository persists accounts.
//
// Lookups of a missing record return common.ErrorNotFound. Create rejects a
// phone number that is already registered with common.ErrDuplicatePhone; a
// taken email surfaces as common.ErrDuplicateEmail from the store's unique
// constraint. UpdateByID merges the patch and returns the record as stored
// after the update.
type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByPhone(ctx context.Context, phone string) (*models.Account, error)
	FindMany(ctx context.Context, q models.Query) ([]*models.Account, int64, error)
	UpdateByID(ctx context.Context, id string, patch models.Patch) (*models.Account, error)
	DeleteByID(ctx context.Context, id string) error
}
