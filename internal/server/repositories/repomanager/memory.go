package repomanager

import (
	"context"

	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/accounts"
)

// MemoryRepositoryManager serves a single in-process store. Data is lost on exit.
type MemoryRepositoryManager struct {
	repo *accounts.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{repo: accounts.NewMemoryRepository()}
}

func (m *MemoryRepositoryManager) Accounts(context.Context) (accounts.Repository, error) {
	return m.repo, nil
}

func (m *MemoryRepositoryManager) Close(context.Context) error {
	return nil
}
