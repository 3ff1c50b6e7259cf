package accounts

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps accounts in a map. It enforces the same uniqueness
// rules as the database backends and hands out copies, never its own records.
type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{accounts: make(map[string]*models.Account), now: time.Now}
}

func (m *MemoryRepository) Create(_ context.Context, account *models.Account) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a := account.Clone()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if err := m.checkUnique(a); err != nil {
		return nil, err
	}

	now := m.now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	m.accounts[a.ID] = a

	return a.Clone(), nil
}

func (m *MemoryRepository) FindByID(_ context.Context, id string) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a.Clone(), nil
}

func (m *MemoryRepository) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	return m.findBy(func(a *models.Account) bool { return email != "" && a.Email == email })
}

func (m *MemoryRepository) FindByPhone(_ context.Context, phone string) (*models.Account, error) {
	return m.findBy(func(a *models.Account) bool { return phone != "" && a.Phone == phone })
}

func (m *MemoryRepository) findBy(match func(*models.Account) bool) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.accounts {
		if match(a) {
			return a.Clone(), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *MemoryRepository) FindMany(_ context.Context, q models.Query) ([]*models.Account, int64, error) {
	q = q.Normalize()

	m.mu.RLock()
	matched := make([]*models.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		if matchFilter(a, q.Filter) {
			matched = append(matched, a.Clone())
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *models.Account) int {
		c := compareBy(a, b, q.SortField)
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		if q.SortDesc {
			return -c
		}
		return c
	})

	total := int64(len(matched))
	start := min(max(q.Offset(), 0), total)
	end := start + min(max(q.Limit, 0), total-start)

	return matched[start:end], total, nil
}

func (m *MemoryRepository) UpdateByID(_ context.Context, id string, patch models.Patch) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.accounts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}

	a := current.Clone()
	patch.Apply(a)
	if err := m.checkUnique(a); err != nil {
		return nil, err
	}
	a.UpdatedAt = m.now().UTC()
	m.accounts[id] = a

	return a.Clone(), nil
}

func (m *MemoryRepository) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[id]; !ok {
		return common.ErrorNotFound
	}
	delete(m.accounts, id)
	return nil
}

// checkUnique must be called with mu held.
func (m *MemoryRepository) checkUnique(a *models.Account) error {
	for id, other := range m.accounts {
		if id == a.ID {
			continue
		}
		if a.Phone != "" && other.Phone == a.Phone {
			return common.ErrDuplicatePhone
		}
		if a.Email != "" && other.Email == a.Email {
			return common.ErrDuplicateEmail
		}
	}
	return nil
}

func matchFilter(a *models.Account, f models.Filter) bool {
	switch {
	case f.FullName != "" && !strings.Contains(strings.ToLower(a.FullName), strings.ToLower(f.FullName)):
		return false
	case f.Email != "" && a.Email != f.Email:
		return false
	case f.Role != "" && a.Role != f.Role:
		return false
	case f.City != "" && a.City != f.City:
		return false
	case f.Status != "" && a.Status != f.Status:
		return false
	case f.Verified != nil && a.Verified != *f.Verified:
		return false
	case f.Featured != nil && a.Featured != *f.Featured:
		return false
	case f.Available != nil && a.Available != *f.Available:
		return false
	case f.JobCounts != nil && a.JobCounts != *f.JobCounts:
		return false
	}
	for _, s := range f.Skills {
		if !slices.Contains(a.Skills, s) {
			return false
		}
	}
	return true
}

func compareBy(a, b *models.Account, field string) int {
	switch field {
	case models.SortUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case models.SortFullName:
		return strings.Compare(a.FullName, b.FullName)
	case models.SortUsername:
		return strings.Compare(a.Username, b.Username)
	case models.SortJobCounts:
		return cmp.Compare(a.JobCounts, b.JobCounts)
	case models.SortExperience:
		return cmp.Compare(a.Experience, b.Experience)
	case models.SortAge:
		return cmp.Compare(a.Age, b.Age)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}
