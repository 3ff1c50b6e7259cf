package models

import "math"

// Paging limits for account listings.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Sort fields accepted by listings.
const (
	SortCreatedAt  = "createdAt"
	SortUpdatedAt  = "updatedAt"
	SortFullName   = "fullName"
	SortUsername   = "username"
	SortJobCounts  = "jobCounts"
	SortExperience = "experience"
	SortAge        = "age"
)

// SortFields lists every accepted sort field.
var SortFields = []string{SortCreatedAt, SortUpdatedAt, SortFullName, SortUsername, SortJobCounts, SortExperience, SortAge}

// Filter narrows an account listing. Nil or empty fields do not filter.
type Filter struct {
	// FullName matches as a case-insensitive substring.
	FullName string
	Email     string
	Role      string
	City      string
	Status    string
	Verified  *bool
	Featured  *bool
	Available *bool
	JobCounts *int
	// Skills matches accounts that have every listed skill.
	Skills []string
}

// Query selects one page of accounts.
type Query struct {
	Filter    Filter
	Page      int64
	Limit     int64
	SortField string
	SortDesc  bool
}

// Offset is the number of records skipped before the page starts. It
// saturates at math.MaxInt64 for pages too far out to address.
func (q Query) Offset() int64 {
	if q.Page < 1 || q.Limit < 1 {
		return 0
	}
	if q.Page-1 > math.MaxInt64/q.Limit {
		return math.MaxInt64
	}
	return (q.Page - 1) * q.Limit
}

// Normalize replaces missing or out-of-range values with their defaults.
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.SortField == "" {
		q.SortField = SortCreatedAt
	}
	return q
}

// PageInfo describes where a page sits in the full result set.
type PageInfo struct {
	TotalRecords    int64 `json:"totalRecords"`
	TotalPages      int64 `json:"totalPages"`
	CurrentPage     int64 `json:"currentPage"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
}

// NewPageInfo computes paging metadata for total records split into pages
// of limit, with page being the current one.
func NewPageInfo(total, page, limit int64) PageInfo {
	var pages int64
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return PageInfo{
		TotalRecords:    total,
		TotalPages:      pages,
		CurrentPage:     page,
		HasNextPage:     page < pages,
		HasPreviousPage: page > 1,
	}
}
