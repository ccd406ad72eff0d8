package repository

import "fmt"

// ListQuery carries pagination, sorting and filter parameters for list endpoints
type ListQuery struct {
	Page    int
	PerPage int
	SortBy  string
	SortDir string
	Filters map[string]string
}

// NewListQuery creates a ListQuery with sane defaults
func NewListQuery() *ListQuery {
	return &ListQuery{
		Page:    1,
		PerPage: 20,
		Filters: make(map[string]string),
	}
}

// Offset returns the row offset for the current page
func (q *ListQuery) Offset() int {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = 20
	}
	return (q.Page - 1) * q.PerPage
}

// OrderClause builds an ORDER BY clause, falling back to the given defaults.
// Sort fields are restricted to a known set to keep the clause injectable-free.
func (q *ListQuery) OrderClause(defaultField, defaultDir string) string {
	field := defaultField
	switch q.SortBy {
	case "created_at", "next_due_date", "outstanding", "status", "borrower_name":
		field = q.SortBy
	}
	dir := defaultDir
	if q.SortDir == "asc" || q.SortDir == "desc" {
		dir = q.SortDir
	}
	return fmt.Sprintf("%s %s", field, dir)
}
