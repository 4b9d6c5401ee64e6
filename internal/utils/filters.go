package utils

import (
	"strconv" // String conversion
	"time"    // Date parsing

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// ListFilters holds the common query parameters shared by every filtered,
// paginated listing endpoint (orders, payments, stores, products, users).
type ListFilters struct {
	Search    string     // Free-text search term
	Offset    int        // Row offset, defaults to 0
	Limit     int        // Page size, defaults to 10
	SortBy    string     // Sort column, defaults to created_at
	SortOrder string     // "asc" or "desc", defaults to desc
	StartDate *time.Time // Lower bound on created_at
	EndDate   *time.Time // Upper bound on created_at
}

// ParseListFilters extracts the common listing filters from the query string
func ParseListFilters(c *gin.Context) ListFilters {
	f := ListFilters{
		Search:    c.Query("search"),                      // Free-text search term
		Offset:    0,                                      // Default offset
		Limit:     10,                                     // Default page size
		SortBy:    c.DefaultQuery("sortBy", "created_at"), // Default sort column
		SortOrder: "desc",                                 // Default sort direction
	}
	// Parse offset if provided
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v >= 0 {
		f.Offset = v
	}
	// Parse limit if provided, capped at 100
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 100 {
		f.Limit = v
	}
	// Only "asc" flips the default direction
	if c.Query("sortOrder") == "asc" {
		f.SortOrder = "asc"
	}
	// Parse RFC3339 or date-only bounds on created_at
	if t, ok := parseDate(c.Query("startDate")); ok {
		f.StartDate = &t
	}
	if t, ok := parseDate(c.Query("endDate")); ok {
		f.EndDate = &t
	}
	return f
}

// parseDate accepts RFC3339 timestamps or plain YYYY-MM-DD dates
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false // Nothing to parse
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true // Full timestamp
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true // Date only
	}
	return time.Time{}, false // Unparseable
}

// SortClause builds the ORDER BY expression, falling back to created_at when
// the requested column is not in the caller's whitelist.
func (f ListFilters) SortClause(allowed map[string]bool) string {
	column := f.SortBy
	if !allowed[column] {
		column = "created_at" // Never interpolate an unvetted column name
	}
	if f.SortOrder == "asc" {
		return column + " asc"
	}
	return column + " desc"
}

// ApplyDateRange adds created_at bounds to a query when present
func (f ListFilters) ApplyDateRange(q *gorm.DB) *gorm.DB {
	if f.StartDate != nil {
		q = q.Where("created_at >= ?", *f.StartDate) // Lower bound
	}
	if f.EndDate != nil {
		q = q.Where("created_at <= ?", *f.EndDate) // Upper bound
	}
	return q
}

// HasNext reports whether another page exists past offset+limit
func (f ListFilters) HasNext(total int64) bool {
	return int64(f.Offset+f.Limit) < total
}

// HasPrevious reports whether a previous page exists
func (f ListFilters) HasPrevious() bool {
	return f.Offset > 0
}
