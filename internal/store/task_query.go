package store

import (
	"net/url"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// Public field names accepted by sortBy mapped to their columns. Anything
// else is ignored so callers can't inject into ORDER BY.
var sortableTaskFields = map[string]string{
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"description": "description",
	"completed":   "completed",
}

// TaskQuery is the filter, sort and page of a task listing. Nil fields are
// not applied.
type TaskQuery struct {
	Completed *bool
	SortBy    string // column name, empty for the default order
	SortDesc  bool
	Limit     *int
	Skip      *int
}

// ParseTaskQuery reads completed, sortBy, limit and skip from q.
//
//	completed=true      -> completed tasks only, any other value -> open tasks only
//	sortBy=field:desc   -> descending, any other direction -> ascending
//	limit=10&skip=20    -> page size and offset, invalid numbers are ignored
func ParseTaskQuery(q url.Values) TaskQuery {
	var tq TaskQuery

	if v := q.Get("completed"); v != "" {
		completed := v == "true"
		tq.Completed = &completed
	}

	if v := q.Get("sortBy"); v != "" {
		field, dir, _ := strings.Cut(v, ":")
		if col, ok := sortableTaskFields[field]; ok {
			tq.SortBy = col
			tq.SortDesc = dir == "desc"
		}
	}

	tq.Limit = positiveInt(q.Get("limit"))
	tq.Skip = positiveInt(q.Get("skip"))

	return tq
}

func positiveInt(s string) *int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return nil
	}

	return &n
}

func (q TaskQuery) apply(tx *gorm.DB) *gorm.DB {
	if q.Completed != nil {
		tx = tx.Where("completed = ?", *q.Completed)
	}

	if q.SortBy != "" {
		dir := "asc"
		if q.SortDesc {
			dir = "desc"
		}
		tx = tx.Order(q.SortBy + " " + dir)
	}

	// Insertion order breaks ties and is the default
	tx = tx.Order("created_at asc").Order("id asc")

	if q.Limit != nil {
		tx = tx.Limit(*q.Limit)
	}

	if q.Skip != nil {
		tx = tx.Offset(*q.Skip)
	}

	return tx
}
