package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/msomdec/task-manager/internal/domain"
	"go.einride.tech/aip/ordering"
)

var sortablePaths = []string{
	string(domain.TaskSortDescription),
	string(domain.TaskSortCompleted),
	string(domain.TaskSortCreatedAt),
	string(domain.TaskSortUpdatedAt),
}

// ListParams are the raw query-string values of a task listing.
type ListParams struct {
	Completed string
	SortBy    string // <field>_<asc|desc>, e.g. createdAt_desc
	Limit     string
	Skip      string
}

// ParseListParams turns query-string values into a domain.TaskQuery.
func ParseListParams(p ListParams) (domain.TaskQuery, error) {
	var q domain.TaskQuery

	if p.Completed != "" {
		completed := p.Completed == "true"
		q.Completed = &completed
	}

	if p.SortBy != "" {
		field, desc, err := parseSortBy(p.SortBy)
		if err != nil {
			return domain.TaskQuery{}, err
		}
		q.SortBy = field
		q.SortDesc = desc
	}

	var err error
	if q.Limit, err = parseCount("limit", p.Limit); err != nil {
		return domain.TaskQuery{}, err
	}
	if q.Skip, err = parseCount("skip", p.Skip); err != nil {
		return domain.TaskQuery{}, err
	}
	return q, nil
}

// parseSortBy reads "field_dir" by rewriting it into an AIP-132 order_by
// expression, which also validates the field against the sortable set.
// Any direction other than "desc" sorts ascending.
func parseSortBy(sortBy string) (domain.TaskSortField, bool, error) {
	field, dir, _ := strings.Cut(sortBy, "_")
	if field == "" || strings.ContainsAny(field, " ,") {
		return "", false, fmt.Errorf("%w: invalid sortBy %q", domain.ErrInvalidInput, sortBy)
	}

	expr := field
	if dir == "desc" {
		expr += " desc"
	}

	var orderBy ordering.OrderBy
	if err := orderBy.UnmarshalString(expr); err != nil {
		return "", false, fmt.Errorf("%w: invalid sortBy %q", domain.ErrInvalidInput, sortBy)
	}
	if err := orderBy.ValidateForPaths(sortablePaths...); err != nil {
		return "", false, fmt.Errorf("%w: cannot sort by %q", domain.ErrInvalidInput, field)
	}
	if len(orderBy.Fields) != 1 {
		return "", false, fmt.Errorf("%w: sortBy takes exactly one field", domain.ErrInvalidInput)
	}

	f := orderBy.Fields[0]
	return domain.TaskSortField(f.Path), f.Desc, nil
}

func parseCount(name, value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, name)
	}
	return n, nil
}
