package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/paperstack-io/paperstack/internal/models"
)

// buildFacetWhere composes the WHERE clause for a facet query: every
// non-empty dimension contributes one AND group, and selected values inside
// a dimension are ORed. The clause includes the leading " WHERE " or is
// empty when no dimension is set.
func buildFacetWhere(f models.FacetFilter, now time.Time) (string, []any) {
	var groups []string
	var args []any

	bind := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	likeGroup := func(col string, values []string) {
		var ors []string
		for _, v := range values {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			ors = append(ors, fmt.Sprintf("%s ILIKE %s", col, bind("%"+v+"%")))
		}
		if len(ors) > 0 {
			groups = append(groups, "("+strings.Join(ors, " OR ")+")")
		}
	}

	likeGroup("ai_authors", f.Authors)
	likeGroup("ai_keywords", f.Keywords)
	likeGroup("ai_journal", f.Journals)

	if y := strings.TrimSpace(f.Year); y != "" {
		groups = append(groups, fmt.Sprintf("ai_date_created ILIKE %s", bind("%"+y+"%")))
	}

	if lower, ok := rangeLowerBound(f.DateRange, now); ok {
		groups = append(groups, fmt.Sprintf("created_at >= %s", bind(lower)))
	}

	if len(groups) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(groups, " AND "), args
}

// rangeLowerBound translates a dateRange value into a relative lower bound.
func rangeLowerBound(r string, now time.Time) (time.Time, bool) {
	switch r {
	case models.Range7Days:
		return now.AddDate(0, 0, -7), true
	case models.Range30Days:
		return now.AddDate(0, 0, -30), true
	case models.RangeThisYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), true
	default:
		return time.Time{}, false
	}
}
