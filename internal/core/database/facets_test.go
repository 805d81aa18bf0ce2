package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/paperstack-io/paperstack/internal/models"
)

func TestBuildFacetWhere_Empty(t *testing.T) {
	where, args := buildFacetWhere(models.FacetFilter{}, time.Now())
	require.Empty(t, where)
	require.Empty(t, args)
}

func TestBuildFacetWhere_SingleDimensionORsValues(t *testing.T) {
	where, args := buildFacetWhere(models.FacetFilter{
		Authors: []string{"Lee", "Chen"},
	}, time.Now())

	require.Equal(t, " WHERE (ai_authors ILIKE $1 OR ai_authors ILIKE $2)", where)
	require.Equal(t, []any{"%Lee%", "%Chen%"}, args)
}

func TestBuildFacetWhere_DimensionsAreANDed(t *testing.T) {
	where, args := buildFacetWhere(models.FacetFilter{
		Authors:  []string{"Lee"},
		Keywords: []string{"neural", "graph"},
		Year:     "2020",
	}, time.Now())

	require.Equal(t,
		" WHERE (ai_authors ILIKE $1) AND (ai_keywords ILIKE $2 OR ai_keywords ILIKE $3) AND ai_date_created ILIKE $4",
		where)
	require.Equal(t, []any{"%Lee%", "%neural%", "%graph%", "%2020%"}, args)
}

func TestBuildFacetWhere_DateRangeBounds(t *testing.T) {
	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		r     string
		lower time.Time
	}{
		{"7days", models.Range7Days, now.AddDate(0, 0, -7)},
		{"30days", models.Range30Days, now.AddDate(0, 0, -30)},
		{"thisYear", models.RangeThisYear, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			where, args := buildFacetWhere(models.FacetFilter{DateRange: tc.r}, now)
			require.Equal(t, " WHERE created_at >= $1", where)
			require.Equal(t, []any{tc.lower}, args)
		})
	}
}

func TestBuildFacetWhere_UnknownRangeIgnored(t *testing.T) {
	where, args := buildFacetWhere(models.FacetFilter{DateRange: "lastCentury"}, time.Now())
	require.Empty(t, where)
	require.Empty(t, args)
}

func TestBuildFacetWhere_YearAndRangeCombine(t *testing.T) {
	// year and dateRange are independent dimensions; both AND in.
	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	where, args := buildFacetWhere(models.FacetFilter{
		Year:      "2020",
		DateRange: models.Range7Days,
	}, now)

	require.Equal(t, " WHERE ai_date_created ILIKE $1 AND created_at >= $2", where)
	require.Len(t, args, 2)
}

func TestBuildFacetWhere_SkipsBlankValues(t *testing.T) {
	where, args := buildFacetWhere(models.FacetFilter{
		Authors: []string{"  ", "", "Lee"},
	}, time.Now())
	require.Equal(t, " WHERE (ai_authors ILIKE $1)", where)
	require.Equal(t, []any{"%Lee%"}, args)
}

func TestSplitJoinList(t *testing.T) {
	require.Equal(t, "A. Lee, B. Chen", joinList([]string{"A. Lee", "B. Chen"}))
	require.Equal(t, []string{"A. Lee", "B. Chen"}, splitList("A. Lee, B. Chen"))
	require.Nil(t, splitList(""))
	require.Nil(t, splitList("  "))
}
