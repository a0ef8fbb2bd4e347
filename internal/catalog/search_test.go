package catalog

import (
	"strings"
	"testing"

	"media-console/internal/store"
)

func TestParseSearchParamsDefaults(t *testing.T) {
	plan, err := ParseSearchParams(map[string]string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Page != 1 || plan.PerPage != 25 {
		t.Fatalf("expected defaults page=1 per_page=25, got %d/%d", plan.Page, plan.PerPage)
	}
	if len(plan.Filters) != 0 || plan.Query != "" {
		t.Fatalf("expected empty plan, got %+v", plan)
	}
}

func TestParseSearchParamsFilters(t *testing.T) {
	plan, err := ParseSearchParams(map[string]string{
		"filter[media_type]":     "video",
		"filter[size_bytes.gte]": "1024",
		"filter[media_type.in]":  "video,audio",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Filters) != 3 {
		t.Fatalf("expected 3 filters, got %d", len(plan.Filters))
	}

	byOp := map[string]WhereClause{}
	for _, f := range plan.Filters {
		byOp[f.Operator] = f
	}
	if byOp["eq"].Value != "video" {
		t.Errorf("eq filter value = %v", byOp["eq"].Value)
	}
	if byOp["gte"].Value != int64(1024) {
		t.Errorf("gte filter not coerced to int64: %T %v", byOp["gte"].Value, byOp["gte"].Value)
	}
	in, ok := byOp["in"].Value.([]any)
	if !ok || len(in) != 2 || in[0] != "video" || in[1] != "audio" {
		t.Errorf("in filter = %v", byOp["in"].Value)
	}
}

func TestParseSearchParamsUnknownField(t *testing.T) {
	if _, err := ParseSearchParams(map[string]string{"filter[secret]": "x"}); err == nil {
		t.Fatal("expected error for unknown filter field")
	}
	if _, err := ParseSearchParams(map[string]string{"sort": "secret"}); err == nil {
		t.Fatal("expected error for unknown sort field")
	}
}

func TestParseSearchParamsBadIntValue(t *testing.T) {
	if _, err := ParseSearchParams(map[string]string{"filter[size_bytes.gt]": "big"}); err == nil {
		t.Fatal("expected error for non-numeric size filter")
	}
}

func TestParseSearchParamsSortAndPaging(t *testing.T) {
	plan, err := ParseSearchParams(map[string]string{
		"sort":     "-created_at,title",
		"page":     "3",
		"per_page": "500",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Sorts) != 2 {
		t.Fatalf("expected 2 sorts, got %d", len(plan.Sorts))
	}
	if plan.Sorts[0].Field != "created_at" || plan.Sorts[0].Dir != "DESC" {
		t.Errorf("first sort = %+v", plan.Sorts[0])
	}
	if plan.Sorts[1].Field != "title" || plan.Sorts[1].Dir != "ASC" {
		t.Errorf("second sort = %+v", plan.Sorts[1])
	}
	if plan.Page != 3 {
		t.Errorf("page = %d", plan.Page)
	}
	if plan.PerPage != 100 {
		t.Errorf("per_page should cap at 100, got %d", plan.PerPage)
	}
}

func TestBuildSelectSQLPostgres(t *testing.T) {
	plan := &SearchPlan{
		Filters: []WhereClause{{Field: "media_type", Operator: "eq", Value: "video"}},
		Query:   "sunset",
		Sorts:   []OrderClause{{Field: "created_at", Dir: "DESC"}},
		Page:    2,
		PerPage: 10,
	}
	result := BuildSelectSQL(plan, &store.PostgresDialect{})

	if !strings.Contains(result.SQL, "deleted_at IS NULL") {
		t.Errorf("soft delete filter missing: %s", result.SQL)
	}
	if !strings.Contains(result.SQL, "media_type = $1") {
		t.Errorf("filter placeholder wrong: %s", result.SQL)
	}
	if !strings.Contains(result.SQL, "(title LIKE $2 OR description LIKE $3)") {
		t.Errorf("free text clause wrong: %s", result.SQL)
	}
	if !strings.Contains(result.SQL, "ORDER BY created_at DESC") {
		t.Errorf("order clause wrong: %s", result.SQL)
	}
	if !strings.Contains(result.SQL, "LIMIT $4 OFFSET $5") {
		t.Errorf("paging placeholders wrong: %s", result.SQL)
	}
	if len(result.Params) != 5 {
		t.Fatalf("expected 5 params, got %d: %v", len(result.Params), result.Params)
	}
	if result.Params[3] != 10 || result.Params[4] != 10 {
		t.Errorf("limit/offset params = %v", result.Params[3:])
	}
}

func TestBuildSelectSQLSQLiteIn(t *testing.T) {
	plan := &SearchPlan{
		Filters: []WhereClause{{Field: "media_type", Operator: "in", Value: []any{"video", "audio"}}},
		Page:    1,
		PerPage: 25,
	}
	result := BuildSelectSQL(plan, &store.SQLiteDialect{})

	if !strings.Contains(result.SQL, "media_type IN (?1, ?2)") {
		t.Errorf("sqlite IN expansion wrong: %s", result.SQL)
	}
	if !strings.Contains(result.SQL, "ORDER BY created_at DESC") {
		t.Errorf("default ordering missing: %s", result.SQL)
	}
	if len(result.Params) != 4 {
		t.Fatalf("expected 4 params, got %d: %v", len(result.Params), result.Params)
	}
}

func TestBuildCountSQLSharesFilters(t *testing.T) {
	plan := &SearchPlan{
		Filters: []WhereClause{{Field: "size_bytes", Operator: "lte", Value: int64(2048)}},
		Page:    7,
		PerPage: 50,
	}
	result := BuildCountSQL(plan, &store.PostgresDialect{})

	if !strings.Contains(result.SQL, "COUNT(*)") {
		t.Errorf("not a count query: %s", result.SQL)
	}
	if !strings.Contains(result.SQL, "size_bytes <= $1") {
		t.Errorf("filter missing from count: %s", result.SQL)
	}
	if strings.Contains(result.SQL, "LIMIT") {
		t.Errorf("count query should not page: %s", result.SQL)
	}
	if len(result.Params) != 1 {
		t.Fatalf("expected 1 param, got %v", result.Params)
	}
}

func TestNormalizeMediaType(t *testing.T) {
	if got := NormalizeMediaType("video"); got != "video" {
		t.Errorf("video -> %s", got)
	}
	if got := NormalizeMediaType("hologram"); got != "other" {
		t.Errorf("hologram -> %s", got)
	}
}
