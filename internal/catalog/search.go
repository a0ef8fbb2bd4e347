package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"media-console/internal/api"
	"media-console/internal/store"
)

// SearchPlan is a parsed asset list query: filters, free-text search,
// sorting and paging.
type SearchPlan struct {
	Filters []WhereClause
	Query   string // free-text match on title/description
	Sorts   []OrderClause
	Page    int
	PerPage int
}

type WhereClause struct {
	Field    string
	Operator string
	Value    any
}

type OrderClause struct {
	Field string
	Dir   string // ASC or DESC
}

// SearchResult is a built, parameterized statement.
type SearchResult struct {
	SQL    string
	Params []any
}

// ParseSearchParams parses query parameters into a SearchPlan.
// Filters use filter[field]=val or filter[field.op]=val; sort is a
// comma list with a leading dash for descending; q is free text.
func ParseSearchParams(queries map[string]string) (*SearchPlan, error) {
	plan := &SearchPlan{
		Page:    1,
		PerPage: 25,
	}

	for key, val := range queries {
		if !strings.HasPrefix(key, "filter[") || !strings.HasSuffix(key, "]") {
			continue
		}
		inner := key[7 : len(key)-1]
		field, op := parseFilterKey(inner)

		fieldType, ok := assetFields[field]
		if !ok {
			return nil, &api.AppError{
				Code:    "UNKNOWN_FIELD",
				Status:  400,
				Message: fmt.Sprintf("Unknown filter field: %s", field),
			}
		}

		coerced, err := coerceValue(fieldType, val, op)
		if err != nil {
			return nil, &api.AppError{
				Code:    "INVALID_PAYLOAD",
				Status:  400,
				Message: fmt.Sprintf("Invalid filter value for %s: %v", field, err),
			}
		}

		plan.Filters = append(plan.Filters, WhereClause{Field: field, Operator: op, Value: coerced})
	}

	if q, ok := queries["q"]; ok && q != "" {
		plan.Query = q
	}

	if sortParam := queries["sort"]; sortParam != "" {
		for _, part := range strings.Split(sortParam, ",") {
			part = strings.TrimSpace(part)
			dir := "ASC"
			field := part
			if strings.HasPrefix(part, "-") {
				dir = "DESC"
				field = part[1:]
			}
			if _, ok := assetFields[field]; !ok {
				return nil, &api.AppError{
					Code:    "UNKNOWN_FIELD",
					Status:  400,
					Message: fmt.Sprintf("Unknown sort field: %s", field),
				}
			}
			plan.Sorts = append(plan.Sorts, OrderClause{Field: field, Dir: dir})
		}
	}

	if p := queries["page"]; p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			plan.Page = v
		}
	}
	if pp := queries["per_page"]; pp != "" {
		if v, err := strconv.Atoi(pp); err == nil && v > 0 {
			plan.PerPage = v
			if plan.PerPage > 100 {
				plan.PerPage = 100
			}
		}
	}

	return plan, nil
}

// BuildSelectSQL builds a parameterized SELECT from the plan. Soft
// deleted assets are always excluded.
func BuildSelectSQL(plan *SearchPlan, dialect store.Dialect) SearchResult {
	pb := dialect.NewParamBuilder()

	where := buildWhere(plan, dialect, pb)
	sqlStr := fmt.Sprintf("SELECT %s FROM assets WHERE %s", assetColumns, strings.Join(where, " AND "))

	if len(plan.Sorts) > 0 {
		var orderParts []string
		for _, s := range plan.Sorts {
			orderParts = append(orderParts, fmt.Sprintf("%s %s", s.Field, s.Dir))
		}
		sqlStr += " ORDER BY " + strings.Join(orderParts, ", ")
	} else {
		sqlStr += " ORDER BY created_at DESC"
	}

	limit := pb.Add(plan.PerPage)
	offset := pb.Add((plan.Page - 1) * plan.PerPage)
	sqlStr += fmt.Sprintf(" LIMIT %s OFFSET %s", limit, offset)

	return SearchResult{SQL: sqlStr, Params: pb.Params()}
}

// BuildCountSQL builds a COUNT query with the same filters as the select.
func BuildCountSQL(plan *SearchPlan, dialect store.Dialect) SearchResult {
	pb := dialect.NewParamBuilder()
	where := buildWhere(plan, dialect, pb)
	sqlStr := "SELECT COUNT(*) AS total FROM assets WHERE " + strings.Join(where, " AND ")
	return SearchResult{SQL: sqlStr, Params: pb.Params()}
}

func buildWhere(plan *SearchPlan, dialect store.Dialect, pb store.ParamBuilder) []string {
	where := []string{"deleted_at IS NULL"}

	for _, f := range plan.Filters {
		where = append(where, buildWhereClause(f, dialect, pb))
	}

	if plan.Query != "" {
		pattern := "%" + plan.Query + "%"
		where = append(where, fmt.Sprintf("(title LIKE %s OR description LIKE %s)",
			pb.Add(pattern), pb.Add(pattern)))
	}

	return where
}

func buildWhereClause(f WhereClause, dialect store.Dialect, pb store.ParamBuilder) string {
	switch f.Operator {
	case "eq", "":
		return fmt.Sprintf("%s = %s", f.Field, pb.Add(f.Value))
	case "neq":
		return fmt.Sprintf("%s != %s", f.Field, pb.Add(f.Value))
	case "gt":
		return fmt.Sprintf("%s > %s", f.Field, pb.Add(f.Value))
	case "gte":
		return fmt.Sprintf("%s >= %s", f.Field, pb.Add(f.Value))
	case "lt":
		return fmt.Sprintf("%s < %s", f.Field, pb.Add(f.Value))
	case "lte":
		return fmt.Sprintf("%s <= %s", f.Field, pb.Add(f.Value))
	case "in":
		values, _ := f.Value.([]any)
		return dialect.InExpr(f.Field, pb, values)
	case "like":
		return fmt.Sprintf("%s LIKE %s", f.Field, pb.Add(f.Value))
	default:
		return fmt.Sprintf("%s = %s", f.Field, pb.Add(f.Value))
	}
}

// parseFilterKey splits "size_bytes.gte" into ("size_bytes", "gte") or
// "media_type" into ("media_type", "eq").
func parseFilterKey(key string) (string, string) {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return key, "eq"
}

// coerceValue converts string query params to typed values. "in"
// values are comma-separated lists.
func coerceValue(fieldType, val, op string) (any, error) {
	if op == "in" {
		parts := strings.Split(val, ",")
		coerced := make([]any, len(parts))
		for i, p := range parts {
			v, err := coerceSingleValue(fieldType, strings.TrimSpace(p))
			if err != nil {
				return nil, err
			}
			coerced[i] = v
		}
		return coerced, nil
	}
	return coerceSingleValue(fieldType, val)
}

func coerceSingleValue(fieldType, val string) (any, error) {
	switch fieldType {
	case "int":
		return strconv.ParseInt(val, 10, 64)
	default:
		return val, nil
	}
}
