package store

import (
	"errors"
	"testing"
)

func TestParamBuilders(t *testing.T) {
	pg := (&PostgresDialect{}).NewParamBuilder()
	if ph := pg.Add("a"); ph != "$1" {
		t.Fatalf("pg placeholder: got %s, want $1", ph)
	}
	if ph := pg.Add("b"); ph != "$2" {
		t.Fatalf("pg placeholder: got %s, want $2", ph)
	}
	if pg.Count() != 2 || len(pg.Params()) != 2 {
		t.Fatalf("pg params: count=%d len=%d", pg.Count(), len(pg.Params()))
	}

	lite := (&SQLiteDialect{}).NewParamBuilder()
	if ph := lite.Add("a"); ph != "?1" {
		t.Fatalf("sqlite placeholder: got %s, want ?1", ph)
	}
}

func TestInExpr(t *testing.T) {
	pg := &PostgresDialect{}
	pb := pg.NewParamBuilder()
	expr := pg.InExpr("media_type", pb, []any{"video", "audio"})
	if expr != "media_type = ANY($1)" {
		t.Fatalf("pg InExpr: got %s", expr)
	}
	if pb.Count() != 1 {
		t.Fatalf("pg InExpr should add one array param, got %d", pb.Count())
	}

	lite := &SQLiteDialect{}
	pb = lite.NewParamBuilder()
	expr = lite.InExpr("media_type", pb, []any{"video", "audio"})
	if expr != "media_type IN (?1, ?2)" {
		t.Fatalf("sqlite InExpr: got %s", expr)
	}
	if expr := lite.InExpr("x", lite.NewParamBuilder(), nil); expr != "1=0" {
		t.Fatalf("sqlite empty InExpr: got %s", expr)
	}
}

func TestSQLiteArrayRoundTrip(t *testing.T) {
	d := &SQLiteDialect{}
	encoded := d.ArrayParam([]string{"admin", "editor"})
	decoded, err := d.ScanArray(encoded)
	if err != nil {
		t.Fatalf("scan array: %v", err)
	}
	if len(decoded) != 2 || decoded[0] != "admin" || decoded[1] != "editor" {
		t.Fatalf("round trip: got %v", decoded)
	}

	decoded, err = d.ScanArray(nil)
	if err != nil || len(decoded) != 0 {
		t.Fatalf("nil scan: got %v, %v", decoded, err)
	}
}

func TestParsePgArray(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"{admin,user}", []string{"admin", "user"}},
		{"{}", []string{}},
		{`{"with space",plain}`, []string{"with space", "plain"}},
		{`["admin"]`, []string{"admin"}},
	}
	for _, tc := range cases {
		got, err := parsePgArray(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if len(got) != len(tc.want) {
			t.Fatalf("parse %q: got %v, want %v", tc.in, got, tc.want)
		}
		for i := range tc.want {
			if got[i] != tc.want[i] {
				t.Fatalf("parse %q: got %v, want %v", tc.in, got, tc.want)
			}
		}
	}
}

func TestSQLiteMapError(t *testing.T) {
	d := &SQLiteDialect{}
	err := d.MapError(errors.New("UNIQUE constraint failed: users.email"))
	if !errors.Is(err, ErrUniqueViolation) {
		t.Fatalf("expected ErrUniqueViolation, got %v", err)
	}
	plain := errors.New("disk I/O error")
	if got := d.MapError(plain); got != plain {
		t.Fatalf("unrelated error should pass through, got %v", got)
	}
	if d.MapError(nil) != nil {
		t.Fatal("nil error should map to nil")
	}
}

func TestNormalizeBooleans(t *testing.T) {
	rows := []map[string]any{
		{"active": int64(1), "name": "x"},
		{"active": int64(0), "name": "y"},
	}
	NormalizeBooleans(rows, []string{"active"})
	if rows[0]["active"] != true || rows[1]["active"] != false {
		t.Fatalf("bool fix: got %v", rows)
	}
	if rows[0]["name"] != "x" {
		t.Fatalf("non-bool field touched: %v", rows[0])
	}
}
