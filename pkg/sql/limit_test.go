package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractLimit(t *testing.T) {
	tests := []struct {
		name  string
		sql   string
		want  int
		found bool
	}{
		{"no limit", "select * from table", 0, false},
		{"plain", "select * from mytable limit 10", 10, true},
		{"outer beats subquery", "select * from (select * from my_subquery limit 10) where col=1 limit 20", 20, true},
		{"subquery only", "select * from (select * from my_subquery limit 10);", 0, false},
		{"outer beats subquery with semicolon", "select * from (select * from my_subquery limit 10) where col=1 limit 20;", 20, true},
		{"comma form", "select * from mytable limit 20, 10", 10, true},
		{"offset form", "select * from mytable limit 10 offset 20", 10, true},
		{"dangling keyword", "select * from mytable limit", 0, false},
		{"decimal", "select * from mytable limit 10.0", 0, false},
		{"identifier", "select * from mytable limit x", 0, false},
		{"comma identifier", "select * from mytable limit 20, x", 0, false},
		{"identifier offset", "select * from mytable limit x offset 20", 0, false},
		{"bound parameter", "select * from mytable limit ?", 0, false},
		{"fetch first", "select * from t fetch first 5 rows only", 5, true},
		{"top", "select top 7 * from t", 7, true},
		{"top parens", "select top (8) * from t", 8, true},
		{"literal only", "select 'limit 5' from t", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractLimit(DialectANSI, tt.sql)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyLimit(t *testing.T) {
	tests := []struct {
		name  string
		sql   string
		limit int
		force bool
		want  string
	}{
		{
			name:  "wrapped semicolon and tabs",
			sql:   "SELECT * FROM a  \t \n   ; \t  \n  ",
			limit: 1000,
			want:  "SELECT * FROM a\nLIMIT 1000",
		},
		{
			name:  "simple",
			sql:   "SELECT * FROM a",
			limit: 1000,
			want:  "SELECT * FROM a\nLIMIT 1000",
		},
		{
			name:  "modify",
			sql:   "SELECT * FROM a LIMIT 9999",
			limit: 1000,
			want:  "SELECT * FROM a LIMIT 1000",
		},
		{
			name:  "subquery limit untouched",
			sql:   "SELECT * FROM (SELECT * FROM a LIMIT 10) LIMIT 9999",
			limit: 1000,
			want:  "SELECT * FROM (SELECT * FROM a LIMIT 10) LIMIT 1000",
		},
		{
			name:  "lower limit kept without force",
			sql:   "SELECT * FROM a LIMIT 10",
			limit: 11,
			want:  "SELECT * FROM a LIMIT 10",
		},
		{
			name:  "lower limit replaced with force",
			sql:   "SELECT * FROM a LIMIT 10",
			limit: 11,
			force: true,
			want:  "SELECT * FROM a LIMIT 11",
		},
		{
			name: "literal containing limit",
			sql: `
            SELECT
                'LIMIT 777' AS a
                , b
            FROM
            table
            LIMIT 99990`,
			limit: 1000,
			want: `SELECT
                'LIMIT 777' AS a
                , b
            FROM
            table
            LIMIT 1000`,
		},
		{
			name: "literal and spaced semicolon",
			sql: `
                SELECT
                    'LIMIT 777' AS a
                    , b
                FROM
                table
                LIMIT         99990            ;`,
			limit: 1000,
			want: `SELECT
                    'LIMIT 777' AS a
                    , b
                FROM
                table
                LIMIT         1000`,
		},
		{
			name: "implicit offset",
			sql: `
                SELECT
                    'LIMIT 777' AS a
                    , b
                FROM
                table
                LIMIT 99990, 999999`,
			limit: 1000,
			want: `SELECT
                    'LIMIT 777' AS a
                    , b
                FROM
                table
                LIMIT 99990, 1000`,
		},
		{
			name: "explicit offset",
			sql: `
                SELECT
                    'LIMIT 777' AS a
                    , b
                FROM
                table
                LIMIT 99990
                OFFSET 999999`,
			limit: 1000,
			want: `SELECT
                    'LIMIT 777' AS a
                    , b
                FROM
                table
                LIMIT 1000
                OFFSET 999999`,
		},
		{
			name:  "no clause, literal only",
			sql:   "SELECT 'LIMIT 777'",
			limit: 1000,
			want:  "SELECT 'LIMIT 777'\nLIMIT 1000",
		},
		{
			name:  "literal in select list",
			sql:   "SELECT 'LIMIT 777' AS a FROM t",
			limit: 1000,
			want:  "SELECT 'LIMIT 777' AS a FROM t\nLIMIT 1000",
		},
		{
			name:  "comma limit count rewritten",
			sql:   "SELECT * FROM t LIMIT 20, 10",
			limit: 1000,
			want:  "SELECT * FROM t LIMIT 20, 1000",
		},
		{
			name:  "offset limit count rewritten",
			sql:   "SELECT * FROM t LIMIT 10 OFFSET 5",
			limit: 1000,
			want:  "SELECT * FROM t LIMIT 1000 OFFSET 5",
		},
		{
			name:  "only last statement limited",
			sql:   "CREATE TEMP TABLE x AS SELECT * FROM a;\nSELECT * FROM x;",
			limit: 50,
			want:  "CREATE TEMP TABLE x AS SELECT * FROM a;\nSELECT * FROM x\nLIMIT 50",
		},
		{
			name:  "unparseable count fails closed",
			sql:   "SELECT * FROM t LIMIT x",
			limit: 100,
			want:  "SELECT * FROM t LIMIT x\nLIMIT 100",
		},
		{
			name:  "limit all",
			sql:   "SELECT * FROM t LIMIT ALL",
			limit: 100,
			want:  "SELECT * FROM t LIMIT 100",
		},
		{
			name:  "fetch first",
			sql:   "SELECT * FROM t FETCH FIRST 500 ROWS ONLY",
			limit: 100,
			want:  "SELECT * FROM t FETCH FIRST 100 ROWS ONLY",
		},
		{
			name:  "fetch first without count forced",
			sql:   "SELECT * FROM t FETCH FIRST ROW ONLY",
			limit: 100,
			force: true,
			want:  "SELECT * FROM t FETCH FIRST 100 ROW ONLY",
		},
		{
			name:  "top",
			sql:   "SELECT TOP 500 * FROM t",
			limit: 100,
			want:  "SELECT TOP 100 * FROM t",
		},
		{
			name:  "trailing comment",
			sql:   "SELECT * FROM t -- note",
			limit: 10,
			want:  "SELECT * FROM t -- note\nLIMIT 10",
		},
		{
			name:  "unterminated literal fails closed",
			sql:   "SELECT 'abc",
			limit: 10,
			want:  "SELECT 'abc\nLIMIT 10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplyLimit(DialectANSI, tt.sql, tt.limit, tt.force))
		})
	}
}

func TestApplyLimit_IdempotentWithForce(t *testing.T) {
	inputs := []string{
		"SELECT * FROM a",
		"SELECT * FROM a LIMIT 5",
		"SELECT * FROM a LIMIT 20, 10;",
		"SELECT * FROM a LIMIT x",
		"SELECT 1; SELECT * FROM b LIMIT 99999",
		"SELECT TOP 3 * FROM a",
	}
	for _, in := range inputs {
		once := ApplyLimit(DialectANSI, in, 100, true)
		twice := ApplyLimit(DialectANSI, once, 100, true)
		assert.Equal(t, once, twice, in)
	}
}

func TestApplyLimit_MySQLBackslashLiteral(t *testing.T) {
	got := ApplyLimit(DialectMySQL, `SELECT 'it\'s LIMIT 5' FROM t`, 10, false)
	assert.Equal(t, "SELECT 'it\\'s LIMIT 5' FROM t\nLIMIT 10", got)
}

func TestClassifyLimit(t *testing.T) {
	assert.Equal(t, LimitAppended, ClassifyLimit(DialectANSI, "SELECT 1", 10, false))
	assert.Equal(t, LimitRewritten, ClassifyLimit(DialectANSI, "SELECT 1 LIMIT 50", 10, false))
	assert.Equal(t, LimitUnchanged, ClassifyLimit(DialectANSI, "SELECT 1 LIMIT 5", 10, false))
	assert.Equal(t, LimitRewritten, ClassifyLimit(DialectANSI, "SELECT 1 LIMIT 5", 10, true))
}

func TestWrapLimit(t *testing.T) {
	got := WrapLimit(DialectMSSQL, "SET NOCOUNT ON; SELECT * FROM t;", 100,
		"SELECT TOP ({limit}) * FROM ({sql}) AS inner_qry")
	assert.Equal(t, "SET NOCOUNT ON; SELECT TOP (100) * FROM (SELECT * FROM t) AS inner_qry", got)
}
