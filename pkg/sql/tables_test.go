package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tables(t *testing.T, d Dialect, sql string) []string {
	t.Helper()
	stmt, err := ParseOne(d, sql)
	require.NoError(t, err)
	require.NotNil(t, stmt)
	var out []string
	for _, ref := range stmt.Tables() {
		out = append(out, ref.String())
	}
	return out
}

func TestTables(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		sql     string
		want    []string
	}{
		{"simple", DialectANSI, "SELECT * FROM tbl", []string{"tbl"}},
		{"schema qualified", DialectANSI, "SELECT * FROM s.tbl", []string{"s.tbl"}},
		{"catalog qualified", DialectANSI, "SELECT * FROM c.s.tbl", []string{"c.s.tbl"}},
		{"case preserved", DialectANSI, "SELECT * FROM Sales.Orders", []string{"Sales.Orders"}},
		{"double quoted", DialectANSI, `SELECT * FROM "my schema"."My Table"`, []string{"my schema.My Table"}},
		{"backticks", DialectMySQL, "SELECT * FROM `db`.`t`", []string{"db.t"}},
		{"brackets", DialectMSSQL, "SELECT * FROM [dbo].[Order Details]", []string{"dbo.Order Details"}},
		{"alias", DialectANSI, "SELECT a.x FROM tbl AS a", []string{"tbl"}},
		{"comma list", DialectANSI, "SELECT * FROM t1 a, t2 b, s.t3", []string{"t1", "t2", "s.t3"}},
		{"joins", DialectANSI, "SELECT * FROM t1 LEFT JOIN t2 ON t1.id = t2.id JOIN t3 USING (id)", []string{"t1", "t2", "t3"}},
		{"subquery", DialectANSI, "SELECT * FROM (SELECT * FROM inner_t) sub", []string{"inner_t"}},
		{"derived table in list", DialectANSI, "SELECT * FROM (SELECT 1) a, b", []string{"b"}},
		{"where subquery", DialectANSI, "SELECT * FROM a WHERE id IN (SELECT id FROM b)", []string{"a", "b"}},
		{"insert", DialectANSI, "INSERT INTO t (a, b) SELECT a, b FROM s", []string{"t", "s"}},
		{"update", DialectANSI, "UPDATE s.t SET a = 1", []string{"s.t"}},
		{"delete", DialectANSI, "DELETE FROM t WHERE a = 1", []string{"t"}},
		{"truncate", DialectANSI, "TRUNCATE TABLE t", []string{"t"}},
		{"drop list", DialectANSI, "DROP TABLE IF EXISTS a, b", []string{"a", "b"}},
		{"cte excluded", DialectANSI, "WITH x AS (SELECT * FROM base) SELECT * FROM x", []string{"base"}},
		{"cte qualified kept", DialectANSI, "WITH x AS (SELECT 1) SELECT * FROM s.x", []string{"s.x"}},
		{"extract from", DialectANSI, "SELECT EXTRACT(YEAR FROM ts) FROM events", []string{"events"}},
		{"substring from", DialectANSI, "SELECT SUBSTRING(name FROM 2 FOR 3) FROM people", []string{"people"}},
		{"distinct from", DialectANSI, "SELECT * FROM a WHERE x IS DISTINCT FROM y", []string{"a"}},
		{"table function", DialectPostgres, "SELECT * FROM generate_series(1, 10) g", nil},
		{"for update", DialectANSI, "SELECT * FROM t FOR UPDATE", []string{"t"}},
		{"deduplicated", DialectANSI, "SELECT * FROM t JOIN t ON 1=1", []string{"t"}},
		{"string literal ignored", DialectANSI, "SELECT 'FROM secret' FROM t", []string{"t"}},
		{"merge", DialectANSI, "MERGE INTO t USING s ON t.id = s.id WHEN MATCHED THEN DELETE", []string{"t", "s"}},
		{"mysql ast", DialectMySQL, "SELECT * FROM a JOIN b ON a.id = b.id", []string{"a", "b"}},
		{"sqlite ast", DialectSQLite, "SELECT * FROM main.a", []string{"main.a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tables(t, tt.dialect, tt.sql))
		})
	}
}

func TestTableReference_String(t *testing.T) {
	assert.Equal(t, "t", TableReference{Table: "t"}.String())
	assert.Equal(t, "s.t", TableReference{Schema: "s", Table: "t"}.String())
	assert.Equal(t, "c.s.t", TableReference{Catalog: "c", Schema: "s", Table: "t"}.String())
}
