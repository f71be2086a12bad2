package sql

import (
	"strings"
	"sync"

	rqlitesql "github.com/rqlite/sql"
	"vitess.io/vitess/go/vt/sqlparser"
)

var (
	vitessOnce   sync.Once
	vitessParser *sqlparser.Parser
)

func mysqlParser() *sqlparser.Parser {
	vitessOnce.Do(func() {
		p, err := sqlparser.New(sqlparser.Options{})
		if err == nil {
			vitessParser = p
		}
	})
	return vitessParser
}

// astTables returns tables found by a full grammar parser for dialects that
// have one. The result is unioned with the token scan so that a miss in
// either source does not hide a table. Grammar failures yield nil.
func astTables(d Dialect, raw string) []TableReference {
	switch d {
	case DialectMySQL:
		return mysqlASTTables(raw)
	case DialectSQLite:
		return sqliteASTTables(raw)
	}
	return nil
}

func mysqlASTTables(raw string) []TableReference {
	p := mysqlParser()
	if p == nil {
		return nil
	}
	stmt, err := p.Parse(raw)
	if err != nil {
		return nil
	}

	var refs []TableReference
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		aliased, ok := node.(*sqlparser.AliasedTableExpr)
		if !ok {
			return true, nil
		}
		if name, ok := aliased.Expr.(sqlparser.TableName); ok && !name.Name.IsEmpty() {
			refs = append(refs, TableReference{
				Schema: name.Qualifier.String(),
				Table:  name.Name.String(),
			})
		}
		return true, nil
	}, stmt)
	return refs
}

func sqliteASTTables(raw string) []TableReference {
	stmt, err := rqlitesql.NewParser(strings.NewReader(raw)).ParseStatement()
	if err != nil {
		return nil
	}
	v := &sqliteTableVisitor{}
	rqlitesql.Walk(v, stmt)
	return v.refs
}

type sqliteTableVisitor struct {
	refs []TableReference
}

func (v *sqliteTableVisitor) Visit(node rqlitesql.Node) (rqlitesql.Visitor, rqlitesql.Node, error) {
	if n, ok := node.(*rqlitesql.QualifiedTableName); ok && n.Name != nil {
		ref := TableReference{Table: rqlitesql.IdentName(n.Name)}
		if n.Schema != nil {
			ref.Schema = rqlitesql.IdentName(n.Schema)
		}
		v.refs = append(v.refs, ref)
	}
	return v, node, nil
}

func (v *sqliteTableVisitor) VisitEnd(node rqlitesql.Node) (rqlitesql.Node, error) {
	return node, nil
}
