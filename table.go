package chronodb

import (
	"bytes"
	"context"
	"fmt"
)

// Table is a small helper for table DDL issued through the regular query
// path.
type Table struct {
	c *Client

	// Database is the database holding the table. Empty falls back to the
	// per-call or client default.
	Database string
	// Table is the table name.
	Table string
}

func (c *Client) Table(tableName string) *Table {
	return &Table{
		c:     c,
		Table: tableName,
	}
}

// Create creates the table with the given column definitions, e.g.
// "name string TAG, value double, t timestamp NOT NULL, TIMESTAMP KEY(t)".
// It is a no-op if the table already exists.
func (t *Table) Create(ctx context.Context, rpcCtx *RpcContext, columns string) error {
	sql := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s) ENGINE=Analytic`, t.Identifier(), columns)
	_, err := t.c.SQLQuery(ctx, t.rpcCtx(rpcCtx), NewSQLQueryRequest([]string{t.Table}, sql))
	return err
}

// Drop drops the table.
func (t *Table) Drop(ctx context.Context, rpcCtx *RpcContext) error {
	sql := fmt.Sprintf(`DROP TABLE %s`, t.Identifier())
	_, err := t.c.SQLQuery(ctx, t.rpcCtx(rpcCtx), NewSQLQueryRequest([]string{t.Table}, sql))
	return err
}

func (t *Table) rpcCtx(rpcCtx *RpcContext) *RpcContext {
	if t.Database == "" {
		return rpcCtx
	}
	out := RpcContext{Database: t.Database}
	if rpcCtx != nil {
		out = *rpcCtx
		out.Database = t.Database
	}
	return &out
}

// Identifier returns the quoted table name.
func (t *Table) Identifier() string {
	var b bytes.Buffer
	if t.Database != "" {
		b.WriteString(quoteIdent(t.Database, '`'))
		b.WriteByte('.')
	}
	b.WriteString(quoteIdent(t.Table, '`'))
	return b.String()
}

func quoteIdent(s string, r rune) string {
	var b bytes.Buffer
	b.WriteRune(r)
	for _, c := range s {
		switch c {
		case '\t':
			b.WriteString("\\t")
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\\':
			b.WriteString("\\\\")
		default:
			if c == r {
				b.WriteRune('\\')
				b.WriteRune(c)
				break
			}

			if c < 0x20 {
				b.WriteString(fmt.Sprintf("\\x%02x", c))
				break
			}

			b.WriteRune(c)
		}
	}
	b.WriteRune(r)
	return b.String()
}
