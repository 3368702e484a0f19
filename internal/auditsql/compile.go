// Package auditsql compiles auditq criteria to parameterized SQLite
// statements.
//
// Two rules hold for every statement leaving this package: values are
// always bound through placeholders, never interpolated into the SQL
// text, and every row-returning statement carries an ORDER BY with a
// deterministic tiebreaker. The page and count statements for one
// criteria share the identical WHERE clause, so a page total can never
// drift from its page contents.
package auditsql

import (
	"fmt"
	"strings"

	"github.com/verist/sitechain/internal/auditq"
)

// auditColumns is the column list every page statement selects, in the
// exact order the store's audit row scanner expects.
const auditColumns = "id, seq, actor_id, action, entity_type, entity_id, detail, ip_address, user_agent, created_at, prev_hash, record_hash"

// Statement is one compiled, parameterized statement. Args line up with
// the placeholders left to right.
type Statement struct {
	SQL  string
	Args []any
}

// CompileCount compiles criteria to a COUNT(*) over the matching
// records. Limit and Offset do not apply to the count; the total always
// describes the whole filtered set.
func CompileCount(c auditq.Criteria) (Statement, error) {
	if err := c.Validate(); err != nil {
		return Statement{}, err
	}

	where, args, err := whereClause(c.Predicate())
	if err != nil {
		return Statement{}, err
	}

	return Statement{
		SQL:  "SELECT COUNT(*) FROM audit_logs" + where,
		Args: args,
	}, nil
}

// CompilePage compiles criteria to one page of matching records, newest
// first. The ORDER BY is mandatory: seq is unique on the audit chain,
// and the id tiebreaker keeps the clause deterministic even against a
// damaged table.
func CompilePage(c auditq.Criteria) (Statement, error) {
	if err := c.Validate(); err != nil {
		return Statement{}, err
	}

	where, args, err := whereClause(c.Predicate())
	if err != nil {
		return Statement{}, err
	}

	sql := "SELECT " + auditColumns + " FROM audit_logs" + where +
		" ORDER BY seq DESC, id COLLATE BINARY DESC"

	if c.Limit > 0 {
		sql += " LIMIT ?"
		args = append(args, c.Limit)
		if c.Offset > 0 {
			sql += " OFFSET ?"
			args = append(args, c.Offset)
		}
	}

	return Statement{SQL: sql, Args: args}, nil
}

// whereClause renders a predicate as " WHERE ..." with its parameters.
// A nil predicate renders as the empty string: no filter, no clause.
func whereClause(p auditq.Predicate) (string, []any, error) {
	if p == nil {
		return "", nil, nil
	}

	sql, args, err := compilePredicate(p)
	if err != nil {
		return "", nil, err
	}
	return " WHERE " + sql, args, nil
}

// compilePredicate renders one predicate node as a SQL fragment.
// Values are never interpolated, always bound through placeholders.
func compilePredicate(p auditq.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case auditq.ActionIs:
		return "action = ?", []any{pred.Action}, nil
	case *auditq.ActionIs:
		return "action = ?", []any{pred.Action}, nil
	case auditq.ActorIs:
		return "actor_id = ?", []any{pred.ActorID}, nil
	case *auditq.ActorIs:
		return "actor_id = ?", []any{pred.ActorID}, nil
	case auditq.EntityTypeIs:
		return "entity_type = ?", []any{pred.EntityType}, nil
	case *auditq.EntityTypeIs:
		return "entity_type = ?", []any{pred.EntityType}, nil
	case auditq.EntityIDIs:
		return "entity_id = ?", []any{pred.EntityID}, nil
	case *auditq.EntityIDIs:
		return "entity_id = ?", []any{pred.EntityID}, nil
	case auditq.CreatedAtOrAfter:
		return "created_at >= ?", []any{pred.At.String()}, nil
	case *auditq.CreatedAtOrAfter:
		return "created_at >= ?", []any{pred.At.String()}, nil
	case auditq.CreatedBefore:
		return "created_at < ?", []any{pred.At.String()}, nil
	case *auditq.CreatedBefore:
		return "created_at < ?", []any{pred.At.String()}, nil
	case auditq.And:
		return compileAnd(pred)
	case *auditq.And:
		return compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("auditsql: unsupported predicate type %T", p)
	}
}

// compileAnd renders a conjunction. The empty conjunction is vacuously
// true.
func compileAnd(and auditq.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	var parts []string
	var args []any
	for _, p := range and.Predicates {
		sql, params, err := compilePredicate(p)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		args = append(args, params...)
	}

	return strings.Join(parts, " AND "), args, nil
}
