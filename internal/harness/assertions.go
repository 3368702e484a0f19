package harness

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/verist/sitechain/internal/chain"
	"github.com/verist/sitechain/internal/ledger"
)

// validIdentifier matches SQL identifiers (table/column names). Identifiers
// cannot be bound as parameters, so they are vetted against this pattern
// before interpolation. Values are always bound.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionContext carries what assertions need: the ledger for chain
// verification, the maintenance connection for raw state checks.
type AssertionContext struct {
	Ctx    context.Context
	Ledger *ledger.Ledger
	DB     *sql.DB
}

// AssertionError reports one failed assertion with expected and actual
// outcomes side by side.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion %s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions runs every assertion and returns the failures.
// All assertions run even after one fails.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error
		switch assertion.Type {
		case AssertChainValid:
			err = assertChainValid(actx, assertion)
		case AssertFindings:
			err = assertFindings(actx, assertion)
		case AssertRecordCount:
			err = assertRecordCount(actx, assertion)
		case AssertFinalState:
			err = assertFinalState(actx, assertion)
		default:
			err = fmt.Errorf("unknown assertion type %q", assertion.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i+1, err))
		}
	}

	return errs
}

// assertChainValid verifies the scope's chain and requires zero findings.
func assertChainValid(actx *AssertionContext, a Assertion) error {
	result, err := verifyScope(actx, a.Scope)
	if err != nil {
		return err
	}
	if !result.ChainValid {
		return &AssertionError{
			Type:     AssertChainValid,
			Expected: fmt.Sprintf("%s valid over %d records", a.Scope, result.RecordsChecked),
			Actual:   fmt.Sprintf("findings %s", formatFindings(result.Findings)),
		}
	}
	return nil
}

// assertFindings verifies the scope's chain and requires exactly the
// expected findings, in chain order. Kind and seq identify a finding;
// the digests themselves are the verifier's business.
func assertFindings(actx *AssertionContext, a Assertion) error {
	result, err := verifyScope(actx, a.Scope)
	if err != nil {
		return err
	}

	actual := make([]ExpectedFinding, len(result.Findings))
	for i, f := range result.Findings {
		actual[i] = ExpectedFinding{Kind: string(f.Kind), Seq: f.Seq}
	}

	if !reflect.DeepEqual(a.Findings, actual) {
		return &AssertionError{
			Type:     AssertFindings,
			Expected: formatExpectedFindings(a.Findings),
			Actual:   formatFindings(result.Findings),
		}
	}
	return nil
}

// verifyScope resolves a scope string and runs real chain verification.
func verifyScope(actx *AssertionContext, scopeStr string) (chain.VerificationResult, error) {
	scope, err := parseScope(scopeStr)
	if err != nil {
		return chain.VerificationResult{}, err
	}
	result, err := actx.Ledger.VerifyChain(actx.Ctx, scope)
	if err != nil {
		return chain.VerificationResult{}, fmt.Errorf("verify %s: %w", scopeStr, err)
	}
	return result, nil
}

// parseScope parses "progress/<project-id>" or "audit/global".
func parseScope(s string) (chain.Scope, error) {
	kind, rest, found := strings.Cut(s, "/")
	if !found {
		return chain.Scope{}, fmt.Errorf("malformed scope %q: want kind/identifier", s)
	}
	switch kind {
	case string(chain.KindProgress):
		return chain.ResolveScope(chain.KindProgress, rest)
	case string(chain.KindAudit):
		if rest != chain.GlobalAuditScopeID {
			return chain.Scope{}, fmt.Errorf("malformed scope %q: audit chain is %q", s, chain.AuditScope())
		}
		return chain.ResolveScope(chain.KindAudit, "")
	default:
		return chain.Scope{}, fmt.Errorf("malformed scope %q: unknown kind %q", s, kind)
	}
}

// assertRecordCount counts matching rows through the maintenance
// connection.
func assertRecordCount(actx *AssertionContext, a Assertion) error {
	if !validIdentifier.MatchString(a.Table) {
		return fmt.Errorf("invalid table name %q", a.Table)
	}

	whereSQL, whereArgs, err := buildWhereClause(a.Where)
	if err != nil {
		return err
	}

	query := "SELECT COUNT(*) FROM " + a.Table
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	var count int
	if err := actx.DB.QueryRowContext(actx.Ctx, query, whereArgs...).Scan(&count); err != nil {
		return fmt.Errorf("count %s: %w", a.Table, err)
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertRecordCount,
			Expected: fmt.Sprintf("%d rows in %s where %s", a.Count, a.Table, formatWhere(a.Where)),
			Actual:   fmt.Sprintf("%d rows", count),
		}
	}
	return nil
}

// assertFinalState fetches exactly one matching row and checks expected
// column values. Subset semantics: columns absent from expect are not
// checked. More than one match means the where clause is ambiguous, which
// is an assertion bug, not a pass.
func assertFinalState(actx *AssertionContext, a Assertion) error {
	if !validIdentifier.MatchString(a.Table) {
		return fmt.Errorf("invalid table name %q", a.Table)
	}

	whereSQL, whereArgs, err := buildWhereClause(a.Where)
	if err != nil {
		return err
	}

	query := "SELECT * FROM " + a.Table
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	rows, err := actx.DB.QueryContext(actx.Ctx, query, whereArgs...)
	if err != nil {
		return fmt.Errorf("query %s: %w", a.Table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("columns of %s: %w", a.Table, err)
	}

	if !rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("one row in %s where %s", a.Table, formatWhere(a.Where)),
			Actual:   "no rows matched",
		}
	}

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return fmt.Errorf("scan %s: %w", a.Table, err)
	}

	if rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("one row in %s where %s", a.Table, formatWhere(a.Where)),
			Actual:   "multiple rows matched",
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s: %w", a.Table, err)
	}

	row := make(map[string]any, len(columns))
	for i, col := range columns {
		row[col] = values[i]
	}

	for _, key := range sortedKeys(a.Expect) {
		actual, exists := row[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("column %q in %s", key, a.Table),
				Actual:   fmt.Sprintf("columns are %v", columns),
			}
		}
		if !stateValuesEqual(a.Expect[key], actual) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s = %v (%T)", key, a.Expect[key], a.Expect[key]),
				Actual:   fmt.Sprintf("%s = %v (%T)", key, actual, actual),
			}
		}
	}

	return nil
}

// buildWhereClause assembles a parameterized equality filter. Keys are
// sorted so the generated SQL is stable.
func buildWhereClause(where map[string]any) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := sortedKeys(where)
	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))

	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause", key)
		}
		clauses = append(clauses, key+" = ?")
		args = append(args, where[key])
	}

	return strings.Join(clauses, " AND "), args, nil
}

// stateValuesEqual compares a YAML-sourced expected value with a scanned
// SQLite value. The schema stores TEXT and INTEGER only, so the coercions
// are string-vs-bytes and int-vs-int64.
func stateValuesEqual(expected, actual any) bool {
	switch exp := expected.(type) {
	case string:
		switch act := actual.(type) {
		case string:
			return exp == act
		case []byte:
			return exp == string(act)
		}
		return false
	case int:
		if act, ok := actual.(int64); ok {
			return int64(exp) == act
		}
		return false
	case int64:
		if act, ok := actual.(int64); ok {
			return exp == act
		}
		return false
	case bool:
		// Booleans land in INTEGER columns as 0/1.
		if act, ok := actual.(int64); ok {
			return exp == (act != 0)
		}
		return false
	default:
		return reflect.DeepEqual(expected, actual)
	}
}

// formatWhere renders a where map for error messages.
func formatWhere(where map[string]any) string {
	if len(where) == 0 {
		return "(unfiltered)"
	}
	parts := make([]string, 0, len(where))
	for _, k := range sortedKeys(where) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// formatFindings renders verifier findings for error messages.
func formatFindings(findings []chain.Finding) string {
	if len(findings) == 0 {
		return "none"
	}
	parts := make([]string, len(findings))
	for i, f := range findings {
		parts[i] = fmt.Sprintf("%s@seq=%d", f.Kind, f.Seq)
	}
	return strings.Join(parts, ", ")
}

// formatExpectedFindings renders the assertion's expected findings list.
func formatExpectedFindings(findings []ExpectedFinding) string {
	parts := make([]string, len(findings))
	for i, f := range findings {
		parts[i] = fmt.Sprintf("%s@seq=%d", f.Kind, f.Seq)
	}
	return strings.Join(parts, ", ")
}

// sortedKeys fixes iteration order for SQL building and error messages.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
