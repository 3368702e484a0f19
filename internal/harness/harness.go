package harness

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verist/sitechain/internal/canonical"
	"github.com/verist/sitechain/internal/chain"
	"github.com/verist/sitechain/internal/ledger"
	"github.com/verist/sitechain/internal/store"
	"github.com/verist/sitechain/internal/testutil"
)

// clockEpoch is where every scenario's frozen clock starts. Scenarios that
// need other instants move the clock explicitly with clock.set steps.
var clockEpoch = time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)

// Harness executes one scenario against a real ledger.
type Harness struct {
	store  *store.Store
	ledger *ledger.Ledger
	clock  *testutil.DeterministicClock

	// db is the maintenance connection: a second handle on the same
	// database file, outside the ledger entirely. tamper steps and state
	// assertions use it so they can never be confused with ledger writes.
	db *sql.DB

	logger *slog.Logger
}

// Run executes a scenario and returns its result.
//
// Each scenario runs against a fresh database in a temp directory; the file
// (not :memory:) is what lets the maintenance connection reach the same
// data as the ledger's own handle.
//
// A returned error means the scenario could not run at all (storage setup,
// malformed args, a tamper matching no rows). Outcome mismatches and
// assertion failures are recorded on the Result instead, so one broken
// expectation never hides the rest of the run.
func Run(scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "harness-*")
	if err != nil {
		return nil, fmt.Errorf("create scenario workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	dbPath := filepath.Join(dir, "ledger.db")
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open scenario store: %w", err)
	}
	defer st.Close()

	// Maintenance connection. The sqlite3 driver is registered by the
	// store import above.
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open maintenance connection: %w", err)
	}
	defer db.Close()

	clock := testutil.NewDeterministicClock(clockEpoch, 0)

	h := &Harness{
		store: st,
		ledger: ledger.New(st,
			ledger.WithClock(clock),
			ledger.WithIDGenerator(testutil.NewSequentialIDGenerator("rec")),
		),
		clock:  clock,
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	ctx := context.Background()
	result := NewResult(scenario.Name)

	// Setup and flow share one step counter so trace step numbers match
	// reading order in the YAML file.
	stepNum := 0

	for _, step := range scenario.Setup {
		stepNum++
		if err := h.runStep(ctx, stepNum, step, result); err != nil {
			return nil, fmt.Errorf("setup step %d (%s): %w", stepNum, step.Op, err)
		}
		last := result.Trace[len(result.Trace)-1]
		if last.Outcome != "ok" {
			return nil, fmt.Errorf("setup step %d (%s) failed with %s", stepNum, step.Op, last.Code)
		}
	}

	for _, step := range scenario.Flow {
		stepNum++
		if err := h.runStep(ctx, stepNum, step, result); err != nil {
			return nil, fmt.Errorf("flow step %d (%s): %w", stepNum, step.Op, err)
		}
		checkOutcome(result, stepNum, step)
	}

	actx := &AssertionContext{
		Ctx:    ctx,
		Ledger: h.ledger,
		DB:     db,
	}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError("%s", msg)
	}

	return result, nil
}

// runStep executes one step and appends its invoke and complete events.
//
// Ledger errors complete the step with outcome "error"; whether that was
// expected is the caller's judgment. Any other failure is an authoring or
// environment problem and aborts the run.
func (h *Harness) runStep(ctx context.Context, stepNum int, step Step, result *Result) error {
	result.addInvoke(stepNum, step.Op, step.Args)

	opResult, err := h.dispatch(ctx, step)
	if err != nil {
		var ledgerErr *chain.LedgerError
		if errors.As(err, &ledgerErr) {
			result.addCompleteError(stepNum, string(ledgerErr.Code))
			h.logger.Info("step failed", "step", stepNum, "op", step.Op, "code", ledgerErr.Code)
			return nil
		}
		return err
	}

	result.addCompleteOK(stepNum, opResult)
	h.logger.Info("step completed", "step", stepNum, "op", step.Op)
	return nil
}

// checkOutcome compares a flow step's completion against its expect clause.
func checkOutcome(result *Result, stepNum int, step Step) {
	last := result.Trace[len(result.Trace)-1]

	if last.Outcome == "ok" {
		if step.Expect != nil && step.Expect.Outcome == "error" {
			result.AddError("step %d (%s): expected error %s, got success",
				stepNum, step.Op, step.Expect.Code)
		}
		return
	}

	if step.Expect == nil || step.Expect.Outcome == "ok" {
		result.AddError("step %d (%s): expected success, got error %s",
			stepNum, step.Op, last.Code)
		return
	}
	if step.Expect.Code != last.Code {
		result.AddError("step %d (%s): expected error %s, got %s",
			stepNum, step.Op, step.Expect.Code, last.Code)
	}
}

// dispatch routes a step to its executor.
func (h *Harness) dispatch(ctx context.Context, step Step) (map[string]any, error) {
	switch step.Op {
	case OpProjectAdd:
		return h.projectAdd(ctx, step.Args)
	case OpProgressReport:
		return h.progressReport(ctx, step.Args)
	case OpAuditLog:
		return h.auditLog(ctx, step.Args)
	case OpAuditPurge:
		return h.auditPurge(ctx, step.Args)
	case OpClockSet:
		return h.clockSet(step.Args)
	case OpTamper:
		return h.tamper(ctx, step.Args)
	default:
		return nil, fmt.Errorf("unknown op %q", step.Op)
	}
}

func (h *Harness) projectAdd(ctx context.Context, args map[string]any) (map[string]any, error) {
	input := ledger.ProjectInput{}
	var err error
	if input.ID, err = stringArg(args, "project_id"); err != nil {
		return nil, err
	}
	if input.Name, err = stringArg(args, "name"); err != nil {
		return nil, err
	}
	if input.ActorID, err = stringArg(args, "actor_id"); err != nil {
		return nil, err
	}
	input.IPAddress = optionalStringArg(args, "ip_address")
	input.UserAgent = optionalStringArg(args, "user_agent")

	p, err := h.ledger.CreateProject(ctx, input)
	if err != nil {
		return nil, err
	}
	return map[string]any{"project_id": p.ID}, nil
}

func (h *Harness) progressReport(ctx context.Context, args map[string]any) (map[string]any, error) {
	input := ledger.ProgressInput{}
	var err error
	if input.ProjectID, err = stringArg(args, "project_id"); err != nil {
		return nil, err
	}
	if input.ReportDate, err = dateArg(args, "report_date"); err != nil {
		return nil, err
	}
	if input.ReportedPercent, err = decimalArg(args, "reported_percent"); err != nil {
		return nil, err
	}
	// reported_by may be empty so scenarios can demonstrate the
	// validation rule rejecting it.
	input.ReportedBy = optionalStringArg(args, "reported_by")
	input.Remarks = optionalStringArg(args, "remarks")
	input.IPAddress = optionalStringArg(args, "ip_address")
	input.UserAgent = optionalStringArg(args, "user_agent")

	rec, err := h.ledger.AppendProgress(ctx, input)
	if err != nil {
		return nil, err
	}
	return map[string]any{"record_id": rec.ID, "seq": rec.Seq}, nil
}

func (h *Harness) auditLog(ctx context.Context, args map[string]any) (map[string]any, error) {
	input := ledger.AuditInput{}
	var err error
	if input.ActorID, err = stringArg(args, "actor_id"); err != nil {
		return nil, err
	}
	if input.Action, err = stringArg(args, "action"); err != nil {
		return nil, err
	}
	if input.EntityType, err = stringArg(args, "entity_type"); err != nil {
		return nil, err
	}
	input.EntityID = optionalStringArg(args, "entity_id")
	input.IPAddress = optionalStringArg(args, "ip_address")
	input.UserAgent = optionalStringArg(args, "user_agent")
	if input.Detail, err = detailArg(args, "detail"); err != nil {
		return nil, err
	}

	rec, err := h.ledger.AppendAudit(ctx, input)
	if err != nil {
		return nil, err
	}
	return map[string]any{"record_id": rec.ID, "seq": rec.Seq}, nil
}

func (h *Harness) auditPurge(ctx context.Context, args map[string]any) (map[string]any, error) {
	input := ledger.PurgeInput{}
	var err error
	if input.OlderThan, err = timeArg(args, "older_than"); err != nil {
		return nil, err
	}
	input.ActorID = optionalStringArg(args, "actor_id")
	input.DryRun, err = boolArg(args, "dry_run")
	if err != nil {
		return nil, err
	}
	input.IPAddress = optionalStringArg(args, "ip_address")
	input.UserAgent = optionalStringArg(args, "user_agent")

	res, err := h.ledger.PurgeAudit(ctx, input)
	if err != nil {
		return nil, err
	}
	return map[string]any{"removed": res.Removed}, nil
}

// clockSet moves the frozen clock so following records carry the new
// created_at. Never a ledger error.
func (h *Harness) clockSet(args map[string]any) (map[string]any, error) {
	at, err := timeArg(args, "time")
	if err != nil {
		return nil, err
	}
	h.clock.Set(at.AsTime())
	return nil, nil
}

// tamper edits stored rows through the maintenance connection, simulating
// out-of-band modification of the database file. A tamper matching no rows
// is an authoring error: the scenario meant to corrupt something and
// missed.
func (h *Harness) tamper(ctx context.Context, args map[string]any) (map[string]any, error) {
	table, err := stringArg(args, "table")
	if err != nil {
		return nil, err
	}
	set, err := mapArg(args, "set")
	if err != nil {
		return nil, err
	}
	where, err := mapArg(args, "where")
	if err != nil {
		return nil, err
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("tamper: set must name at least one column")
	}
	if len(where) == 0 {
		return nil, fmt.Errorf("tamper: where must name at least one column")
	}

	stmt, params, err := buildTamperSQL(table, set, where)
	if err != nil {
		return nil, err
	}

	res, err := h.db.ExecContext(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("tamper: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("tamper: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("tamper: no rows matched %v in %s", where, table)
	}
	return map[string]any{"rows": rows}, nil
}

// buildTamperSQL assembles a parameterized UPDATE. Identifiers are vetted
// because they cannot be bound as parameters; values always are.
func buildTamperSQL(table string, set, where map[string]any) (string, []any, error) {
	if !validIdentifier.MatchString(table) {
		return "", nil, fmt.Errorf("tamper: invalid table name %q", table)
	}

	var sb strings.Builder
	var params []any

	sb.WriteString("UPDATE ")
	sb.WriteString(table)
	sb.WriteString(" SET ")
	for i, col := range sortedKeys(set) {
		if !validIdentifier.MatchString(col) {
			return "", nil, fmt.Errorf("tamper: invalid column name %q", col)
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(col)
		sb.WriteString(" = ?")
		params = append(params, set[col])
	}

	sb.WriteString(" WHERE ")
	for i, col := range sortedKeys(where) {
		if !validIdentifier.MatchString(col) {
			return "", nil, fmt.Errorf("tamper: invalid column name %q", col)
		}
		if i > 0 {
			sb.WriteString(" AND ")
		}
		sb.WriteString(col)
		sb.WriteString(" = ?")
		params = append(params, where[col])
	}

	return sb.String(), params, nil
}

// stringArg fetches a required string argument.
func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required arg %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("arg %q must be a string, got %T", key, v)
	}
	return s, nil
}

// optionalStringArg fetches a string argument, "" when absent.
func optionalStringArg(args map[string]any, key string) string {
	if s, ok := args[key].(string); ok {
		return s
	}
	return ""
}

// boolArg fetches an optional bool argument, false when absent.
func boolArg(args map[string]any, key string) (bool, error) {
	v, ok := args[key]
	if !ok {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("arg %q must be a bool, got %T", key, v)
	}
	return b, nil
}

// mapArg fetches a required map argument.
func mapArg(args map[string]any, key string) (map[string]any, error) {
	v, ok := args[key]
	if !ok {
		return nil, fmt.Errorf("missing required arg %q", key)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("arg %q must be a map, got %T", key, v)
	}
	return m, nil
}

// dateArg parses a required "2006-01-02" argument.
func dateArg(args map[string]any, key string) (canonical.Date, error) {
	s, err := stringArg(args, key)
	if err != nil {
		return canonical.Date{}, err
	}
	d, err := canonical.ParseDate(s)
	if err != nil {
		return canonical.Date{}, fmt.Errorf("arg %q: %w", key, err)
	}
	return d, nil
}

// timeArg parses a required canonical timestamp argument.
func timeArg(args map[string]any, key string) (canonical.Time, error) {
	s, err := stringArg(args, key)
	if err != nil {
		return canonical.Time{}, err
	}
	t, err := canonical.ParseTime(s)
	if err != nil {
		return canonical.Time{}, fmt.Errorf("arg %q: %w", key, err)
	}
	return t, nil
}

// decimalArg parses a required decimal argument. Decimals travel as YAML
// strings: a bare 33.33 would arrive as binary floating point.
func decimalArg(args map[string]any, key string) (canonical.Decimal, error) {
	s, err := stringArg(args, key)
	if err != nil {
		return 0, err
	}
	d, err := canonical.ParseDecimal(s)
	if err != nil {
		return 0, fmt.Errorf("arg %q: %w", key, err)
	}
	return d, nil
}

// detailArg parses an optional audit detail map into canonical form.
func detailArg(args map[string]any, key string) (canonical.Object, error) {
	v, ok := args[key]
	if !ok {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("arg %q must be a map, got %T", key, v)
	}
	obj := make(canonical.Object, len(m))
	for k, raw := range m {
		val, err := toValue(raw)
		if err != nil {
			return nil, fmt.Errorf("arg %q key %q: %w", key, k, err)
		}
		obj[k] = val
	}
	return obj, nil
}

// toValue converts a decoded YAML value to canonical form. Floats and
// nulls are rejected for the same reason the canonical form has no kind
// for them.
func toValue(v any) (canonical.Value, error) {
	switch val := v.(type) {
	case string:
		return canonical.String(val), nil
	case int:
		return canonical.Int(val), nil
	case int64:
		return canonical.Int(val), nil
	case bool:
		return canonical.Bool(val), nil
	case map[string]any:
		obj := make(canonical.Object, len(val))
		for k, raw := range val {
			inner, err := toValue(raw)
			if err != nil {
				return nil, err
			}
			obj[k] = inner
		}
		return obj, nil
	case []any:
		arr := make(canonical.Array, len(val))
		for i, raw := range val {
			inner, err := toValue(raw)
			if err != nil {
				return nil, err
			}
			arr[i] = inner
		}
		return arr, nil
	case float64, float32:
		return nil, fmt.Errorf("float values are not representable, quote the number as a string")
	case nil:
		return nil, fmt.Errorf("null values are not representable")
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
