// Package repositories holds the Postgres implementations of the domain
// repository interfaces, written against sqlx with hand-written SQL.
package repositories

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	domain "github.com/trous-aml/trous_service/internal/domain/repositories"
)

var (
	_ domain.OrganizationRepository   = (*OrganizationRepository)(nil)
	_ domain.CustomerRepository       = (*CustomerRepository)(nil)
	_ domain.KYCRequestRepository     = (*KYCRequestRepository)(nil)
	_ domain.AlertRepository          = (*AlertRepository)(nil)
	_ domain.ScreeningRepository      = (*ScreeningRepository)(nil)
	_ domain.MonitoringRuleRepository = (*MonitoringRuleRepository)(nil)
	_ domain.STRCaseRepository        = (*STRCaseRepository)(nil)
	_ domain.PolicyRepository         = (*PolicyRepository)(nil)
	_ domain.RiskAssessmentRepository = (*RiskAssessmentRepository)(nil)
	_ domain.TransactionRepository    = (*TransactionRepository)(nil)
	_ domain.NotificationRepository   = (*NotificationRepository)(nil)
	_ domain.AuditRepository          = (*AuditRepository)(nil)
)

const uniqueViolation = "23505"

// mapError turns driver errors the domain cares about into domain errors.
func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", domain.ErrUniqueViolation, pqErr.Constraint)
	}
	return err
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// stamp fills timestamps the way the in-memory store does so both drivers
// hand back identical records.
func stamp(createdAt, updatedAt *time.Time) {
	t := now()
	if createdAt != nil && createdAt.IsZero() {
		*createdAt = t
	}
	if updatedAt != nil {
		*updatedAt = t
	}
}

func affected(res interface{ RowsAffected() (int64, error) }) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// jsonMap stores a free-form object in a JSONB column. Numbers decode as
// json.Number so integers survive untouched.
type jsonMap map[string]interface{}

func (m jsonMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(map[string]interface{}(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *jsonMap) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported jsonb source %T", src)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]interface{}
	if err := dec.Decode(&out); err != nil {
		return err
	}
	*m = out
	return nil
}

// filter accumulates WHERE clauses with positional arguments. A "?" in a
// clause is replaced by the next placeholder; repeated "?" share one argument.
type filter struct {
	clauses []string
	args    []interface{}
}

func newFilter(orgID uuid.UUID) *filter {
	f := &filter{}
	f.add("org_id = ?", orgID)
	return f
}

func (f *filter) add(clause string, arg interface{}) {
	f.args = append(f.args, arg)
	f.clauses = append(f.clauses, strings.ReplaceAll(clause, "?", fmt.Sprintf("$%d", len(f.args))))
}

func (f *filter) addIf(cond bool, clause string, arg interface{}) {
	if cond {
		f.add(clause, arg)
	}
}

func (f *filter) where() string {
	return " WHERE " + strings.Join(f.clauses, " AND ")
}

// page appends ORDER BY and LIMIT/OFFSET for the normalised params.
func (f *filter) page(orderBy string, params entities.ListParams) (string, []interface{}) {
	params.Normalize()
	n := len(f.args)
	args := append(append([]interface{}{}, f.args...), params.PageSize, params.Offset())
	return fmt.Sprintf("%s ORDER BY %s LIMIT $%d OFFSET $%d", f.where(), orderBy, n+1, n+2), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func contains(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

// listPage runs the count and the page query for one filtered listing.
func listPage[T any](ctx context.Context, db *sqlx.DB, columns, table, orderBy string, f *filter, params entities.ListParams) ([]T, int, error) {
	var total int
	if err := db.GetContext(ctx, &total, "SELECT COUNT(*) FROM "+table+f.where(), f.args...); err != nil {
		return nil, 0, err
	}
	clause, args := f.page(orderBy, params)
	var rows []T
	if err := db.SelectContext(ctx, &rows, "SELECT "+columns+" FROM "+table+clause, args...); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// customersByID loads the customers referenced by alerts, screenings and cases.
func customersByID(ctx context.Context, db *sqlx.DB, orgID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*entities.Customer, error) {
	out := make(map[uuid.UUID]*entities.Customer, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, id.String())
	}
	var customers []*entities.Customer
	query := "SELECT " + customerColumns + " FROM customers WHERE org_id = $1 AND id = ANY($2::uuid[])"
	if err := db.SelectContext(ctx, &customers, query, orgID, pq.Array(keys)); err != nil {
		return nil, err
	}
	for _, c := range customers {
		out[c.ID] = c
	}
	return out, nil
}
