package repositories

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	domain "github.com/trous-aml/trous_service/internal/domain/repositories"
)

func TestFilter_Placeholders(t *testing.T) {
	orgID := uuid.New()
	f := newFilter(orgID)
	f.addIf(false, "status = ?", "open")
	f.add("(title ILIKE ? OR title_ar ILIKE ?)", contains("aml"))
	f.addIf(true, "severity = ?", "high")

	assert.Equal(t, " WHERE org_id = $1 AND (title ILIKE $2 OR title_ar ILIKE $2) AND severity = $3", f.where())
	require.Len(t, f.args, 3)
	assert.Equal(t, "%aml%", f.args[1])

	clause, args := f.page("created_at DESC", entities.ListParams{Page: 3, PageSize: 10})
	assert.Equal(t, f.where()+" ORDER BY created_at DESC LIMIT $4 OFFSET $5", clause)
	assert.Equal(t, []interface{}{orgID, "%aml%", "high", 10, 20}, args)
	assert.Len(t, f.args, 3, "page must not grow the shared filter")
}

func TestContains_EscapesWildcards(t *testing.T) {
	assert.Equal(t, `%100\%\_off\\%`, contains(`100%_off\`))
}

func TestMapError(t *testing.T) {
	err := mapError(&pq.Error{Code: "23505", Constraint: "uq_customers_national_id"})
	assert.ErrorIs(t, err, domain.ErrUniqueViolation)
	assert.Contains(t, err.Error(), "uq_customers_national_id")

	other := &pq.Error{Code: "23503"}
	assert.Same(t, other, mapError(other))

	plain := errors.New("connection refused")
	assert.Equal(t, plain, mapError(plain))
	assert.NoError(t, mapError(nil))
}

func TestJSONMap_RoundTrip(t *testing.T) {
	in := jsonMap{"amount": json.Number("75000.50"), "currency": "SAR", "count": 3}
	v, err := in.Value()
	require.NoError(t, err)

	var out jsonMap
	require.NoError(t, out.Scan([]byte(v.(string))))
	assert.Equal(t, json.Number("75000.50"), out["amount"])
	assert.Equal(t, json.Number("3"), out["count"])
	assert.Equal(t, "SAR", out["currency"])

	var empty jsonMap
	v, err = empty.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
	require.NoError(t, out.Scan(nil))
	assert.Nil(t, out)

	assert.Error(t, out.Scan(42))
}

// The hash chain is computed before insert and re-verified after a JSONB round trip.
func TestJSONMap_PreservesAuditHash(t *testing.T) {
	resourceID := uuid.New()
	log := &entities.AuditLog{
		ID: uuid.New(), OrgID: uuid.New(), UserID: uuid.New(), Action: entities.AuditActionUpdate,
		Resource: "customer", ResourceID: &resourceID,
		Metadata: map[string]interface{}{"risk_level": "High", "attempt": 2, "note": "<a&b>"},
	}
	log.SetIntegrityFields("")

	v, err := jsonMap(log.Metadata).Value()
	require.NoError(t, err)
	var stored jsonMap
	require.NoError(t, stored.Scan(v))

	reloaded := *log
	reloaded.Metadata = stored
	assert.True(t, reloaded.VerifyIntegrity())
}
