package goaml

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
)

func TestCheckExportReady_ReportsAllMissingFields(t *testing.T) {
	c := &entities.STRCase{ID: uuid.New()}

	err := CheckExportReady(c)

	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeMissingFields, appErr.Code)
	assert.Equal(t, []string{FieldReportType, FieldReasonForSuspicion}, appErr.Fields)
}

func TestCheckExportReady_Idempotent(t *testing.T) {
	c := &entities.STRCase{ID: uuid.New(), GoAMLFields: entities.GoAMLFields{ReportType: "STR", ReasonForSuspicion: "   "}}

	first, _ := apperrors.As(CheckExportReady(c))
	second, _ := apperrors.As(CheckExportReady(c))

	require.NotNil(t, first)
	assert.Equal(t, []string{FieldReasonForSuspicion}, first.Fields)
	assert.Equal(t, first.Fields, second.Fields)
}

func TestCheckExportReady_Ready(t *testing.T) {
	c := &entities.STRCase{GoAMLFields: entities.GoAMLFields{ReportType: "SAR", ReasonForSuspicion: "Cash structuring below 50k"}}

	assert.NoError(t, CheckExportReady(c))
}

func TestRender_Individual(t *testing.T) {
	amount := decimal.RequireFromString("149000.5")
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	c := &entities.STRCase{
		ID:             uuid.New(),
		RiskIndicators: []string{"structuring", "cash_intensive"},
		GoAMLFields: entities.GoAMLFields{
			ReportType:                   "str",
			ReasonForSuspicion:           "Repeated cash deposits just under threshold",
			ReportedAmount:               &amount,
			TransactionDateFrom:          &from,
			TransactionDescriptionForFIU: "Seven deposits over 48 hours",
			SubjectAccountNumber:         "SA0380000000608010167519",
		},
	}
	customer := &entities.Customer{CustomerIdentity: entities.CustomerIdentity{
		CustomerType: entities.CustomerTypeIndividual, FullName: "Khalid Al-Harbi", NationalID: "1012345678", Nationality: "SA",
	}}
	org := &entities.Organization{GoAMLEntityID: "RE-1187"}

	out, err := Render(BuildReport(org, c, customer, time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	doc := string(out)
	assert.True(t, strings.HasPrefix(doc, xml.Header))
	assert.Contains(t, doc, "<rentity_id>RE-1187</rentity_id>")
	assert.Contains(t, doc, "<report_code>STR</report_code>")
	assert.Contains(t, doc, "<currency_code_local>SAR</currency_code_local>")
	assert.Contains(t, doc, "<amount_local>149000.50</amount_local>")
	assert.Contains(t, doc, "<indicator>structuring</indicator>")
	assert.Contains(t, doc, "<name>Khalid Al-Harbi</name>")
	assert.Contains(t, doc, "<account_number>SA0380000000608010167519</account_number>")
	assert.Contains(t, doc, "<submission_date>2026-03-05T09:00:00</submission_date>")

	var parsed Report
	require.NoError(t, xml.Unmarshal(out, &parsed))
	assert.Equal(t, "1012345678", parsed.Subject.IDNumber)
}

func TestBuildReport_CorporateWithoutTransaction(t *testing.T) {
	c := &entities.STRCase{ID: uuid.New(), GoAMLFields: entities.GoAMLFields{ReportType: "SAR", ReasonForSuspicion: "Shell company", ReportedCurrency: "USD"}}
	customer := &entities.Customer{CustomerIdentity: entities.CustomerIdentity{
		CustomerType: entities.CustomerTypeCorporate, CompanyName: "Najd Trading", CommercialRecord: "1010123456",
	}}

	r := BuildReport(&entities.Organization{}, c, customer, time.Now())

	assert.Nil(t, r.Transaction)
	assert.True(t, r.Subject.IsCorporate)
	assert.Equal(t, "1010123456", r.Subject.IDNumber)
	assert.Equal(t, "USD", r.CurrencyCodeLocal)
	assert.Equal(t, "STR-"+c.ID.String()+"-goaml.xml", Filename(c))
}
