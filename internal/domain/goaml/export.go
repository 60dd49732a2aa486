// Package goaml checks STR cases for FIU export readiness and renders the
// goAML report envelope.
package goaml

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
)

// Required export fields, in the order they are reported.
const (
	FieldReportType         = "report_type"
	FieldReasonForSuspicion = "reason_for_suspicion"
)

// CheckExportReady returns MissingFields listing every empty required field,
// or nil when the case can be exported.
func CheckExportReady(c *entities.STRCase) error {
	var missing []string
	if strings.TrimSpace(c.ReportType) == "" {
		missing = append(missing, FieldReportType)
	}
	if strings.TrimSpace(c.ReasonForSuspicion) == "" {
		missing = append(missing, FieldReasonForSuspicion)
	}
	if len(missing) > 0 {
		return apperrors.MissingFields(missing)
	}
	return nil
}

// Report is the subset of the goAML report schema this service produces.
type Report struct {
	XMLName           xml.Name     `xml:"report"`
	RentityID         string       `xml:"rentity_id"`
	SubmissionCode    string       `xml:"submission_code"`
	ReportCode        string       `xml:"report_code"`
	EntityReference   string       `xml:"entity_reference"`
	SubmissionDate    string       `xml:"submission_date"`
	CurrencyCodeLocal string       `xml:"currency_code_local"`
	Priority          string       `xml:"priority,omitempty"`
	Reason            string       `xml:"reason"`
	Action            string       `xml:"action,omitempty"`
	Indicators        []string     `xml:"report_indicators>indicator,omitempty"`
	Transaction       *Transaction `xml:"transaction,omitempty"`
	Subject           Subject      `xml:"subject"`
}

type Transaction struct {
	TransactionNumber string `xml:"transactionnumber"`
	Description       string `xml:"transaction_description,omitempty"`
	DateFrom          string `xml:"date_transaction_from,omitempty"`
	DateTo            string `xml:"date_transaction_to,omitempty"`
	Location          string `xml:"transaction_location,omitempty"`
	Amount            string `xml:"amount_local,omitempty"`
	Currency          string `xml:"currency_code,omitempty"`
}

type Subject struct {
	Role          string `xml:"role,omitempty"`
	Name          string `xml:"name"`
	IDNumber      string `xml:"id_number,omitempty"`
	Nationality   string `xml:"nationality,omitempty"`
	IsCorporate   bool   `xml:"is_entity"`
	AccountNumber string `xml:"account>account_number,omitempty"`
	AccountType   string `xml:"account>account_type,omitempty"`
	BankName      string `xml:"account>institution_name,omitempty"`
}

const dateLayout = "2006-01-02T15:04:05"

// BuildReport maps a ready case onto the report envelope. The caller must have
// run CheckExportReady first.
func BuildReport(org *entities.Organization, c *entities.STRCase, customer *entities.Customer, now time.Time) *Report {
	currency := c.ReportedCurrency
	if currency == "" {
		currency = "SAR"
	}
	reportDate := now
	if c.ReportDate != nil {
		reportDate = *c.ReportDate
	}

	r := &Report{
		RentityID:         org.GoAMLEntityID,
		SubmissionCode:    "E",
		ReportCode:        strings.ToUpper(c.ReportType),
		EntityReference:   fmt.Sprintf("STR-%s", c.ID),
		SubmissionDate:    reportDate.UTC().Format(dateLayout),
		CurrencyCodeLocal: currency,
		Priority:          c.ReportPriority,
		Reason:            c.ReasonForSuspicion,
		Action:            c.GroundForReport,
		Indicators:        c.RiskIndicators,
		Subject: Subject{
			Role:          c.SubjectRole,
			AccountNumber: c.SubjectAccountNumber,
			AccountType:   c.SubjectAccountType,
			BankName:      c.SubjectBankName,
		},
	}

	if customer != nil {
		r.Subject.Name = customer.DisplayName()
		r.Subject.IsCorporate = customer.CustomerType == entities.CustomerTypeCorporate
		if r.Subject.IsCorporate {
			r.Subject.IDNumber = customer.CommercialRecord
		} else {
			r.Subject.IDNumber = customer.NationalID
			r.Subject.Nationality = customer.Nationality
		}
	}

	if c.ReportedAmount != nil || c.TransactionDescriptionForFIU != "" || c.TransactionDateFrom != nil {
		tx := &Transaction{
			TransactionNumber: c.ID.String(),
			Description:       c.TransactionDescriptionForFIU,
			Location:          c.TransactionLocation,
			Currency:          currency,
		}
		if c.ReportedAmount != nil {
			tx.Amount = c.ReportedAmount.StringFixed(2)
		}
		if c.TransactionDateFrom != nil {
			tx.DateFrom = c.TransactionDateFrom.UTC().Format(dateLayout)
		}
		if c.TransactionDateTo != nil {
			tx.DateTo = c.TransactionDateTo.UTC().Format(dateLayout)
		}
		r.Transaction = tx
	}

	return r
}

// Render serialises the report with the XML declaration.
func Render(r *Report) ([]byte, error) {
	body, err := xml.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal goAML report: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// Filename is the attachment name of the exported report.
func Filename(c *entities.STRCase) string {
	return fmt.Sprintf("STR-%s-goaml.xml", c.ID)
}
