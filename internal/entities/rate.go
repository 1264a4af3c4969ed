package entities

import (
	"github.com/shopspring/decimal"
	"strings"
)

const NotAvailable = "N/A"

// Rate is one row returned by the rates API. Every field may be absent.
type Rate struct {
	Provider *string          `json:"provider,omitempty"`
	Rate     *decimal.Decimal `json:"rate,omitempty"`
	Date     *string          `json:"date,omitempty"`
}

func (r Rate) DisplayProvider() string {
	return orNotAvailable(r.Provider)
}

func (r Rate) DisplayRate() string {
	if r.Rate == nil {
		return NotAvailable
	}
	return "$" + r.Rate.StringFixed(2)
}

func (r Rate) DisplayDate() string {
	return orNotAvailable(r.Date)
}

func orNotAvailable(s *string) string {
	if s == nil || *s == "" {
		return NotAvailable
	}
	return *s
}

type LookupQuery struct {
	State         string
	ProcedureCode string
}

func NewLookupQuery(state, procedureCode string) LookupQuery {
	return LookupQuery{
		State:         strings.TrimSpace(state),
		ProcedureCode: strings.TrimSpace(procedureCode),
	}
}

// Validate only checks that both fields are present.
func (q LookupQuery) Validate() error {
	if q.State == "" || q.ProcedureCode == "" {
		return ErrMissingInput
	}
	return nil
}
