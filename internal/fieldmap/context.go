package fieldmap

import (
	"strings"
	"time"

	"github.com/ginjaninja78/excel-to-edi/internal/edi"
	"github.com/ginjaninja78/excel-to-edi/internal/tabular"
)

// Context keys understood by "context" rules.
const (
	ContextTimestamp     = "timestamp"
	ContextRowIndex      = "row_index"
	ContextLineNumber    = "line_number"
	ContextRowCount      = "row_count"
	ContextPartnerID     = "partner_id"
	ContextDocumentType  = "document_type"
	ContextStartDate     = "start_date"
	ContextEndDate       = "end_date"
	ContextRequestedBy   = "requested_by"
	ContextCorrelationID = "correlation_id"
)

// Count names understood by "count" rules.
const (
	CountSegments       = "segments"
	CountDetailSegments = "detail_segments"
	CountTransactions   = "transactions"
	CountGroups         = "groups"
	CountRows           = "rows"
)

// Control number levels understood by "control_number" rules.
const (
	LevelInterchange = "interchange"
	LevelGroup       = "group"
	LevelTransaction = "transaction"
)

// ContextKeys lists every valid context key.
var ContextKeys = []string{
	ContextTimestamp, ContextRowIndex, ContextLineNumber, ContextRowCount,
	ContextPartnerID, ContextDocumentType, ContextStartDate, ContextEndDate,
	ContextRequestedBy, ContextCorrelationID,
}

// CountKeys lists every valid count name.
var CountKeys = []string{CountSegments, CountDetailSegments, CountTransactions, CountGroups, CountRows}

// Levels lists every envelope level, outermost first.
var Levels = []string{LevelInterchange, LevelGroup, LevelTransaction}

// Context is the per-request generation context. It is plain input: the
// engine never reads the clock or the environment on its own.
type Context struct {
	Timestamp     time.Time
	PartnerID     string
	DocumentType  string
	RowCount      int
	StartDate     *time.Time
	EndDate       *time.Time
	RequestedBy   string
	CorrelationID string
}

// Scope is everything a rule may read while being evaluated.
type Scope struct {
	// Context is the request-wide generation context.
	Context Context

	// Row is the current data row. HasRow is false for envelope segments
	// and for header segments of a transaction without rows.
	Row    tabular.Row
	HasRow bool

	// RowIndex is the 0-based dataset index of Row, or edi.NoRow.
	RowIndex int

	// LineNumber is the 1-based position of Row within its transaction.
	LineNumber int

	// Counts holds derived counts. Nil when counts are not available.
	Counts map[string]int

	// Controls holds rendered control numbers by level. Nil outside the
	// envelope stage.
	Controls map[string]uint64

	// Delimiters are the profile's delimiters, for "delimiter" rules.
	Delimiters edi.Delimiters

	// Segment is the tag of the segment being built, for error context.
	Segment string
}

// lookupContext resolves a context key to a typed value.
func (s *Scope) lookupContext(key string) (tabular.Value, bool) {
	c := s.Context
	switch strings.ToLower(key) {
	case ContextTimestamp:
		return tabular.DateValue(c.Timestamp), true
	case ContextRowIndex:
		if s.RowIndex == edi.NoRow {
			return tabular.Value{}, false
		}
		return tabular.NumberValue(float64(s.RowIndex + 1)), true
	case ContextLineNumber:
		if s.LineNumber == 0 {
			return tabular.Value{}, false
		}
		return tabular.NumberValue(float64(s.LineNumber)), true
	case ContextRowCount:
		return tabular.NumberValue(float64(c.RowCount)), true
	case ContextPartnerID:
		return tabular.StringValue(c.PartnerID), true
	case ContextDocumentType:
		return tabular.StringValue(c.DocumentType), true
	case ContextStartDate:
		if c.StartDate == nil {
			return tabular.Value{}, true
		}
		return tabular.DateValue(*c.StartDate), true
	case ContextEndDate:
		if c.EndDate == nil {
			return tabular.Value{}, true
		}
		return tabular.DateValue(*c.EndDate), true
	case ContextRequestedBy:
		return tabular.StringValue(c.RequestedBy), true
	case ContextCorrelationID:
		return tabular.StringValue(c.CorrelationID), true
	}
	return tabular.Value{}, false
}
