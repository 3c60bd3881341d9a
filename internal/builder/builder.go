// =============================================================================
// Excel to EDI Generator - Segment Builder
// =============================================================================
//
// The builder turns a dataset into the logical segments of one or more
// transactions, before any envelope or serialization is applied.
//
// PROCESSING FLOW:
//   1. Split rows into transactions (transaction_grouping.group_by), keeping
//      first-occurrence order and row order inside each transaction
//   2. Render the transaction header segments from the first row
//   3. Render one detail segment per row, followed by its detail extras
//   4. Render the summary segments with the detail count
//
// A single failing element fails the whole build: no partial sequence is
// ever returned.
//
// =============================================================================

package builder

import (
	"errors"
	"fmt"

	"github.com/ginjaninja78/excel-to-edi/internal/edi"
	"github.com/ginjaninja78/excel-to-edi/internal/fieldmap"
	"github.com/ginjaninja78/excel-to-edi/internal/profile"
	"github.com/ginjaninja78/excel-to-edi/internal/tabular"
)

// =============================================================================
// SEGMENT SEQUENCE
// =============================================================================

// Sequence is the builder output: the body of every transaction.
type Sequence struct {
	Transactions []Transaction
}

// Transaction is the body of one transaction set, without its envelope.
type Transaction struct {
	// Header segments open the transaction (BEG, REF, N1 ...).
	Header []edi.Segment

	// Lines hold one detail segment per row, in row order.
	Lines []Line

	// Summary segments close the transaction (CTT ...).
	Summary []edi.Segment

	// GroupKey is the group_by value shared by the rows, if grouping is
	// configured.
	GroupKey string
}

// Line is the detail segment of one row plus its extras.
type Line struct {
	// Row is the 0-based dataset index.
	Row    int
	Detail edi.Segment
	Extras []edi.Segment
}

// DetailCount returns the number of detail segments, which always equals
// the number of rows in the transaction.
func (t *Transaction) DetailCount() int {
	return len(t.Lines)
}

// Segments returns the transaction body in output order.
func (t *Transaction) Segments() []edi.Segment {
	segs := make([]edi.Segment, 0, len(t.Header)+2*len(t.Lines)+len(t.Summary))
	segs = append(segs, t.Header...)
	for _, l := range t.Lines {
		segs = append(segs, l.Detail)
		segs = append(segs, l.Extras...)
	}
	return append(segs, t.Summary...)
}

// DetailCount returns the number of detail segments across every
// transaction.
func (s *Sequence) DetailCount() int {
	n := 0
	for i := range s.Transactions {
		n += s.Transactions[i].DetailCount()
	}
	return n
}

// =============================================================================
// BUILD
// =============================================================================

// Build renders the transaction bodies for ds using profile p.
//
// PARAMETERS:
//   - p: A validated encoding profile.
//   - ds: The dataset. A nil or empty dataset yields one transaction with
//     zero detail segments.
//   - gctx: The generation context. RowCount is set from ds.
//
// RETURNS:
//   - The sequence.
//   - *edi.MissingFieldError or *edi.SerializationError on the first
//     failing element.
func Build(p *profile.EncodingProfile, ds *tabular.Dataset, gctx fieldmap.Context) (*Sequence, error) {
	gctx.RowCount = ds.Len()

	groups, err := groupRows(p, ds)
	if err != nil {
		return nil, err
	}

	seq := &Sequence{Transactions: make([]Transaction, 0, len(groups))}
	for _, g := range groups {
		txn, err := buildTransaction(p, ds, gctx, g)
		if err != nil {
			return nil, err
		}
		seq.Transactions = append(seq.Transactions, *txn)
	}
	return seq, nil
}

// rowGroup is the set of dataset indexes forming one transaction.
type rowGroup struct {
	key  string
	rows []int
}

// groupRows splits rows into transactions. Without grouping, without
// rows, or when the dataset lacks the group_by column, there is exactly
// one transaction.
func groupRows(p *profile.EncodingProfile, ds *tabular.Dataset) ([]rowGroup, error) {
	n := ds.Len()
	column := p.Grouping.GroupBy
	if column == "" || n == 0 || !ds.HasColumn(column) {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return []rowGroup{{rows: all}}, nil
	}

	var groups []rowGroup
	index := make(map[string]int)
	for i := 0; i < n; i++ {
		v, _ := ds.Row(i).Get(column)
		key := v.String()
		gi, ok := index[key]
		if !ok {
			gi = len(groups)
			index[key] = gi
			groups = append(groups, rowGroup{key: key})
		}
		groups[gi].rows = append(groups[gi].rows, i)
	}
	return groups, nil
}

func buildTransaction(p *profile.EncodingProfile, ds *tabular.Dataset, gctx fieldmap.Context, g rowGroup) (*Transaction, error) {
	txn := &Transaction{GroupKey: g.key, Lines: make([]Line, 0, len(g.rows))}

	// Header and summary segments read fields from the first row of the
	// transaction.
	base := fieldmap.Scope{Context: gctx, RowIndex: edi.NoRow, Delimiters: p.Delimiters}
	if len(g.rows) > 0 {
		base.Row = ds.Row(g.rows[0])
		base.HasRow = true
		base.RowIndex = g.rows[0]
	}

	for i := range p.Header {
		scope := base
		seg, ok, err := RenderSegment(&p.Header[i], &scope)
		if err != nil {
			return nil, err
		}
		if ok {
			txn.Header = append(txn.Header, seg)
		}
	}

	for line, rowIndex := range g.rows {
		scope := fieldmap.Scope{
			Context:    gctx,
			Row:        ds.Row(rowIndex),
			HasRow:     true,
			RowIndex:   rowIndex,
			LineNumber: line + 1,
			Delimiters: p.Delimiters,
		}
		detail, _, err := RenderSegment(&p.Detail, &scope)
		if err != nil {
			return nil, err
		}
		l := Line{Row: rowIndex, Detail: detail}
		for i := range p.DetailExtras {
			extraScope := scope
			seg, ok, err := RenderSegment(&p.DetailExtras[i], &extraScope)
			if err != nil {
				return nil, err
			}
			if ok {
				l.Extras = append(l.Extras, seg)
			}
		}
		txn.Lines = append(txn.Lines, l)
	}

	for i := range p.Summary {
		scope := base
		scope.Counts = map[string]int{
			fieldmap.CountDetailSegments: txn.DetailCount(),
			fieldmap.CountRows:           len(g.rows),
		}
		seg, ok, err := RenderSegment(&p.Summary[i], &scope)
		if err != nil {
			return nil, err
		}
		if ok {
			txn.Summary = append(txn.Summary, seg)
		}
	}
	return txn, nil
}

// =============================================================================
// SEGMENT RENDERING
// =============================================================================

// RenderSegment evaluates every element rule of t in scope.
//
// RETURNS:
//   - The segment and true when it is emitted.
//   - false when a conditional segment is omitted. Required-field errors
//     inside an omitted segment are not reported.
//   - The first element error of an emitted segment.
func RenderSegment(t *profile.SegmentTemplate, scope *fieldmap.Scope) (edi.Segment, bool, error) {
	scope.Segment = t.Tag

	if t.Conditional() && t.When != "" {
		cond, err := fieldmap.ParseCondition(t.When)
		if err != nil {
			return edi.Segment{}, false, &edi.SerializationError{Segment: t.Tag, Row: edi.NoRow, Reason: "condition", Err: err}
		}
		if !scope.HasRow || !cond.Eval(scope.Row) {
			return edi.Segment{}, false, nil
		}
	}

	elements := make([]edi.Element, len(t.Elements))
	var firstErr error
	sourced := false
	for i, rule := range t.Elements {
		el, err := fieldmap.Evaluate(rule, scope, i+1)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			if !t.Conditional() || t.When != "" {
				return edi.Segment{}, false, err
			}
			continue
		}
		if el.Origin().Field != "" && !el.IsEmpty() {
			sourced = true
		}
		elements[i] = el
	}

	// A conditional segment without a condition is emitted only when one of
	// its field elements has data.
	if t.Conditional() && t.When == "" {
		if !sourced {
			var missing *edi.MissingFieldError
			if firstErr == nil || errors.As(firstErr, &missing) {
				return edi.Segment{}, false, nil
			}
		}
		if firstErr != nil {
			return edi.Segment{}, false, firstErr
		}
	}
	return edi.NewSegment(t.Tag, elements...), true, nil
}

// String renders a segment for logs and test failures: tag and values
// joined with "*", composites joined with ":".
func String(seg edi.Segment) string {
	out := seg.Tag()
	for _, e := range seg.Elements() {
		out += "*" + e.String()
	}
	return out
}

// Describe summarises a sequence for debug logging.
func Describe(s *Sequence) string {
	return fmt.Sprintf("%d transaction(s), %d detail segment(s)", len(s.Transactions), s.DetailCount())
}
