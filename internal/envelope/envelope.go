// =============================================================================
// Excel to EDI Generator - Envelope & Control Numbers
// =============================================================================
//
// Wrap puts transaction bodies into transaction, group and interchange
// envelopes:
//
//   ISA ........................ interchange header   (control number I)
//     GS ....................... group header         (control number G)
//       ST ..................... transaction header   (control number T1)
//         BEG / PO1 ... / CTT    body from the builder
//       SE ..................... transaction trailer  (segment count, T1)
//       ST ... SE .............. next transaction     (T2)
//     GE ....................... group trailer        (transaction count, G)
//   IEA ........................ interchange trailer  (group count, I)
//
// Every count is taken from the segments actually produced. A header and
// its trailer always carry the same control number.
//
// =============================================================================

package envelope

import (
	"github.com/ginjaninja78/excel-to-edi/internal/builder"
	"github.com/ginjaninja78/excel-to-edi/internal/edi"
	"github.com/ginjaninja78/excel-to-edi/internal/fieldmap"
	"github.com/ginjaninja78/excel-to-edi/internal/profile"
)

// Interchange is a fully enveloped document, ready to serialize.
type Interchange struct {
	Control uint64
	Header  edi.Segment
	Trailer edi.Segment

	// Group is nil when the profile has no group level.
	Group *Group

	Transactions []TransactionSet
}

// Group is a functional group envelope.
type Group struct {
	Control uint64
	Header  edi.Segment
	Trailer edi.Segment
}

// TransactionSet is one enveloped transaction.
type TransactionSet struct {
	Control     uint64
	Header      edi.Segment
	Body        []edi.Segment
	Trailer     edi.Segment
	DetailCount int
}

// Segments returns every segment in output order.
func (i *Interchange) Segments() []edi.Segment {
	segs := []edi.Segment{i.Header}
	if i.Group != nil {
		segs = append(segs, i.Group.Header)
	}
	for _, t := range i.Transactions {
		segs = append(segs, t.Header)
		segs = append(segs, t.Body...)
		segs = append(segs, t.Trailer)
	}
	if i.Group != nil {
		segs = append(segs, i.Group.Trailer)
	}
	return append(segs, i.Trailer)
}

// DetailCount returns the number of detail segments in every transaction.
func (i *Interchange) DetailCount() int {
	n := 0
	for _, t := range i.Transactions {
		n += t.DetailCount
	}
	return n
}

// Controls returns the control numbers used, keyed by level. The
// transaction entry is the first transaction's number.
func (i *Interchange) Controls() map[string]uint64 {
	c := map[string]uint64{fieldmap.LevelInterchange: i.Control}
	if i.Group != nil {
		c[fieldmap.LevelGroup] = i.Group.Control
	}
	if len(i.Transactions) > 0 {
		c[fieldmap.LevelTransaction] = i.Transactions[0].Control
	}
	return c
}

// Wrap allocates control numbers and renders the envelope segments
// around seq.
//
// PARAMETERS:
//   - m: The control number manager.
//   - p: The profile whose envelope templates are used.
//   - seq: The transaction bodies from the builder.
//   - gctx: The generation context.
//
// RETURNS:
//   - The interchange.
//   - *edi.ControlNumberOverflowError, or any element error from the
//     envelope templates. Numbers allocated before the error stay
//     consumed.
func Wrap(m *Manager, p *profile.EncodingProfile, seq *builder.Sequence, gctx fieldmap.Context) (*Interchange, error) {
	env := &p.Envelope
	controls := make(map[string]uint64, 3)

	ic, err := m.Allocate(fieldmap.LevelInterchange, env.Interchange.Width())
	if err != nil {
		return nil, err
	}
	controls[fieldmap.LevelInterchange] = ic
	out := &Interchange{Control: ic}

	var gc uint64
	if env.Group != nil {
		if gc, err = m.Allocate(fieldmap.LevelGroup, env.Group.Width()); err != nil {
			return nil, err
		}
		controls[fieldmap.LevelGroup] = gc
	}

	for _, txn := range seq.Transactions {
		tc, err := m.Allocate(fieldmap.LevelTransaction, env.Transaction.Width())
		if err != nil {
			return nil, err
		}
		levelControls := copyControls(controls)
		levelControls[fieldmap.LevelTransaction] = tc

		header, err := render(&env.Transaction.Header, p, gctx, levelControls, nil)
		if err != nil {
			return nil, err
		}
		body := txn.Segments()
		trailer, err := render(&env.Transaction.Trailer, p, gctx, levelControls, map[string]int{
			// The transaction segment count includes its own header and
			// trailer.
			fieldmap.CountSegments:       len(body) + 2,
			fieldmap.CountDetailSegments: txn.DetailCount(),
			fieldmap.CountRows:           txn.DetailCount(),
		})
		if err != nil {
			return nil, err
		}
		out.Transactions = append(out.Transactions, TransactionSet{
			Control:     tc,
			Header:      header,
			Body:        body,
			Trailer:     trailer,
			DetailCount: txn.DetailCount(),
		})
	}

	groups := 0
	if env.Group != nil {
		groups = 1
		header, err := render(&env.Group.Header, p, gctx, controls, nil)
		if err != nil {
			return nil, err
		}
		trailer, err := render(&env.Group.Trailer, p, gctx, controls, map[string]int{
			fieldmap.CountTransactions: len(out.Transactions),
		})
		if err != nil {
			return nil, err
		}
		out.Group = &Group{Control: gc, Header: header, Trailer: trailer}
	}

	icControls := map[string]uint64{fieldmap.LevelInterchange: ic}
	if out.Header, err = render(&env.Interchange.Header, p, gctx, icControls, nil); err != nil {
		return nil, err
	}
	out.Trailer, err = render(&env.Interchange.Trailer, p, gctx, icControls, map[string]int{
		fieldmap.CountGroups:       groups,
		fieldmap.CountTransactions: len(out.Transactions),
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// render evaluates an envelope template. Envelope segments have no row.
func render(t *profile.SegmentTemplate, p *profile.EncodingProfile, gctx fieldmap.Context, controls map[string]uint64, counts map[string]int) (edi.Segment, error) {
	scope := &fieldmap.Scope{
		Context:    gctx,
		RowIndex:   edi.NoRow,
		Counts:     counts,
		Controls:   controls,
		Delimiters: p.Delimiters,
	}
	seg, _, err := builder.RenderSegment(t, scope)
	return seg, err
}

func copyControls(c map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(c)+1)
	for k, v := range c {
		out[k] = v
	}
	return out
}
