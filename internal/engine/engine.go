// =============================================================================
// Excel to EDI Generator - Document Generation Engine
// =============================================================================
//
// The engine orchestrates one generation request end to end.
//
// GENERATION PIPELINE:
//   Resolving   : find the encoding profile for (partner, document type)
//   Building    : map the dataset rows into transaction bodies
//   Wrapping    : allocate control numbers, render envelopes and counts
//   Serializing : write the partner's wire syntax
//   Done        : name the document and return it
//
// Any failure moves the request to Failed. Nothing is retried: a caller
// retry re-runs the whole pipeline and allocates new control numbers.
//
// CONCURRENCY:
//   An Engine is safe for concurrent use. The registry is read-only and
//   the control number manager allocates atomically.
//
// The engine performs no I/O: it never reads the clock, the filesystem or
// the network. The caller supplies the timestamp and persists the result.
//
// =============================================================================

package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/excel-to-edi/internal/builder"
	"github.com/ginjaninja78/excel-to-edi/internal/envelope"
	"github.com/ginjaninja78/excel-to-edi/internal/fieldmap"
	"github.com/ginjaninja78/excel-to-edi/internal/registry"
	"github.com/ginjaninja78/excel-to-edi/internal/serializer"
	"github.com/ginjaninja78/excel-to-edi/internal/tabular"
	"github.com/ginjaninja78/excel-to-edi/pkg/utils"
)

// DefaultFileNameFormat names documents after partner, type and time.
const DefaultFileNameFormat = "{partner}_{type}_{timestamp}.edi"

// =============================================================================
// STATES
// =============================================================================

// State is a step of the generation pipeline.
type State int

const (
	StateResolving State = iota
	StateBuilding
	StateWrapping
	StateSerializing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateBuilding:
		return "building"
	case StateWrapping:
		return "wrapping"
	case StateSerializing:
		return "serializing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// =============================================================================
// REQUEST AND RESULT
// =============================================================================

// Request is one generation request.
type Request struct {
	PartnerID    string
	DocumentType string

	// Rows is the parsed dataset. Nil is treated as an empty dataset.
	Rows *tabular.Dataset

	// Timestamp is the generation time used for dates, times and the
	// file name. Required.
	Timestamp time.Time

	// StartDate and EndDate are informational filters; they only reach the
	// document through a profile's start_date/end_date context rules.
	StartDate *time.Time
	EndDate   *time.Time

	// RequestedBy is the requesting identity, for audit correlation.
	RequestedBy string

	// CorrelationID identifies the request in logs. Generated when empty.
	CorrelationID string

	// AllowGeneric opts in to the GENERIC profile when no partner profile
	// matches.
	AllowGeneric bool
}

// GeneratedDocument is a named, fully serialized EDI document.
type GeneratedDocument struct {
	FileName string
	Content  []byte

	PartnerID     string
	DocumentType  string
	CorrelationID string

	// Profile is the key of the profile that was used; it differs from the
	// request when the generic profile was used.
	Profile         string
	GenericFallback bool

	// Controls holds the control numbers used, keyed by envelope level.
	Controls map[string]uint64

	Transactions   int
	DetailSegments int
	Segments       int
}

// =============================================================================
// ENGINE
// =============================================================================

// Logger is the printf-style logger the engine reports to.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// Engine generates EDI documents.
type Engine struct {
	registry       *registry.Registry
	controls       *envelope.Manager
	logger         Logger
	fileNameFormat string
	observer       func(correlationID string, s State)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithFileNameFormat sets the document file name format (see
// utils.GenerateOutputFileName for placeholders).
func WithFileNameFormat(format string) Option {
	return func(e *Engine) {
		if format != "" {
			e.fileNameFormat = format
		}
	}
}

// WithObserver registers a callback invoked on every state transition.
func WithObserver(fn func(correlationID string, s State)) Option {
	return func(e *Engine) { e.observer = fn }
}

// New creates an engine over a registry and a control number manager.
func New(reg *registry.Registry, controls *envelope.Manager, opts ...Option) *Engine {
	e := &Engine{
		registry:       reg,
		controls:       controls,
		logger:         nopLogger{},
		fileNameFormat: DefaultFileNameFormat,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the engine's profile registry.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Controls returns the engine's control number manager.
func (e *Engine) Controls() *envelope.Manager {
	return e.controls
}

// =============================================================================
// GENERATE
// =============================================================================

// Generate runs the pipeline for req.
//
// PARAMETERS:
//   - ctx: Checked between stages. A canceled request still consumes the
//     control numbers it allocated.
//   - req: The request.
//
// RETURNS:
//   - The generated document.
//   - A *GenerationError wrapping the typed error of the failing stage.
func (e *Engine) Generate(ctx context.Context, req Request) (*GeneratedDocument, error) {
	partner := strings.ToUpper(strings.TrimSpace(req.PartnerID))
	docType := strings.ToUpper(strings.TrimSpace(req.DocumentType))
	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	state := StateResolving
	fail := func(err error) (*GeneratedDocument, error) {
		gerr := &GenerationError{
			PartnerID:     partner,
			DocumentType:  docType,
			CorrelationID: correlationID,
			State:         state,
			Err:           err,
		}
		e.transition(correlationID, StateFailed)
		e.logger.Warn("Generation %s failed (%s): %v", correlationID, Classify(err), gerr)
		return nil, gerr
	}
	step := func(s State) error {
		state = s
		e.transition(correlationID, s)
		return ctx.Err()
	}

	// =========================================================================
	// STEP 1: RESOLVE PROFILE
	// =========================================================================

	if err := step(StateResolving); err != nil {
		return fail(err)
	}
	switch {
	case partner == "":
		return fail(fmt.Errorf("%w: partner identifier is required", ErrInvalidRequest))
	case docType == "":
		return fail(fmt.Errorf("%w: document type is required", ErrInvalidRequest))
	case req.Timestamp.IsZero():
		return fail(fmt.Errorf("%w: generation timestamp is required", ErrInvalidRequest))
	}

	p, generic, err := e.registry.ResolveWithFallback(partner, docType, req.AllowGeneric)
	if err != nil {
		return fail(err)
	}
	if generic {
		e.logger.Warn("No profile for %s/%s, using the generic profile (explicitly allowed)", partner, docType)
	}
	e.logger.Debug("Resolved profile %s from %s", p.Key(), p.Source)

	gctx := fieldmap.Context{
		Timestamp:     req.Timestamp,
		PartnerID:     partner,
		DocumentType:  docType,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		RequestedBy:   req.RequestedBy,
		CorrelationID: correlationID,
	}

	// =========================================================================
	// STEP 2: BUILD SEGMENTS
	// =========================================================================

	if err := step(StateBuilding); err != nil {
		return fail(err)
	}
	seq, err := builder.Build(p, req.Rows, gctx)
	if err != nil {
		return fail(err)
	}
	e.logger.Debug("Built %s", builder.Describe(seq))

	// =========================================================================
	// STEP 3: WRAP ENVELOPES
	// =========================================================================

	if err := step(StateWrapping); err != nil {
		return fail(err)
	}
	interchange, err := envelope.Wrap(e.controls, p, seq, gctx)
	if err != nil {
		return fail(err)
	}

	// =========================================================================
	// STEP 4: SERIALIZE
	// =========================================================================

	if err := step(StateSerializing); err != nil {
		return fail(err)
	}
	segments := interchange.Segments()
	content, err := serializer.Serialize(segments, serializer.ProfileOptions(p))
	if err != nil {
		return fail(err)
	}

	// =========================================================================
	// COMPLETE
	// =========================================================================

	controls := interchange.Controls()
	doc := &GeneratedDocument{
		FileName: utils.GenerateOutputFileName(e.fileNameFormat, map[string]string{
			"partner": partner,
			"type":    docType,
			"control": fmt.Sprintf("%d", interchange.Control),
		}, req.Timestamp, p.FileExtension),
		Content:         content,
		PartnerID:       partner,
		DocumentType:    docType,
		CorrelationID:   correlationID,
		Profile:         p.Key().String(),
		GenericFallback: generic,
		Controls:        controls,
		Transactions:    len(interchange.Transactions),
		DetailSegments:  interchange.DetailCount(),
		Segments:        len(segments),
	}
	state = StateDone
	e.transition(correlationID, StateDone)
	e.logger.Info("Generated %s (%d transaction(s), %d detail segment(s), interchange %d)",
		doc.FileName, doc.Transactions, doc.DetailSegments, interchange.Control)
	return doc, nil
}

func (e *Engine) transition(correlationID string, s State) {
	e.logger.Debug("Generation %s: %s", correlationID, s)
	if e.observer != nil {
		e.observer(correlationID, s)
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
