// =============================================================================
// Excel to EDI Generator - Converter Module
// =============================================================================
//
// This module runs one input file through the whole pipeline. The engine
// itself performs no I/O; everything around it lives here.
//
// CONVERSION PIPELINE:
//   1. Read the workbook or CSV file into a dataset
//   2. Record INPUT_LOADED and PROCESSING_STARTED in the audit log
//   3. Generate the EDI document with the engine
//   4. Persist the control number state (allocation is consumption, so this
//      happens whether or not generation succeeded)
//   5. Write the document to the output directory
//   6. Record EDI_GENERATED, or ERROR on failure
//   7. Archive the input and the document
//
// CONCURRENCY:
//   A Converter handles a single file. The process command runs several
//   converters at once; they share the engine, the control number store
//   and the audit log, all of which are safe for concurrent use.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ginjaninja78/excel-to-edi/internal/audit"
	"github.com/ginjaninja78/excel-to-edi/internal/config"
	"github.com/ginjaninja78/excel-to-edi/internal/csvparser"
	"github.com/ginjaninja78/excel-to-edi/internal/edi"
	"github.com/ginjaninja78/excel-to-edi/internal/engine"
	"github.com/ginjaninja78/excel-to-edi/internal/envelope"
	"github.com/ginjaninja78/excel-to-edi/internal/tabular"
	"github.com/ginjaninja78/excel-to-edi/internal/xlsxparser"
	"github.com/ginjaninja78/excel-to-edi/pkg/utils"
	"github.com/google/uuid"
)

// ErrUnsupportedInput is returned for files that are neither workbooks
// nor CSV files.
var ErrUnsupportedInput = errors.New("unsupported input file type")

// ErrNoMatchingJob is returned for input files no job pattern matches.
var ErrNoMatchingJob = errors.New("no job matches the file")

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// FilePath is the path to the input file that was processed.
	FilePath string

	// Job is the name of the job the file was processed with.
	Job string

	// OutputFile is the path to the generated document.
	// This is empty if processing failed.
	OutputFile string

	// ArchivePath is where the input file was moved, if it was archived.
	ArchivePath string

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// Document is the generated document, nil on failure.
	Document *engine.GeneratedDocument

	// CorrelationID identifies the generation in logs and the audit trail.
	CorrelationID string

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	RowsProcessed       int
	TransactionsCreated int
	DetailSegments      int
	ProcessingTime      time.Duration
}

// ErrorLogEntry describes a failed result for the batch error log.
func (r Result) ErrorLogEntry(job *config.Job, now time.Time) utils.ErrorLogEntry {
	entry := utils.ErrorLogEntry{
		Timestamp:     now,
		FileName:      filepath.Base(r.FilePath),
		ErrorType:     ErrorType(r.Error),
		CorrelationID: r.CorrelationID,
		Row:           -1,
	}
	if r.Error != nil {
		entry.ErrorMessage = r.Error.Error()
	}
	if job != nil {
		entry.PartnerID = job.PartnerID
		entry.DocumentType = job.DocumentType
	}

	var (
		missing   *edi.MissingFieldError
		collision *edi.DelimiterCollisionError
		serr      *edi.SerializationError
	)
	switch {
	case errors.As(r.Error, &missing):
		entry.Row, entry.Field, entry.Segment, entry.Position = missing.Row, missing.Field, missing.Segment, missing.Position
	case errors.As(r.Error, &collision):
		entry.Row, entry.Field, entry.Segment, entry.Position = collision.Row, collision.Field, collision.Segment, collision.Position
	case errors.As(r.Error, &serr):
		entry.Row, entry.Field, entry.Segment, entry.Position = serr.Row, serr.Field, serr.Segment, serr.Position
	}
	return entry
}

// ErrorType names the category of err for logs and summaries.
func ErrorType(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnsupportedInput):
		return string(engine.KindInput)
	case errors.Is(err, ErrNoMatchingJob):
		return "no_job"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return string(engine.KindCanceled)
	}
	var gerr *engine.GenerationError
	if !errors.As(err, &gerr) {
		// Failed before or after generation: reading or writing files.
		return "io"
	}
	return string(engine.Classify(err))
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Logger is an interface for logging.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// Dependencies are the shared services a converter uses.
type Dependencies struct {
	Engine *engine.Engine
	Files  *utils.FileManager

	// Audit is optional.
	Audit *audit.Log

	// State is optional; without it control numbers are not persisted.
	State *envelope.FileStateStore

	// Logger is optional.
	Logger Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Converter handles the conversion of a single input file.
type Converter struct {
	inputPath string
	job       *config.Job
	deps      Dependencies

	startDate *time.Time
	endDate   *time.Time
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a new Converter instance.
//
// PARAMETERS:
//   - inputPath: The path to the workbook or CSV file.
//   - job: Partner, document type and input settings for the file.
//   - deps: Shared services.
func New(inputPath string, job *config.Job, deps Dependencies) *Converter {
	if deps.Logger == nil {
		deps.Logger = nopLogger{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Converter{inputPath: inputPath, job: job, deps: deps}
}

// WithDateRange sets the reporting window passed to the engine.
func (c *Converter) WithDateRange(start, end *time.Time) *Converter {
	c.startDate, c.endDate = start, end
	return c
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the pipeline for the file.
func (c *Converter) Run(ctx context.Context) Result {
	startTime := c.deps.Now()
	result := Result{
		FilePath:      c.inputPath,
		Job:           c.job.Name,
		CorrelationID: uuid.NewString(),
	}
	user := c.job.RequestedBy
	log := c.deps.Logger

	// =========================================================================
	// STEP 1: READ INPUT
	// =========================================================================

	log.Info("Processing file: %s", c.inputPath)

	rows, err := ReadInput(c.inputPath, c.job.Input)
	if err != nil {
		result.Error = fmt.Errorf("failed to read input: %w", err)
		c.record(user, audit.ActionError, map[string]any{
			"file":           filepath.Base(c.inputPath),
			"error":          result.Error.Error(),
			"correlation_id": result.CorrelationID,
		})
		return result
	}
	result.Stats.RowsProcessed = rows.Len()
	log.Debug("Read %d rows from %s", rows.Len(), c.inputPath)

	c.record(user, audit.ActionInputLoaded, map[string]any{
		"file":    rows.SourceName,
		"rows":    rows.Len(),
		"columns": rows.Columns(),
	})
	c.record(user, audit.ActionProcessingStarted, map[string]any{
		"partner":        c.job.PartnerID,
		"document_type":  c.job.DocumentType,
		"correlation_id": result.CorrelationID,
	})

	// =========================================================================
	// STEP 2: GENERATE
	// =========================================================================

	doc, genErr := c.deps.Engine.Generate(ctx, engine.Request{
		PartnerID:     c.job.PartnerID,
		DocumentType:  c.job.DocumentType,
		Rows:          rows,
		Timestamp:     startTime,
		StartDate:     c.startDate,
		EndDate:       c.endDate,
		RequestedBy:   user,
		CorrelationID: result.CorrelationID,
		AllowGeneric:  c.job.AllowGeneric,
	})

	// =========================================================================
	// STEP 3: PERSIST CONTROL NUMBERS
	// =========================================================================
	// Numbers allocated by a failed attempt are consumed too.

	if c.deps.State != nil {
		if err := c.deps.State.Checkpoint(c.deps.Engine.Controls()); err != nil {
			log.Error("Failed to save control number state: %v", err)
			if genErr == nil {
				genErr = err
				doc = nil
			}
		}
	}

	if genErr != nil {
		result.Error = genErr
		log.Warn("Generation failed for %s: %v", filepath.Base(c.inputPath), genErr)
		c.record(user, audit.ActionError, map[string]any{
			"file":           filepath.Base(c.inputPath),
			"partner":        c.job.PartnerID,
			"document_type":  c.job.DocumentType,
			"error_type":     ErrorType(genErr),
			"error":          genErr.Error(),
			"correlation_id": result.CorrelationID,
		})
		return result
	}
	result.Document = doc
	result.Stats.TransactionsCreated = doc.Transactions
	result.Stats.DetailSegments = doc.DetailSegments

	// =========================================================================
	// STEP 4: WRITE OUTPUT FILE
	// =========================================================================

	outputPath, err := c.deps.Files.WriteDocument(doc.FileName, doc.Content)
	if err != nil {
		result.Error = fmt.Errorf("failed to write output: %w", err)
		c.record(user, audit.ActionError, map[string]any{
			"file":           filepath.Base(c.inputPath),
			"error":          result.Error.Error(),
			"correlation_id": result.CorrelationID,
		})
		return result
	}
	result.OutputFile = outputPath
	log.Info("Wrote output to: %s", outputPath)

	c.record(user, audit.ActionEDIGenerated, map[string]any{
		"edi_filename":    filepath.Base(outputPath),
		"partner":         doc.PartnerID,
		"document_type":   doc.DocumentType,
		"profile":         doc.Profile,
		"generic":         doc.GenericFallback,
		"rows":            rows.Len(),
		"transactions":    doc.Transactions,
		"control_numbers": doc.Controls,
		"correlation_id":  doc.CorrelationID,
	})

	// =========================================================================
	// STEP 5: ARCHIVE FILES
	// =========================================================================

	if archived, err := c.deps.Files.ArchiveInputFile(c.inputPath); err != nil {
		// Log the error but don't fail the processing.
		log.Warn("Failed to archive input file: %v", err)
	} else {
		result.ArchivePath = archived
	}
	if _, err := c.deps.Files.ArchiveOutputFile(outputPath); err != nil {
		log.Warn("Failed to archive document: %v", err)
	}

	// =========================================================================
	// COMPLETE
	// =========================================================================

	result.Success = true
	result.Stats.ProcessingTime = c.deps.Now().Sub(startTime)
	return result
}

// record writes an audit event; failures are logged, never fatal.
func (c *Converter) record(user, action string, details map[string]any) {
	if c.deps.Audit == nil {
		return
	}
	if _, err := c.deps.Audit.Record(user, action, details); err != nil {
		c.deps.Logger.Warn("Failed to write audit entry: %v", err)
	}
}

// =============================================================================
// INPUT READING
// =============================================================================

// ReadInput reads a workbook or CSV file, chosen by extension.
func ReadInput(path string, settings config.InputSettings) (*tabular.Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return xlsxparser.Parse(path, settings)
	case ".csv", ".txt":
		return csvparser.Parse(path, settings)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedInput, filepath.Base(path))
}

// =============================================================================
// DEFAULT LOGGER
// =============================================================================

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
