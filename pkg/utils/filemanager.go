// =============================================================================
// Excel to EDI Generator - File Manager Utility
// =============================================================================
//
// This module is the document store of the command line tool:
//   - Input discovery (spreadsheets waiting in the input directory)
//   - Atomic writes of generated EDI documents, and guarded reads by name
//   - File archival (moving processed inputs, copying outputs)
//   - Error and summary logs for batch runs
//   - Output file naming
//
// ARCHIVAL STRATEGY:
//   - Input files are moved to input_archive after successful generation
//   - Output documents are copied to output_archive for long-term storage
//   - Failed inputs remain in their original location
//   - Error logs are created in the output directory
//
// =============================================================================

package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidDocumentName is returned for document names that would escape
// the output directory.
var ErrInvalidDocumentName = errors.New("invalid document name")

// DefaultInputPatterns are the spreadsheet formats picked up from the
// input directory.
var DefaultInputPatterns = []string{"*.xlsx", "*.csv"}

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the generator.
type FileManager struct {
	// InputDir is the directory where spreadsheets are placed.
	InputDir string

	// OutputDir is the directory where EDI documents are written.
	OutputDir string

	// InputArchiveDir is the directory for archived input files.
	InputArchiveDir string

	// OutputArchiveDir is the directory for archived documents.
	OutputArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in archives.
	// Example: input_archive/2024/01/15/orders.xlsx
	UseTimestampSubdirs bool

	// ArchiveOnSuccess determines whether to archive files after successful processing.
	ArchiveOnSuccess bool

	// mu serialises picking a free document name.
	mu sync.Mutex
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, outputDir, inputArchiveDir, outputArchiveDir string) *FileManager {
	return &FileManager{
		InputDir:            inputDir,
		OutputDir:           outputDir,
		InputArchiveDir:     inputArchiveDir,
		OutputArchiveDir:    outputArchiveDir,
		UseTimestampSubdirs: false,
		ArchiveOnSuccess:    true,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all required directories if they don't exist.
func (fm *FileManager) EnsureDirectories() error {
	dirs := []string{
		fm.InputDir,
		fm.OutputDir,
		fm.InputArchiveDir,
		fm.OutputArchiveDir,
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles scans the input directory for files matching any of
// the patterns.
//
// PARAMETERS:
//   - patterns: Glob patterns (e.g., "*.xlsx"). Defaults to
//     DefaultInputPatterns.
//
// RETURNS:
//   - The sorted, de-duplicated file paths.
//   - An error if the directory cannot be read.
func (fm *FileManager) DiscoverInputFiles(patterns ...string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = DefaultInputPatterns
	}

	seen := make(map[string]bool)
	var result []string
	for _, pattern := range patterns {
		files, err := filepath.Glob(filepath.Join(fm.InputDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to scan input directory: %w", err)
		}
		for _, file := range files {
			info, err := os.Stat(file)
			if err != nil || info.IsDir() || seen[file] {
				continue
			}
			seen[file] = true
			result = append(result, file)
		}
	}

	sort.Strings(result)
	return result, nil
}

// DiscoverInputFilesRecursive scans the input directory and its
// subdirectories for files with one of the extensions (e.g., ".xlsx").
// Archive and output directories nested inside the input directory are
// skipped.
//
// PARAMETERS:
//   - extensions: File extensions to accept. Defaults to the extensions of
//     DefaultInputPatterns.
//
// RETURNS:
//   - The sorted file paths.
//   - An error if the directory cannot be walked.
func (fm *FileManager) DiscoverInputFilesRecursive(extensions ...string) ([]string, error) {
	if len(extensions) == 0 {
		for _, pattern := range DefaultInputPatterns {
			extensions = append(extensions, filepath.Ext(pattern))
		}
	}
	skip := make(map[string]bool)
	for _, dir := range []string{fm.OutputDir, fm.InputArchiveDir, fm.OutputArchiveDir} {
		if dir != "" {
			skip[filepath.Clean(dir)] = true
		}
	}

	var files []string
	err := filepath.WalkDir(fm.InputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != fm.InputDir && skip[filepath.Clean(path)] {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		for _, want := range extensions {
			if ext == strings.ToLower(want) {
				files = append(files, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk input directory: %w", err)
	}

	sort.Strings(files)
	return files, nil
}

// =============================================================================
// DOCUMENT STORE
// =============================================================================

// WriteDocument stores a generated document in the output directory. The
// content is written to a temporary file first and renamed, so readers
// never see a partial document. An existing document is never replaced:
// when the name is taken, "_2", "_3", ... is inserted before the
// extension.
//
// RETURNS:
//   - The path of the stored document.
//   - ErrInvalidDocumentName, or an error if writing fails.
func (fm *FileManager) WriteDocument(name string, content []byte) (string, error) {
	path, err := fm.documentPath(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(fm.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(fm.OutputDir, ".document-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create document: %w", err)
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write document: %w", err)
	}

	fm.mu.Lock()
	defer fm.mu.Unlock()

	path = freePath(path)
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store document: %w", err)
	}

	return path, nil
}

// freePath returns path, or the first "<stem>_<n><ext>" that does not
// exist yet.
func freePath(path string) string {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, n, ext)
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate
		}
	}
}

// ReadDocument returns a stored document by file name.
func (fm *FileManager) ReadDocument(name string) ([]byte, error) {
	path, err := fm.documentPath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", name, err)
	}
	return data, nil
}

// documentPath resolves a bare file name inside the output directory.
func (fm *FileManager) documentPath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDocumentName, name)
	}
	return filepath.Join(fm.OutputDir, name), nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an input file to the archive directory.
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath := fm.getArchivePath(fm.InputArchiveDir, filePath)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// If rename fails (e.g., cross-device), try copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// ArchiveOutputFile copies a document to the archive directory. Documents
// are copied, not moved, so they remain available for download.
func (fm *FileManager) ArchiveOutputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath := fm.getArchivePath(fm.OutputArchiveDir, filePath)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := copyFile(filePath, archivePath); err != nil {
		return "", fmt.Errorf("failed to copy file to archive: %w", err)
	}

	return archivePath, nil
}

// getArchivePath constructs the archive path for a file.
func (fm *FileManager) getArchivePath(archiveDir, filePath string) string {
	fileName := filepath.Base(filePath)

	if fm.UseTimestampSubdirs {
		now := time.Now()
		return filepath.Join(
			archiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
			fileName,
		)
	}

	return filepath.Join(archiveDir, fileName)
}

// CleanOldArchives removes archive files older than maxAge.
//
// RETURNS:
//   - The number of files removed.
//   - An error if cleaning fails.
func CleanOldArchives(archiveDir string, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	err := filepath.Walk(archiveDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				return err
			}
			removed++
		}
		return nil
	})

	if err != nil {
		return removed, fmt.Errorf("failed to clean archives: %w", err)
	}

	return removed, nil
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates an output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//     Placeholders:
//     {timestamp} - Generation time (YYYYMMDD_HHMMSS)
//     {date}      - Generation date (YYYYMMDD)
//     {time}      - Generation time (HHMMSS)
//     {uuid}      - A random UUID
//     any key of params, e.g. {partner}, {type}, {control}
//   - params: A map of placeholder values.
//   - now: The generation time.
//   - ext: Appended when the result has no extension (e.g., ".edi").
//
// RETURNS:
//   - The generated file name. Path separators in values become "_".
//
// EXAMPLE:
//
//	format: "{partner}_{type}_{timestamp}.edi"
//	params: {"partner": "RENESAS", "type": "PO"}
//	output: "RENESAS_PO_20240305_140709.edi"
func GenerateOutputFileName(format string, params map[string]string, now time.Time, ext string) string {
	replacements := map[string]string{
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	if strings.Contains(format, "{uuid}") {
		replacements["{uuid}"] = uuid.New().String()
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	pairs := make([]string, 0, 2*len(replacements))
	for placeholder, value := range replacements {
		pairs = append(pairs, placeholder, sanitizeFileNamePart(value))
	}
	result := strings.NewReplacer(pairs...).Replace(format)

	if filepath.Ext(result) == "" && ext != "" {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		result += ext
	}

	return result
}

func sanitizeFileNamePart(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, s)
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry represents a single failed generation.
type ErrorLogEntry struct {
	Timestamp     time.Time
	FileName      string
	PartnerID     string
	DocumentType  string
	ErrorType     string
	ErrorMessage  string
	CorrelationID string

	// Row is the 0-based dataset row, or -1 when not row specific. The log
	// prints it 1-based.
	Row      int
	Field    string
	Segment  string
	Position int
}

// WriteErrorLog writes error entries to a log file.
//
// PARAMETERS:
//   - entries: The error entries to write.
//   - outputDir: The directory to write the log file.
//   - now: The time used in the log file name and header.
//
// RETURNS:
//   - The path to the error log file, "" when there are no entries.
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, outputDir string, now time.Time) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	logPath := filepath.Join(outputDir, fmt.Sprintf("error_log_%s.txt", now.Format("20060102_150405")))
	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Excel to EDI Generator - Error Log\n"+
		"Generated: %s\n"+
		"Total Errors: %d\n"+
		"================================================================================\n\n",
		now.Format("2006-01-02 15:04:05"),
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Error #%d\n"+
			"  Timestamp:      %s\n"+
			"  File:           %s\n"+
			"  Document:       %s/%s\n"+
			"  Error Type:     %s\n"+
			"  Message:        %s\n",
			i+1,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.FileName,
			entry.PartnerID, entry.DocumentType,
			entry.ErrorType,
			entry.ErrorMessage)

		if entry.Row >= 0 {
			fmt.Fprintf(writer, "  Row:            %d\n", entry.Row+1)
		}
		if entry.Field != "" {
			fmt.Fprintf(writer, "  Field:          %s\n", entry.Field)
		}
		if entry.Segment != "" {
			fmt.Fprintf(writer, "  Segment:        %s%02d\n", entry.Segment, entry.Position)
		}
		if entry.CorrelationID != "" {
			fmt.Fprintf(writer, "  Correlation ID: %s\n", entry.CorrelationID)
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}

	return logPath, nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about a batch run.
type ProcessingSummary struct {
	StartTime           time.Time
	EndTime             time.Time
	TotalFiles          int
	SuccessfulFiles     int
	FailedFiles         int
	TotalRows           int
	TotalTransactions   int
	TotalDetailSegments int
	ProcessedFiles      []ProcessedFileInfo
	FailedFilesList     []FailedFileInfo
}

// ProcessedFileInfo describes one successfully generated document.
type ProcessedFileInfo struct {
	InputFile    string
	OutputFile   string
	ArchivePath  string
	Profile      string
	Rows         int
	Transactions int
	Interchange  uint64
	ProcessTime  time.Duration
}

// FailedFileInfo describes a failed input.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
	ErrorType    string
}

// WriteSummaryLog writes a batch summary to a log file.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	summaryPath := filepath.Join(outputDir, fmt.Sprintf("processing_summary_%s.txt", summary.EndTime.Format("20060102_150405")))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Excel to EDI Generator - Processing Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n"+
		"Statistics:\n"+
		"  Total Files:          %d\n"+
		"  Successful:           %d\n"+
		"  Failed:               %d\n"+
		"  Total Rows:           %d\n"+
		"  Total Transactions:   %d\n"+
		"  Total Detail Segments: %d\n\n",
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).String(),
		summary.TotalFiles,
		summary.SuccessfulFiles,
		summary.FailedFiles,
		summary.TotalRows,
		summary.TotalTransactions,
		summary.TotalDetailSegments)

	if len(summary.ProcessedFiles) > 0 {
		writer.WriteString("Successful Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, pf := range summary.ProcessedFiles {
			fmt.Fprintf(writer, "  Input:        %s\n", pf.InputFile)
			fmt.Fprintf(writer, "  Output:       %s\n", pf.OutputFile)
			fmt.Fprintf(writer, "  Profile:      %s\n", pf.Profile)
			fmt.Fprintf(writer, "  Rows:         %d\n", pf.Rows)
			fmt.Fprintf(writer, "  Transactions: %d\n", pf.Transactions)
			fmt.Fprintf(writer, "  Interchange:  %d\n", pf.Interchange)
			fmt.Fprintf(writer, "  Process Time: %s\n\n", pf.ProcessTime.String())
		}
	}

	if len(summary.FailedFilesList) > 0 {
		writer.WriteString("Failed Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, ff := range summary.FailedFilesList {
			fmt.Fprintf(writer, "  File:  %s\n", ff.InputFile)
			fmt.Fprintf(writer, "  Type:  %s\n", ff.ErrorType)
			fmt.Fprintf(writer, "  Error: %s\n\n", ff.ErrorMessage)
		}
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}
