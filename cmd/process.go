// =============================================================================
// Excel to EDI Generator - Process Command
// =============================================================================
//
// This file defines the 'process' command, the batch mode of the
// generator. It runs every input file through the converter pipeline.
//
// COMMAND USAGE:
//   edi-generator process [flags]
//
// FLAGS:
//   --file : Process only this file
//   --job  : Process only files matched by this job
//
// PROCESSING PIPELINE:
//   1. Load configuration, profiles and control number state
//   2. Discover .xlsx and .csv files in the input directory (and its
//      subdirectories with recursive_input)
//   3. Match each file to a job (partner + document type)
//   4. Convert files concurrently, at most max_concurrency at a time
//   5. Write the error log and the processing summary
//   6. Remove archives older than archive_retention_days
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/ginjaninja78/excel-to-edi/internal/config"
	"github.com/ginjaninja78/excel-to-edi/internal/converter"
	"github.com/ginjaninja78/excel-to-edi/internal/fieldmap"
	"github.com/ginjaninja78/excel-to-edi/pkg/utils"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// processFile restricts the run to a single input file.
var processFile string

// processJob restricts the run to files matched by one job.
var processJob string

// processCmd represents the 'process' command.
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Generate EDI documents for every file in the input directory",
	Long: `The process command scans the input directory for workbooks and CSV files,
matches each to a job from config.yaml and generates the partner's EDI
document.

Files are processed concurrently. Each file is independent: a failure in
one does not affect the others unless continue_on_error is false.

On success:
  - The document is placed in the output directory and archived
  - The input file is moved to the input archive

On error:
  - The failure is written to an error log in the output directory
  - The input file remains in the input directory`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVar(&processFile, "file", "", "Process only this file")
	processCmd.Flags().StringVar(&processJob, "job", "", "Process only files matched by this job")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// pending is one file with its job.
type pending struct {
	path string
	job  *config.Job
}

// runProcess orchestrates the batch run.
func runProcess(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	startTime := time.Now()

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	fmt.Fprintln(out, "=== Excel to EDI Generator ===")
	fmt.Fprintln(out, "Loading configuration...")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintf(out, "Loaded %d profile(s) and %d job(s)\n", a.registry.Len(), len(a.cfg.Jobs))
	if err := a.files.EnsureDirectories(); err != nil {
		return err
	}

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	var inputFiles []string
	if processFile != "" {
		inputFiles = []string{processFile}
	} else {
		fmt.Fprintln(out, "Discovering input files...")
		if a.cfg.RecursiveInput {
			inputFiles, err = a.files.DiscoverInputFilesRecursive()
		} else {
			inputFiles, err = a.files.DiscoverInputFiles()
		}
		if err != nil {
			return fmt.Errorf("failed to discover input files: %w", err)
		}
	}

	// =========================================================================
	// STEP 3: MATCH FILES TO JOBS
	// =========================================================================

	var work []pending
	var unmatched []converter.Result
	for _, path := range inputFiles {
		job, ok := a.cfg.MatchJob(path)
		if !ok {
			if processFile != "" || processJob == "" {
				unmatched = append(unmatched, converter.Result{
					FilePath: path,
					Error:    fmt.Errorf("%w: %s", converter.ErrNoMatchingJob, filepath.Base(path)),
				})
			}
			continue
		}
		if processJob != "" && job.Name != processJob {
			continue
		}
		work = append(work, pending{path: path, job: job})
	}

	if len(work) == 0 && len(unmatched) == 0 {
		fmt.Fprintln(out, "No input files found.")
		return nil
	}
	fmt.Fprintf(out, "Found %d file(s) to process\n", len(work)+len(unmatched))

	// =========================================================================
	// STEP 4: PROCESS FILES CONCURRENTLY
	// =========================================================================

	fmt.Fprintln(out, "Processing files...")

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	deps := converter.Dependencies{
		Engine: a.engine,
		Files:  a.files,
		Audit:  a.audit,
		State:  a.state,
		Logger: a.logger,
	}
	results := processConcurrently(ctx, work, a.cfg.MaxConcurrency, func(p pending) converter.Result {
		job := *p.job
		job.AllowGeneric = job.AllowGeneric || a.cfg.AllowGenericFallback
		result := converter.New(p.path, &job, deps).Run(ctx)
		if !result.Success && !a.cfg.ContinueOnError {
			cancel()
		}
		return result
	})

	// =========================================================================
	// STEP 5: COLLECT RESULTS AND WRITE REPORTS
	// =========================================================================

	summary := utils.ProcessingSummary{StartTime: startTime, TotalFiles: len(work) + len(unmatched)}
	var errorEntries []utils.ErrorLogEntry

	jobs := make(map[string]*config.Job, len(work))
	for _, p := range work {
		jobs[p.path] = p.job
	}
	for _, result := range append(unmatched, results...) {
		if result.Success {
			summary.SuccessfulFiles++
			summary.TotalRows += result.Stats.RowsProcessed
			summary.TotalTransactions += result.Stats.TransactionsCreated
			summary.TotalDetailSegments += result.Stats.DetailSegments
			summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
				InputFile:    result.FilePath,
				OutputFile:   result.OutputFile,
				ArchivePath:  result.ArchivePath,
				Profile:      result.Document.Profile,
				Rows:         result.Stats.RowsProcessed,
				Transactions: result.Stats.TransactionsCreated,
				Interchange:  result.Document.Controls[fieldmap.LevelInterchange],
				ProcessTime:  result.Stats.ProcessingTime,
			})
			fmt.Fprintf(out, "  ✓ %s -> %s\n", filepath.Base(result.FilePath), filepath.Base(result.OutputFile))
			continue
		}

		summary.FailedFiles++
		entry := result.ErrorLogEntry(jobs[result.FilePath], time.Now())
		errorEntries = append(errorEntries, entry)
		summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
			InputFile:    result.FilePath,
			ErrorMessage: entry.ErrorMessage,
			ErrorType:    entry.ErrorType,
		})
		fmt.Fprintf(out, "  ✗ %s: %v\n", filepath.Base(result.FilePath), result.Error)
	}
	summary.EndTime = time.Now()

	if logPath, err := utils.WriteErrorLog(errorEntries, a.cfg.OutputDir, summary.EndTime); err != nil {
		a.logger.Error("Failed to write error log: %v", err)
	} else if logPath != "" {
		fmt.Fprintf(out, "\nErrors have been logged to %s\n", logPath)
	}
	if summaryPath, err := utils.WriteSummaryLog(summary, a.cfg.OutputDir); err != nil {
		a.logger.Error("Failed to write summary: %v", err)
	} else {
		a.logger.Debug("Wrote summary to %s", summaryPath)
	}

	// =========================================================================
	// STEP 6: ARCHIVE RETENTION
	// =========================================================================

	if a.cfg.ArchiveRetentionDays > 0 {
		maxAge := time.Duration(a.cfg.ArchiveRetentionDays) * 24 * time.Hour
		for _, dir := range []string{a.cfg.InputArchiveDir, a.cfg.OutputArchiveDir} {
			removed, err := utils.CleanOldArchives(dir, maxAge)
			if err != nil {
				a.logger.Warn("Failed to clean archive %s: %v", dir, err)
				continue
			}
			if removed > 0 {
				a.logger.Info("Removed %d archived file(s) from %s", removed, dir)
			}
		}
	}

	// =========================================================================
	// STEP 7: PRINT SUMMARY
	// =========================================================================

	fmt.Fprintln(out, "\n=== Processing Complete ===")
	fmt.Fprintf(out, "Total files:     %d\n", summary.TotalFiles)
	fmt.Fprintf(out, "Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Fprintf(out, "Errors:          %d\n", summary.FailedFiles)
	fmt.Fprintf(out, "Time elapsed:    %s\n", summary.EndTime.Sub(startTime))

	if summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d file(s) failed", summary.FailedFiles, summary.TotalFiles)
	}
	return nil
}

// processConcurrently runs fn for every item with at most limit calls in
// flight and returns the results in input order.
func processConcurrently(ctx context.Context, work []pending, limit int, fn func(pending) converter.Result) []converter.Result {
	if limit <= 0 {
		limit = 1
	}
	results := make([]converter.Result, len(work))
	sem := make(chan struct{}, limit)

	var wg sync.WaitGroup
	for i, p := range work {
		wg.Add(1)
		go func(i int, p pending) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = converter.Result{FilePath: p.path, Job: p.job.Name, Error: ctx.Err()}
				return
			}
			results[i] = fn(p)
		}(i, p)
	}
	wg.Wait()
	return results
}
