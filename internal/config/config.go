// =============================================================================
// Excel to EDI Generator - Configuration Module
// =============================================================================
//
// This module loads the main application configuration and the partner
// profile files.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): directories, logging, output naming and
//      the batch jobs that map input files to a partner and document type
//   2. Partner Profiles (profiles/*.yaml): one encoding profile per file,
//      added on top of the built-in profiles
//
// A missing config.yaml is not an error: every setting has a default, so
// the generate command works without any configuration.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ginjaninja78/excel-to-edi/internal/profile"
	"gopkg.in/yaml.v3"
)

// DefaultFileNameFormat names generated documents.
const DefaultFileNameFormat = "{partner}_{type}_{timestamp}.edi"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned by the process command for workbooks and CSV files.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives the generated EDI documents.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir is where processed input files are moved.
	// Files are only moved here after successful processing.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// OutputArchiveDir is where generated documents are copied for
	// long-term storage.
	// Default: "./output_archive"
	OutputArchiveDir string `yaml:"output_archive_dir"`

	// ProfilesDir holds partner profile files. Every *.yaml and *.yml file
	// is one profile.
	// Default: "./profiles"
	ProfilesDir string `yaml:"profiles_dir"`

	// AuditDir holds one audit log per identity.
	// Default: "./audit"
	AuditDir string `yaml:"audit_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is the path to the JSON application log. Empty disables it.
	// Default: "./logs/generator.log"
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// FileNameFormat defines the name of generated documents.
	// Placeholders:
	//   {partner}   - Partner ID
	//   {type}      - Document type
	//   {control}   - Interchange control number
	//   {timestamp} - Generation time (YYYYMMDD_HHMMSS)
	//   {date}      - Generation date (YYYYMMDD)
	//   {time}      - Generation time (HHMMSS)
	//   {uuid}      - A random UUID
	// Default: "{partner}_{type}_{timestamp}.edi"
	FileNameFormat string `yaml:"file_name_format"`

	// ControlNumberFile persists the last used control number per envelope
	// level between runs.
	// Default: "./state/control_numbers.yaml"
	ControlNumberFile string `yaml:"control_number_file"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of files to process concurrently.
	// Set to 1 for sequential processing.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError determines whether to continue processing other files
	// if one file fails.
	// Default: true
	ContinueOnError bool `yaml:"continue_on_error"`

	// AllowGenericFallback lets jobs without a matching partner profile use
	// the generic profile. Individual jobs may also opt in.
	// Default: false
	AllowGenericFallback bool `yaml:"allow_generic_fallback"`

	// RecursiveInput also picks up input files in subdirectories of
	// InputDir. Job patterns match the file name only.
	// Default: false
	RecursiveInput bool `yaml:"recursive_input"`

	// AuditReadLimit is how many entries the logs command shows.
	// Default: 50
	AuditReadLimit int `yaml:"audit_read_limit"`

	// =========================================================================
	// ARCHIVE SETTINGS
	// =========================================================================

	// ArchiveOnSuccess moves processed inputs to InputArchiveDir.
	// Default: true
	ArchiveOnSuccess bool `yaml:"archive_on_success"`

	// UseTimestampSubdirs archives into YYYY/MM/DD subdirectories.
	UseTimestampSubdirs bool `yaml:"use_timestamp_subdirs"`

	// ArchiveRetentionDays removes archived files older than this many days
	// at the end of a batch run. Zero keeps everything.
	ArchiveRetentionDays int `yaml:"archive_retention_days"`

	// =========================================================================
	// BATCH JOBS
	// =========================================================================

	// Jobs map input files to a partner and document type. The first job
	// whose pattern matches the file name wins.
	Jobs []Job `yaml:"jobs"`
}

// Job describes how the process command turns matching input files into
// documents.
//
// Example:
//
//	jobs:
//	  - name: renesas-orders
//	    pattern: "RENESAS_PO_*.xlsx"
//	    partner_id: RENESAS
//	    document_type: PO
//	    input:
//	      sheet: Orders
type Job struct {
	// Name is used in logs and the summary.
	Name string `yaml:"name"`

	// Pattern is a glob matched against the input file name.
	Pattern string `yaml:"pattern"`

	PartnerID    string `yaml:"partner_id"`
	DocumentType string `yaml:"document_type"`

	// RequestedBy is recorded in the audit log and available to profiles
	// as the requested_by context value.
	// Default: "batch"
	RequestedBy string `yaml:"requested_by"`

	// AllowGeneric uses the generic profile when the partner has none.
	AllowGeneric bool `yaml:"allow_generic"`

	// Input controls how the file is read.
	Input InputSettings `yaml:"input"`
}

// InputSettings defines how workbooks and CSV files are read.
type InputSettings struct {
	// Sheet is the worksheet to read. Empty means the first sheet.
	Sheet string `yaml:"sheet"`

	// HeaderRow is the 1-based row holding the column names.
	// Default: 1
	HeaderRow int `yaml:"header_row"`

	// DataStartRow is the 1-based row where data begins.
	// Default: HeaderRow + 1
	DataStartRow int `yaml:"data_start_row"`

	// Delimiter separates CSV fields. "tab", "pipe" and "semicolon" are
	// accepted as names.
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// Encoding of CSV files: UTF-8, ISO-8859-1 or Windows-1252.
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`

	// DateLayouts are Go time layouts tried when inferring date cells from
	// text. Empty uses the built-in list.
	DateLayouts []string `yaml:"date_layouts"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct. A missing file yields the
//     defaults.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	// Booleans that default to true must be set before decoding, since an
	// absent key and "false" are indistinguishable afterwards.
	config := MainConfig{
		ContinueOnError:  true,
		ArchiveOnSuccess: true,
	}

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Run with defaults.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply default values.
	applyMainConfigDefaults(&config)

	// Validate the configuration.
	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.OutputArchiveDir == "" {
		config.OutputArchiveDir = "./output_archive"
	}
	if config.ProfilesDir == "" {
		config.ProfilesDir = "./profiles"
	}
	if config.AuditDir == "" {
		config.AuditDir = "./audit"
	}
	if config.LogFile == "" {
		config.LogFile = "./logs/generator.log"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.FileNameFormat == "" {
		config.FileNameFormat = DefaultFileNameFormat
	}
	if config.ControlNumberFile == "" {
		config.ControlNumberFile = "./state/control_numbers.yaml"
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.AuditReadLimit <= 0 {
		config.AuditReadLimit = 50
	}

	for i := range config.Jobs {
		applyJobDefaults(&config.Jobs[i])
	}
}

// applyJobDefaults sets default values for a batch job.
func applyJobDefaults(job *Job) {
	job.PartnerID = strings.ToUpper(strings.TrimSpace(job.PartnerID))
	job.DocumentType = strings.ToUpper(strings.TrimSpace(job.DocumentType))
	if job.Name == "" {
		job.Name = job.PartnerID + "_" + job.DocumentType
	}
	if job.RequestedBy == "" {
		job.RequestedBy = "batch"
	}
	job.Input = job.Input.WithDefaults()
}

// WithDefaults returns the settings with unset options filled in.
func (s InputSettings) WithDefaults() InputSettings {
	if s.HeaderRow <= 0 {
		s.HeaderRow = 1
	}
	if s.DataStartRow <= s.HeaderRow {
		s.DataStartRow = s.HeaderRow + 1
	}
	if s.Delimiter == "" {
		s.Delimiter = ","
	}
	if s.Encoding == "" {
		s.Encoding = "UTF-8"
	}
	return s
}

// validateMainConfig validates the main configuration and creates the
// working directories.
func validateMainConfig(config *MainConfig) error {
	for i, job := range config.Jobs {
		if job.Pattern == "" {
			return fmt.Errorf("job %d (%s): pattern is required", i+1, job.Name)
		}
		if _, err := path.Match(job.Pattern, ""); err != nil {
			return fmt.Errorf("job %d (%s): invalid pattern %q: %w", i+1, job.Name, job.Pattern, err)
		}
		if job.PartnerID == "" || job.DocumentType == "" {
			return fmt.Errorf("job %d (%s): partner_id and document_type are required", i+1, job.Name)
		}
	}

	// Create the working directories if they don't exist.
	dirs := []string{
		config.InputDir,
		config.OutputDir,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// MatchJob returns the first job whose pattern matches the base name of
// fileName.
func (c *MainConfig) MatchJob(fileName string) (*Job, bool) {
	base := filepath.Base(fileName)
	for i := range c.Jobs {
		if ok, _ := path.Match(c.Jobs[i].Pattern, base); ok {
			return &c.Jobs[i], true
		}
	}
	return nil, false
}

// =============================================================================
// PARTNER PROFILE LOADING
// =============================================================================

// LoadProfiles loads all partner profiles from a directory.
//
// PARAMETERS:
//   - profilesDir: The directory containing profile files.
//
// RETURNS:
//   - The decoded profiles in file name order. A missing directory yields
//     none.
//   - An error naming the first file that cannot be read or parsed.
func LoadProfiles(profilesDir string) ([]*profile.EncodingProfile, error) {
	if _, err := os.Stat(profilesDir); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	// Find all YAML files in the profiles directory.
	files, err := filepath.Glob(filepath.Join(profilesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}

	// Also check for .yml extension.
	ymlFiles, err := filepath.Glob(filepath.Join(profilesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}
	files = append(files, ymlFiles...)
	sort.Strings(files)

	profiles := make([]*profile.EncodingProfile, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		p, err := profile.Decode(data, file)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	return profiles, nil
}
