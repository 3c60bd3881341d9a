// =============================================================================
// Excel to EDI Generator - Main Entry Point
// =============================================================================
//
// This is the main entry point for the Excel to EDI Generator CLI. It
// delegates command execution to the cmd package.
//
// USAGE:
//   edi-generator generate FILE --partner P --type T  - Generate one document
//   edi-generator process                             - Process the input directory
//   edi-generator profiles list|validate              - Inspect partner profiles
//   edi-generator logs                                - Show the audit trail
//   edi-generator version                             - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Engine, profiles, envelope, serializer and parsers
//   - pkg/           : Shared file utilities
//   - profiles/      : Partner encoding profiles (YAML)
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/excel-to-edi/cmd"
)

func main() {
	cmd.Execute()
}
