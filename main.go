// =============================================================================
// Receipt Reconciler - Main Entry Point
// =============================================================================
//
// Converts digital supermarket receipts (HTML pages) into shared-expense
// workbooks. Command handling lives in the cmd package.
//
// USAGE:
//   receipt process         - Reconcile every receipt page in the input directory
//   receipt process --url   - Fetch and reconcile a single receipt page
//   receipt validate        - Check the configuration without processing
//   receipt version         - Display the application version
//
// LAYOUT:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Scanner, reconciliation, formulas, workbook output
//   - pkg/           : File management and run summaries
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/receipt-reconciler/cmd"
)

func main() {
	cmd.Execute()
}
