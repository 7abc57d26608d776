package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/eshaffer321/bank-recon-backend/internal/application/recon"
	"github.com/eshaffer321/bank-recon-backend/internal/infrastructure/storage"
)

// PrintHeader prints the run header.
func PrintHeader(statementPath string, dryRun bool) {
	mode := "PRODUCTION"
	if dryRun {
		mode = "DRY-RUN"
	}
	fmt.Printf("bank-recon: %s (%s mode)\n", statementPath, mode)
}

// PrintReport prints the run result summary.
func PrintReport(report *recon.Report, store storage.Repository) {
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("Run %s: %d transactions in %s\n",
		report.RunID,
		report.Total,
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	fmt.Printf("Summary: Reconciled=%d AutoCreated=%d ManualReview=%d Errors=%d\n",
		report.Reconciled,
		report.AutoCreated,
		report.ManualReview,
		report.Failed)

	if len(report.Errors) > 0 {
		fmt.Println("\nErrors:")
		for _, err := range report.Errors {
			fmt.Printf("  - %s\n", err.Error())
		}
	}

	if store != nil {
		stats, _ := store.GetLearningStats()
		if stats != nil && stats.Total > 0 {
			fmt.Printf("\nLearning history: Examples=%d Categorized=%d WithCounterparty=%d\n",
				stats.Total,
				stats.Categorized,
				stats.WithCounterparty)
		}
	}

	if report.DryRun {
		fmt.Println("\nDry run: nothing was written to the ledger.")
	}
}
