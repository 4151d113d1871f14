package update

import (
	"fmt"
	"strings"

	"github.com/andersonfelipev/aios-core/internal/sync"
)

const reportRule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// FormatReport formats a run result for user display. For dry runs it
// is the full plan report; after an apply it summarizes what happened.
func FormatReport(result *Result) string {
	var sb strings.Builder
	sb.Grow(1024 + len(result.Plan.Changes)*64)

	sb.WriteString("\n")
	sb.WriteString(reportRule)
	sb.WriteString("\n")
	if result.DryRun {
		sb.WriteString("UPDATE PLAN (dry run, nothing was changed)\n")
	} else {
		sb.WriteString("UPDATE COMPLETE\n")
	}
	sb.WriteString(reportRule)
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Version:  %s → %s\n", result.Plan.FromVersion, result.Plan.ToVersion))
	if result.Platform != nil {
		sb.WriteString(fmt.Sprintf("Platform: %s\n", result.Platform))
	}
	if result.BackupPath != "" {
		sb.WriteString(fmt.Sprintf("Backup:   %s\n", result.BackupPath))
	}
	sb.WriteString("\n")

	adds, updates := 0, 0
	for _, change := range result.Plan.Changes {
		switch change.Kind {
		case sync.ChangeAdd:
			adds++
			sb.WriteString(fmt.Sprintf("  [ADD]    %s\n", change.Path))
		case sync.ChangeUpdate:
			updates++
			sb.WriteString(fmt.Sprintf("  [UPDATE] %s\n", change.Path))
		}
	}
	if len(result.Plan.Changes) == 0 {
		sb.WriteString("  (no file changes)\n")
	}

	sb.WriteString("\n")
	sb.WriteString(reportRule)
	sb.WriteString("\n")

	var parts []string
	if adds > 0 {
		parts = append(parts, fmt.Sprintf("%d add", adds))
	}
	if updates > 0 {
		parts = append(parts, fmt.Sprintf("%d update", updates))
	}
	if len(parts) == 0 {
		sb.WriteString("SUMMARY: no changes\n")
	} else {
		sb.WriteString(fmt.Sprintf("SUMMARY: %d files (%s)\n", adds+updates, strings.Join(parts, ", ")))
	}
	sb.WriteString(reportRule)
	sb.WriteString("\n")

	return sb.String()
}
