// Package reporter renders scan results, removal reports and restore point
// listings to a writer in the selected output format.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/fenilsonani/fspurge/internal/remover"
	"github.com/fenilsonani/fspurge/internal/scanner"
	"github.com/fenilsonani/fspurge/internal/snapshot"
	"github.com/fenilsonani/fspurge/pkg/utils"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatSummary OutputFormat = "summary"
	FormatTree    OutputFormat = "tree"
	FormatJSON    OutputFormat = "json"
	FormatYAML    OutputFormat = "yaml"
)

var (
	dirStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	sizeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Reporter handles report generation
type Reporter struct {
	writer io.Writer
	format OutputFormat
}

// New creates a new Reporter
func New(writer io.Writer, format OutputFormat) *Reporter {
	return &Reporter{
		writer: writer,
		format: format,
	}
}

// ReportScan renders a scan result.
func (r *Reporter) ReportScan(result *scanner.Result) error {
	switch r.format {
	case FormatSummary:
		return r.scanSummary(result)
	case FormatTree:
		return r.scanTree(result)
	case FormatJSON:
		return r.scanJSON(result)
	case FormatYAML:
		return r.scanYAML(result)
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}
}

func (r *Reporter) scanSummary(result *scanner.Result) error {
	fmt.Fprintf(r.writer, "=== Scan Summary: %s ===\n", result.AppName)
	fmt.Fprintf(r.writer, "Candidates: %d\n", len(result.Candidates))
	fmt.Fprintf(r.writer, "Total Size: %s\n", utils.FormatBytes(result.TotalSize))
	if result.Skipped > 0 {
		fmt.Fprintf(r.writer, "Skipped (unreadable): %d\n", result.Skipped)
	}
	return nil
}

// scanTree renders candidates grouped under their parent directory.
func (r *Reporter) scanTree(result *scanner.Result) error {
	if len(result.Candidates) == 0 {
		fmt.Fprintf(r.writer, "No leftovers found for %q.\n", result.AppName)
		return nil
	}

	fmt.Fprintf(r.writer, "Leftovers for %q:\n\n", result.AppName)

	for _, group := range result.Groups {
		fmt.Fprintf(r.writer, "%s (%s)\n",
			dirStyle.Render(group.Dir),
			sizeStyle.Render(utils.FormatBytes(group.Size)))

		for i, entry := range group.Entries {
			connector := "├──"
			if i == len(group.Entries)-1 {
				connector = "└──"
			}
			fmt.Fprintf(r.writer, "  %s %s  %s [%s]\n",
				connector,
				entry.Path,
				sizeStyle.Render(utils.FormatBytes(entry.Size)),
				entry.Tier)
		}
		fmt.Fprintln(r.writer)
	}

	fmt.Fprintf(r.writer, "Total: %d entries, %s\n",
		len(result.Candidates), utils.FormatBytes(result.TotalSize))
	if result.Skipped > 0 {
		fmt.Fprintf(r.writer, "Skipped %d unreadable entries during traversal.\n", result.Skipped)
	}
	return nil
}

// scanPayload is the wire shape shared by the JSON and YAML formats.
type scanPayload struct {
	Timestamp          string          `json:"timestamp" yaml:"timestamp"`
	AppName            string          `json:"app_name" yaml:"app_name"`
	TotalEntries       int             `json:"total_entries" yaml:"total_entries"`
	TotalSize          int64           `json:"total_size" yaml:"total_size"`
	TotalSizeFormatted string          `json:"total_size_formatted" yaml:"total_size_formatted"`
	Skipped            int             `json:"skipped" yaml:"skipped"`
	Entries            []scanEntryInfo `json:"entries" yaml:"entries"`
}

type scanEntryInfo struct {
	Path string `json:"path" yaml:"path"`
	Size int64  `json:"size" yaml:"size"`
	Tier string `json:"tier" yaml:"tier"`
}

func buildScanPayload(result *scanner.Result) scanPayload {
	entries := make([]scanEntryInfo, len(result.Candidates))
	for i, c := range result.Candidates {
		entries[i] = scanEntryInfo{Path: c.Path, Size: c.Size, Tier: c.Tier.String()}
	}
	return scanPayload{
		Timestamp:          time.Now().Format(time.RFC3339),
		AppName:            result.AppName,
		TotalEntries:       len(result.Candidates),
		TotalSize:          result.TotalSize,
		TotalSizeFormatted: utils.FormatBytes(result.TotalSize),
		Skipped:            result.Skipped,
		Entries:            entries,
	}
}

func (r *Reporter) scanJSON(result *scanner.Result) error {
	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildScanPayload(result))
}

func (r *Reporter) scanYAML(result *scanner.Result) error {
	encoder := yaml.NewEncoder(r.writer)
	defer encoder.Close()
	return encoder.Encode(buildScanPayload(result))
}

// ReportRemoval renders a removal report. Every entry is listed with its
// outcome; failures carry the categorized reason.
func (r *Reporter) ReportRemoval(report *remover.Report) error {
	if r.format == FormatJSON || r.format == FormatYAML {
		return r.removalStructured(report)
	}

	fmt.Fprintf(r.writer, "=== Removal (%s mode) ===\n", report.Mode)

	for _, e := range report.Entries {
		var line string
		switch e.Outcome {
		case remover.OutcomeRemoved:
			mark := okStyle.Render("removed")
			if e.Elevated {
				mark = okStyle.Render("removed (elevated)")
			}
			line = fmt.Sprintf("%s  %s", mark, e.Path)
		case remover.OutcomeSkipped:
			line = fmt.Sprintf("%s  %s (%s)", skippedStyle.Render("skipped"), e.Path, e.Reason)
		default:
			line = fmt.Sprintf("%s   %s (%s)", failStyle.Render("failed"), e.Path, e.Reason)
		}
		fmt.Fprintln(r.writer, line)
	}

	fmt.Fprintf(r.writer, "\nRemoved %d, skipped %d, failed %d. Freed %s.\n",
		report.Removed, report.Skipped, report.Failed, utils.FormatBytes(report.FreedSize))
	if report.Elevated > 0 {
		fmt.Fprintf(r.writer, "Elevated removals: %d\n", report.Elevated)
	}
	return nil
}

func (r *Reporter) removalStructured(report *remover.Report) error {
	type entryInfo struct {
		Path     string `json:"path" yaml:"path"`
		Outcome  string `json:"outcome" yaml:"outcome"`
		Reason   string `json:"reason,omitempty" yaml:"reason,omitempty"`
		Elevated bool   `json:"elevated,omitempty" yaml:"elevated,omitempty"`
	}

	payload := struct {
		Mode      string      `json:"mode" yaml:"mode"`
		Removed   int         `json:"removed" yaml:"removed"`
		Skipped   int         `json:"skipped" yaml:"skipped"`
		Failed    int         `json:"failed" yaml:"failed"`
		FreedSize int64       `json:"freed_size" yaml:"freed_size"`
		Entries   []entryInfo `json:"entries" yaml:"entries"`
	}{
		Mode:      report.Mode.String(),
		Removed:   report.Removed,
		Skipped:   report.Skipped,
		Failed:    report.Failed,
		FreedSize: report.FreedSize,
	}

	for _, e := range report.Entries {
		payload.Entries = append(payload.Entries, entryInfo{
			Path:     e.Path,
			Outcome:  e.Outcome.String(),
			Reason:   e.Reason,
			Elevated: e.Elevated,
		})
	}

	if r.format == FormatYAML {
		encoder := yaml.NewEncoder(r.writer)
		defer encoder.Close()
		return encoder.Encode(payload)
	}

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

// ReportRestorePoints renders a restore point listing, newest first.
func (r *Reporter) ReportRestorePoints(infos []snapshot.Info) error {
	if len(infos) == 0 {
		fmt.Fprintln(r.writer, "No restore points found.")
		return nil
	}

	fmt.Fprintf(r.writer, "%-40s | %-12s | %s\n", "Name", "Size", "Created")
	for _, info := range infos {
		fmt.Fprintf(r.writer, "%-40s | %-12s | %s\n",
			info.Name,
			utils.FormatBytes(info.Size),
			info.Created.Format("2006-01-02 15:04:05"))
	}
	return nil
}
