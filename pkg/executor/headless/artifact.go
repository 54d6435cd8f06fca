package headless

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/entrhq/webpilot/pkg/types"
)

// ArtifactWriter handles writing execution artifacts
type ArtifactWriter struct {
	outputDir string
	config    ArtifactConfig
}

// NewArtifactWriter creates a new artifact writer
func NewArtifactWriter(outputDir string, config ArtifactConfig) *ArtifactWriter {
	return &ArtifactWriter{
		outputDir: outputDir,
		config:    config,
	}
}

// WriteAll writes all configured artifact formats
func (w *ArtifactWriter) WriteAll(summary *ExecutionSummary) error {
	// Ensure output directory exists
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if w.config.JSON {
		if err := w.WriteExecutionJSON(summary); err != nil {
			return fmt.Errorf("failed to write execution JSON: %w", err)
		}
	}

	if w.config.Markdown {
		if err := w.WriteSummaryMarkdown(summary); err != nil {
			return fmt.Errorf("failed to write summary markdown: %w", err)
		}
	}

	if w.config.Metrics {
		if err := w.WriteMetricsJSON(summary); err != nil {
			return fmt.Errorf("failed to write metrics JSON: %w", err)
		}
	}

	return nil
}

// WriteExecutionJSON writes the full execution summary as JSON
func (w *ArtifactWriter) WriteExecutionJSON(summary *ExecutionSummary) error {
	path := filepath.Join(w.outputDir, "execution.json")

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal execution summary: %w", err)
	}

	if writeErr := os.WriteFile(path, data, 0600); writeErr != nil {
		return fmt.Errorf("failed to write execution JSON: %w", writeErr)
	}

	return nil
}

// WriteSummaryMarkdown writes a human-readable markdown summary
func (w *ArtifactWriter) WriteSummaryMarkdown(summary *ExecutionSummary) error {
	path := filepath.Join(w.outputDir, "summary.md")

	var md strings.Builder

	// Header
	md.WriteString("# Webpilot Headless Execution Summary\n\n")
	md.WriteString(fmt.Sprintf("**Goal:** %s\n\n", summary.Goal))
	md.WriteString(fmt.Sprintf("**Task ID:** %s\n\n", summary.TaskID))
	md.WriteString(fmt.Sprintf("**Status:** %s\n\n", summary.Status))
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", summary.StartTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Completed:** %s\n\n", summary.EndTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", summary.Duration))

	// Result
	md.WriteString("## Result\n\n")
	if summary.Error != "" {
		md.WriteString(fmt.Sprintf("❌ **Error:** %s\n\n", summary.Error))
	} else if summary.FinalResult != "" {
		md.WriteString(fmt.Sprintf("✅ %s\n\n", summary.FinalResult))
	} else {
		md.WriteString(fmt.Sprintf("**%s**\n\n", summary.Status))
	}

	// Steps
	if len(summary.Steps) > 0 {
		md.WriteString("## Steps\n\n")
		md.WriteString("| # | Tool | Outcome | Duration |\n")
		md.WriteString("|---|------|---------|----------|\n")
		for _, step := range summary.Steps {
			md.WriteString(fmt.Sprintf("| %d | %s | %s | %s |\n",
				step.Index, stepTool(step), markdownCell(stepOutcome(step)), step.Duration.Round(time.Millisecond)))
		}
		md.WriteString("\n")
	}

	// Metrics
	md.WriteString("## Metrics\n\n")
	md.WriteString(fmt.Sprintf("- **Steps:** %d\n", summary.Metrics.Steps))
	md.WriteString(fmt.Sprintf("- **Successful Steps:** %d\n", summary.Metrics.SuccessfulSteps))
	md.WriteString(fmt.Sprintf("- **Failed Steps:** %d\n", summary.Metrics.FailedSteps))
	md.WriteString(fmt.Sprintf("- **Pages Visited:** %d\n", summary.Metrics.PagesVisited))

	// Write file
	if writeErr := os.WriteFile(path, []byte(md.String()), 0600); writeErr != nil {
		return fmt.Errorf("failed to write summary markdown: %w", writeErr)
	}

	return nil
}

// WriteMetricsJSON writes execution metrics as JSON
func (w *ArtifactWriter) WriteMetricsJSON(summary *ExecutionSummary) error {
	path := filepath.Join(w.outputDir, "metrics.json")

	data, err := json.MarshalIndent(summary.Metrics, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if writeErr := os.WriteFile(path, data, 0600); writeErr != nil {
		return fmt.Errorf("failed to write metrics JSON: %w", writeErr)
	}

	return nil
}

func stepTool(step types.Step) string {
	if step.ToolCall == nil {
		return "-"
	}
	return step.ToolCall.ToolName
}

func stepOutcome(step types.Step) string {
	if step.Error != nil {
		return "✗ " + step.Error.Error()
	}
	return "✓ " + step.Result
}

func markdownCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}

// ExecutionSummary contains a complete summary of a headless run
type ExecutionSummary struct {
	TaskID      string           `json:"task_id"`
	Goal        string           `json:"goal"`
	Status      string           `json:"status"`
	FinalResult string           `json:"final_result,omitempty"`
	Error       string           `json:"error,omitempty"`
	ErrorKind   string           `json:"error_kind,omitempty"`
	StartTime   time.Time        `json:"start_time"`
	EndTime     time.Time        `json:"end_time"`
	Duration    time.Duration    `json:"duration"`
	Steps       []types.Step     `json:"steps"`
	Metrics     ExecutionMetrics `json:"metrics"`
}

// ExecutionMetrics contains execution metrics
type ExecutionMetrics struct {
	Steps           int `json:"steps"`
	SuccessfulSteps int `json:"successful_steps"`
	FailedSteps     int `json:"failed_steps"`
	PagesVisited    int `json:"pages_visited"`
}

// NewExecutionSummary builds a summary from a finished run.
func NewExecutionSummary(run *types.TaskRun) *ExecutionSummary {
	summary := &ExecutionSummary{
		TaskID:      run.ID,
		Goal:        run.Request.Goal,
		Status:      string(run.Status),
		FinalResult: run.FinalResult,
		StartTime:   run.StartedAt,
		Steps:       run.Steps,
	}
	if run.EndedAt != nil {
		summary.EndTime = *run.EndedAt
		summary.Duration = summary.EndTime.Sub(summary.StartTime)
	}
	if run.Error != nil {
		summary.Error = run.Error.Message
		summary.ErrorKind = string(run.Error.Kind)
	}

	pages := make(map[string]struct{})
	for _, step := range run.Steps {
		summary.Metrics.Steps++
		if step.Success {
			summary.Metrics.SuccessfulSteps++
		} else {
			summary.Metrics.FailedSteps++
		}
		if step.Observation != nil && step.Observation.URL != "" {
			pages[step.Observation.URL] = struct{}{}
		}
	}
	summary.Metrics.PagesVisited = len(pages)
	return summary
}
