// Package console renders operator output for migration runs.
package console

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	headerColor  = color.New(color.FgBlue, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
)

// Header prints the run banner.
func Header(title string) {
	fmt.Println()
	_, _ = headerColor.Printf("▸ %s\n", title)
	fmt.Println()
}

// Success prints a success line.
func Success(msg string) {
	_, _ = successColor.Printf("✓ %s\n", msg)
}

// Warn prints a warning line.
func Warn(msg string) {
	_, _ = warningColor.Printf("⚠ %s\n", msg)
}

// Error prints an error line to stderr.
func Error(msg string) {
	_, _ = errorColor.Fprintf(os.Stderr, "✗ %s\n", msg)
}

// Info prints a plain line.
func Info(msg string) {
	fmt.Println(msg)
}

// JobReport is one row of the end-of-run summary table.
type JobReport struct {
	Workspace string
	Status    string
	Files     string
	VSCode    string
	Cursor    string
	Details   string
}

// Summary renders the migration summary table.
func Summary(reports []JobReport) {
	fmt.Println()
	_, _ = headerColor.Println("Migration Summary")

	headers := []string{"WORKSPACE", "STATUS", "FILES", "VS CODE", "CURSOR", "DETAILS"}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		row := []string{r.Workspace, r.Status, r.Files, r.VSCode, r.Cursor, r.Details}
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
		rows = append(rows, row)
	}

	printRow := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = cell + strings.Repeat(" ", widths[i]-len(cell))
		}
		fmt.Println("  " + strings.Join(parts, "  "))
	}

	printRow(headers)
	_, _ = dimColor.Println("  " + strings.Repeat("-", total(widths)+2*(len(widths)-1)))
	for _, row := range rows {
		printRow(row)
	}
	fmt.Println()
}

func total(widths []int) int {
	sum := 0
	for _, w := range widths {
		sum += w
	}
	return sum
}
