package cli

import (
	"fmt"
	"strings"
)

// printHeader prints a formatted section header.
func printHeader(title string) {
	fmt.Printf("\n%s%s%s\n", styleBoldCyan, title, colorReset)
	fmt.Println(colorDim + strings.Repeat("-", len(title)+2) + colorReset)
}

// printField prints a labeled field.
func printField(label, value string) {
	fmt.Printf("  %s%-18s%s %s\n", colorBold, label+":", colorReset, value)
}

// printFieldColored prints a labeled field with a colored value.
func printFieldColored(label, value, color string) {
	fmt.Printf("  %s%-18s%s %s%s%s\n", colorBold, label+":", colorReset, color, value, colorReset)
}

// printTable prints a simple table with headers and rows, padding columns
// to the widest cell in each after stripping ANSI escapes for measurement.
func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println(colorDim + "  (none)" + colorReset)
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				if n := len(stripAnsi(cell)); n > widths[i] {
					widths[i] = n
				}
			}
		}
	}

	headerLine := "  "
	for i, h := range headers {
		headerLine += fmt.Sprintf("%s%-*s%s", colorBold, widths[i]+2, h, colorReset)
	}
	fmt.Println(headerLine)

	sepLine := "  "
	for _, w := range widths {
		sepLine += colorDim + strings.Repeat("-", w+2) + colorReset
	}
	fmt.Println(sepLine)

	for _, row := range rows {
		rowLine := "  "
		for i, cell := range row {
			if i < len(widths) {
				padding := widths[i] - len(stripAnsi(cell))
				if padding < 0 {
					padding = 0
				}
				rowLine += cell + strings.Repeat(" ", padding+2)
			}
		}
		fmt.Println(rowLine)
	}
}

// stripAnsi removes ANSI escape codes from a string, for width calculation.
func stripAnsi(s string) string {
	var out strings.Builder
	inEscape := false
	for _, r := range s {
		if r == '\033' {
			inEscape = true
			continue
		}
		if inEscape {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}

// truncate truncates a string to maxLen, adding "..." when it was cut.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
