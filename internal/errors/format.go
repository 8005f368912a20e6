package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"
)

// ANSI color codes for terminal output.
const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorBlue  = "\033[34m"
	colorCyan  = "\033[36m"
	colorWhite = "\033[37m"
	colorGray  = "\033[90m"
	colorBold  = "\033[1m"
)

// colorEnabled controls whether ANSI colors are used.
var colorEnabled = true

// DisableColors disables ANSI color output.
func DisableColors() {
	colorEnabled = false
}

// EnableColors enables ANSI color output.
func EnableColors() {
	colorEnabled = true
}

func color(code, text string) string {
	if !colorEnabled {
		return text
	}
	return code + text + colorReset
}

func red(text string) string   { return color(colorRed, text) }
func blue(text string) string  { return color(colorBlue, text) }
func cyan(text string) string  { return color(colorCyan, text) }
func white(text string) string { return color(colorWhite, text) }
func gray(text string) string  { return color(colorGray, text) }
func bold(text string) string  { return color(colorBold, text) }

// Format returns the error formatted for terminal display. Wrapped
// errors are listed one cause per line, outermost first.
func (e *RouteError) Format() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(red(bold("ERROR")))
	if e.Code != "" {
		b.WriteString(white(bold(" " + e.Code)))
	}
	b.WriteString(white(bold(": ")))
	b.WriteString(white(e.Message))
	if e.Category != "" {
		b.WriteString(gray(" [" + string(e.Category) + "]"))
	}
	b.WriteString("\n\n")

	for _, line := range wrapText(e.Detail, 70) {
		b.WriteString("  " + line + "\n")
	}
	if e.Detail != "" {
		b.WriteString("\n")
	}

	if causes := causeChain(e.Wrapped); len(causes) > 0 {
		b.WriteString("  " + gray("Caused by:") + "\n")
		for _, cause := range causes {
			b.WriteString("    " + cause + "\n")
		}
		b.WriteString("\n")
	}

	if e.Suggestion != "" {
		b.WriteString("  " + cyan("Hint: ") + e.Suggestion + "\n\n")
	}
	if e.DocURL != "" {
		b.WriteString("  " + gray("Learn more: ") + blue(e.DocURL) + "\n")
	}

	return b.String()
}

// causeChain lists err and the errors it wraps. Each entry drops the text
// its own cause contributes, so "open x: no such file" followed by "no
// such file" prints as "open x" then "no such file".
func causeChain(err error) []string {
	var causes []string
	for err != nil {
		msg := err.Error()
		next := stderrors.Unwrap(err)
		if next != nil {
			msg = strings.TrimSuffix(msg, ": "+next.Error())
		}
		causes = append(causes, msg)
		err = next
	}
	return causes
}

// FormatCompact returns a compact single-line error format.
func (e *RouteError) FormatCompact() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// wrapText wraps text to the specified width.
func wrapText(text string, width int) []string {
	if text == "" {
		return nil
	}
	if len(text) <= width {
		return []string{text}
	}

	var lines []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		if current.Len() > 0 && current.Len()+len(word)+1 > width {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}

// Fprint writes a formatted error to w. RouteErrors anywhere in the chain
// get the full format; anything else is printed on one line.
func Fprint(w io.Writer, err error) {
	var re *RouteError
	if stderrors.As(err, &re) {
		fmt.Fprint(w, re.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", red(bold("ERROR:")), err.Error())
}
