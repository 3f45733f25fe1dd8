package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	reqerrors "github.com/matzehuels/reqtrace/pkg/errors"
)

// Palette. Colors are ANSI 256 codes; lipgloss degrades them on simpler
// terminals and drops them when output is not a TTY.
var (
	colorTeal  = lipgloss.Color("36")
	colorGreen = lipgloss.Color("35")
	colorAmber = lipgloss.Color("220")
	colorRed   = lipgloss.Color("167")
	colorBlue  = lipgloss.Color("75")
	colorGray  = lipgloss.Color("245")
	colorDim   = lipgloss.Color("240")
)

var (
	// StyleHighlight marks package names.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorTeal)

	// StyleLink for URLs.
	StyleLink = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)

	// StyleDim for secondary text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	styleSpinner = lipgloss.NewStyle().Foreground(colorTeal)
	styleWarning = lipgloss.NewStyle().Foreground(colorAmber)
)

// Status line icons.
var (
	iconSuccess = lipgloss.NewStyle().Foreground(colorGreen).Render("✓")
	iconError   = lipgloss.NewStyle().Foreground(colorRed).Render("✗")
	iconWarning = styleWarning.Render("!")
	iconInfo    = lipgloss.NewStyle().Foreground(colorGray).Render("›")
)

func status(icon, format string, args ...any) {
	fmt.Println(icon + " " + fmt.Sprintf(format, args...))
}

func printSuccess(format string, args ...any) { status(iconSuccess, format, args...) }

func printInfo(format string, args ...any) { status(iconInfo, format, args...) }

func printWarning(format string, args ...any) {
	status(iconWarning, "%s", styleWarning.Render(fmt.Sprintf(format, args...)))
}

// printDetail prints an indented secondary line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// =============================================================================
// Errors
// =============================================================================

// PrintError writes err to w as "Error: <message>", followed by its code
// when it has one.
func PrintError(w io.Writer, err error) {
	fmt.Fprintln(w, iconError+" "+errorLine(err))
}

func errorLine(err error) string {
	var e *reqerrors.Error
	if !errors.As(err, &e) {
		return "Error: " + err.Error()
	}
	msg := e.Message
	// Status errors already name the status code in their message.
	if e.Cause != nil && e.Code != reqerrors.ErrCodeRegistryStatus && e.Code != reqerrors.ErrCodePackageNotFound {
		msg += ": " + e.Cause.Error()
	}
	return "Error: " + msg + " " + StyleDim.Render("("+string(e.Code)+")")
}
