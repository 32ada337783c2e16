// Package cli renders operator-facing output for the command line tool.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/ce-fello/bug-tracker-service/src/internal/model"
)

type UI struct {
	Out    io.Writer
	ErrOut io.Writer
}

func New() *UI {
	return &UI{Out: os.Stdout, ErrOut: os.Stderr}
}

var (
	cyan   = color.New(color.FgHiCyan).SprintFunc()
	green  = color.New(color.FgHiGreen).SprintFunc()
	yellow = color.New(color.FgHiYellow).SprintFunc()
	red    = color.New(color.FgHiRed).SprintFunc()
)

func (u *UI) Success(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", green("✓"), fmt.Sprintf(format, a...))
}

func (u *UI) Error(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", red("✗"), fmt.Sprintf(format, a...))
}

// StatusColor colors an issue status by how close it is to done.
func StatusColor(s model.Status) string {
	switch s {
	case model.StatusClosed:
		return green(string(s))
	case model.StatusReadyForTest:
		return cyan(string(s))
	case model.StatusInProgress, model.StatusReopened:
		return yellow(string(s))
	case model.StatusNew, model.StatusOpen:
		return red(string(s))
	}
	return string(s)
}

func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}
