package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	stm32ide "github.com/jhonToni/VS-Code-STM32-IDE"
	"github.com/jhonToni/VS-Code-STM32-IDE/internal/cmd/alerts"
	"github.com/jhonToni/VS-Code-STM32-IDE/internal/cmd/output"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/constants"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/errors"
)

// runSync performs one full sync and prints the result.
func (a *App) runSync(cmd *cobra.Command, _ []string) error {
	engine, err := a.Engine()
	if err != nil {
		return err
	}

	status := alerts.NewWriterTo(a.stderr, a.config.NoColor)
	if a.config.Quiet {
		status = alerts.DiscardWriter
	}

	engine.OnStoreRecovered(func(path string) {
		_ = status.WriteAlert(alerts.NewWarning("Invalid buildData.json replaced with a new one").WithDetails(path))
	})
	engine.OnPathsReplaced(func(keys []string) {
		_ = status.WriteAlert(alerts.NewWarning("Toolchain paths updated").WithDetails(keys...))
	})

	result, err := engine.Sync(cmd.Context())
	if err != nil {
		return err
	}

	format := output.DetectFormat(a.config.Format)
	var data any = result
	if format == output.FormatTable || format == output.FormatWide {
		data = resultView{result}
	}
	if err := output.NewFormatter(format).Format(a.stdout, data); err != nil {
		return errors.WrapIO("write", "stdout", err)
	}

	message := constants.BuildDataFileName + " updated"
	if result.DryRun {
		message = constants.BuildDataFileName + " not written (dry run)"
	}
	return status.WriteAlert(alerts.NewSuccess(message).WithDetails(result.Summary()))
}

// resultView lays a sync result out as tables.
type resultView struct {
	*stm32ide.Result
}

// TableData implements output.Tabular.
func (v resultView) TableData(wide bool) []output.Data {
	r := v.Result
	rows := [][]string{
		{"Project", r.ProjectName},
		{output.Heading(constants.KeyBuildDir), r.BuildDir},
		{output.Heading(constants.KeyTargetExecutablePath), r.TargetExecutablePath},
		{output.Heading(constants.KeyCSources), strconv.Itoa(r.CSourceCount)},
		{output.Heading(constants.KeyAsmSources), strconv.Itoa(r.AsmSourceCount)},
		{"Includes", strconv.Itoa(r.IncludeCount)},
		{"Defines", strconv.Itoa(r.DefineCount)},
	}
	if r.CubeMxProjectPath != "" {
		rows = append(rows, []string{output.Heading(constants.KeyCubeMxProjectPath), r.CubeMxProjectPath})
	}
	if len(r.ReplacedPaths) > 0 {
		rows = append(rows, []string{"Replaced Paths", strings.Join(r.ReplacedPaths, ", ")})
	}
	rows = append(rows,
		[]string{"Store", fmt.Sprintf("%s (%s)", r.StorePath, r.StoreOutcome)},
		[]string{"Changes", r.Changeset.String()},
		[]string{output.Heading(constants.KeyVersion), r.Version},
		[]string{output.Heading(constants.KeyLastRun), r.LastRun.Format(constants.LastRunFormat)},
	)

	tables := []output.Data{{
		Headers:         []string{"Property", "Value"},
		Rows:            rows,
		ColumnAlignment: []output.Align{output.AlignLeft, output.AlignLeft},
	}}

	if wide && r.HasChanges() {
		changes := output.Data{Headers: []string{"Key", "Change", "Value"}}
		for _, c := range r.Changeset.Changes {
			value := c.NewValue
			if value == "" {
				value = c.OldValue
			}
			changes.Rows = append(changes.Rows, []string{c.Key, string(c.Type), truncate(value, 60)})
		}
		tables = append(tables, changes)
	}
	return tables
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// errorAlert turns a failed run of command into a status line and, for the
// common failures, a hint on what to do next. An empty command means the
// failure happened before any command was selected.
func errorAlert(command string, err error) *alerts.Alert {
	if command == "" {
		command = "stm32ide"
	}
	alert := alerts.NewError(command + " failed").WithError(err)

	switch {
	case errors.IsNotFound(err):
		alert.WithDetails("run stm32ide from a project root that contains a " + constants.MakefileName + ", or pass --root")
	case errors.Classify(err) == errors.ClassStale:
		alert.WithDetails("install the missing tools, run interactively to enter the paths,",
			"or fix them in "+constants.VSCodeDir+"/"+constants.BuildDataFileName)
	}

	var procErr *errors.ProcessError
	if errors.As(err, &procErr) {
		alert.WithDetails("make failed; check that the Makefile builds with the recorded toolchain")
	}
	return alert
}
