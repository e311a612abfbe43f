package app

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jhonToni/VS-Code-STM32-IDE/internal/cmd/alerts"
	"github.com/jhonToni/VS-Code-STM32-IDE/internal/cmd/output"
	"github.com/jhonToni/VS-Code-STM32-IDE/internal/store"
	"github.com/jhonToni/VS-Code-STM32-IDE/internal/toolchain"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/errors"
)

// NewCheckCommand creates the check subcommand, a read-only report of the
// toolchain paths recorded in buildData.json.
func (a *App) NewCheckCommand() *cobra.Command {
	var noProbe bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report the recorded toolchain paths without changing anything",
		Long: `Check reads .vscode/buildData.json and reports, for every recorded
toolchain and debugger path, whether it still exists and which version the
executables report. It exits with an error when a required path is invalid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runCheck(cmd, !noProbe)
		},
	}
	cmd.Flags().BoolVar(&noProbe, "no-probe", false, "do not run the executables to query their versions")
	return cmd
}

func (a *App) runCheck(cmd *cobra.Command, probe bool) error {
	root := a.config.Root
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return errors.WrapIO("resolve", root, err)
	}

	st := store.New(store.Path(root), store.WithLogger(a.logger))
	doc, err := st.Load()
	if err != nil {
		return err
	}

	statuses := toolchain.Inspect(cmd.Context(), doc, probe)

	format := output.DetectFormat(a.config.Format)
	var data any = statuses
	if format == output.FormatTable || format == output.FormatWide {
		data = statusView(statuses)
	}
	if err := output.NewFormatter(format).Format(a.stdout, data); err != nil {
		return errors.WrapIO("write", "stdout", err)
	}

	var stale []string
	for _, s := range statuses {
		if !s.Valid {
			stale = append(stale, s.Key)
		}
	}
	if len(stale) > 0 {
		return errors.NewStalePathError(stale, nil)
	}

	if !a.config.Quiet {
		return alerts.NewWriterTo(a.stderr, a.config.NoColor).WriteAlert(alerts.NewSuccess("all toolchain paths are valid"))
	}
	return nil
}

// statusView lays toolchain statuses out as a table.
type statusView []toolchain.Status

// TableData implements output.Tabular.
func (v statusView) TableData(wide bool) []output.Data {
	headers := []string{"Key", "Status", "Version", "Path"}
	if wide {
		headers = append(headers, "Description")
	}

	data := output.Data{Headers: headers}
	for _, s := range v {
		state := "ok"
		switch {
		case !s.Valid:
			state = "missing"
		case s.Path == "":
			state = "unset"
		}
		row := []string{s.Key, state, s.Version, s.Path}
		if wide {
			row = append(row, s.Description)
		}
		data.Rows = append(data.Rows, row)
	}
	return []output.Data{data}
}
