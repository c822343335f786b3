package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sadopc/arqrel/internal/config"
	"github.com/sadopc/arqrel/internal/model"
	"github.com/sadopc/arqrel/internal/ops"
	"github.com/sadopc/arqrel/internal/store"
	"github.com/sadopc/arqrel/internal/ui/components"
	"github.com/sadopc/arqrel/internal/ui/style"
	"github.com/sadopc/arqrel/internal/util"
)

// recordView holds the listing flags shared by show and history.
type recordView struct {
	sortBy      string
	desc        bool
	limit       int
	summaryOnly bool
}

func (rv *recordView) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&rv.sortBy, "sort", "discovery", "sort records by: discovery, size, name, ext, mtime")
	cmd.Flags().BoolVar(&rv.desc, "desc", false, "sort in descending order")
	cmd.Flags().IntVarP(&rv.limit, "limit", "n", 0, "show at most n records (0 = all)")
	cmd.Flags().BoolVar(&rv.summaryOnly, "summary", false, "only show the summary")
}

// sortConfig validates the sort flags.
func (rv *recordView) sortConfig() (model.SortConfig, error) {
	field, ok := model.ParseSortField(rv.sortBy)
	if !ok {
		return model.SortConfig{}, fmt.Errorf("unknown sort field %q", rv.sortBy)
	}
	order := model.SortAsc
	if rv.desc {
		order = model.SortDesc
	}
	return model.SortConfig{Field: field, Order: order}, nil
}

// render prints the summary followed by the selected records.
func (rv *recordView) render(w io.Writer, report *model.Report) error {
	cfg, err := rv.sortConfig()
	if err != nil {
		return err
	}
	if rv.limit < 0 {
		return fmt.Errorf("--limit must be >= 0")
	}

	theme := style.DefaultTheme()
	width := writerWidth(w)
	fmt.Fprint(w, components.RenderSummary(theme, report, nil, width))
	if rv.summaryOnly || len(report.Records) == 0 {
		return nil
	}

	records := append([]model.FileRecord(nil), report.Records...)
	model.SortRecords(records, cfg)
	if rv.limit > 0 && len(records) > rv.limit {
		records = records[:rv.limit]
	}
	fmt.Fprintln(w, components.RenderRecords(theme, records, width))
	if shown := len(records); shown < len(report.Records) {
		fmt.Fprintf(w, "%d of %d records shown\n", shown, len(report.Records))
	}
	return nil
}

func newShowCmd() *cobra.Command {
	var rv recordView
	cmd := &cobra.Command{
		Use:   "show <report>",
		Short: "Render a saved report file or split report directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rv.sortConfig(); err != nil {
				return err
			}
			report, err := ops.ReadReport(args[0])
			if err != nil {
				return err
			}
			return rv.render(cmd.OutOrStdout(), report)
		},
	}
	rv.register(cmd)
	return cmd
}

func newHistoryCmd(v *viper.Viper, configFile *string) *cobra.Command {
	var rv recordView
	var scans int
	cmd := &cobra.Command{
		Use:   "history [scan-id]",
		Short: "List inventories stored in PostgreSQL, or show one of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				return err
			}
			cfg, err := config.Load(v, *configFile)
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return fmt.Errorf("no database configured (use --db-url or ARQREL_DATABASE_URL)")
			}

			var id uuid.UUID
			if len(args) == 1 {
				if id, err = uuid.Parse(args[0]); err != nil {
					return fmt.Errorf("invalid scan id %q: %w", args[0], err)
				}
				if _, err := rv.sortConfig(); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			db, err := store.Open(ctx, cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			if len(args) == 0 {
				rows, err := db.RecentScans(ctx, scans)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderHistory(style.DefaultTheme(), rows))
				return nil
			}

			report, err := db.LoadReport(ctx, id)
			if err != nil {
				return err
			}
			return rv.render(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().IntVar(&scans, "scans", 20, "number of recent inventories to list")
	rv.register(cmd)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "arqrel %s\n", version)
		},
	}
}

// renderHistory lists stored inventories, newest first.
func renderHistory(theme style.Theme, rows []store.ScanRow) string {
	if len(rows) == 0 {
		return lipgloss.NewStyle().Foreground(theme.TextMuted).Render("  (no stored inventories)")
	}
	data := make([][]string, len(rows))
	for i, r := range rows {
		kind := "full"
		if r.SummaryOnly {
			kind = "summary"
		}
		data[i] = []string{
			r.ID.String(),
			r.Summary.TimeBegin.Format("2006-01-02 15:04:05"),
			r.Summary.BaseDir,
			util.FormatCount(r.Summary.DirectoriesFound),
			util.FormatCount(r.Summary.FilesFound),
			util.FormatDuration(r.Summary.TimeTaken),
			kind,
		}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(theme.TableBorder).
		Headers("ID", "Started", "Base dir", "Dirs", "Files", "Took", "Kind").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.TableHeader
			}
			s := lipgloss.NewStyle().Padding(0, 1).Foreground(theme.TextSecondary)
			switch col {
			case 0:
				return s.Foreground(theme.TextMuted)
			case 2:
				return s.Foreground(theme.Accent)
			case 3, 4, 5:
				return s.Align(lipgloss.Right)
			}
			return s
		}).
		Render()
}
