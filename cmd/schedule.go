package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/andresmejia3/delogo/internal/schedule"
	"github.com/andresmejia3/delogo/internal/types"
	"github.com/andresmejia3/delogo/internal/utils"
	"github.com/spf13/cobra"
)

var importName string

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage timed logo rectangles stored in the database",
}

var scheduleImportCmd = &cobra.Command{
	Use:         "import <file>",
	Short:       "Parse a schedule file and store it",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{needsDB: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runScheduleImport(cmd.Context(), args[0], importName)
	},
}

var scheduleListCmd = &cobra.Command{
	Use:         "list",
	Short:       "List stored schedules",
	Annotations: map[string]string{needsDB: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runScheduleList(cmd.Context(), os.Stdout)
	},
}

var scheduleShowCmd = &cobra.Command{
	Use:         "show <name>",
	Short:       "Print the rectangles of a stored schedule",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{needsDB: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runScheduleShow(cmd.Context(), args[0], os.Stdout)
	},
}

var scheduleExportCmd = &cobra.Command{
	Use:         "export <name>",
	Short:       "Write a stored schedule in file format to stdout",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{needsDB: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		entries, err := DB.LoadSchedule(cmd.Context(), args[0])
		if err != nil {
			utils.ShowError("Failed to load schedule", err, nil)
			return err
		}
		return schedule.Format(os.Stdout, entries)
	},
}

var scheduleDeleteCmd = &cobra.Command{
	Use:         "delete <name>",
	Short:       "Remove a stored schedule",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{needsDB: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if err := DB.DeleteSchedule(cmd.Context(), args[0]); err != nil {
			utils.ShowError("Failed to delete schedule", err, nil)
			return err
		}
		fmt.Printf("🗑️  Schedule '%s' deleted\n", args[0])
		return nil
	},
}

func init() {
	scheduleImportCmd.Flags().StringVarP(&importName, "name", "n", "", "Name to store the schedule under (default: file name without extension)")

	scheduleCmd.AddCommand(scheduleImportCmd, scheduleListCmd, scheduleShowCmd, scheduleExportCmd, scheduleDeleteCmd)
	rootCmd.AddCommand(scheduleCmd)
}

// defaultScheduleName derives a stored name from a file path.
func defaultScheduleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func runScheduleImport(ctx context.Context, path, name string) error {
	if name == "" {
		name = defaultScheduleName(path)
	}

	s, err := schedule.Load(path)
	if err != nil {
		utils.ShowError("Failed to parse schedule", err, nil)
		return err
	}
	for _, w := range s.Warnings() {
		fmt.Fprintf(os.Stderr, "⚠️  %s\n", w)
	}

	abs, _ := filepath.Abs(path)
	if _, err := DB.SaveSchedule(ctx, name, abs, s.Entries()); err != nil {
		utils.ShowError("Failed to store schedule", err, nil)
		return err
	}

	fmt.Printf("✅ Stored %d rectangles as '%s'\n", s.Len(), name)
	return nil
}

func runScheduleList(ctx context.Context, out io.Writer) error {
	list, err := DB.ListSchedules(ctx)
	if err != nil {
		utils.ShowError("Failed to list schedules", err, nil)
		return err
	}

	if len(list) == 0 {
		fmt.Fprintln(out, "No schedules found in database.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tRECTANGLES\tSOURCE\tCREATED")
	fmt.Fprintln(w, "--\t----\t----------\t------\t-------")
	for _, s := range list {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", s.ID, s.Name, s.Entries, s.SourcePath, s.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runScheduleShow(ctx context.Context, name string, out io.Writer) error {
	entries, err := DB.LoadSchedule(ctx, name)
	if err != nil {
		utils.ShowError("Failed to load schedule", err, nil)
		return err
	}
	return writeEntryTable(out, entries)
}

func writeEntryTable(out io.Writer, entries []types.TimedRect) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "TIME\tX\tY\tW\tH\tBAND")
	fmt.Fprintln(w, "----\t-\t-\t-\t-\t----")
	for _, e := range entries {
		band := fmt.Sprintf("%d", e.Rect.Band.Width)
		if e.Rect.Band.Auto {
			band = "auto"
		}
		if e.Rect.IsZero() {
			fmt.Fprintf(w, "%.3fs\toff\t\t\t\t\n", float64(e.TS)/1000)
			continue
		}
		fmt.Fprintf(w, "%.3fs\t%d\t%d\t%d\t%d\t%s\n", float64(e.TS)/1000, e.Rect.X, e.Rect.Y, e.Rect.W, e.Rect.H, band)
	}
	return w.Flush()
}
