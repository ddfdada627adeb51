// Package main provides the CLI entrypoint for watchlog.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"watchlog/internal/calendarui"
	"watchlog/internal/config"
	"watchlog/internal/export"
	"watchlog/internal/goal"
	"watchlog/internal/merge"
	"watchlog/internal/model"
	"watchlog/internal/stats"
	"watchlog/internal/store"
)

const (
	defaultMerge      = true
	defaultPlotHeight = 10
)

var (
	rootMergeFlag bool

	addTitle   string
	addURL     string
	addChannel string
	addLogo    string
	addLang    string
	addMinutes int
	addDate    string

	listLang  string
	listSince string
	listRaw   bool

	statsLang  string
	statsSince string

	goalLang string
	goalDate string

	goalSetMinutes int
	visHide        bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "watchlog",
		Short:         "Terminal tracker for target-language video watching",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runCalendarCmd,
	}
	rootCmd.Flags().BoolVar(&rootMergeFlag, "merge", defaultMerge, "fold consecutive sessions of the same video")

	rootCmd.AddCommand(newAddCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newGoalCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newConfigCmd())
	return rootCmd
}

func runCalendarCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyBoolConfig(cmd, "merge", &rootMergeFlag, fileCfg.Display.Merge)

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	ui := calendarui.NewModel(st, rootMergeFlag, time.Now())
	program := tea.NewProgram(ui, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a playback session",
		Args:  cobra.NoArgs,
		RunE:  runAddCmd,
	}
	cmd.Flags().StringVar(&addTitle, "title", "", "video title (required)")
	cmd.Flags().StringVar(&addURL, "url", "", "video url")
	cmd.Flags().StringVar(&addChannel, "channel", "", "channel name")
	cmd.Flags().StringVar(&addLogo, "logo", "", "channel logo url")
	cmd.Flags().StringVar(&addLang, "lang", "", "language (required)")
	cmd.Flags().IntVar(&addMinutes, "minutes", 0, "watched minutes (required)")
	cmd.Flags().StringVar(&addDate, "date", "", "start time (default: now)")
	return cmd
}

func runAddCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "lang", &addLang, fileCfg.Record.Lang)

	if strings.TrimSpace(addTitle) == "" {
		return fmt.Errorf("--title is required")
	}
	if addMinutes < 0 {
		return fmt.Errorf("--minutes must be >= 0")
	}
	if !cmd.Flags().Changed("minutes") {
		return fmt.Errorf("--minutes is required")
	}
	lang, err := model.ParseLanguage(addLang)
	if err != nil {
		return err
	}
	date := time.Now()
	if addDate != "" {
		parsed, err := parseDateTime(addDate)
		if err != nil {
			return err
		}
		date = parsed
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	rec := model.PlaybackRecord{
		SessionID:   uuid.NewString(),
		Title:       strings.TrimSpace(addTitle),
		URL:         merge.CanonicalURL(addURL),
		ChannelName: strings.TrimSpace(addChannel),
		ChannelLogo: strings.TrimSpace(addLogo),
		Language:    lang,
		Duration:    int64(addMinutes) * 60,
		Date:        date,
	}
	if err := st.SaveRecord(context.Background(), rec); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	logErrf("Recorded %s (%s, %dm)\n", rec.Title, rec.Language, addMinutes)
	return nil
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List viewing sessions",
		Args:  cobra.NoArgs,
		RunE:  runListCmd,
	}
	cmd.Flags().StringVar(&listLang, "lang", "", "language filter")
	cmd.Flags().StringVar(&listSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&listRaw, "raw", false, "show raw records without merging")
	return cmd
}

func runListCmd(cmd *cobra.Command, _ []string) error {
	filter, err := buildFilter(listLang, listSince)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	report, err := stats.BuildReport(context.Background(), st, filter, !listRaw)
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}
	return stats.RenderSessions(cmd.OutOrStdout(), report.Display)
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>...",
		Short: "Delete viewing sessions by id",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runDeleteCmd,
	}
}

// runDeleteCmd deletes ids one by one. The batch is not transactional:
// a failure aborts the loop with earlier deletions already applied.
func runDeleteCmd(_ *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := context.Background()
	for _, id := range args {
		if err := st.DeleteRecord(ctx, id); err != nil {
			return fmt.Errorf("failed to delete %s (earlier deletions kept): %w", id, err)
		}
	}
	logErrf("Deleted %d session(s)\n", len(args))
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show watch-time statistics",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsLang, "lang", "", "language filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	filter, err := buildFilter(statsLang, statsSince)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	report, err := stats.BuildReport(context.Background(), st, filter, true)
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}
	out := cmd.OutOrStdout()
	if err := stats.RenderSummary(out, report); err != nil {
		return err
	}
	if err := stats.RenderChannels(out, report.Channels); err != nil {
		return err
	}
	return stats.RenderDaily(out, report.Records, 0, defaultPlotHeight, false)
}

func newGoalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goal",
		Short: "Show or change daily goals",
	}
	cmd.AddCommand(newGoalShowCmd())
	cmd.AddCommand(newGoalSetCmd())
	cmd.AddCommand(newGoalVisibilityCmd())
	return cmd
}

func newGoalShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the goals in effect for a day",
		Args:  cobra.NoArgs,
		RunE:  runGoalShowCmd,
	}
	cmd.Flags().StringVar(&goalDate, "date", "", "day (YYYY-MM-DD, default: today)")
	return cmd
}

func runGoalShowCmd(cmd *cobra.Command, _ []string) error {
	date, err := resolveGoalDate(goalDate)
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	settings, err := goal.Resolve(context.Background(), st, date)
	if err != nil {
		return fmt.Errorf("failed to resolve goals: %w", err)
	}
	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(out, "Goals for %s\n", date); err != nil {
		return err
	}
	for _, lang := range model.Languages() {
		visibility := "shown"
		if !settings.Visibility[lang] {
			visibility = "hidden"
		}
		if _, err := fmt.Fprintf(out, "%-10s %3dm/day  %s\n", lang, settings.Goals[lang], visibility); err != nil {
			return err
		}
	}
	return nil
}

func newGoalSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set one language's daily goal",
		Args:  cobra.NoArgs,
		RunE:  runGoalSetCmd,
	}
	cmd.Flags().StringVar(&goalLang, "lang", "", "language (required)")
	cmd.Flags().IntVar(&goalSetMinutes, "minutes", 0, "goal in minutes per day (required)")
	cmd.Flags().StringVar(&goalDate, "date", "", "day (YYYY-MM-DD, default: today)")
	return cmd
}

func runGoalSetCmd(cmd *cobra.Command, _ []string) error {
	lang, err := model.ParseLanguage(goalLang)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("minutes") {
		return fmt.Errorf("--minutes is required")
	}
	if goalSetMinutes < 0 {
		return fmt.Errorf("--minutes must be >= 0")
	}
	date, err := resolveGoalDate(goalDate)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	if err := goal.SetGoal(context.Background(), st, date, lang, goalSetMinutes); err != nil {
		return fmt.Errorf("failed to save goal: %w", err)
	}
	logErrf("Set %s goal to %dm/day from %s\n", lang, goalSetMinutes, date)
	return nil
}

func newGoalVisibilityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visibility",
		Short: "Show or hide one language in aggregates",
		Args:  cobra.NoArgs,
		RunE:  runGoalVisibilityCmd,
	}
	cmd.Flags().StringVar(&goalLang, "lang", "", "language (required)")
	cmd.Flags().BoolVar(&visHide, "hide", false, "hide instead of show")
	cmd.Flags().StringVar(&goalDate, "date", "", "day (YYYY-MM-DD, default: today)")
	return cmd
}

func runGoalVisibilityCmd(_ *cobra.Command, _ []string) error {
	lang, err := model.ParseLanguage(goalLang)
	if err != nil {
		return err
	}
	date, err := resolveGoalDate(goalDate)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	if err := goal.SetVisibility(context.Background(), st, date, lang, !visHide); err != nil {
		return fmt.Errorf("failed to save visibility: %w", err)
	}
	state := "shown"
	if visHide {
		state = "hidden"
	}
	logErrf("%s is now %s from %s\n", lang, state, date)
	return nil
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Export all records and goals as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExportCmd,
	}
}

func runExportCmd(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	if len(args) == 0 {
		return export.Export(context.Background(), st, cmd.OutOrStdout())
	}
	path := args[0]
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			logErrf("failed to close export file: %v\n", cerr)
		}
	}()
	if err := export.Export(context.Background(), st, file); err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}
	logErrf("Exported to %s\n", path)
	return nil
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import records and goals from a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportCmd,
	}
}

func runImportCmd(_ *cobra.Command, args []string) error {
	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close of read-only file.
			_ = cerr
		}
	}()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	saved, err := export.Import(context.Background(), st, file)
	if err != nil {
		return fmt.Errorf("failed to import: %w", err)
	}
	logErrf("Imported %d record(s)\n", saved)
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func defaultConfigTemplate() string {
	return `# watchlog configuration
# Uncomment a value to enable it. CLI flags override config values.

[display]
# merge = true        # Fold consecutive sessions of the same video

[record]
# lang = "japanese"   # Default language for new records
`
}

func openStore() (*store.Store, error) {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

func buildFilter(lang, since string) (model.ListFilter, error) {
	var filter model.ListFilter
	if lang != "" {
		parsed, err := model.ParseLanguage(lang)
		if err != nil {
			return model.ListFilter{}, err
		}
		filter.Lang = parsed
	}
	if since != "" {
		parsed, err := time.ParseInLocation(model.DayKeyLayout, since, time.Local)
		if err != nil {
			return model.ListFilter{}, fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = &parsed
	}
	return filter, nil
}

func resolveGoalDate(input string) (string, error) {
	if input == "" {
		return model.DayKey(time.Now()), nil
	}
	parsed, err := time.ParseInLocation(model.DayKeyLayout, input, time.Local)
	if err != nil {
		return "", fmt.Errorf("invalid --date value (expected YYYY-MM-DD): %w", err)
	}
	return parsed.Format(model.DayKeyLayout), nil
}

func parseDateTime(input string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02 15:04",
		model.DayKeyLayout,
	}
	for _, layout := range layouts {
		if parsed, err := time.ParseInLocation(layout, input, time.Local); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (use RFC3339, 'YYYY-MM-DD HH:MM', or 'YYYY-MM-DD')", input)
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
