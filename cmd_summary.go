package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shift_handover/internal/board"
	"shift_handover/internal/shift"
	"shift_handover/internal/store"
	"shift_handover/internal/summary"
)

var clipboardWriteAll = clipboard.WriteAll

type summaryFlags struct {
	date     string
	typ      string
	whatsapp bool
	link     bool
	copy     bool
}

var summaryOpts summaryFlags

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the handover summary of a shift",
	Long: `Loads a shift from the record store and prints its summary.

Defaults to the shift running now. --type accepts morning, evening, night
or the Hebrew shift label.`,
	Example: `  handover summary
  handover summary --date 6.10.2026 --type night --whatsapp --copy
  handover summary --link`,
	RunE: runSummary,
}

func init() {
	f := summaryCmd.Flags()
	f.StringVar(&summaryOpts.date, "date", "", "shift date, e.g. 6.10.2026 (default today)")
	f.StringVar(&summaryOpts.typ, "type", "", "shift type (default the current shift)")
	f.BoolVar(&summaryOpts.whatsapp, "whatsapp", false, "use WhatsApp emphasis markers")
	f.BoolVar(&summaryOpts.link, "link", false, "print a WhatsApp share link instead of the text")
	f.BoolVar(&summaryOpts.copy, "copy", false, "also copy the summary to the clipboard")
}

func runSummary(cmd *cobra.Command, _ []string) error {
	info, err := summaryShift(time.Now())
	if err != nil {
		return err
	}

	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	st, err := openStore(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	mode := summary.Plain
	if summaryOpts.whatsapp || summaryOpts.link {
		mode = summary.WhatsApp
	}
	text, err := loadSummary(cmd.Context(), st, info, mode, log)
	if err != nil {
		return err
	}
	if summaryOpts.link {
		text = summary.WhatsAppLink(text)
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)

	if summaryOpts.copy {
		if err := clipboardWriteAll(text); err != nil {
			return fmt.Errorf("copy to clipboard: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "copied to clipboard")
	}
	return nil
}

func summaryShift(now time.Time) (shift.Info, error) {
	info := shift.Current(now)
	if d := strings.TrimSpace(summaryOpts.date); d != "" {
		info.Date = d
	}
	if summaryOpts.typ != "" {
		t, err := shift.ParseType(summaryOpts.typ)
		if err != nil {
			return shift.Info{}, err
		}
		info.Type = t
	}
	return info, nil
}

// loadSummary waits for the shift's first snapshots and composes its summary.
func loadSummary(ctx context.Context, st store.Store, info shift.Info, mode summary.Mode, log *zap.Logger) (string, error) {
	b := board.New(st, board.WithLogger(log))
	defer b.Close()
	if err := b.Switch(info); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := b.WaitReady(ctx); err != nil {
		return "", fmt.Errorf("load shift %s: %w", info.Key(), err)
	}
	return b.Summary(mode), nil
}
