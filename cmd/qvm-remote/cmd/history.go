package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/GabrieleRisso/qvm-remote/internal/cliexit"
	"github.com/GabrieleRisso/qvm-remote/internal/protocol"
	"github.com/GabrieleRisso/qvm-remote/internal/timeutil"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently archived commands",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := guestLayout()
		if err != nil {
			return cliexit.IOError("prepare queue directory: %w", err)
		}
		entries, err := listHistory(l.HistoryDir())
		if err != nil {
			return cliexit.IOError("%w", err)
		}
		if len(entries) > historyLimit {
			entries = entries[len(entries)-historyLimit:]
		}

		switch outputFormat {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(historyViews(entries))
		case "yaml":
			out, err := yaml.Marshal(historyViews(entries))
			if err != nil {
				return cliexit.IOError("%w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		default:
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DAY\tCID\tEXIT\tDURATION\tWHEN")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.day, e.cid, e.exitCode, timeutil.FormatDurationMS(e.durationMS), relativeWhen(e.submittedAt))
			}
			return w.Flush()
		}
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum entries to show")
	rootCmd.AddCommand(historyCmd)
}

type historyEntry struct {
	day         string
	cid         string
	exitCode    string
	durationMS  int64
	submittedAt time.Time
}

// historyView is historyEntry's json/yaml-tagged shape: the table
// rendering reads straight off historyEntry's fields, but json.Encoder
// and yaml.Marshal only see exported ones.
type historyView struct {
	Day        string `json:"day" yaml:"day"`
	CID        string `json:"cid" yaml:"cid"`
	ExitCode   string `json:"exit_code" yaml:"exit_code"`
	DurationMS int64  `json:"duration_ms" yaml:"duration_ms"`
	When       string `json:"when" yaml:"when"`
}

func historyViews(entries []historyEntry) []historyView {
	views := make([]historyView, len(entries))
	for i, e := range entries {
		views[i] = historyView{Day: e.day, CID: e.cid, ExitCode: e.exitCode, DurationMS: e.durationMS, When: relativeWhen(e.submittedAt)}
	}
	return views
}

func relativeWhen(t time.Time) string {
	if t.IsZero() {
		return "?"
	}
	return timeutil.RelativeTime(t)
}

// listHistory walks the per-day archive directories under dir and
// returns each archived command's entry, oldest first, keyed off its
// .meta file.
func listHistory(dir string) ([]historyEntry, error) {
	dayDirs, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read history directory %s: %w", dir, err)
	}

	var days []string
	for _, d := range dayDirs {
		if d.IsDir() {
			days = append(days, d.Name())
		}
	}
	sort.Strings(days)

	var entries []historyEntry
	for _, day := range days {
		dayPath := filepath.Join(dir, day)
		files, err := os.ReadDir(dayPath)
		if err != nil {
			return nil, fmt.Errorf("read history day %s: %w", dayPath, err)
		}
		var cids []string
		for _, f := range files {
			if strings.HasSuffix(f.Name(), ".meta") {
				cids = append(cids, strings.TrimSuffix(f.Name(), ".meta"))
			}
		}
		sort.Strings(cids)
		for _, cid := range cids {
			meta, err := os.ReadFile(filepath.Join(dayPath, cid+".meta"))
			if err != nil {
				continue
			}
			exitCode, durationMS := parseHistoryMeta(meta)
			submittedAt, _ := protocol.SubmittedAt(cid)
			entries = append(entries, historyEntry{day: day, cid: cid, exitCode: exitCode, durationMS: durationMS, submittedAt: submittedAt})
		}
	}
	return entries, nil
}

func parseHistoryMeta(meta []byte) (exitCode string, durationMS int64) {
	exitCode = "?"
	for _, line := range strings.Split(string(meta), "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "exit_code":
			exitCode = value
		case "duration_ms":
			fmt.Sscanf(value, "%d", &durationMS)
		}
	}
	return exitCode, durationMS
}
