package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"optionchains/internal/client/broker"
	"optionchains/internal/config"
	"optionchains/internal/logger"
	"optionchains/internal/rollchain"
)

type detectOptions struct {
	dir          string
	user         string
	maxChainDays int
	windowDays   int
	asOf         string
	status       string
}

func newDetectCmd() *cobra.Command {
	opts := &detectOptions{}
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect chains for one user",
		Example: `  chainctl detect --user u1 --dir data/orders
  chainctl detect --user u1 --window-days 90 --status active --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.dir, "dir", "", "export directory (default broker.file_dir)")
	cmd.Flags().StringVar(&opts.user, "user", "", "user id; reads <dir>/<user>.json")
	cmd.Flags().IntVar(&opts.maxChainDays, "max-chain-days", 0, "maximum chain span in days (default detection.max_chain_days)")
	cmd.Flags().IntVar(&opts.windowDays, "window-days", -1, "only link orders from the last N days; 0 links all (default detection.window_days)")
	cmd.Flags().StringVar(&opts.asOf, "as-of", "", "reference time for the window, RFC3339 or YYYY-MM-DD (default now)")
	cmd.Flags().StringVar(&opts.status, "status", "", "only print active or closed chains")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func runDetect(cmd *cobra.Command, opts *detectOptions) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dir := opts.dir
	if dir == "" {
		dir = cfg.Broker.FileDir
	}
	detection := cfg.Detection
	if opts.maxChainDays > 0 {
		detection.MaxChainDays = opts.maxChainDays
	}
	if opts.windowDays >= 0 {
		detection.WindowDays = opts.windowDays
	}
	status := strings.ToLower(strings.TrimSpace(opts.status))
	if status != "" && status != string(rollchain.StatusActive) && status != string(rollchain.StatusClosed) {
		return fmt.Errorf("invalid --status %q", opts.status)
	}
	asOf, err := parseAsOf(opts.asOf)
	if err != nil {
		return err
	}

	log := zap.NewNop()
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		if log, err = logger.New(config.LogConfig{Level: "debug", Encoding: "console"}); err != nil {
			return err
		}
		defer log.Sync()
	}

	records, err := broker.NewFileSource(dir).FetchOrders(cmd.Context(), opts.user, time.Time{})
	if err != nil {
		return err
	}
	var windowStart time.Time
	if detection.WindowDays > 0 {
		windowStart = asOf.AddDate(0, 0, -detection.WindowDays)
	}
	in := rollchain.SplitWindow(broker.RawOrders(records), windowStart)

	res, err := rollchain.NewDetector(detection.RollchainConfig(), log).Detect(in)
	if errors.Is(err, rollchain.ErrNoOrders) {
		return fmt.Errorf("no orders for %s in the window", opts.user)
	}
	if err != nil {
		return err
	}
	if status != "" {
		kept := res.Chains[:0]
		for _, c := range res.Chains {
			if string(c.Status) == status {
				kept = append(kept, c)
			}
		}
		res.Chains = kept
	}

	out := cmd.OutOrStdout()
	if jsonMode(cmd) {
		return writeJSON(out, res)
	}
	return writeText(out, res)
}

// loadConfig reads --config when given; otherwise it uses the defaults and
// OC_* environment overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path, path == "")
}

func parseAsOf(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now().UTC(), nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC(), nil
	}
	ts, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --as-of %q", raw)
	}
	return ts, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeText(w io.Writer, res rollchain.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHAIN\tSTATUS\tORDERS\tROLLS\tNET PREMIUM\tSTARTED\tENDED\tFLAGS")
	for _, c := range res.Chains {
		var flags []string
		if c.IsEnhanced {
			flags = append(flags, "traced")
		}
		if c.Trimmed {
			flags = append(flags, "trimmed")
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%s\t%s\n",
			c.ChainID,
			c.Status,
			len(c.Orders),
			c.RollCount,
			c.Financials.NetPremium.StringFixed(2),
			c.StartedAt.Format(time.DateOnly),
			c.EndedAt.Format(time.DateOnly),
			strings.Join(flags, ","),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	r := res.Report
	_, err := fmt.Fprintf(w, "\n%d chains from %d orders (%d skipped, %d rejected, %d traced)\n",
		len(res.Chains), r.OrdersSeen, r.TotalSkipped(), r.TotalRejected(), r.TracedHeads)
	return err
}
