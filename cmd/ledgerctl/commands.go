package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"linkpay-platform/internal/app"
	"linkpay-platform/internal/config"
	"linkpay-platform/internal/ledger"
	"linkpay-platform/internal/model"
)

type options struct {
	configPath string
	asJSON     bool
}

// loadApp 按 --config 组装组件，调用方负责 Close
type loadApp func(path string) (*app.App, error)

func defaultLoad(path string) (*app.App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return app.New(cfg, zap.S())
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(defaultLoad)
}

func buildRootCmd(load loadApp) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "LinkPay 收益与提现运维工具",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "configs/config.yaml", "配置文件路径")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "以 JSON 输出")

	withApp := func(fn func(cmd *cobra.Command, a *app.App, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := load(opts.configPath)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			return fn(cmd, a, args)
		}
	}

	root.AddCommand(
		walletCmd(opts, withApp),
		withdrawalsCmd(opts, withApp),
		approveCmd(opts, withApp),
		purgeCmd(withApp),
		scheduleCmd(opts, withApp),
	)
	return root
}

type runner func(fn func(cmd *cobra.Command, a *app.App, args []string) error) func(*cobra.Command, []string) error

func walletCmd(opts *options, withApp runner) *cobra.Command {
	var owner uint
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "查看用户收益与余额",
		RunE: withApp(func(cmd *cobra.Command, a *app.App, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			var summaries []ledger.Summary
			if owner == 0 {
				list, err := a.Earnings.Owners(ctx)
				if err != nil {
					return err
				}
				summaries = list
			} else {
				s, err := a.Earnings.Summary(ctx, owner)
				if err != nil {
					return err
				}
				summaries = []ledger.Summary{s}
			}

			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), summaries)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "OWNER\tLINKS\tCLICKS\tGROSS\tPAID\tPENDING\tBALANCE")
			for _, s := range summaries {
				fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%s\t%s\t%s\n", s.OwnerID, s.Links, s.TotalClicks, s.Gross, s.Paid, s.Pending, s.Balance)
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().UintVar(&owner, "owner", 0, "用户 ID，缺省列出全部")
	return cmd
}

func withdrawalsCmd(opts *options, withApp runner) *cobra.Command {
	var (
		owner  uint
		status string
	)
	cmd := &cobra.Command{
		Use:   "withdrawals",
		Short: "列出提现记录",
		RunE: withApp(func(cmd *cobra.Command, a *app.App, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			var (
				list []model.Withdrawal
				err  error
			)
			if owner != 0 {
				list, err = a.Withdrawals.ListByOwner(ctx, owner)
			} else {
				list, err = a.Withdrawals.ListAll(ctx, status)
			}
			if err != nil {
				return err
			}
			return printWithdrawals(cmd.OutOrStdout(), opts.asJSON, list)
		}),
	}
	cmd.Flags().UintVar(&owner, "owner", 0, "只看某个用户")
	cmd.Flags().StringVar(&status, "status", "", "按状态过滤 (pending|paid)")
	return cmd
}

func approveCmd(opts *options, withApp runner) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <id>",
		Short: "审核通过提现（幂等）",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			w, err := a.Withdrawals.Approve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printWithdrawals(cmd.OutOrStdout(), opts.asJSON, []model.Withdrawal{*w})
		}),
	}
}

func purgeCmd(withApp runner) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-sessions",
		Short: "立即清理过期漏斗会话",
		RunE: withApp(func(cmd *cobra.Command, a *app.App, _ []string) error {
			n, err := a.Janitor.PurgeOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d sessions\n", n)
			return nil
		}),
	}
}

func scheduleCmd(opts *options, withApp runner) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "显示当前费率表",
		RunE: withApp(func(cmd *cobra.Command, a *app.App, _ []string) error {
			s := a.Schedule
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"version":   s.Version(),
					"currency":  s.Currency(),
					"monotonic": s.Monotonic(),
					"tiers":     s.Tiers(),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version %s (%s)\n", s.Version(), s.Currency())
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "THRESHOLD\tRATE/1000")
			for _, t := range s.Tiers() {
				fmt.Fprintf(tw, "%d\t%s\n", t.Threshold, t.Rate.StringFixed(2))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if !s.Monotonic() {
				fmt.Fprintln(out, "warning: gross earnings drop when a link crosses a threshold")
			}
			return nil
		}),
	}
}

func printWithdrawals(w io.Writer, asJSON bool, list []model.Withdrawal) error {
	if asJSON {
		return writeJSON(w, list)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOWNER\tAMOUNT\tSTATUS\tCREATED")
	for _, wd := range list {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", wd.ID, wd.OwnerID, ledger.Amount(wd.AmountMinor), wd.Status, wd.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
