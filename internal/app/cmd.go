package app

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hitoshi/timesheet/internal/config"
)

// Command はアプリケーションのサブコマンド名を表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。引数なしの場合のデフォルト。
	CommandServe Command = "serve"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandSeed はサンプルデータを投入することを示す。
	CommandSeed Command = "seed"
	// CommandReport は集計レポートを端末に出力することを示す。
	CommandReport Command = "report"
	// CommandCleanup は孤立工数記録の削除を1回実行することを示す。
	CommandCleanup Command = "cleanup"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// NewRootCmd はtimesheetのコマンドツリーを構築する。
// ログはwに出力し、レポートなどの結果は標準出力（SetOutで変更可）に書く。
func NewRootCmd(w io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "timesheet",
		Short:         "Consulting time tracking service",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCommand(cmd, w)
		},
	}

	root.AddCommand(
		newServeCmd(w),
		newMigrateCmd(w),
		newSeedCmd(w),
		newReportCmd(w),
		newCleanupCmd(w),
		newHealthcheckCmd(),
	)

	return root
}

func newServeCmd(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   string(CommandServe),
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCommand(cmd, w)
		},
	}
}

func serveCommand(cmd *cobra.Command, w io.Writer) error {
	cfg, err := initCommand(w, CommandServe)
	if err != nil {
		return err
	}
	return runServe(cmd.Context(), cfg)
}

func newMigrateCmd(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   string(CommandMigrate),
		Short: "Apply database migrations for the configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := initCommand(w, CommandMigrate)
			if err != nil {
				return err
			}
			return runMigrate(cfg)
		},
	}
}

func newSeedCmd(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   string(CommandSeed),
		Short: "Insert sample data into empty collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := initCommand(w, CommandSeed)
			if err != nil {
				return err
			}
			return runSeed(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
}

func newReportCmd(w io.Writer) *cobra.Command {
	var opts reportOptions

	cmd := &cobra.Command{
		Use:   string(CommandReport),
		Short: "Print a statistics report for a user and period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := initCommand(w, CommandReport)
			if err != nil {
				return err
			}
			return runReport(cmd.Context(), cfg, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().Int64Var(&opts.UserID, "user", 1, "User ID to report on")
	cmd.Flags().StringVar(&opts.Range, "range", "", "Range preset: this_week, last_week, this_month, last_month")
	cmd.Flags().StringVar(&opts.Start, "start", "", "Start date (YYYY-MM-DD), overrides --range")
	cmd.Flags().StringVar(&opts.End, "end", "", "End date (YYYY-MM-DD, inclusive), overrides --range")

	return cmd
}

func newCleanupCmd(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   string(CommandCleanup),
		Short: "Delete time entries whose project no longer exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := initCommand(w, CommandCleanup)
			if err != nil {
				return err
			}
			return runCleanup(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
}

// newHealthcheckCmd は軽量サブコマンドのため、設定の読み込みとログ初期化を行わない。
func newHealthcheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   string(CommandHealthcheck),
		Short: "Probe the local /health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			port := os.Getenv("SERVER_PORT")
			if port == "" {
				port = "8080"
			}
			return runHealthcheck(port)
		},
	}
}

func initCommand(w io.Writer, command Command) (*config.Config, error) {
	cfg, err := Init(w)
	if err != nil {
		return nil, fmt.Errorf("initialization failed: %w", err)
	}
	logStartup(cfg, command)
	return cfg, nil
}
