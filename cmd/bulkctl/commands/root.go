package commands

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"orgconsole/internal/adapters/backend"
	"orgconsole/internal/adapters/storage"
	auditStore "orgconsole/internal/adapters/storage/audit"
	"orgconsole/internal/application/orchestrators"
	"orgconsole/internal/config"
)

// offline marks commands that run without config, backend or database.
const offline = "offline"

// app holds what every online command needs.
type app struct {
	cfg      config.Config
	client   *backend.Client
	audit    *auditStore.SQLiteStore
	operator backend.TokenInfo
	reports  orchestrators.SendReportDeps
	db       *sql.DB
}

var (
	configPath string
	appCtx     *app

	// now is a variable for testability.
	now = time.Now
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "bulkctl",
		Short:        "Bulk membership and merch payment tool for the org backend",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[offline] != "" {
				return nil
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			slog.SetDefault(config.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel))

			db, err := storage.Open(cfg.DBPath)
			if err != nil {
				return err
			}

			httpCfg := backend.DefaultHTTPConfig()
			httpCfg.Timeout = cfg.BackendTimeout

			operator, err := backend.InspectToken(cfg.BackendToken)
			if err != nil {
				slog.Warn("token_unreadable", "error", err.Error())
			}

			reports := orchestrators.NewSendReportDeps(cfg.ResendAPIKey, cfg.ReportFrom, cfg.ReportTo)

			appCtx = &app{
				cfg:      cfg,
				client:   backend.NewClient(cfg.BackendURL, cfg.BackendToken, backend.NewHTTPClient(httpCfg), nil),
				audit:    auditStore.NewSQLiteStore(db),
				operator: operator,
				reports:  reports,
				db:       db,
			}
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if appCtx == nil {
				return nil
			}
			err := appCtx.db.Close()
			appCtx = nil
			return err
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (environment variables override it)")

	root.AddCommand(enrollCmd(), payCmd(), templateCmd(), exportCmd(), historyCmd())
	return root
}
