package cli

import (
	"github.com/spf13/cobra"

	"github.com/okian/drillsheet/internal/loadtest"
)

func newLoadtestCmd(app *App) *cobra.Command {
	cfg := loadtest.Config{}

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "起動中のサーバーに描画リクエストを並列送信します",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := loadtest.Run(cmd.Context(), cfg, app.Out)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", loadtest.DefaultBaseURL, "サーバーの URL")
	f.IntVarP(&cfg.Requests, "requests", "n", loadtest.DefaultRequests, "送信するリクエスト数")
	f.IntVarP(&cfg.Workers, "workers", "w", 4, "並列クライアント数")
	f.StringVar(&cfg.Endpoint, "endpoint", loadtest.EndpointRender, "render または preview")
	f.StringVar(&cfg.PlanFile, "plan", "", "送信する練習計画 JSON (省略時はランダム生成)")
	f.BoolVar(&cfg.Unique, "unique", true, "毎回異なる計画を送りキャッシュを回避する")
	f.DurationVar(&cfg.Timeout, "timeout", loadtest.DefaultTimeout, "リクエストごとのタイムアウト")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "進捗を表示する")
	return cmd
}
