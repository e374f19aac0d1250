package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/drillsheet/internal/domain/plan"
)

func newRenderCmd(app *App) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "render <plan.json>",
		Short: "既存の練習メニューJSONからExcelを作成する (LLMを使わない)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := app.readPlan(args[0])
			if err != nil {
				return err
			}
			svc, err := app.service(ctx)
			if err != nil {
				return err
			}

			app.printf("📊 Excelファイルを作成中... (%d ステップ)\n", len(p.Steps))
			res, err := svc.GenerateFromPlan(ctx, p)
			if err != nil {
				return err
			}
			path, err := writeOutput(output, res.Workbook)
			if err != nil {
				return err
			}
			app.printf("✅ 完成: %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", DefaultOutput, "出力ファイル名")
	return cmd
}

// readPlan decodes a plan from path, or from stdin when path is "-".
func (a *App) readPlan(path string) (*plan.PracticePlan, error) {
	var r io.Reader = a.In
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open plan: %w", err)
		}
		defer f.Close()
		r = f
	}
	return plan.Decode(r)
}
