package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPreviewCmd(app *App) *cobra.Command {
	var (
		output string
		step   int
	)

	cmd := &cobra.Command{
		Use:   "preview <plan.json>",
		Short: "練習メニューの1ステップの図をPNGで出力する",
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

			img, err := svc.Preview(ctx, p, step)
			if err != nil {
				return err
			}
			if output == "" {
				output = fmt.Sprintf("step_%d.png", step)
			}
			path, err := writeOutput(output, img)
			if err != nil {
				return err
			}
			app.printf("🎨 ステップ %d の図を出力しました: %s\n", step, path)
			return nil
		},
	}

	cmd.Flags().IntVar(&step, "step", 1, "ステップ番号 (1から)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "出力ファイル名 (既定: step_N.png)")
	return cmd
}
