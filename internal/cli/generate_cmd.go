package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/drillsheet/internal/adapters/llm"
)

var (
	errNoChallenge    = errors.New("練習課題を指定してください")
	errEmptyChallenge = errors.New("練習課題が空です")
)

func newGenerateCmd(app *App) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "generate [challenge]",
		Short: "練習課題から練習メニューを生成する",
		Example: `  drillsheet generate "4人でのパス練習"
  drillsheet generate "シュート練習" -o shooting_practice.xlsx
  echo "守備練習" | drillsheet generate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			challenge, err := app.readChallenge(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			svc, err := app.service(ctx)
			if err != nil {
				return err
			}

			app.printf("🎯 練習課題を分析中: %s\n", challenge)
			app.printf("🤖 AIが練習メニューを設計中...\n")
			p, err := svc.Plan(ctx, challenge)
			if err != nil {
				if errors.Is(err, llm.ErrNotConfigured) {
					return fmt.Errorf("%w: OPENROUTER_API_KEY または AZURE_OPENAI_* を設定してください", err)
				}
				return err
			}
			app.printf("✅ 練習メニュー「%s」を生成しました\n", p.Title)

			app.printf("🎨 図解を作成中...\n")
			for i, s := range p.Steps {
				app.printf("   ステップ %d/%d: %s\n", i+1, len(p.Steps), s.Name)
			}
			app.printf("📊 Excelファイルを作成中...\n")
			res, err := svc.GenerateFromPlan(ctx, p)
			if err != nil {
				return err
			}

			path, err := writeOutput(output, res.Workbook)
			if err != nil {
				return err
			}
			app.printf("✅ 完成: %s\n", path)
			app.printf("\n🎉 練習メニューを生成しました: %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", DefaultOutput, "出力ファイル名")
	return cmd
}

// readChallenge takes the challenge from args, or from stdin when it is not
// a terminal.
func (a *App) readChallenge(args []string) (string, error) {
	var challenge string
	switch {
	case len(args) > 0:
		challenge = strings.Join(args, " ")
	case a.IsInteractive == nil || !a.IsInteractive():
		data, err := io.ReadAll(a.In)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		challenge = string(data)
	default:
		return "", errNoChallenge
	}
	challenge = strings.TrimSpace(challenge)
	if challenge == "" {
		return "", errEmptyChallenge
	}
	return challenge, nil
}
