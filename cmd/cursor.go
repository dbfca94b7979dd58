package cmd

import (
	"image"
	"time"

	"github.com/spf13/cobra"

	"github.com/soocke/pixel-overlay-go/app"
	"github.com/soocke/pixel-overlay-go/domain/action"
	"github.com/soocke/pixel-overlay-go/domain/capture"
	"github.com/soocke/pixel-overlay-go/domain/trigger"
)

var cursorTestCmd = &cobra.Command{
	Use:   "cursor-test",
	Short: "Move the cursor to the screen center on each trigger press",
	Long: `Checks the keyboard hook and cursor movement without capture or
detection. Press Esc or Ctrl+C to exit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := loggerFor(cfg)
		screen, err := capture.PrimaryDisplay()
		if err != nil {
			return err
		}
		center := image.Pt(screen.Min.X+screen.Dx()/2, screen.Min.Y+screen.Dy()/2)
		moves, err := app.CursorTest{
			Keys:     trigger.NewSystemSource(false, logger),
			Mover:    action.NewEaseOutMover(action.NewSystemPointer()),
			Key:      cfg.TriggerKey,
			ExitKey:  "esc",
			Target:   center,
			Duration: time.Duration(cfg.MoveDurationMs) * time.Millisecond,
			Logger:   logger,
		}.Run(cmd.Context())
		logger.Info("cursor test finished", "moves", moves)
		return err
	},
}

func init() {
	rootCmd.AddCommand(cursorTestCmd)
}
