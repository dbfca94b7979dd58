package cmd

import (
	"github.com/spf13/cobra"

	"github.com/soocke/pixel-overlay-go/config"
)

var imageCmd = &cobra.Command{
	Use:   "image <path>",
	Short: "Run detection against a static image instead of the screen",
	Long: `Replays one image as every frame. The overlay window still shows, but
the trigger key and cursor movement are disabled.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg.Source = config.SourceImage
		cfg.ImagePath = args[0]
		return runOverlay(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(imageCmd)
}
