// Package cmd implements the command-line interface for tandem.
package cmd

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tandem-cli/tandem/constant"
	"github.com/tandem-cli/tandem/key"
	"github.com/tandem-cli/tandem/tui"
)

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().Bool("restore", true, "Restore remembered sync points for these clips")
	lo.Must0(viper.BindPFlag(key.AnchorsRestore, compareCmd.Flags().Lookup("restore")))

	compareCmd.Flags().Bool("save", true, "Remember the sync points of these clips on exit")
	lo.Must0(viper.BindPFlag(key.AnchorsSave, compareCmd.Flags().Lookup("save")))
}

// compareCmd opens the clips and runs the interactive transport.
var compareCmd = &cobra.Command{
	Use:     "compare clip clip [clip] [clip]",
	Short:   "Compare two to four clips in the interactive player",
	Aliases: []string{"c"},
	Example: "  tandem compare vault-1.mp4 vault-2.mp4\n  tandem compare --engine sim a:10s b:8s",
	Args: func(cmd *cobra.Command, args []string) error {
		max := viper.GetInt(key.SyncMaxStreams)
		if len(args) < 2 || len(args) > max {
			return fmt.Errorf("expected between 2 and %d clips, got %d", max, len(args))
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		engine := viper.GetString(key.Player)
		if engine == constant.EngineMPV {
			CheckDependencies()
		}

		handleErr(tui.Run(&tui.Options{
			Engine:  engine,
			Sources: args,
			Restore: viper.GetBool(key.AnchorsRestore),
			Save:    viper.GetBool(key.AnchorsSave),
		}))
	},
}
