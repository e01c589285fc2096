// Package cmd implements the command-line interface for tandem.
package cmd

import (
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tandem-cli/tandem/constant"
	"github.com/tandem-cli/tandem/filesystem"
	"github.com/tandem-cli/tandem/inline"
	"github.com/tandem-cli/tandem/key"
)

func init() {
	rootCmd.AddCommand(inlineCmd)

	inlineCmd.Flags().StringP("script", "s", "", "Operations to run, separated by newlines or semicolons")
	inlineCmd.Flags().StringP("file", "f", "", "Read the operations from a file")
	inlineCmd.MarkFlagsMutuallyExclusive("script", "file")
	inlineCmd.MarkFlagsOneRequired("script", "file")

	inlineCmd.Flags().BoolP("json", "j", false, "Format the command output as a JSON object")
	inlineCmd.Flags().StringP("output", "o", "", "Specify a file path to write the command output")
	inlineCmd.Flags().Bool("restore", false, "Restore remembered sync points before running")
	inlineCmd.Flags().Bool("save", false, "Remember the sync points after running")
}

// inlineCmd drives a comparison session from a script, without the interactive player.
var inlineCmd = &cobra.Command{
	Use:   "inline clip clip [clip] [clip]",
	Short: "Run a scripted comparison session and print the session state",
	Long: `Run a comparison session from a script of operations and print the
session state after each one. Without --engine the clips are simulated:
a source such as "intro:12s" is a 12 second clip and time advances
instantly, which makes scripts deterministic.

Operations (N is a clip index starting from 0):
  play [N]            pause [N]            stop
  seek [N] <time>     scrub [N] <delta>    drag N <time>
  step [N] [fwd|back] rate [N] <rate>      mode simultaneous|individual
  mark N              sync N <time>        wait <time>
  print

Times are milliseconds or Go durations (1500, 1.5s, -200ms).
Rates are plain numbers, multipliers or percentages (0.5, 2x, 50%).`,
	Example: `  tandem inline a:10s b:10s -s "sync 1 500; play; wait 1s; pause"
  tandem inline --engine mpv take1.mp4 take2.mp4 -f script.txt --json`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) > viper.GetInt(key.SyncMaxStreams) {
			return errors.New("too many clips")
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	Run: func(cmd *cobra.Command, args []string) {
		script := lo.Must(cmd.Flags().GetString("script"))
		if file := lo.Must(cmd.Flags().GetString("file")); file != "" {
			contents, err := afero.ReadFile(filesystem.API(), file)
			handleErr(err)
			script = string(contents)
		}

		ops, err := inline.ParseScript(script)
		handleErr(err)

		engine := constant.EngineSim
		if cmd.Flags().Changed("engine") {
			engine = viper.GetString(key.Player)
		}
		if engine == constant.EngineMPV {
			CheckDependencies()
		}

		var writer io.Writer = os.Stdout
		if output := lo.Must(cmd.Flags().GetString("output")); output != "" {
			file, err := filesystem.Create(output)
			handleErr(err)
			defer file.Close()
			writer = file
		}

		handleErr(inline.Run(cmd.Context(), &inline.Options{
			Out:     writer,
			Engine:  engine,
			Sources: args,
			Script:  ops,
			Json:    lo.Must(cmd.Flags().GetBool("json")),
			Restore: lo.Must(cmd.Flags().GetBool("restore")),
			Save:    lo.Must(cmd.Flags().GetBool("save")),
		}))
	},
}

func init() {
	inlineCmd.AddCommand(inlineSchemaCmd)
}

// inlineSchemaCmd prints the JSON schema of the inline output.
var inlineSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Generate the JSON schema of the structured inline output",
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(json.NewEncoder(os.Stdout).Encode(inline.Schema()))
	},
}
