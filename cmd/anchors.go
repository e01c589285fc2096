// Package cmd implements the command-line interface for tandem.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tandem-cli/tandem/anchors"
	"github.com/tandem-cli/tandem/color"
	"github.com/tandem-cli/tandem/constant"
	"github.com/tandem-cli/tandem/icon"
	"github.com/tandem-cli/tandem/key"
	"github.com/tandem-cli/tandem/style"
	"github.com/tandem-cli/tandem/util"
)

func init() {
	rootCmd.AddCommand(anchorsCmd)
	anchorsCmd.SetOut(os.Stdout)
}

// anchorsCmd manages the sync points remembered per clip set.
var anchorsCmd = &cobra.Command{
	Use:     "anchors",
	Short:   "Manage the sync points remembered for clip sets",
	Aliases: []string{"a"},
}

func printRecords(cmd *cobra.Command, records []*anchors.Record) {
	if len(records) == 0 {
		cmd.Println(style.Faint("No anchors remembered"))
		return
	}

	for _, record := range records {
		cmd.Printf("%s %s\n", style.Fg(color.Purple)(icon.Get(icon.Anchor)), style.Bold(record.Key()))
		for _, clip := range record.Clips {
			cmd.Printf("  %s %s\n", style.Fg(color.Yellow)(util.FormatPosition(clip.SyncPoint())), clip.Source)
		}
		cmd.Printf("  %s %s x%.2f %s\n\n",
			style.Faint("mode"), record.Mode, record.Rate,
			style.Faint(record.SavedAt.Format(time.DateTime)),
		)
	}
}

func init() {
	anchorsCmd.AddCommand(anchorsListCmd)
}

var anchorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every remembered clip set, most recent first",
	Run: func(cmd *cobra.Command, args []string) {
		records, err := anchors.Search("")
		handleErr(err)
		printRecords(cmd, records)
	},
}

func init() {
	anchorsCmd.AddCommand(anchorsFindCmd)
}

var anchorsFindCmd = &cobra.Command{
	Use:   "find query",
	Short: "Fuzzy find remembered clip sets",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		records, err := anchors.Search(args[0])
		handleErr(err)
		printRecords(cmd, records)
	},
}

func init() {
	anchorsCmd.AddCommand(anchorsForgetCmd)
	anchorsForgetCmd.Flags().BoolP("all", "a", false, "Forget every clip set")
}

var anchorsForgetCmd = &cobra.Command{
	Use:   "forget [clip]...",
	Short: "Forget the anchors of a clip set",
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		records, err := anchors.Search(toComplete)
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		return lo.FlatMap(records, func(r *anchors.Record, _ int) []string {
			return lo.Map(r.Clips, func(c anchors.Clip, _ int) string { return c.Source })
		}), cobra.ShellCompDirectiveNoFileComp
	},
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("all")) {
			handleErr(anchors.Clear())
			cmd.Printf("%s Every clip set forgotten\n", icon.Get(icon.Success))
			return
		}

		if len(args) == 0 {
			handleErr(errors.New("clips or --all required"))
		}

		if anchors.Lookup(args).IsAbsent() {
			handleErr(fmt.Errorf("no anchors remembered for %s", anchors.Key(args)))
		}

		handleErr(anchors.Forget(anchors.Key(args)))
		cmd.Printf("%s Forgot %s\n", icon.Get(icon.Success), anchors.Key(args))
	},
}

func init() {
	anchorsCmd.AddCommand(anchorsSetCmd)
}

// anchorsSetCmd asks for a sync point per clip and remembers the set.
var anchorsSetCmd = &cobra.Command{
	Use:   "set clip clip [clip] [clip]",
	Short: "Enter sync points for a clip set by hand",
	Args:  cobra.RangeArgs(2, 4),
	Run: func(cmd *cobra.Command, args []string) {
		previous := anchors.Lookup(args)

		record := &anchors.Record{
			Mode: viper.GetString(key.CompareMode),
			Rate: float64(viper.GetInt(key.PlayerRate)) / 100,
		}
		if r, ok := previous.Get(); ok {
			record.Mode, record.Rate = r.Mode, r.Rate
		}

		for _, source := range args {
			def := "0"
			if r, ok := previous.Get(); ok {
				if clip, found := lo.Find(r.Clips, func(c anchors.Clip) bool {
					return anchors.Key([]string{c.Source}) == anchors.Key([]string{source})
				}); found {
					def = clip.SyncPoint().String()
				}
			}

			input := survey.Input{
				Message: fmt.Sprintf("Sync point of %s:", source),
				Default: def,
				Help:    "Milliseconds or a duration such as 1.5s or 1m2s",
			}

			var response string
			handleErr(survey.AskOne(&input, &response, survey.WithValidator(func(answer any) error {
				_, err := parseOffset(answer.(string))
				return err
			})))

			offset := lo.Must(parseOffset(response))
			record.Clips = append(record.Clips, anchors.Clip{Source: source, SyncPointMs: offset.Milliseconds()})
		}

		selectMode := survey.Select{
			Message: "Mode to restore:",
			Options: []string{constant.ModeSimultaneous, constant.ModeIndividual},
			Default: lo.Ternary(record.Mode == constant.ModeIndividual, constant.ModeIndividual, constant.ModeSimultaneous),
		}
		handleErr(survey.AskOne(&selectMode, &record.Mode))

		handleErr(anchors.Save(record))
		cmd.Printf("%s Remembered %s\n", icon.Get(icon.Success), record)
	},
}

// parseOffset reads a non-negative sync point given in milliseconds or as a duration.
func parseOffset(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)

	offset, err := time.ParseDuration(value)
	if err != nil {
		ms, convErr := strconv.ParseInt(value, 10, 64)
		if convErr != nil {
			return 0, fmt.Errorf("invalid sync point %q", value)
		}
		offset = time.Duration(ms) * time.Millisecond
	}

	if offset < 0 {
		return 0, errors.New("sync point cannot be negative")
	}
	return offset, nil
}
