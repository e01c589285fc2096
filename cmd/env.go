// Package cmd implements the command-line interface for tandem.
package cmd

import (
	"os"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/tandem-cli/tandem/color"
	"github.com/tandem-cli/tandem/config"
	"github.com/tandem-cli/tandem/constant"
	"github.com/tandem-cli/tandem/style"
	"github.com/tandem-cli/tandem/where"
	"golang.org/x/exp/slices"
)

func init() {
	rootCmd.AddCommand(envCmd)
	envCmd.Flags().BoolP("set-only", "s", false, "Display only environment variables that are currently defined")
	envCmd.Flags().BoolP("unset-only", "u", false, "Display only environment variables that are currently undefined")
	envCmd.Flags().BoolP("keys", "k", false, "Display the config key each variable overrides")

	envCmd.MarkFlagsMutuallyExclusive("set-only", "unset-only")
}

// envVar is one supported environment variable and the config key it overrides, if any.
type envVar struct {
	name string
	key  string
}

func envVars() []envVar {
	vars := lo.Map(config.EnvExposed, func(k string, _ int) envVar {
		return envVar{
			name: strings.ToUpper(constant.Tandem + "_" + config.EnvKeyReplacer.Replace(k)),
			key:  k,
		}
	})
	vars = append(vars, envVar{name: where.EnvConfigPath})

	slices.SortFunc(vars, func(a, b envVar) int {
		return strings.Compare(a.name, b.name)
	})
	return vars
}

// envCmd displays the current process values for all supported environment variables.
var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Display the collection of supported environment variables",
	Long:  `Display the collection of supported environment variables and their current process values.`,
	Run: func(cmd *cobra.Command, args []string) {
		setOnly := lo.Must(cmd.Flags().GetBool("set-only"))
		unsetOnly := lo.Must(cmd.Flags().GetBool("unset-only"))
		showKeys := lo.Must(cmd.Flags().GetBool("keys"))

		for _, env := range envVars() {
			value, present := os.LookupEnv(env.name)
			present = present && value != ""

			if (setOnly && !present) || (unsetOnly && present) {
				continue
			}

			cmd.Print(style.New().Bold(true).Foreground(color.Purple).Render(env.name))
			cmd.Print("=")

			if present {
				cmd.Print(style.Fg(color.Green)(value))
			} else {
				cmd.Print(style.Fg(color.Red)("unset"))
			}

			if showKeys && env.key != "" {
				cmd.Print(" ", style.Faint("("+env.key+")"))
			}
			cmd.Println()
		}
	},
}
