// Package cmd implements the command-line interface for tandem.
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tandem-cli/tandem/color"
	"github.com/tandem-cli/tandem/config"
	"github.com/tandem-cli/tandem/constant"
	"github.com/tandem-cli/tandem/filesystem"
	"github.com/tandem-cli/tandem/icon"
	"github.com/tandem-cli/tandem/style"
	"github.com/tandem-cli/tandem/where"
)

var errNoKey = errors.New("no config key given, pass it as an argument or with --key")

func errUnknownKey(key string) error {
	closest := lo.MinBy(lo.Keys(config.Default), func(a string, b string) bool {
		return levenshtein.Distance(key, a) < levenshtein.Distance(key, b)
	})
	return fmt.Errorf(
		"unknown key %s, did you mean %s?",
		style.Fg(color.Red)(key),
		style.Fg(color.Yellow)(closest),
	)
}

func configFile() string {
	return filepath.Join(where.Config(), fmt.Sprintf("%s.%s", constant.Tandem, "toml"))
}

func completionConfigKeys(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return lo.Keys(config.Default), cobra.ShellCompDirectiveNoFileComp
}

// resolveKey picks the key from the first argument, then from --key, and
// checks that tandem knows it.
func resolveKey(args []string, flag string) (string, error) {
	key, ok := lo.Coalesce(firstArg(args), flag)
	if !ok {
		return "", errNoKey
	}
	if _, known := config.Default[key]; !known {
		return "", errUnknownKey(key)
	}
	return key, nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// selectFields returns the fields named by keys, or every field under the
// section prefix (e.g. "sync") when no keys are given. Fields are sorted by key.
func selectFields(keys []string, section string) ([]config.Field, error) {
	var fields []config.Field

	if len(keys) > 0 {
		for _, key := range keys {
			field, ok := config.Default[key]
			if !ok {
				return nil, errUnknownKey(key)
			}
			fields = append(fields, field)
		}
	} else {
		fields = lo.Filter(lo.Values(config.Default), func(f config.Field, _ int) bool {
			return section == "" || strings.HasPrefix(f.Key, section+".")
		})
		if len(fields) == 0 {
			return nil, fmt.Errorf("no config keys under %q", section)
		}
	}

	sort.Slice(fields, func(i, j int) bool {
		return fields[i].Key < fields[j].Key
	})
	return fields, nil
}

// persist writes the in-memory configuration, creating the file on first use.
func persist() error {
	err := viper.WriteConfig()
	if errors.As(err, &viper.ConfigFileNotFoundError{}) {
		return viper.SafeWriteConfig()
	}
	return err
}

func done(format string, args ...any) {
	fmt.Printf("%s %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), fmt.Sprintf(format, args...))
}

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change tandem settings",
}

func init() {
	configCmd.AddCommand(configInfoCmd)
	configInfoCmd.Flags().StringSliceP("key", "k", []string{}, "Only describe these keys")
	configInfoCmd.Flags().BoolP("json", "j", false, "Print the fields as JSON")
	_ = configInfoCmd.RegisterFlagCompletionFunc("key", completionConfigKeys)

	configInfoCmd.SetOut(os.Stdout)
}

var configInfoCmd = &cobra.Command{
	Use:     "info [section]",
	Short:   "Describe settings, optionally only one section such as sync or player",
	Example: "tandem config info sync\ntandem config info -k player.rates",
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fields, err := selectFields(lo.Must(cmd.Flags().GetStringSlice("key")), firstArg(args))
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			lo.Must0(json.NewEncoder(cmd.OutOrStdout()).Encode(fields))
			return
		}

		pretty := lo.Map(fields, func(f config.Field, _ int) string { return f.Pretty() })
		fmt.Println(strings.Join(pretty, "\n\n"))
	},
}

func init() {
	configCmd.AddCommand(configSetCmd)
	configSetCmd.Flags().StringP("key", "k", "", "Key to change")
	configSetCmd.Flags().StringSliceP("value", "v", []string{}, "New value; list keys such as player.rates take several")
	_ = configSetCmd.RegisterFlagCompletionFunc("key", completionConfigKeys)
}

var configSetCmd = &cobra.Command{
	Use:               "set [key] [value...]",
	Short:             "Change a setting and save it",
	Example:           "tandem config set sync.lead_ms 60\ntandem config set player.rates 25 50 100 200",
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		key, err := resolveKey(args, lo.Must(cmd.Flags().GetString("key")))
		handleErr(err)

		raw := lo.Must(cmd.Flags().GetStringSlice("value"))
		if len(args) > 1 {
			raw = args[1:]
		}
		if len(raw) == 0 {
			handleErr(fmt.Errorf("no value given for %s", key))
		}

		value, err := parseValue(config.Default[key].Value, raw)
		handleErr(err)

		viper.Set(key, value)
		handleErr(persist())
		done("%s is now %s", style.Fg(color.Purple)(key), style.Fg(color.Yellow)(fmt.Sprint(value)))
	},
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configGetCmd.Flags().StringP("key", "k", "", "Key to read")
	_ = configGetCmd.RegisterFlagCompletionFunc("key", completionConfigKeys)
}

var configGetCmd = &cobra.Command{
	Use:               "get [key]",
	Short:             "Print the effective value of a setting",
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		key, err := resolveKey(args, lo.Must(cmd.Flags().GetString("key")))
		handleErr(err)
		fmt.Println(viper.Get(key))
	},
}

func init() {
	configCmd.AddCommand(configWriteCmd)
	configWriteCmd.Flags().BoolP("force", "f", false, "Replace an existing config file")
}

var configWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Save the effective settings to the config file",
	Run: func(cmd *cobra.Command, args []string) {
		path := configFile()
		if lo.Must(cmd.Flags().GetBool("force")) {
			handleErr(filesystem.API().Remove(path))
		}

		handleErr(viper.SafeWriteConfig())
		done("wrote %s", path)
	},
}

func init() {
	configCmd.AddCommand(configDeleteCmd)
}

var configDeleteCmd = &cobra.Command{
	Use:     "delete",
	Short:   "Remove the config file; built-in defaults apply again",
	Aliases: []string{"remove"},
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(filesystem.API().Remove(configFile()))
		done("deleted %s", configFile())
	},
}

func init() {
	configCmd.AddCommand(configResetCmd)

	configResetCmd.Flags().StringP("key", "k", "", "Key to reset")
	configResetCmd.Flags().BoolP("all", "a", false, "Reset every key")
	configResetCmd.MarkFlagsMutuallyExclusive("key", "all")
	_ = configResetCmd.RegisterFlagCompletionFunc("key", completionConfigKeys)
}

var configResetCmd = &cobra.Command{
	Use:               "reset [key]",
	Short:             "Put one setting, or all of them, back to its default",
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("all")) {
			for key, field := range config.Default {
				viper.Set(key, field.Value)
			}
			handleErr(persist())
			done("reset every setting")
			return
		}

		key, err := resolveKey(args, lo.Must(cmd.Flags().GetString("key")))
		handleErr(err)

		value := config.Default[key].Value
		viper.Set(key, value)
		handleErr(persist())
		done("%s is back to %s", style.Fg(color.Purple)(key), style.Fg(color.Yellow)(fmt.Sprint(value)))
	},
}

// parseValue converts raw command-line values to the type of the key's default.
func parseValue(defaultValue any, raw []string) (any, error) {
	switch defaultValue.(type) {
	case string:
		return raw[0], nil
	case int:
		parsed, err := strconv.Atoi(raw[0])
		if err != nil {
			return nil, fmt.Errorf("invalid integer value: %s", raw[0])
		}
		return parsed, nil
	case bool:
		parsed, err := strconv.ParseBool(raw[0])
		if err != nil {
			return nil, fmt.Errorf("invalid boolean value: %s", raw[0])
		}
		return parsed, nil
	case []string:
		return raw, nil
	case []int:
		values := make([]int, 0, len(raw))
		for _, r := range raw {
			parsed, err := strconv.Atoi(strings.TrimSpace(r))
			if err != nil {
				return nil, fmt.Errorf("invalid integer value: %s", r)
			}
			values = append(values, parsed)
		}
		return values, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", defaultValue)
	}
}
