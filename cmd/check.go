// Package cmd implements the command-line interface for tandem.
package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/tandem-cli/tandem/constant"
	"github.com/tandem-cli/tandem/filesystem"
	"github.com/tandem-cli/tandem/icon"
	"github.com/tandem-cli/tandem/style"
	"github.com/tandem-cli/tandem/where"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

// checkCmd reports whether the mpv engine can run on this machine.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the mpv engine is installed and can open IPC sockets",
	Run: func(cmd *cobra.Command, args []string) {
		path, err := exec.LookPath("mpv")
		if err != nil {
			printMissingDependencyError("mpv")
			os.Exit(1)
		}

		version := "unknown version"
		if out, err := exec.Command(path, "--version").Output(); err == nil {
			version, _, _ = strings.Cut(string(out), "\n")
		}
		fmt.Printf("%s %s (%s)\n", icon.Get(icon.Success), strings.TrimSpace(version), path)

		probe := filepath.Join(where.Temp(), ".probe")
		if err := filesystem.API().WriteFile(probe, nil, 0o600); err != nil {
			handleErr(fmt.Errorf("socket directory %s is not writable: %w", where.Temp(), err))
		}
		_ = filesystem.API().Remove(probe)
		fmt.Printf("%s Socket directory %s\n", icon.Get(icon.Success), where.Temp())
	},
}

// CheckDependencies exits when the mpv engine is selected but mpv is not in PATH.
func CheckDependencies() {
	if _, err := exec.LookPath("mpv"); err != nil {
		printMissingDependencyError("mpv")
		os.Exit(1)
	}
}

func printMissingDependencyError(dep string) {
	var installCmd string
	switch runtime.GOOS {
	case constant.Darwin:
		installCmd = "brew install mpv"
	case constant.Linux:
		installCmd = "sudo apt install mpv"
	case constant.Windows:
		installCmd = "scoop install mpv"
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(style.HiRed).
		Padding(1, 2).
		Margin(1, 0)

	title := style.New().Bold(true).Foreground(style.HiRed).Render(fmt.Sprintf("%s Error: Missing Dependency", icon.Get(icon.Fail)))
	body := style.New().Foreground(style.Text).Render(fmt.Sprintf("The mpv engine needs '%s', which was not found in your PATH.\nUse --engine sim to try tandem without it.", dep))

	suggestion := ""
	if installCmd != "" {
		suggestion = fmt.Sprintf("\n\nTo install it, try running:\n  %s", style.New().Foreground(style.AccentColor).Bold(true).Render(installCmd))
	}

	fmt.Println(box.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"\n",
			body,
			suggestion,
		),
	))
}
