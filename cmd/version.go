package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is set via -ldflags at build time.
var version = "(devel)"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version and the wired backends",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("viva", buildVersion())
		if short, _ := cmd.Flags().GetBool("short"); short {
			return nil
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		fmt.Printf("  llm:     %s\n", orNone(cfg.LLM.Provider))
		fmt.Printf("  stt:     %s\n", orNone(cfg.Speech.STT))
		fmt.Printf("  tts:     %s\n", orNone(cfg.Speech.TTS))
		fmt.Printf("  store:   %s\n", cfg.Store.Backend)
		return nil
	},
}

// buildVersion prefers the ldflags value and falls back to the module
// version recorded by go install.
func buildVersion() string {
	if version != "(devel)" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return version
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func init() {
	versionCmd.Flags().Bool("short", false, "Print only the version")
}
