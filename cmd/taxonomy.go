package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/viva/internal/taxonomy"
)

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Browse and check the module taxonomy",
}

var taxonomyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List modules and their topics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		reg, err := loadTaxonomy(cfg)
		if err != nil {
			return err
		}

		for _, m := range reg.Modules() {
			fmt.Printf("%s  %s\n", m.ID, m.Title)
			for _, t := range m.Topics {
				req := " "
				if t.Required {
					req = "*"
				}
				fmt.Printf("  %s %-16s  %-28s  %s\n", req, t.ID, truncate(t.Name, 28), strings.Join(t.Keywords, ", "))
			}
			fmt.Println()
		}
		fmt.Println("* required topic")
		return nil
	},
}

var taxonomyValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a taxonomy YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := taxonomy.LoadFile(args[0])
		if err != nil {
			return err
		}
		if err := reg.Validate(); err != nil {
			return err
		}
		mods := reg.Modules()
		topics := 0
		for _, m := range mods {
			topics += len(m.Topics)
		}
		fmt.Printf("%s: %d modules, %d topics, OK\n", args[0], len(mods), topics)
		return nil
	},
}

func init() {
	taxonomyCmd.AddCommand(taxonomyListCmd)
	taxonomyCmd.AddCommand(taxonomyValidateCmd)
}
