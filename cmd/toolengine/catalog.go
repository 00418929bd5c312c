package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opsconductor/toolengine/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and validate the tool catalog",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Validate tool spec files without starting the engine",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := ""
		if len(args) == 1 {
			dir = args[0]
		} else {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			dir = cfg.Catalog.Path
		}

		store := catalog.NewFileStore(dir)
		specs, err := store.LoadSpecs(cmd.Context())
		if err != nil {
			return err
		}

		invalid := 0
		for _, spec := range specs {
			if err := spec.Validate(); err != nil {
				invalid++
				cmd.PrintErrf("invalid: %s@%s: %v\n", spec.Name, spec.Version, err)
			}
		}

		cmd.Printf("%d specs checked, %d invalid\n", len(specs), invalid)
		if invalid > 0 {
			return fmt.Errorf("%d invalid tool specs in %s", invalid, dir)
		}
		return nil
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list [dir]",
	Short: "List the latest version of each tool in the catalog",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := ""
		if len(args) == 1 {
			dir = args[0]
		} else {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			dir = cfg.Catalog.Path
		}

		registry := catalog.NewRegistry(catalog.NewFileStore(dir), nil)
		if _, err := registry.Load(cmd.Context()); err != nil {
			return err
		}

		for _, spec := range registry.List("", "") {
			cmd.Printf("%-30s %-10s %-15s %s\n", spec.Name, spec.Version, spec.Platform, spec.Category)
		}
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogValidateCmd)
	catalogCmd.AddCommand(catalogListCmd)
}
