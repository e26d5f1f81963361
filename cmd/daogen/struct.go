package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"daogen/internal/codegen"
	"daogen/internal/naming"
)

var structFlags struct {
	pkg string
	out string
}

var structCmd = &cobra.Command{
	Use:   "struct TABLE...",
	Short: "Generate Go structs for tables",
	Long: `Struct reflects each TABLE and writes one Go struct per table. Field json tags
match the record field names a query produces, so records decode into them.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entities, err := application.db.EnsureAll(cmd.Context(), args...)
		if err != nil {
			return err
		}
		cfg := application.cfg
		file := codegen.File(entities, codegen.Options{
			Package:             structFlags.pkg,
			Namer:               naming.New(cfg.Naming, application.logger.Logger),
			PreserveColumnNames: !cfg.DAO.CamelCase,
			DecimalNumerics:     cfg.DAO.DecimalNumerics,
		})

		if structFlags.out == "" || structFlags.out == "-" {
			return file.Render(cmd.OutOrStdout())
		}
		if err := file.Save(structFlags.out); err != nil {
			return fmt.Errorf("write %s: %w", structFlags.out, err)
		}
		application.logger.Info("generated structs", "file", structFlags.out, "tables", len(entities))
		return nil
	},
}

func init() {
	structCmd.Flags().StringVar(&structFlags.pkg, "package", "models", "Package name of the generated file")
	structCmd.Flags().StringVar(&structFlags.out, "out", "", "Output file (default stdout)")
}
