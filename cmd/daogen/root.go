package main

import (
	"github.com/spf13/cobra"

	"daogen/internal/config"
)

var (
	// application is set during PersistentPreRunE for commands that need
	// a database.
	application *app

	outputFormat string
	role         string
	dumpMetrics  bool
)

var rootCmd = &cobra.Command{
	Use:   "daogen",
	Short: "Table-driven data access from reflected schema",
	Long: `daogen - data access generated from reflected schema

daogen reflects table columns from PostgreSQL, MySQL/TiDB or SQLite and uses
them to expand @alias.* and @table references in SQL, materialize joined rows
into de-duplicated record graphs, and generate Go structs.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "help", "completion", "version":
			return nil
		}
		cfg, err := config.Load(cmd.Flags())
		if err != nil {
			return err
		}
		application, err = newApp(cmd.Context(), cfg, appOptions{
			Role:        role,
			DumpMetrics: dumpMetrics,
			Stderr:      cmd.ErrOrStderr(),
		})
		return err
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

const (
	groupSchema = "schema"
	groupQuery  = "query"
)

func init() {
	flags := rootCmd.PersistentFlags()
	config.DefineFlags(flags)
	flags.StringVarP(&outputFormat, "output", "o", "yaml", "Output format (yaml, json)")
	flags.StringVar(&role, "role", "", "Database role assumed with SET ROLE for every statement")
	flags.BoolVar(&dumpMetrics, "metrics-dump", false, "Print collected metrics in Prometheus text format to stderr on exit")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupSchema, Title: "Schema:"},
		&cobra.Group{ID: groupQuery, Title: "Query:"},
	)

	columnsCmd.GroupID = groupSchema
	structCmd.GroupID = groupSchema
	expandCmd.GroupID = groupQuery
	queryCmd.GroupID = groupQuery
	rootCmd.AddCommand(columnsCmd, structCmd, expandCmd, queryCmd, versionCmd)
}
