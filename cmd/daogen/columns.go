package main

import (
	"github.com/spf13/cobra"
)

type columnView struct {
	Name       string `json:"name" yaml:"name"`
	SourceType string `json:"sourceType" yaml:"source_type"`
	PrimaryKey bool   `json:"primaryKey,omitempty" yaml:"primary_key,omitempty"`
	Elidable   bool   `json:"elidable,omitempty" yaml:"elidable,omitempty"`
	Cast       string `json:"cast,omitempty" yaml:"cast,omitempty"`
	JSON       bool   `json:"json,omitempty" yaml:"json,omitempty"`
}

type entityView struct {
	Table   string       `json:"table" yaml:"table"`
	Keys    []string     `json:"keys" yaml:"keys"`
	Columns []columnView `json:"columns" yaml:"columns"`
}

var columnsCmd = &cobra.Command{
	Use:   "columns TABLE...",
	Short: "Reflect and print table columns",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entities, err := application.db.EnsureAll(cmd.Context(), args...)
		if err != nil {
			return err
		}
		views := make([]entityView, 0, len(entities))
		for _, e := range entities {
			v := entityView{Table: e.Name, Keys: e.Keys}
			for _, c := range e.Columns {
				v.Columns = append(v.Columns, columnView{
					Name:       c.Name,
					SourceType: c.SourceType,
					PrimaryKey: c.IsPrimaryKey,
					Elidable:   c.Elidable,
					Cast:       c.Cast,
					JSON:       c.IsJSON,
				})
			}
			views = append(views, v)
		}
		return writeOutput(cmd.OutOrStdout(), views)
	},
}
