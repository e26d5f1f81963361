package main

import (
	"github.com/spf13/cobra"

	"daogen/internal/dao"
)

var expandFlags struct {
	params  map[string]string
	exclude []string
}

type expandView struct {
	SQL     string            `json:"sql" yaml:"sql"`
	Args    []any             `json:"args" yaml:"args"`
	Aliases map[string]string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Order   []string          `json:"order,omitempty" yaml:"order,omitempty"`
}

var expandCmd = &cobra.Command{
	Use:   "expand TABLE QUERY [ARG...]",
	Short: "Expand a templated query without running it",
	Long: `Expand resolves @table and @alias.* references in QUERY against reflected
columns and prints the resulting SQL with its bound arguments. Positional ARGs
bind to ? placeholders; --param binds :name placeholders.`,
	Example: `  daogen expand users 'SELECT @u.*, @o.* FROM @users u JOIN @orders o ON o.user_id = u.id WHERE u.id = ?' 7`,
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := application.db.Table(args[0]).Expand(cmd.Context(), args[1], dao.ExpandOptions{
			Exclude: parseExclude(expandFlags.exclude),
			Params:  stringParams(expandFlags.params),
		}, stringArgs(args[2:])...)
		if err != nil {
			return err
		}
		view := expandView{SQL: res.SQL, Args: res.Args, Aliases: make(map[string]string, len(res.Aliases))}
		if view.Args == nil {
			view.Args = []any{}
		}
		for alias, entity := range res.Aliases {
			view.Aliases[alias] = entity.Name
		}
		for _, b := range res.Bindings {
			view.Order = append(view.Order, b.Alias)
		}
		return writeOutput(cmd.OutOrStdout(), view)
	},
}

func init() {
	expandCmd.Flags().StringToStringVar(&expandFlags.params, "param", nil, "Named parameter as name=value (repeatable)")
	expandCmd.Flags().StringSliceVar(&expandFlags.exclude, "exclude", nil, "Column left out of @alias.*, as alias.column (repeatable)")
}
