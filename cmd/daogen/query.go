package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"daogen/internal/dao"
	"daogen/internal/hydrate"
)

var queryFlags struct {
	params  map[string]string
	exclude []string
	fetch   string
	alias   string
	one     bool
}

var queryCmd = &cobra.Command{
	Use:   "query TABLE QUERY [ARG...]",
	Short: "Run a templated query and print the materialized records",
	Long: `Query expands QUERY like expand does, runs it, and folds the joined rows into
records of TABLE. --fetch attaches related aliases to each record, as a YAML or
JSON object: a string value attaches one record, a list attaches many, and an
object or a one-element list nests further aliases.`,
	Example: `  daogen query users 'SELECT @u.*, @o.* FROM @users u LEFT JOIN @orders o ON o.user_id = u.id' \
    --fetch '{o: [{i: one}]}'`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fetch, err := parseFetchFlag(queryFlags.fetch)
		if err != nil {
			return err
		}
		records, err := application.db.Table(args[0]).Query(cmd.Context(), args[1], dao.QueryOptions{
			Exclude: parseExclude(queryFlags.exclude),
			Fetch:   fetch,
			Alias:   queryFlags.alias,
			Params:  stringParams(queryFlags.params),
		}, stringArgs(args[2:])...)
		if err != nil {
			return err
		}

		out := make([]map[string]any, len(records))
		for i, r := range records {
			out[i] = r.Map()
		}
		if queryFlags.one {
			if len(out) == 0 {
				return dao.ErrNotFound
			}
			return writeOutput(cmd.OutOrStdout(), out[0])
		}
		return writeOutput(cmd.OutOrStdout(), out)
	},
}

// parseFetchFlag decodes a fetch shape written in YAML flow or JSON syntax.
func parseFetchFlag(raw string) (hydrate.Fetch, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var decoded any
	if err := yaml.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("invalid --fetch: %w", err)
	}
	fetch, err := hydrate.ParseFetch(decoded)
	if err != nil {
		return nil, fmt.Errorf("invalid --fetch: %w", err)
	}
	return fetch, nil
}

func init() {
	flags := queryCmd.Flags()
	flags.StringToStringVar(&queryFlags.params, "param", nil, "Named parameter as name=value (repeatable)")
	flags.StringSliceVar(&queryFlags.exclude, "exclude", nil, "Column left out of @alias.*, as alias.column (repeatable)")
	flags.StringVar(&queryFlags.fetch, "fetch", "", "Related aliases to attach, e.g. '{o: [], a: one}'")
	flags.StringVar(&queryFlags.alias, "alias", "", "Alias of the root table when the query binds it more than once")
	flags.BoolVar(&queryFlags.one, "one", false, "Print only the first record, failing when there is none")
}
