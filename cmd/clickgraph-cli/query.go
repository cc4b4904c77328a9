package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clickgraph/clickgraph/internal/catalog"
	"github.com/clickgraph/clickgraph/internal/query"
)

var (
	queryRunSchemaPath string
	queryRunSQLOnly    bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query compilation operations",
}

var queryRunCmd = &cobra.Command{
	Use:   "run <cypher>",
	Short: "Compile a Cypher query against a schema file and print the rendered SQL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if queryRunSchemaPath == "" {
			return fmt.Errorf("--schema is required")
		}
		cat := catalog.New()
		schema, err := cat.LoadAndRegister(queryRunSchemaPath)
		if err != nil {
			return fmt.Errorf("failed to load schema: %w", err)
		}
		cliLog.WithField("schema", schema.Name).Debug("compiling query")

		compiled, err := query.Compile(cat, args[0], schema.Name, nil)
		if err != nil {
			return fmt.Errorf("compile failed: %w", err)
		}
		cliLog.WithField("cte_count", compiled.CTECount).Debug("query compiled")
		fmt.Println(compiled.SQL)
		return nil
	},
}

func init() {
	queryRunCmd.Flags().StringVar(&queryRunSchemaPath, "schema", "", "path to a graph schema YAML file (required)")
	queryRunCmd.Flags().BoolVar(&queryRunSQLOnly, "sql-only", true, "print only the compiled SQL (always true for this command)")
	queryCmd.AddCommand(queryRunCmd)
}
