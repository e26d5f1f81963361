// Command daogen reflects database tables, expands entity-templated SQL,
// runs queries that materialize object graphs, and generates Go structs.
//
// Usage:
//
//	daogen [flags] <command>
//
// Every command except version connects using the database.* settings,
// which come from flags, DAOGEN_* environment variables, or daogen.yaml.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	if application != nil {
		if closeErr := application.Close(context.Background()); err == nil {
			err = closeErr
		}
	}
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
