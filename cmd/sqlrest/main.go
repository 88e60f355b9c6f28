// Command sqlrest serves and runs schema-agnostic table queries.
package main

import (
	"context"
	"os"

	"github.com/roach88/sqlrest/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
