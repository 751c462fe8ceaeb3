// Command sqlcontext serves schema context and read-only SQL tools to LLM
// agents over MCP.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/koustreak/sqlcontext/internal/cli"
)

func main() {
	app := cli.New()

	if err := app.Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
