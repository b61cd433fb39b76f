// Command arrgate checks provider promotion readiness and verifies live
// *arr instances for plugins.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/custodia-labs/arrgate/internal/adapters/driving/cli"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	err := cli.Execute(context.Background(), version, bootstrap)
	if err != nil && err.Error() != "" {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.ExitCode(err))
}
