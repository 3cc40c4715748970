// Command arrpc compiles versioned interface descriptions and generates Go
// dispatch and client code for them.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/JayJeyaruban/arrpc/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	os.Exit(cli.GetExitCode(err))
}
