// Command s3bridge reads, copies, lists and deletes objects in S3-compatible
// storage.
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := execute(ctx, newApp(), os.Args[1:]); err != nil {
		stop()
		os.Exit(1)
	}
}
