package main

import (
	"context"
	"fmt"
	"os"

	"github.com/vitalvas/routedoc/cmd/routedoc/internal"
)

func main() {
	if err := internal.Command().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
