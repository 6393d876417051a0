// File: main.go
package main

import (
	"context"
	"fmt"
	"os"

	"patrol.module/cmd"
	"patrol.module/internal/errors"
)

func main() {
	if err := cmd.Execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", errors.FormatForUser(os.Stderr, err))
		os.Exit(1)
	}
}
