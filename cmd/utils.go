// File: cmd/utils.go
package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"patrol.module/internal/config"
	"patrol.module/internal/crash"
	"patrol.module/internal/errors"
)

// dumpLocation resolves the directory the crash commands work on: --dir
// when given, otherwise dump_path from the configuration in --home.
type dumpLocation struct {
	dir  string
	home string
}

func (l *dumpLocation) store() (*crash.Store, error) {
	if l.dir != "" {
		return crash.NewStore(l.dir), nil
	}
	loader := config.NewLoader(l.home, false)
	cfg, err := loader.Load()
	if err != nil {
		return nil, errors.NewConfigLoadError(loader.Home(), err)
	}
	return crash.NewStore(cfg.DumpPath), nil
}

func askForConfirmation(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	reader := bufio.NewReader(in)
	response, err := reader.ReadString('\n')
	if err != nil && response == "" {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
