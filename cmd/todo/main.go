package main

import (
	"os"
	"strconv"
	"strings"

	"todo-cli/internal/cli"
)

func isTodoID(s string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	return err == nil && n > 0
}

// rewriteDirectLookupArgs turns `todo <id>` into `todo show <id>`.
//
// Cobra treats the first non-flag token as a subcommand, so argv is rewritten
// before parsing. Persistent flags may come first (`todo --api ... 3`), so the
// first positional token is located by skipping known flags and their values.
func rewriteDirectLookupArgs(argv []string) []string {
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--api":       true,
		"--owner":     true,
		"--format":    true,
		"--config":    true,
		"--log-level": true,
		"--log-file":  true,
	}
	boolFlags := map[string]bool{
		"--pretty": true,
	}

	show := func(prefix, rest []string) []string {
		out := make([]string, 0, len(prefix)+len(rest)+1)
		out = append(out, prefix...)
		out = append(out, "show")
		return append(out, rest...)
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			// Cobra does not resolve subcommands after "--", so drop it.
			if i+1 < len(argv) && isTodoID(argv[i+1]) {
				return show(argv[:i], argv[i+1:])
			}
			return argv
		}

		if strings.HasPrefix(a, "-") {
			switch {
			case strings.Contains(a, "="), boolFlags[a]:
			case valueFlags[a]:
				i++
			}
			continue
		}

		if isTodoID(a) {
			return show(argv[:i], argv[i:])
		}
		return argv
	}

	return argv
}

func main() {
	os.Args = rewriteDirectLookupArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
