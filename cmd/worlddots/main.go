// Command worlddots renders dot maps constrained to a land mask.
//
// Usage:
//
//	worlddots serve [-config file] [-listen addr] [-db path] [-mask path]
//	worlddots render [flags] -o out.svg
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/benoitkugler/worlddots/logging"
)

const usage = `usage:
  worlddots serve [-config file] [-listen addr] [-db path] [-mask path]
  worlddots render [-mask path] [-density n] [-size f] [-color c] [-width w] [-height h]
                   [-ratio r] [-optimize] [-o out.svg] [-png out.png] [-pdf out.pdf]
`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "worlddots:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("missing command")
	}
	switch args[0] {
	case "serve":
		return serve(args[1:], stderr)
	case "render":
		return render(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// setupLogging installs a text handler writing to w at the named level.
func setupLogging(w io.Writer, level string) {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: logging.ParseLevel(level)})
	logging.SetLogger(slog.New(h))
}
