package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func main() {
	app := &cli.Command{
		Name:  "laminar",
		Usage: "relational model-to-SAT analyzer",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug logging"},
			&cli.BoolFlag{Name: "plain", Usage: "disable color/style output (default: auto-detected)"},
		},
		Commands: []*cli.Command{
			analyzeCommand(),
			runCommand(),
			checkCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "laminar: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}

	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}

	return log
}

// plainOutput decides whether to colorize: an explicit --plain flag wins,
// otherwise color only when stdout is a real terminal (teacher precedent:
// isatty-gated styling in its runner's result formatter).
func plainOutput(cmd *cli.Command) bool {
	if cmd.Bool("plain") {
		return true
	}

	return !isatty.IsTerminal(os.Stdout.Fd())
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "type-check a module and print diagnostics",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "emit diagnostics as JSON"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() < 1 {
				return fmt.Errorf("usage: laminar analyze <file>")
			}

			d := NewDriver(newLogger(cmd.Bool("verbose")), plainOutput(cmd))

			diags, err := d.Analyze(cmd.Args().Get(0))
			if err != nil {
				return err
			}

			if cmd.Bool("json") {
				out, err := diagnosticsJSON(diags)
				if err != nil {
					return err
				}

				fmt.Println(out)
			} else {
				fmt.Print(formatDiagnostics(diags, d.Plain))
			}

			if diags.HasErrors() {
				os.Exit(exitAnalyzeErrors)
			}

			return nil
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "solve a run command and print an instance",
		ArgsUsage: "<file>",
		Flags:     commandFlags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			return execCommand(cmd, false)
		},
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "solve a check command and print a counterexample, if any",
		ArgsUsage: "<file>",
		Flags:     commandFlags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			return execCommand(cmd, true)
		},
	}
}

func commandFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "cmd", Usage: "name of the run/check command to solve"},
		&cli.IntFlag{Name: "scope", Usage: "default signature scope"},
		&cli.IntFlag{Name: "steps", Usage: "bounded-lasso trace length"},
		&cli.IntFlag{Name: "int-bw", Usage: "integer bit width"},
		&cli.BoolFlag{Name: "dimacs", Usage: "print the generated CNF instead of solving"},
	}
}

func execCommand(cmd *cli.Command, check bool) error {
	if cmd.Args().Len() < 1 {
		return fmt.Errorf("usage: laminar %s <file>", kindWord(check))
	}

	d := NewDriver(newLogger(cmd.Bool("verbose")), plainOutput(cmd))

	req := CommandRequest{
		Name:  cmd.String("cmd"),
		Check: check,

		Scope:    int(cmd.Int("scope")),
		HasScope: cmd.IsSet("scope"),

		Steps:    int(cmd.Int("steps")),
		HasSteps: cmd.IsSet("steps"),

		IntBits:    int(cmd.Int("int-bw")),
		HasIntBits: cmd.IsSet("int-bw"),

		DIMACS: cmd.Bool("dimacs"),
	}

	code, output, err := d.Execute(cmd.Args().Get(0), req)
	if err != nil {
		return err
	}

	fmt.Println(output)

	if code != exitOK {
		os.Exit(code)
	}

	return nil
}
