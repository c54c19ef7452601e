// Command tinder is the CLI front door for the language core: compile-check
// a script, format one canonically, or run it against a seeded Crucible.
// Grounded on the teacher's cmd.Command(rootCommand, brand) wiring
// (cmd/commands.go) — one root *cobra.Command, one constructor func per
// subcommand — scaled down to the three subcommands this module ships.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinderlang/tinder/compiler"
	"github.com/tinderlang/tinder/crucible"
	"github.com/tinderlang/tinder/host"
	"github.com/tinderlang/tinder/interp"
	"github.com/tinderlang/tinder/ir"
	"github.com/tinderlang/tinder/parser"
	"github.com/tinderlang/tinder/replay"
	"github.com/tinderlang/tinder/tfmt"
	"github.com/tinderlang/tinder/tinderlog"
)

func main() {
	root := &cobra.Command{
		Use:   "tinder",
		Short: "Tinder language tooling: run, check, fmt",
	}
	root.AddCommand(newCheckCommand())
	root.AddCommand(newFmtCommand())
	root.AddCommand(newRunCommand())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func readFile(path string) (string, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(bs), nil
}

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Parse and compile a script, reporting label/constant errors without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			src, err := readFile(args[0])
			if err != nil {
				return err
			}
			script, err := parser.Parse(src, args[0])
			if err != nil {
				return err
			}
			if _, err := compiler.Compile(script, args[0]); err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}
}

func newFmtCommand() *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "fmt <file>",
		Short: "Print a script in canonical form",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			src, err := readFile(args[0])
			if err != nil {
				return err
			}
			out, err := tfmt.Format(src, args[0])
			if err != nil {
				return err
			}
			if write {
				return os.WriteFile(args[0], []byte(out), 0o644)
			}
			fmt.Print(out)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "overwrite the file in place instead of printing to stdout")
	return cmd
}

func newRunCommand() *cobra.Command {
	var (
		budget   int
		logLevel string
		seedPath string
		disasm   bool
	)
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Compile and run a script interactively on stdin/stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			log, err := tinderlog.NewWithLevel(logLevel)
			if err != nil {
				return err
			}

			src, err := readFile(args[0])
			if err != nil {
				return err
			}
			script, err := parser.Parse(src, args[0])
			if err != nil {
				return err
			}
			cs, err := compiler.Compile(script, args[0])
			if err != nil {
				return err
			}

			if disasm {
				fmt.Println(ir.Disassemble(cs))
			}

			cru := crucible.New()
			if seedPath != "" {
				data, err := os.ReadFile(seedPath)
				if err != nil {
					return err
				}
				if err := cru.LoadSnapshot(data); err != nil {
					return err
				}
			}

			m := interp.New(cs, cru)
			m.File = args[0]
			m.MaxSteps = budget
			m.Log = log

			sess := replay.New(m, host.NewCatalog(), os.Stdin, os.Stdout)
			if err := sess.Run(); err != nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&budget, "budget", 0, "instruction budget per Run() call (0 = unbounded)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	cmd.Flags().StringVar(&seedPath, "seed", "", "YAML file of initial Crucible bindings")
	cmd.Flags().BoolVar(&disasm, "disasm", false, "print the compiled instruction table before running")
	return cmd
}
