package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/lunixbochs/ropcorn/go/loader"
	"github.com/lunixbochs/ropcorn/go/models"
	"github.com/lunixbochs/ropcorn/go/ui"
)

const DefaultFile = "a.out"

// Cmd is the common skeleton of a binary inspection command. Commands
// register their own flags in SetupFlags, turn them into configuration in
// ApplyFlags and do their work in RunBinary.
type Cmd struct {
	Name   string
	Config *models.Config

	SetupFlags func() error
	ApplyFlags func() error
	RunBinary  func(bin *models.Binary) error

	Flags   *flag.FlagSet
	Printer *ui.Printer
	Stdout  io.Writer
	Stderr  io.Writer
	// when set, config.yml is read from this folder only
	ConfigDir string

	// shown under "Load Options:" in usage
	loadFlags []string
	example   string
}

func NewCmd(name, example string) *Cmd {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	return &Cmd{
		Name:    name,
		Config:  models.NewConfig(),
		Flags:   fs,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		example: example,
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func (c *Cmd) PrintError(err error) {
	// print an error, and a stacktrace if available
	fmt.Fprintf(c.Stderr, "%s\n", strings.Repeat("-", 40))
	fmt.Fprintf(c.Stderr, "Error: %s\n", err)
	if !c.Config.Verbose {
		return
	}
	if st, ok := err.(stackTracer); ok {
		// parse full path and method name for each stack frame
		var frames [][]string
		for _, f := range st.StackTrace() {
			fullpath := ""
			fileline := fmt.Sprintf("%s:%d", f, f)
			method := fmt.Sprintf("%n", f)

			frame := fmt.Sprintf("%+s", f)
			tmp := strings.SplitN(frame, "\n", 3)
			if len(tmp) == 2 {
				pathsplit := strings.Split(tmp[0], "/")
				method = pathsplit[len(pathsplit)-1]
				fullpath = strings.TrimSpace(tmp[1])
			}
			frames = append(frames, []string{fullpath, fileline, method})
			if method == "main.main" {
				break
			}
		}
		// calculate column widths
		widths := make([]int, 2)
		for _, f := range frames {
			for i, s := range f[:2] {
				if len(s) > widths[i] {
					widths[i] = len(s)
				}
			}
		}
		// print pretty stacktrace
		for _, f := range frames {
			for i := 0; i < 2; i++ {
				if widths[i] > 0 {
					pad := strings.Repeat(" ", widths[i]-len(f[i]))
					fmt.Fprintf(c.Stderr, "%s%s | ", f[i], pad)
				}
			}
			fmt.Fprintf(c.Stderr, "%s()\n", f[2])
		}
	}
}

func (c *Cmd) usage(prog string) {
	fs := c.Flags
	fmt.Fprintf(c.Stderr, "Usage: %s [options] [file]\n\nOptions:\n", prog)
	var flags []*flag.Flag
	var lflags []*flag.Flag
	fs.VisitAll(func(f *flag.Flag) {
		for _, name := range c.loadFlags {
			if name == f.Name {
				lflags = append(lflags, f)
				return
			}
		}
		flags = append(flags, f)
	})
	models.PrintFlags(c.Stderr, flags)
	fmt.Fprintf(c.Stderr, "\nLoad Options:\n")
	models.PrintFlags(c.Stderr, lflags)
	fmt.Fprintf(c.Stderr, "\nArchitectures:\n  %s\n", strings.Join(models.ArchNames(), ", "))
	if c.example != "" {
		fmt.Fprintf(c.Stderr, "\nExample:\n  %s %s\n", prog, c.example)
	}
}

func (c *Cmd) setupLogger() {
	level := hclog.Warn
	if c.Config.Verbose {
		level = hclog.Debug
	}
	c.Config.Logger = hclog.New(&hclog.LoggerOptions{
		Name:   c.Name,
		Level:  level,
		Output: c.Stderr,
	})
}

func (c *Cmd) loadDefaults() (string, error) {
	if c.ConfigDir != "" {
		return models.LoadDefaultsFrom(c.Config, c.ConfigDir)
	}
	return models.LoadDefaults(c.Config, c.Name)
}

// Load reads path with the configured loader options.
func (c *Cmd) Load(path string) (*models.Binary, error) {
	return loader.LoadFile(path, c.Config)
}

// Run parses argv, loads the target file and hands it to RunBinary. The
// return value is the process exit status.
func (c *Cmd) Run(argv []string) int {
	fs := c.Flags
	fs.SetOutput(c.Stderr)
	fs.Usage = func() { c.usage(argv[0]) }
	defaults, err := c.loadDefaults()
	if err != nil {
		c.PrintError(err)
		return 1
	}
	raw := c.setupRawFlags()
	noColor := false
	fs.BoolVar(&noColor, "no-color", false, "do not colorize output")
	fs.BoolVar(&noColor, "N", false, "do not colorize output")
	fs.BoolVar(&c.Config.Verbose, "v", false, "verbose output (debug logging and error stack traces)")
	if c.SetupFlags != nil {
		if err := c.SetupFlags(); err != nil {
			c.PrintError(err)
			return 1
		}
	}
	if err := fs.Parse(argv[1:]); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if raw.arch == "list" {
		for _, name := range models.ArchNames() {
			fmt.Fprintln(c.Stdout, name)
		}
		return 0
	}
	if noColor {
		c.Config.Color = false
	}
	c.setupLogger()
	if defaults != "" {
		c.Config.Log().Debug("loaded defaults", "path", defaults)
	}

	// every parameter is checked before the file is touched
	if err := raw.apply(c.Config); err != nil {
		c.PrintError(err)
		return 1
	}
	if c.ApplyFlags != nil {
		if err := c.ApplyFlags(); err != nil {
			c.PrintError(err)
			return 1
		}
	}
	if err := c.Config.Validate(); err != nil {
		c.PrintError(err)
		return 1
	}
	args := fs.Args()
	path := DefaultFile
	if len(args) > 0 {
		path = args[0]
	}
	if len(args) > 1 {
		c.Config.Log().Warn("ignoring extra arguments", "args", args[1:])
	}

	bin, err := c.Load(path)
	if err != nil {
		c.PrintError(err)
		return 1
	}
	defer bin.Close()
	c.Printer = ui.NewPrinter(c.Stdout, c.Config)
	if c.RunBinary != nil {
		if err := c.RunBinary(bin); err != nil {
			c.PrintError(err)
			return 1
		}
	}
	return 0
}
