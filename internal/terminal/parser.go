package terminal

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/spf13/pflag"
)

const usageHeader = `patrol - edit review client

Usage:
  patrol [options]
  patrol <command> [arguments]

Options:
`

// Parser holds the startup tokens and the state they produce.
type Parser struct {
	// Silent suppresses terminal output during startup.
	Silent bool
	// Verbosity is raised once per -v.
	Verbosity int
	// SafeMode skips the user configuration file.
	SafeMode bool
	// HomePath overrides the configuration directory.
	HomePath string
	// LogFile is where the process log is appended, if set.
	LogFile string
	// Ignored lists the tokens that were not recognised.
	Ignored []string

	// Version is printed by --version.
	Version string
	// Footer is appended to the help text.
	Footer string

	args    []string
	out     io.Writer
	flags   *pflag.FlagSet
	help    bool
	version bool
}

// NewParser captures a copy of args (program name excluded). Help and
// version output go to out, or stdout when out is nil.
func NewParser(args []string, out io.Writer) *Parser {
	if out == nil {
		out = os.Stdout
	}
	p := &Parser{
		args:    append([]string(nil), args...),
		out:     out,
		Version: "dev",
	}

	fs := pflag.NewFlagSet("patrol", pflag.ContinueOnError)
	fs.SortFlags = false
	fs.BoolVarP(&p.help, "help", "h", false, "Display this help and exit")
	fs.BoolVar(&p.version, "version", false, "Print the version and exit")
	fs.BoolVarP(&p.Silent, "silent", "s", false, "Do not print startup messages")
	fs.CountVarP(&p.Verbosity, "verbose", "v", "Increase verbosity, repeat for more (-vvv)")
	fs.BoolVar(&p.SafeMode, "safe", false, "Start in safe mode, ignoring the user configuration")
	fs.StringVar(&p.HomePath, "home", "", "Use `dir` as the configuration directory")
	fs.StringVar(&p.LogFile, "syslog", "", "Append the process log to `file`")
	p.flags = fs
	return p
}

// Args returns the captured tokens.
func (p *Parser) Args() []string {
	return append([]string(nil), p.args...)
}

// Init looks only for a help request. When one is present the help text is
// displayed and Init returns true.
func (p *Parser) Init() bool {
	for _, tok := range p.args {
		if tok == "--" {
			break
		}
		if tok == "--help" || isShortGroup(tok) && strings.ContainsRune(tok[1:], 'h') {
			p.DisplayHelp()
			return true
		}
	}
	return false
}

// Parse applies the tokens in order. It returns true when a terminal action
// (help or version) has satisfied the invocation and startup should stop.
func (p *Parser) Parse() bool {
	for i := 0; i < len(p.args); i++ {
		tok := p.args[i]
		switch {
		case tok == "--":
			return false
		case strings.HasPrefix(tok, "--"):
			i += p.parseLong(tok[2:], i)
		case isShortGroup(tok):
			for _, c := range tok[1:] {
				if !p.ParseChar(c) {
					p.Ignored = append(p.Ignored, "-"+string(c))
				}
				if p.help || p.version {
					break
				}
			}
		default:
			p.Ignored = append(p.Ignored, tok)
		}

		if p.help {
			p.DisplayHelp()
			return true
		}
		if p.version {
			fmt.Fprintf(p.out, "patrol %s\n", p.Version)
			return true
		}
	}
	return false
}

// ParseChar applies a single-character shorthand and reports whether it was
// recognised. Shorthands that need a value are not accepted here.
func (p *Parser) ParseChar(c rune) bool {
	if c > unicode.MaxASCII {
		return false
	}
	f := p.flags.ShorthandLookup(string(c))
	if f == nil || f.NoOptDefVal == "" {
		return false
	}
	return p.flags.Set(f.Name, f.NoOptDefVal) == nil
}

// DisplayHelp writes the usage text.
func (p *Parser) DisplayHelp() {
	fmt.Fprint(p.out, usageHeader)
	fmt.Fprint(p.out, p.flags.FlagUsages())
	if p.Footer != "" {
		fmt.Fprint(p.out, "\n"+p.Footer)
	}
}

// parseLong applies "--name", "--name=value" or "--name value" and returns
// how many extra tokens it consumed.
func (p *Parser) parseLong(body string, i int) int {
	name, value, hasValue := strings.Cut(body, "=")
	f := p.flags.Lookup(name)
	if f == nil {
		p.Ignored = append(p.Ignored, "--"+body)
		return 0
	}

	if f.NoOptDefVal != "" {
		if !hasValue {
			value = f.NoOptDefVal
		}
		if err := p.flags.Set(name, value); err != nil {
			p.Ignored = append(p.Ignored, "--"+body)
		}
		return 0
	}

	consumed := 0
	if !hasValue {
		if i+1 >= len(p.args) {
			p.Ignored = append(p.Ignored, "--"+body)
			return 0
		}
		value = p.args[i+1]
		consumed = 1
	}
	if err := p.flags.Set(name, value); err != nil {
		p.Ignored = append(p.Ignored, "--"+body)
	}
	return consumed
}

func isShortGroup(tok string) bool {
	return len(tok) > 1 && tok[0] == '-' && tok[1] != '-'
}
