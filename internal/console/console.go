// Package console is the line-oriented command surface exposed while the
// host runs. Mods register commands through their capability bundle; a few
// built-ins ship with the host. Command failures are attributed to the
// owning mod and never kill the console loop.
package console

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// Command is one registered console command.
type Command struct {
	Name  string
	Owner string // owning mod ID, or "host" for built-ins
	Doc   string
	Run   func(out io.Writer, args []string) error
}

// HostOwner is the owner recorded for built-in commands.
const HostOwner = "host"

// Console dispatches typed lines to registered commands.
type Console struct {
	mu       sync.RWMutex
	commands map[string]Command // keyed by lowercase name
	logger   *log.Logger
}

// New returns a console with the help built-in registered.
func New(logger *log.Logger) *Console {
	c := &Console{
		commands: make(map[string]Command),
		logger:   logger,
	}
	_ = c.Register(Command{
		Name:  "help",
		Owner: HostOwner,
		Doc:   "Lists all commands grouped by mod, or documents one command: help [name]",
		Run:   c.help,
	})
	return c
}

// Register adds a command. Names are case-insensitive and must be unique.
func (c *Console) Register(cmd Command) error {
	if cmd.Name == "" || strings.ContainsAny(cmd.Name, " \t") {
		return fmt.Errorf("invalid command name %q", cmd.Name)
	}
	key := strings.ToLower(cmd.Name)
	c.mu.Lock()
	defer c.mu.Unlock()
	if prior, exists := c.commands[key]; exists {
		return fmt.Errorf("command %q is already registered by %s", cmd.Name, prior.Owner)
	}
	c.commands[key] = cmd
	return nil
}

// Execute tokenizes one input line and dispatches it. Unknown commands and
// command errors are reported to out; neither is fatal.
func (c *Console) Execute(out io.Writer, line string) {
	tokens := Tokenize(line)
	if len(tokens) == 0 {
		return
	}
	name := strings.ToLower(tokens[0])

	c.mu.RLock()
	cmd, ok := c.commands[name]
	c.mu.RUnlock()
	if !ok {
		fmt.Fprintf(out, "Unknown command %q. Type 'help' for a list of commands.\n", tokens[0])
		return
	}

	if err := c.invoke(out, cmd, tokens[1:]); err != nil {
		c.logger.Error("console command failed", "mod", cmd.Owner, "command", cmd.Name, "error", err)
		fmt.Fprintf(out, "Command %q failed: %v\n", cmd.Name, err)
	}
}

// invoke runs a command inside a panic boundary so a mod's command cannot
// take down the console.
func (c *Console) invoke(out io.Writer, cmd Command, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return cmd.Run(out, args)
}

// ReadLoop reads lines from r until EOF or "exit", executing each.
func (c *Console) ReadLoop(r io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			return
		}
		c.Execute(out, line)
	}
}

// help implements the built-in help command.
func (c *Console) help(out io.Writer, args []string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(args) > 0 {
		cmd, ok := c.commands[strings.ToLower(args[0])]
		if !ok {
			fmt.Fprintf(out, "Unknown command %q.\n", args[0])
			return nil
		}
		fmt.Fprintf(out, "%s (%s)\n  %s\n", cmd.Name, cmd.Owner, cmd.Doc)
		return nil
	}

	byOwner := make(map[string][]Command)
	for _, cmd := range c.commands {
		byOwner[cmd.Owner] = append(byOwner[cmd.Owner], cmd)
	}
	owners := make([]string, 0, len(byOwner))
	for owner := range byOwner {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	for _, owner := range owners {
		cmds := byOwner[owner]
		sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
		fmt.Fprintf(out, "%s:\n", owner)
		for _, cmd := range cmds {
			fmt.Fprintf(out, "  %s - %s\n", cmd.Name, cmd.Doc)
		}
	}
	return nil
}

// Tokenize splits a console line into a command name plus arguments.
// Double-quoted segments keep their spaces; quotes themselves are dropped.
func Tokenize(line string) []string {
	var (
		tokens   []string
		current  strings.Builder
		inQuotes bool
		started  bool
	)
	flush := func() {
		if started {
			tokens = append(tokens, current.String())
			current.Reset()
			started = false
		}
	}
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			started = true
		case !inQuotes && (r == ' ' || r == '\t'):
			flush()
		default:
			current.WriteRune(r)
			started = true
		}
	}
	flush()
	return tokens
}
