package cli

import (
	"strings"

	"github.com/atomozero/meshcore-go/internal/mesh/session"
)

// Interpreter implements dispatch.CLIRunner against a NodeContext.
type Interpreter struct {
	Node NodeContext
}

// New creates an Interpreter bound to ctx.
func New(ctx NodeContext) *Interpreter {
	return &Interpreter{Node: ctx}
}

// Execute parses and runs a single SEND_CLI/PLAIN-CLI line, enforcing the
// guest/admin split, and returns the text reply to send back.
func (in *Interpreter) Execute(perm session.Permission, line string) string {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return "Err:?"
	}

	name := fields[0]
	args := fields[1:]

	if name == "help" || name == "?" {
		return cmdHelp(int(perm))
	}

	c, ok := findCommand(name)
	if !ok {
		return "Err:?"
	}
	if !allowed(name, perm) {
		return permissionDenied
	}
	if perm != session.PermAdmin && len(args) > 0 && (name == "time" || name == "location") {
		return permissionDenied
	}
	return c.run(in.Node, args)
}
