package command

import (
	"fmt"
	"strings"
)

// Callback is the function called when a SingleCommand fires
type Callback func(data *Data)

// Command represents a single command that can be fired by a Manager
type Command interface {
	AdminRequired() int
	Fire(data *Data)
	Help() string
	Name() string
}

// SingleCommand is a Command backed by a single callback
type SingleCommand struct {
	adminRequired int
	callback      Callback
	help          string
	name          string
}

// Fire checks the permissions of the caller and fires the callback if they are sufficient
func (c *SingleCommand) Fire(data *Data) {
	if !data.CheckPerms(c.adminRequired) {
		return
	}
	c.callback(data)
}

// AdminRequired returns the admin level required to run this command
func (c *SingleCommand) AdminRequired() int { return c.adminRequired }

// Help returns the help string for this command
func (c *SingleCommand) Help() string { return c.help }

// Name returns the name of this command
func (c *SingleCommand) Name() string { return c.name }

func (c *SingleCommand) String() string {
	return fmt.Sprintf("SingleCommand %q (admin %d)", c.name, c.adminRequired)
}

// alias wraps a Command under another name. Permission checks and help are those of the target
type alias struct {
	name   string
	target Command
}

func (a *alias) AdminRequired() int { return a.target.AdminRequired() }
func (a *alias) Fire(data *Data)    { a.target.Fire(data) }
func (a *alias) Name() string       { return a.name }
func (a *alias) Help() string {
	return fmt.Sprintf("alias for %s: %s", a.target.Name(), a.target.Help())
}

func validName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("commands must have a name")
	case strings.ContainsAny(name, " \t"):
		return fmt.Errorf("commands cannot contain spaces")
	}
	return nil
}
