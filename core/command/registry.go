package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/roombot/core/chat"
	"github.com/m3rciful/roombot/core/logger"
)

// Handler executes a command and returns the replies to deliver.
type Handler func(ctx context.Context, req chat.Request) []chat.Reply

// Spec describes a registered command.
type Spec struct {
	Name string
	// Usage is how the command appears in help, e.g. "guess <country_name>".
	Usage       string
	Description string
	Handler     Handler
}

// Registry holds commands in registration order.
type Registry struct {
	order []string
	specs map[string]Spec
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]Spec)}
}

// Register adds a command. Invalid or duplicate registrations are rejected.
func (r *Registry) Register(spec Spec) error {
	if spec.Name == "" || spec.Handler == nil || spec.Description == "" {
		logger.Wire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.skip",
			slog.String("name", spec.Name),
			slog.String("reason", "invalid"),
		)
		return fmt.Errorf("command: invalid registration %q", spec.Name)
	}
	if !vocabulary[spec.Name] && spec.Name != Guess {
		logger.Wire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.skip",
			slog.String("name", spec.Name),
			slog.String("reason", "unknown_command"),
		)
		return fmt.Errorf("command: %q is not a known command", spec.Name)
	}
	if _, exists := r.specs[spec.Name]; exists {
		logger.Wire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.duplicate",
			slog.String("name", spec.Name),
		)
		return fmt.Errorf("command: %q already registered", spec.Name)
	}
	if spec.Usage == "" {
		spec.Usage = spec.Name
	}
	r.specs[spec.Name] = spec
	r.order = append(r.order, spec.Name)
	return nil
}

// Lookup returns the command registered under name.
func (r *Registry) Lookup(name string) (Spec, bool) {
	spec, ok := r.specs[name]
	return spec, ok
}

// Specs returns the registered commands in registration order.
func (r *Registry) Specs() []Spec {
	out := make([]Spec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.specs[name])
	}
	return out
}

// HelpText renders the command list shown by "help".
func (r *Registry) HelpText() string {
	var b strings.Builder
	b.WriteString("Here are the available commands:")
	for _, spec := range r.Specs() {
		fmt.Fprintf(&b, "\n- **%s**: %s", spec.Usage, spec.Description)
	}
	return b.String()
}

// RegisterHelp adds the "help" command, which replies with HelpText in the requesting room.
// Call it after every module has registered.
func (r *Registry) RegisterHelp() error {
	return r.Register(Spec{
		Name:        Help,
		Description: "Display this list of commands.",
		Handler: func(_ context.Context, req chat.Request) []chat.Reply {
			return []chat.Reply{chat.ToRoom(req.RoomID, r.HelpText(), nil)}
		},
	})
}
