package cmd

import (
	"os"
	"slices"
	"strings"

	"mergesync/internal/config"
	"mergesync/internal/model"

	"github.com/spf13/cobra"
)

type commandFactory func(a *app) *cobra.Command

type registry struct {
	names     []string
	factories map[string]commandFactory
}

func (r *registry) register(name string, f commandFactory) {
	if r.factories == nil {
		r.factories = make(map[string]commandFactory)
	}
	if _, dup := r.factories[name]; dup {
		panic("command registered twice: " + name)
	}
	r.names = append(r.names, name)
	r.factories[name] = f
}

func (r *registry) build(a *app) []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(r.names))
	for _, name := range r.names {
		cmds = append(cmds, r.factories[name](a))
	}
	return cmds
}

// builtins lists every command the binary ships with.
func builtins() *registry {
	r := &registry{}
	r.register("sync", newSyncCmd)
	r.register("watch", newWatchCmd)
	r.register("serve", newServeCmd)
	r.register("status", newStatusCmd)
	r.register("stop", newStopCmd)
	r.register("history", newHistoryCmd)
	r.register("deploy", newDeployCmd)
	return r
}

// builtinNames returns every name and alias cobra would dispatch on,
// including its own help and completion commands.
func builtinNames(root *cobra.Command) []string {
	names := []string{"help", "completion"}
	for _, c := range root.Commands() {
		names = append(names, c.Name())
		names = append(names, c.Aliases...)
	}
	return names
}

// expandAliases replaces a leading user alias with its expansion. Aliases
// come from the sync config named by --config/-c or MERGESYNC_CONFIG.
func expandAliases(args []string, reserved []string) ([]string, error) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") || slices.Contains(reserved, args[0]) {
		return args, nil
	}

	path := configFlag(args)
	if path == "" {
		path = envConfig()
	}
	if path == "" {
		return args, nil
	}

	cfg, err := config.LoadSyncConfig(path)
	if err != nil {
		return nil, err
	}

	return applyAlias(args, cfg.Aliases, reserved)
}

func applyAlias(args []string, aliases map[string][]string, reserved []string) ([]string, error) {
	for name := range aliases {
		if slices.Contains(reserved, name) {
			return nil, model.ConfigErrorf("alias %q shadows a built-in command", name)
		}
	}

	expansion, ok := aliases[args[0]]
	if !ok {
		return args, nil
	}

	out := make([]string, 0, len(expansion)+len(args)-1)
	out = append(out, expansion...)
	out = append(out, args[1:]...)
	return out, nil
}

func configFlag(args []string) string {
	for i, arg := range args {
		switch {
		case arg == "--":
			return ""
		case arg == "--config" || arg == "-c":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(arg, "--config="):
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	return ""
}

func envConfig() string {
	return os.Getenv("MERGESYNC_CONFIG")
}
