// Package envsnap captures the handful of environment variables hyprshutdown
// needs to talk to the compositor and writes them back into a process image.
//
// A [Snapshot] is taken once, before the process detaches, and is re-applied
// at every stage boundary. Variables that were absent at capture time stay
// absent: restoring never invents a value.
package envsnap

import (
	"os"
	"strings"
)

// ///////////////////////////////////////////////
// Variable Names
// ///////////////////////////////////////////////

// Tracked environment variable names.
const (
	Signature  = "HYPRLAND_INSTANCE_SIGNATURE"
	RuntimeDir = "XDG_RUNTIME_DIR"
	Display    = "WAYLAND_DISPLAY"
)

// Names returns the tracked variable names in capture order.
func Names() []string {
	return []string{Signature, RuntimeDir, Display}
}

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Value is one captured variable. Set is false when the variable was absent.
type Value struct {
	Val string
	Set bool
}

// Present reports whether the value should be written back on restore.
// Absent and empty values are both skipped.
func (v Value) Present() bool {
	return v.Set && v.Val != ""
}

// Snapshot holds the captured compositor variables. It is immutable after
// capture; all methods use value receivers.
type Snapshot struct {
	// Signature is HYPRLAND_INSTANCE_SIGNATURE.
	Signature Value
	// RuntimeDir is XDG_RUNTIME_DIR.
	RuntimeDir Value
	// Display is WAYLAND_DISPLAY.
	Display Value
}

// ///////////////////////////////////////////////
// Capture
// ///////////////////////////////////////////////

// Capture reads the tracked variables from the current process environment.
func Capture() Snapshot {
	return CaptureFrom(os.LookupEnv)
}

// CaptureFrom reads the tracked variables through lookup, which has the
// signature of [os.LookupEnv].
func CaptureFrom(lookup func(string) (string, bool)) Snapshot {
	get := func(name string) Value {
		v, ok := lookup(name)
		return Value{Val: v, Set: ok}
	}
	return Snapshot{
		Signature:  get(Signature),
		RuntimeDir: get(RuntimeDir),
		Display:    get(Display),
	}
}

// ///////////////////////////////////////////////
// Restore
// ///////////////////////////////////////////////

// entry pairs a tracked variable name with its captured value.
type entry struct {
	name string
	val  Value
}

// entries returns the captured values in capture order.
func (s Snapshot) entries() []entry {
	return []entry{
		{Signature, s.Signature},
		{RuntimeDir, s.RuntimeDir},
		{Display, s.Display},
	}
}

// Restore writes every present field into the process environment,
// overwriting existing values. Calling it twice is harmless.
func (s Snapshot) Restore() error {
	return s.RestoreTo(os.Setenv)
}

// RestoreTo writes every present field through setenv. It stops at the first
// error.
func (s Snapshot) RestoreTo(setenv func(key, value string) error) error {
	for _, e := range s.entries() {
		if !e.val.Present() {
			continue
		}
		if err := setenv(e.name, e.val.Val); err != nil {
			return err
		}
	}
	return nil
}

// Apply returns a copy of environ (in [os.Environ] form) with every present
// field written over the matching KEY=value entry, appending the entry when
// it is missing. Entries for other variables, and tracked variables that were
// absent at capture, are left as they are.
func (s Snapshot) Apply(environ []string) []string {
	out := make([]string, 0, len(environ)+3)
	written := map[string]bool{}
	present := map[string]string{}
	for _, e := range s.entries() {
		if e.val.Present() {
			present[e.name] = e.val.Val
		}
	}

	for _, kv := range environ {
		key, _, _ := strings.Cut(kv, "=")
		val, ok := present[key]
		if !ok {
			out = append(out, kv)
			continue
		}
		if written[key] {
			continue
		}
		out = append(out, key+"="+val)
		written[key] = true
	}

	for _, name := range Names() {
		if val, ok := present[name]; ok && !written[name] {
			out = append(out, name+"="+val)
		}
	}
	return out
}

// HasSignature reports whether a non-empty compositor signature was captured.
func (s Snapshot) HasSignature() bool {
	return s.Signature.Present()
}
