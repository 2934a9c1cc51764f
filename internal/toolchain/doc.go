// Package toolchain spawns external tools and compiles sources into objects.
//
// The process boundary is the Runner interface. ExecRunner runs real
// processes with os/exec; tests substitute a scripted runner. Every process
// is synchronous: Run returns only after the process has exited.
//
// Exit status is the only success signal a tool provides. Execute turns a
// non-zero exit into a *CommandError so that callers fail fast instead of
// continuing with missing or stale outputs.
package toolchain
