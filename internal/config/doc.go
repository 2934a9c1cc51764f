// Package config defines the build configuration for one imgforge invocation.
//
// A Config is constructed once at startup, either from Default() or by
// loading an imgforge.cue file with Load, and is then passed by value into
// every stage. Nothing mutates it afterwards.
//
// All directory and file paths in a Config are relative to Root. Commands
// are spawned with Root as their working directory so the command lines in
// logs match what an operator would type from the project root.
package config
