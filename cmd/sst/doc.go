// Package main hosts the sst CLI entrypoint and command graph.
//
// The Cobra-based command tree reads and writes scan protocols, lists the
// configured projects, scaffolds configuration, and runs archive jobs. It
// centralizes configuration resolution and logging setup so subcommands can
// focus on user experience; the archiving itself lives in internal/archive.
package main
