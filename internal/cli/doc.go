// Package cli implements the fleetwatch command-line interface.
//
// Each Cobra command parses its flags, builds an environment (config,
// session, API client and prefs) and hands off to a plain function that
// takes a context, a writer and a client. Those functions hold the actual
// behavior and are what the tests call.
//
// # Command Structure
//
//	fleetwatch dashboard            - Full-screen dashboard (agents, monitors, logs)
//	fleetwatch watch <agent>        - Stream one agent's metrics to stdout
//	fleetwatch agents [list|show|restart|processes|history]
//	fleetwatch bookmarks [list|show|add|edit|rm|check|prefetch]
//	fleetwatch alerts [list|add|rm|enable|disable]
//	fleetwatch logs                 - Search and follow agent logs
//	fleetwatch login                - Save the backend URL and token
//	fleetwatch prefs [show|set]     - Display preferences
//	fleetwatch demo                 - Run a local demo backend
//
// # Output
//
// Every listing and mutation goes through printResult, so --json swaps the
// human rendering for a single JSON envelope on stdout. Errors use the same
// envelope in machine mode, with a stable code derived from the error's
// category.
//
// # Flag Handling
//
// Global flags (--config, --server, --token, --log-file, --debug,
// --no-color, --json) live on the root command. --server and --token win
// over the config file and FLEETWATCH_* environment variables.
package cli
