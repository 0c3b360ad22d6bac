// Package cli constructs the agentready command-line interface, wiring the
// Cobra command hierarchy, the Viper backed configuration loader, structured
// logging and the subprocess safety facade shared by the run, validate-path,
// sanitize and config commands.
package cli
