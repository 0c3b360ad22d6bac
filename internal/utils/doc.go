// Package utils holds the command line plumbing shared by the agentready commands.
//
// ConfigurationLoader layers embedded defaults, configuration files and
// AGENTREADY_ environment variables through Viper; LoggerFactory builds zap
// loggers in structured or console form.
package utils
