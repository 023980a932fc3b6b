// Package cli provides the command-line interface for decklingo. It wires
// cobra commands, flag parsing and viper configuration loading.
package cli
