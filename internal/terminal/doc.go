// Package terminal interprets the options given to the executable before the
// application starts. Tokens it does not recognise are recorded and skipped,
// never reported as errors.
package terminal
