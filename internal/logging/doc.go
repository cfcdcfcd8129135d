// Package logging configures pantry's slog output.
//
// Without --debug, logs are text on stderr at the configured level. With
// --debug, JSON logs at debug level are also written to a size-rotated file
// under the user's state directory, which `pantry logs` can tail.
package logging
