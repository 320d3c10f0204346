// Package utils holds small helpers shared by the two-factor packages.
//
// MaskEmail is used whenever a recovery or identity address is echoed back to a caller
// or written to a log line, so the full address never leaves the core.
package utils
