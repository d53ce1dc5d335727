// Package types defines the cabinet record types, resource names, runtime
// configuration and the standard configuration errors.
package types
