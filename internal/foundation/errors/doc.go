// Package errors provides the classified error primitives used across contextfocus.
//
// A ClassifiedError carries a category (config, storage, transport, ...), a severity,
// a retry hint and structured context. The HTTP and CLI adapters turn these into status
// codes, exit codes and log records.
//
// Example usage:
//
//	err := errors.StorageError("read settings failed").
//		WithCause(dbErr).
//		WithContext("key", "settings").
//		Build()
package errors
