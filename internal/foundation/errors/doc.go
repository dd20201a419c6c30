// Package errors provides the classified error primitives used across echopipe.
//
// Every fault that escapes a pipeline stage is a *ClassifiedError carrying a
// category (which stage or subsystem failed), a severity and optional
// structured context. Soft conditions (passthrough conversions, scoring
// penalties, missing host metrics) are never errors and never reach this
// package.
//
// Example usage:
//
//	err := errors.WrapError(ioErr, errors.CategoryOutput, "write rendering").
//		WithContext("format", "html").
//		WithContext("path", path).
//		Build()
package errors
