// Package generator produces the canonical rendering for a request.
//
// Output is built from fixed templates and is fully deterministic: the same
// request and options always yield the same body.
package generator
