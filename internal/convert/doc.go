// Package convert translates a rendering between the built-in formats.
//
// Every pair of distinct formats is converted directly; nothing is chained
// through an intermediate format. A conversion never fails: when the input
// cannot be read the body is returned unchanged and the Result says so.
package convert
