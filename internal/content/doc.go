// Package content defines the values that flow through the pipeline: requests,
// generated content, rendering sets and their formats.
package content
