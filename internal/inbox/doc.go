// Package inbox watches a directory for request files and hands each parsed
// request to a handler. Handled files are moved to processed/ or failed/ so a
// restart does not execute them twice.
package inbox
