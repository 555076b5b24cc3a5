// Package loader resolves module names to backing files, binds what they
// declare into the session's dispatch table, and keeps the registry of
// loaded modules in step. It also answers the introspection questions:
// which modules are loaded, which are available, and what a backing file
// defines.
//
// Every failure is returned as an *Error carrying a Kind, so callers can map
// it to an exit code or a message without string matching. Problems that do
// not stop an operation (a missing backing file on unload, a command taken
// over by another module) are logged as warnings instead.
package loader
