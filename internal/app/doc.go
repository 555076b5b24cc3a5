// Package app wires a dotmod session together: the logger, the handler
// catalog, the dispatch table and the module loader. It is decoupled from
// any specific entrypoint like the CLI or the interactive shell.
package app
