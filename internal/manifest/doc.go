// Package manifest parses module backing files into a format-agnostic
// Manifest.
//
// Two formats are understood:
//
//   - HCL manifests (".hcl"): a top-level `description` attribute plus
//     `function "<name>" {...}` and `alias "<name>" {...}` blocks. Functions
//     name either a compiled-in handler or an inline shell script.
//
//   - Shell files (any other extension): plain text scanned line by line for
//     `name() { # description`, `alias name=value # description` and a
//     `Description:` marker. The function bodies stay in the file and are
//     run through the shell.
//
// Parsing never executes anything; it only describes what a module would
// bind when loaded.
package manifest
