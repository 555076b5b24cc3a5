// Package registry records which modules are loaded into the running
// session.
//
// The Registry is an ordered set of module names. It is created empty when a
// session starts, mutated only by the loader, and discarded when the session
// ends. Enumeration follows insertion order, but membership is the only
// thing callers may rely on.
//
// A Registry is not safe for concurrent use; the session owns it from a
// single control thread.
package registry
