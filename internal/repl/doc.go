// Package repl runs dotmod session commands, either interactively with line
// editing and completion or line by line from a script.
//
// Grammar, one command per line:
//
//	:load NAME        :unload NAME      :loaded [FILTER]
//	:available [F]    :defs FILE        :commands
//	:help             :quit
//	COMMAND ARGS...   dispatch a bound command
package repl
