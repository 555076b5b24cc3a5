package shell

// Source builds a command that sources file in shellPath and exits. It is
// the import check for shell-format modules: any top-level failure in the
// file makes the command exit non-zero.
func Source(shellPath, file string) *Command {
	return &Command{
		Path: shellPath,
		Args: []string{"-c", `. "$0"`, file},
	}
}

// Function builds a command that sources file and then calls fn with args.
func Function(shellPath, file, fn string, args []string) *Command {
	return &Command{
		Path: shellPath,
		Args: append([]string{"-c", `. "$0" && "$@"`, file, fn}, args...),
	}
}

// Script builds a command that runs an inline script body. name becomes $0
// inside the script and args become "$@".
func Script(shellPath, name, body string, args []string) *Command {
	return &Command{
		Path: shellPath,
		Args: append([]string{"-c", body, name}, args...),
	}
}

// Expansion builds a command that runs a shortcut's command line with the
// caller's arguments appended.
func Expansion(shellPath, name, commandLine string, args []string) *Command {
	return Script(shellPath, name, commandLine+` "$@"`, args)
}
