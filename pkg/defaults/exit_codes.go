package defaults

// Exit codes for the CLI.
const (
	ExitSuccess       = 0 // Request completed
	ExitNetworkError  = 1 // A network-origin exception was raised
	ExitUserError     = 2 // Invalid arguments or configuration
	ExitInternalError = 3 // Any other raised exception
)
