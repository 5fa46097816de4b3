package core

// Exit codes for the application.
// Signal-based exits follow the Unix convention of 128 + signal number.
const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1

	// ExitCodeConfig is EX_CONFIG from sysexits.h.
	ExitCodeConfig = 78

	ExitCodeSIGINT  = 130
	ExitCodeSIGTERM = 143
)

// ExitCodeFor maps a startup error to an exit code.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	if _, ok := IsConfigError(err); ok {
		return ExitCodeConfig
	}
	return ExitCodeError
}

// ExitCodeName returns a human-readable name for an exit code.
func ExitCodeName(code int) string {
	switch code {
	case ExitCodeSuccess:
		return "success"
	case ExitCodeError:
		return "error"
	case ExitCodeConfig:
		return "configuration error"
	case ExitCodeSIGINT:
		return "interrupted (SIGINT)"
	case ExitCodeSIGTERM:
		return "terminated (SIGTERM)"
	default:
		return "unknown"
	}
}
