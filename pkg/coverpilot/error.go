package coverpilot

const (
	GeneralErrorExitCode     = 1  // bash general error exit code
	GenerationErrorExitCode  = 11 // test generation failed exit code
	LowCoverageErrorExitCode = 12 // coverage is lower than the threshold exit code
)

// CoverPilotError carries the detail error information for coverpilot error
type CoverPilotError struct {
	ExitCode   int
	Err        error
	ErrMessage string
}

func WrapErrorWithCode(err error, exitCode int, errMessage string) *CoverPilotError {
	return &CoverPilotError{
		ExitCode:   exitCode,
		Err:        err,
		ErrMessage: errMessage,
	}
}

func WrapError(err error, errMessage string) *CoverPilotError {
	return WrapErrorWithCode(err, GeneralErrorExitCode, errMessage)
}

func (e *CoverPilotError) Error() string {
	return e.Err.Error()
}
