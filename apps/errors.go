package apps

// ArgumentError reports an invalid command-line argument.
type ArgumentError struct {
	Arg string
	msg string
}

func NewArgumentError(arg, msg string) *ArgumentError {
	return &ArgumentError{Arg: arg, msg: msg}
}

func (err *ArgumentError) Error() string {
	return "-" + err.Arg + ": " + err.msg
}
