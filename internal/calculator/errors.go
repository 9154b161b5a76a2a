package calculator

import "fmt"

// DecodeError reports a payload that does not match the input schema of the
// requested tool.
type DecodeError struct {
	Tool string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %q: %v", e.Tool, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// UnknownToolError reports an invocation of a tool that was never registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// ArithmeticError reports a result that does not fit in an int32.
type ArithmeticError struct {
	Op   string
	A, B int32
}

func (e *ArithmeticError) Error() string {
	return fmt.Sprintf("integer overflow: %d %s %d does not fit in int32", e.A, e.Op, e.B)
}
