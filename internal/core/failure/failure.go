package failure

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Failure is an error carrying a Kind and the stack at which it was created.
type Failure struct {
	kind    *Kind
	message string
	cause   error
	stack   []string
	value   any
}

func newFailure(kind *Kind, message string, cause error, skip int) *Failure {
	return &Failure{
		kind:    kind,
		message: message,
		cause:   cause,
		stack:   callers(skip),
	}
}

// Error returns the message, followed by the cause when one is present.
func (f *Failure) Error() string {
	if f.cause != nil && f.message != "" {
		return fmt.Sprintf("%s: %v", f.message, f.cause)
	}
	if f.cause != nil {
		return f.cause.Error()
	}
	return f.message
}

// Kind returns the failure's kind.
func (f *Failure) Kind() *Kind { return f.kind }

// Message returns the message without the cause.
func (f *Failure) Message() string { return f.message }

// Stack returns the frames captured when the failure was created, innermost first.
func (f *Failure) Stack() []string {
	if f.stack == nil {
		return nil
	}
	out := make([]string, len(f.stack))
	copy(out, f.stack)
	return out
}

// PanicValue returns the recovered value for failures built by FromPanic.
func (f *Failure) PanicValue() any { return f.value }

// Unwrap returns the cause for standard library compatibility.
func (f *Failure) Unwrap() error { return f.cause }

// Is makes errors.Is(f, kind) true for the failure's kind and its ancestors.
func (f *Failure) Is(target error) bool {
	k, ok := target.(*Kind)
	if !ok {
		return false
	}
	return f.kind.IsA(k)
}

// FromPanic converts a recovered panic value into a failure of kind Panic.
// It must be called from the deferred function that recovered v: the stack
// starts at the frame that panicked.
func FromPanic(v any) *Failure {
	f := &Failure{kind: Panic, value: v, stack: panicStack()}
	if err, ok := v.(error); ok {
		f.cause = err
	} else {
		f.message = fmt.Sprint(v)
	}
	return f
}

// KindName returns a stable name for the kind of err: the Kind name of the
// outermost Failure, otherwise the Go type name.
func KindName(err error) string {
	if err == nil {
		return ""
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.kind.name
	}
	return fmt.Sprintf("%T", err)
}

// StackOf returns the stack of the outermost Failure in err's chain, if any.
func StackOf(err error) []string {
	var f *Failure
	if errors.As(err, &f) {
		return f.Stack()
	}
	return nil
}

func callers(skip int) []string {
	return formatFrames(frames(skip))
}

// panicStack returns the frames below runtime.gopanic, skipping the runtime
// frames that raised the panic. Outside a panic it returns the caller's stack.
func panicStack() []string {
	fs := frames(3)
	for i, frame := range fs {
		if frame.Function != "runtime.gopanic" {
			continue
		}
		j := i + 1
		for j < len(fs) && isRuntimeFrame(fs[j]) {
			j++
		}
		return formatFrames(fs[j:])
	}
	return formatFrames(fs)
}

func frames(skip int) []runtime.Frame {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)
	iter := runtime.CallersFrames(pcs[:n])

	var out []runtime.Frame
	for {
		frame, more := iter.Next()
		out = append(out, frame)
		if !more {
			break
		}
	}
	return out
}

func isRuntimeFrame(f runtime.Frame) bool {
	return strings.HasPrefix(f.Function, "runtime.") || strings.HasPrefix(f.Function, "internal/runtime/")
}

// formatFrames renders frames as "file:line function". No goroutine IDs or
// argument values are included, so the same site always yields the same text.
func formatFrames(fs []runtime.Frame) []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, fmt.Sprintf("%s:%d %s", f.File, f.Line, f.Function))
	}
	return out
}
