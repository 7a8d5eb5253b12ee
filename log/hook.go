package log

import (
	"runtime"
	"strings"

	"github.com/rs/zerolog"
)

const modulePrefix = "github.com/xeptore/rockar/"

// stackHook attaches the in-module call stack to error and higher level events.
type stackHook struct{}

func (h *stackHook) Run(e *zerolog.Event, level zerolog.Level, _ string) {
	if level < zerolog.ErrorLevel || level == zerolog.NoLevel {
		return
	}

	frames := callers(2)
	if len(frames) == 0 {
		return
	}

	arr := zerolog.Arr()
	for _, f := range frames {
		arr.Dict(zerolog.Dict().
			Int("line", f.Line).
			Str("file", f.File).
			Str("function", f.Function),
		)
	}
	e.Array("stack", arr)
}

func callers(skip int) []runtime.Frame {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(skip, pcs[:])
	if n == 0 {
		return nil
	}

	var (
		it  = runtime.CallersFrames(pcs[:n])
		out = make([]runtime.Frame, 0, n)
	)
	for {
		frame, more := it.Next()
		if strings.HasPrefix(frame.Function, modulePrefix) && !strings.HasPrefix(frame.Function, modulePrefix+"log.") {
			out = append(out, frame)
		}
		if !more {
			break
		}
	}

	return out
}
