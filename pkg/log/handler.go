package log

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// appendFields writes alternating key/value pairs onto a zerolog context or
// event. A trailing key without a value is logged under "!BADKEY".
func appendFields[T interface {
	Interface(string, interface{}) T
	Object(string, zerolog.LogObjectMarshaler) T
	AnErr(string, error) T
}](dst T, fields []any) T {
	for i := 0; i < len(fields); i += 2 {
		if i+1 >= len(fields) {
			dst = dst.Interface("!BADKEY", fields[i])
			break
		}
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case zerolog.LogObjectMarshaler:
			dst = dst.Object(key, v)
		case error:
			dst = dst.AnErr(key, v)
		default:
			dst = dst.Interface(key, v)
		}
	}
	return dst
}

// withError attaches err and its stack trace to the event.
func withError(e *zerolog.Event, err error) *zerolog.Event {
	e = e.Err(err)
	if st := extractStacktrace(err); st != "" {
		e = e.Str(StacktraceKey, st)
	}
	var typed zerolog.LogObjectMarshaler
	if errors.As(err, &typed) {
		e = e.Object(ErrorTypeKey, typed)
	}
	return e
}

// extractStacktrace returns the first safe detail recorded by
// cockroachdb/errors, which for WithStack is the formatted stack.
func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}
