package errs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

const (
	ValidationError     = 400
	UnauthorizedError   = 401
	NotFoundError       = 404
	ServerInternalError = 500
	StoreError          = 503
)

var (
	ErrValidation = NewCodeError(ValidationError, "invalid request")
	ErrAuth       = NewCodeError(UnauthorizedError, "unauthorized")
	ErrNotFound   = NewCodeError(NotFoundError, "not found")
	ErrInternal   = NewCodeError(ServerInternalError, "internal error")
	ErrStore      = NewCodeError(StoreError, "store unavailable")
)

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  msg,
	}
}

// CodeError carries a stable numeric code that the transport layers map to
// their own status space (HTTP status, ack/nak).
type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`

	cause error
}

func (e *CodeError) clone() *CodeError {
	return &CodeError{
		Code:   e.Code,
		Msg:    e.Msg,
		Detail: e.Detail,
		cause:  e.cause,
	}
}

func (e *CodeError) WithDetail(detail string) *CodeError {
	ret := e.clone()
	if ret.Detail == "" {
		ret.Detail = detail
	} else {
		ret.Detail += ", " + detail
	}
	return ret
}

// WrapMsg returns a copy of e with msg and kv appended to the detail and a
// stack trace attached.
func (e *CodeError) WrapMsg(msg string, kv ...any) error {
	ret := e.clone()
	if msg != "" || len(kv) > 0 {
		ret = ret.WithDetail(toString(msg, kv))
	}
	return pkgerrors.WithStack(ret)
}

// WrapErr is WrapMsg that keeps cause reachable through errors.Unwrap.
func (e *CodeError) WrapErr(cause error, msg string, kv ...any) error {
	if cause == nil {
		return nil
	}
	ret := e.clone()
	ret.cause = cause
	detail := toString(msg, kv)
	if detail != "" {
		detail += ": "
	}
	ret = ret.WithDetail(detail + cause.Error())
	return pkgerrors.WithStack(ret)
}

func (e *CodeError) Unwrap() error { return e.cause }

// Is matches any CodeError carrying the same code.
func (e *CodeError) Is(target error) bool {
	var t *CodeError
	if !errors.As(target, &t) {
		return false
	}
	if e == nil || t == nil {
		return e == t
	}
	return e.Code == t.Code
}

const initialCapacity = 3

func (e *CodeError) Error() string {
	v := make([]string, 0, initialCapacity)
	v = append(v, strconv.Itoa(e.Code), e.Msg)

	if e.Detail != "" {
		v = append(v, e.Detail)
	}

	return strings.Join(v, " ")
}

// Code returns the code of the first CodeError in err's chain, or
// ServerInternalError when there is none.
func Code(err error) int {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ServerInternalError
}

// Unpack returns the first CodeError in err's chain. Errors without one are
// reported as ErrInternal carrying err's text.
func Unpack(err error) *CodeError {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce
	}
	return ErrInternal.WithDetail(err.Error())
}

func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return pkgerrors.WithStack(err)
}

func WrapMsg(err error, msg string, kv ...any) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(err, toString(msg, kv))
}

func toString(msg string, kv []any) string {
	if len(kv) == 0 {
		return msg
	}
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		if sb.Len() > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprint(kv[i]))
		sb.WriteString("=")
		if i+1 < len(kv) {
			sb.WriteString(fmt.Sprint(kv[i+1]))
		} else {
			sb.WriteString("MISSING")
		}
	}
	return sb.String()
}
