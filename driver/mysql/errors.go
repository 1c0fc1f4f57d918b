package mysql

import (
	"fmt"
)

// ErrorKind 驱动错误分类
type ErrorKind int

const (
	KindServer ErrorKind = iota
	KindOutOfRange
	KindInvalidOperation
	KindNotUpdatable
	KindTransport
	KindLocator
	KindConcurrentModification
)

var kindNames = map[ErrorKind]string{
	KindServer:                 "ServerError",
	KindOutOfRange:             "OutOfRange",
	KindInvalidOperation:       "InvalidOperation",
	KindNotUpdatable:           "NotUpdatable",
	KindTransport:              "TransportFailure",
	KindLocator:                "LocatorError",
	KindConcurrentModification: "ConcurrentModification",
}

func (k ErrorKind) String() string {
	return kindNames[k]
}

// SQL states.
const (
	StateGeneral           = "HY000"
	StateInvalidParameter  = "22023"
	StateInvalidCursor     = "24000"
	StateConnectionFailure = "08S01"
)

// Error codes the driver relies on.
const (
	ErrCodeNoDataFound uint16 = 1403
	ErrCodeDriver      uint16 = 0
)

// SQLError 带SQLSTATE与错误码的驱动错误
type SQLError struct {
	Kind    ErrorKind
	Code    uint16
	State   string
	Message string
	cause   error
}

func (e *SQLError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("(%s:%d) %s: %v", e.State, e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("(%s:%d) %s", e.State, e.Code, e.Message)
}

func (e *SQLError) Unwrap() error {
	return e.cause
}

// NewServerError 由错误包构造
func NewServerError(code uint16, state, message string) *SQLError {
	if state == "" {
		state = StateGeneral
	}
	return &SQLError{Kind: KindServer, Code: code, State: state, Message: message}
}

func NewOutOfRange(format string, args ...interface{}) *SQLError {
	return &SQLError{Kind: KindOutOfRange, State: StateInvalidParameter, Message: fmt.Sprintf(format, args...)}
}

func NewInvalidOperation(format string, args ...interface{}) *SQLError {
	return &SQLError{Kind: KindInvalidOperation, State: StateInvalidCursor, Message: fmt.Sprintf(format, args...)}
}

func NewNotUpdatable(reason string) *SQLError {
	return &SQLError{Kind: KindNotUpdatable, State: StateGeneral, Message: reason}
}

// NewTransportFailure 读包失败，附带超时相关的排查提示
func NewTransportFailure(cause error, format string, args ...interface{}) *SQLError {
	msg := fmt.Sprintf(format, args...)
	msg += " (if reading a huge result set, consider raising the server net_write_timeout and the client read timeout)"
	return &SQLError{Kind: KindTransport, State: StateConnectionFailure, Message: msg, cause: cause}
}

func NewLocatorError(format string, args ...interface{}) *SQLError {
	return &SQLError{Kind: KindLocator, State: StateGeneral, Message: fmt.Sprintf(format, args...)}
}

func NewConcurrentModification(format string, args ...interface{}) *SQLError {
	return &SQLError{Kind: KindConcurrentModification, State: StateGeneral, Message: fmt.Sprintf(format, args...)}
}

type causer interface {
	Cause() error
}

type unwrapper interface {
	Unwrap() error
}

// AsSQLError 穿透 juju/errors 与 pkg/errors 的包装找到 SQLError
func AsSQLError(err error) (*SQLError, bool) {
	for depth := 0; err != nil && depth < 64; depth++ {
		if se, ok := err.(*SQLError); ok {
			return se, true
		}
		var next error
		if c, ok := err.(causer); ok {
			next = c.Cause()
		}
		if next == nil || next == err {
			if u, ok := err.(unwrapper); ok {
				next = u.Unwrap()
			}
		}
		if next == err {
			break
		}
		err = next
	}
	return nil, false
}

func isKind(err error, kind ErrorKind) bool {
	se, ok := AsSQLError(err)
	return ok && se.Kind == kind
}

func IsOutOfRange(err error) bool             { return isKind(err, KindOutOfRange) }
func IsInvalidOperation(err error) bool       { return isKind(err, KindInvalidOperation) }
func IsNotUpdatable(err error) bool           { return isKind(err, KindNotUpdatable) }
func IsTransportFailure(err error) bool       { return isKind(err, KindTransport) }
func IsServerError(err error) bool            { return isKind(err, KindServer) }
func IsLocatorError(err error) bool           { return isKind(err, KindLocator) }
func IsConcurrentModification(err error) bool { return isKind(err, KindConcurrentModification) }

// IsNoDataFound 读LOB结束信号，按错误码判断而非消息文本
func IsNoDataFound(err error) bool {
	se, ok := AsSQLError(err)
	return ok && se.Kind == KindServer && se.Code == ErrCodeNoDataFound
}
