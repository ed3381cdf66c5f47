package errors

import (
	"errors"
	"fmt"

	"github.com/iceymoss/kilovolt/pkg/xerr"
)

type CodeMsg struct {
	Code int    // 错误码, see pkg/xerr
	Msg  string // 错误消息, safe to show to clients
	Err  error  // 原始错误
}

// 实现 error 接口
func (e *CodeMsg) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("code=%d, msg=%s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("code=%d, msg=%s", e.Code, e.Msg)
}

func (e *CodeMsg) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the response status for the error's code.
func (e *CodeMsg) HTTPStatus() int {
	return xerr.HTTPStatus(e.Code)
}

// New 构造函数
func New(code int, msg string) error {
	return &CodeMsg{Code: code, Msg: msg}
}

// Wrap attaches code and msg to a lower level cause.
func Wrap(code int, msg string, err error) error {
	return &CodeMsg{Code: code, Msg: msg, Err: err}
}

// From extracts the first CodeMsg in err's chain. Errors without one are
// reported as internal server errors so callers never leak driver text.
func From(err error) *CodeMsg {
	var cm *CodeMsg
	if errors.As(err, &cm) {
		return cm
	}
	return &CodeMsg{Code: xerr.ErrInternalServer, Msg: "internal server error", Err: err}
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code int) bool {
	var cm *CodeMsg
	return errors.As(err, &cm) && cm.Code == code
}
