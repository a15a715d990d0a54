// Package httperr はパイプライン内で発生したエラーにHTTPステータスを持たせます。
// 各ステージは c.Error() で登録し、エラー描画ステージがまとめて応答します。
package httperr

import (
	"net/http"

	"github.com/pkg/errors"
)

// Error はステータスコード付きのリクエストエラーです。
type Error struct {
	Status  int
	Message string
	// Expose が true の場合、本番環境でも Message をそのまま返します。
	Expose bool

	cause error
}

// New はスタックトレース付きの Error を作成します。
func New(status int, message string) *Error {
	return &Error{
		Status:  status,
		Message: message,
		cause:   errors.New(message),
	}
}

// Wrap は既存のエラーにステータスを付与します。
func Wrap(err error, status int, message string) *Error {
	return &Error{
		Status:  status,
		Message: message,
		cause:   errors.WithStack(err),
	}
}

// NotFound は未定義パスに対するエラーです。
func NotFound() *Error {
	return New(http.StatusNotFound, "Not Found")
}

// TooManyRequests はレート制限超過時のエラーです。利用者に文言を返します。
func TooManyRequests(message string) *Error {
	e := New(http.StatusTooManyRequests, message)
	e.Expose = true
	return e
}

func (e *Error) Error() string {
	if e.cause != nil && e.cause.Error() != e.Message {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Cause は元になったエラー（スタック付き）を返します。
func (e *Error) Cause() error {
	return e.cause
}

// StatusOf はエラーに対応するHTTPステータスを返します。Error 以外は500です。
func StatusOf(err error) int {
	var he *Error
	if errors.As(err, &he) && he.Status >= 400 {
		return he.Status
	}
	return http.StatusInternalServerError
}
