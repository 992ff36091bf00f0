package errors

// 预定义哨兵错误（用于 errors.Is 比较，按错误码匹配）
var (
	ErrMalformedFrame  = New(CodeMalformedFrame, "malformed frame")
	ErrUnknownFormat   = New(CodeUnknownFormat, "unknown serialization format")
	ErrUnknownCommand  = New(CodeUnknownCommand, "unknown command")
	ErrFrameTooLarge   = New(CodeFrameTooLarge, "frame payload exceeds 65535 bytes")
	ErrProtocolError   = New(CodeProtocolError, "protocol violation")
	ErrSerializeFailed = New(CodeSerializeFailed, "serialization failed")

	ErrPeerReset    = New(CodePeerReset, "connection reset by peer")
	ErrPeerClosed   = New(CodePeerClosed, "connection closed by peer")
	ErrSlowConsumer = New(CodeSlowConsumer, "subscriber output buffer exceeded")
	ErrConnLimit    = New(CodeConnLimit, "connection limit reached")

	ErrInvalidParam  = New(CodeInvalidParam, "invalid parameter")
	ErrConfigError   = New(CodeConfigError, "configuration error")
	ErrNotFound      = New(CodeNotFound, "resource not found")
	ErrRateLimited   = New(CodeRateLimited, "rate limit exceeded")
	ErrInternal      = New(CodeInternal, "internal error")
	ErrNetworkError  = New(CodeNetworkError, "network error")
	ErrTimeout       = New(CodeTimeout, "operation timeout")
	ErrUnavailable   = New(CodeUnavailable, "service unavailable")
	ErrServiceClosed = New(CodeServiceClosed, "service closed")
	ErrNotSupported  = New(CodeNotSupported, "not supported on this platform")
)

// IsDecodeError 检查是否为帧解码错误
func IsDecodeError(err error) bool {
	return IsCode(err, CodeMalformedFrame) ||
		IsCode(err, CodeUnknownFormat) ||
		IsCode(err, CodeUnknownCommand) ||
		IsCode(err, CodeFrameTooLarge)
}

// IsDisconnect 检查是否为对端断开
func IsDisconnect(err error) bool {
	return IsCode(err, CodePeerReset) || IsCode(err, CodePeerClosed)
}

// IsConnectionFatal 检查错误是否需要断开连接
// 解码错误、协议违规、对端断开、慢消费者都只影响当前连接
func IsConnectionFatal(err error) bool {
	if err == nil {
		return false
	}
	return IsDecodeError(err) ||
		IsDisconnect(err) ||
		IsCode(err, CodeProtocolError) ||
		IsCode(err, CodeSlowConsumer)
}
