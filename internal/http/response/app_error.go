package response

// AppError 统一错误包装
type AppError struct {
	Code    int
	Kind    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError 包装错误
func WrapError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithKind 附加错误类别（返回给调用方的 data.kind）
func (e *AppError) WithKind(kind string) *AppError {
	if e == nil {
		return nil
	}
	e.Kind = kind
	return e
}
