package apperrors

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrNoDataset             = errors.New("no dataset loaded")
	ErrNotReadOnly           = errors.New("only read-only SELECT queries are allowed")
	ErrUnsafeQuery           = errors.New("unsafe query")
	ErrUnsupportedDatasource = errors.New("unsupported datasource type")
	ErrUnsupportedProvider   = errors.New("unsupported llm provider")
	ErrInvalidQuestion       = errors.New("question must not be empty")
)
