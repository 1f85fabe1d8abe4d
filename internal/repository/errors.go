package repository

import "errors"

// 通用的存储库错误
var (
	// ErrDuplicateEntry 表示房间码已被占用
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
)
