package repository

import "errors"

// 仓库层哨兵错误（供上层 errors.Is 判断）
var (
	// ErrNotFound 目标记录不存在
	ErrNotFound = errors.New("not found")

	// ErrAlreadyAcknowledged 报警已被确认过（确认操作只允许 false → true 一次）
	ErrAlreadyAcknowledged = errors.New("alert already acknowledged")
)
