package biz

import "errors"

var (
	errNoJSONObject = errors.New("no JSON object found in model reply")

	// ErrSyncRunning 已有同步任务在执行。
	ErrSyncRunning = errors.New("sync already running")
)
