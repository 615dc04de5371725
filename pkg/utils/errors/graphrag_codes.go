package errors

import "google.golang.org/grpc/codes"

// GraphRAG 服务错误码，服务代码 20。
var (
	// 请求参数 (01)
	ErrGraphRAGInvalidRequest = Register(New(MakeCode(ServiceGraphRAG, CategoryRequest, 1), 400, codes.InvalidArgument, "Invalid chat request", "对话请求参数无效"))
	ErrGraphRAGEmptyQuery     = Register(New(MakeCode(ServiceGraphRAG, CategoryRequest, 2), 400, codes.InvalidArgument, "Query must not be empty", "问题不能为空"))

	// 冲突 (05)
	ErrGraphRAGSyncRunning = Register(New(MakeCode(ServiceGraphRAG, CategoryConflict, 1), 409, codes.Aborted, "A sync job is already running", "同步任务正在执行"))

	// 内部 (07)
	ErrGraphRAGRunFailed  = Register(New(MakeCode(ServiceGraphRAG, CategoryInternal, 1), 500, codes.Internal, "Conversation run failed", "对话流程执行失败"))
	ErrGraphRAGSyncFailed = Register(New(MakeCode(ServiceGraphRAG, CategoryInternal, 2), 500, codes.Internal, "Knowledge base sync failed", "知识库同步失败"))
	ErrGraphRAGStreamFail = Register(New(MakeCode(ServiceGraphRAG, CategoryInternal, 3), 500, codes.Internal, "Streaming is not supported", "不支持流式输出"))

	// 外部依赖 (10)
	ErrGraphRAGUnavailable = Register(New(MakeCode(ServiceGraphRAG, CategoryNetwork, 1), 503, codes.Unavailable, "GraphRAG service unavailable", "GraphRAG 服务不可用"))

	// 超时 (11)
	ErrGraphRAGTimeout = Register(New(MakeCode(ServiceGraphRAG, CategoryTimeout, 1), 408, codes.DeadlineExceeded, "Chat timeout", "对话超时"))
)
