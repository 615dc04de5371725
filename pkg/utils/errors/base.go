package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// OK represents a successful operation.
var OK = Register(New(0, http.StatusOK, codes.OK, "Success", "成功"))

// 通用错误
var (
	ErrBadRequest         = Register(New(MakeCode(ServiceCommon, CategoryRequest, 0), http.StatusBadRequest, codes.InvalidArgument, "Bad request", "请求错误"))
	ErrInvalidParam       = Register(New(MakeCode(ServiceCommon, CategoryRequest, 1), http.StatusBadRequest, codes.InvalidArgument, "Invalid parameter", "参数无效"))
	ErrValidationFailed   = Register(New(MakeCode(ServiceCommon, CategoryRequest, 4), http.StatusBadRequest, codes.InvalidArgument, "Validation failed", "验证失败"))
	ErrNotFound           = Register(New(MakeCode(ServiceCommon, CategoryResource, 0), http.StatusNotFound, codes.NotFound, "Resource not found", "资源不存在"))
	ErrRouteNotFound      = Register(New(MakeCode(ServiceCommon, CategoryResource, 4), http.StatusNotFound, codes.NotFound, "Route not found", "路由不存在"))
	ErrConflict           = Register(New(MakeCode(ServiceCommon, CategoryConflict, 0), http.StatusConflict, codes.Aborted, "Resource conflict", "资源冲突"))
	ErrInternal           = Register(New(MakeCode(ServiceCommon, CategoryInternal, 0), http.StatusInternalServerError, codes.Internal, "Internal server error", "服务器内部错误"))
	ErrPanic              = Register(New(MakeCode(ServiceCommon, CategoryInternal, 2), http.StatusInternalServerError, codes.Internal, "Internal panic recovered", "服务内部异常"))
	ErrServiceUnavailable = Register(New(MakeCode(ServiceCommon, CategoryNetwork, 1), http.StatusServiceUnavailable, codes.Unavailable, "Service unavailable", "服务不可用"))
	ErrRequestTimeout     = Register(New(MakeCode(ServiceCommon, CategoryTimeout, 1), http.StatusRequestTimeout, codes.DeadlineExceeded, "Request timeout", "请求超时"))
	ErrConfigInvalid      = Register(New(MakeCode(ServiceCommon, CategoryConfig, 2), http.StatusInternalServerError, codes.FailedPrecondition, "Invalid configuration", "配置无效"))
)
