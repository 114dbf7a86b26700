package response

import "github.com/gin-gonic/gin"

const (
	CodeSuccess = 0
)

const (
	ErrUnauthorized = 10001
	ErrTokenExpired = 10002
	ErrForbidden    = 10003
)

const (
	ErrUserNotFound      = 20001
	ErrUserInactive      = 20002
	ErrPasswordWrong     = 20003
	ErrDuplicateIdentity = 20004
)

const (
	ErrPlanNotFound = 30001
	ErrPlanArchived = 30002
)

const (
	ErrSessionNotFound     = 40001
	ErrInsufficientBalance = 40002
)

const (
	ErrInvalidInput = 50001
)

const (
	ErrVoucherNotFound = 60001
	ErrVoucherUsed     = 60002
)

const (
	ErrInternal = 99999
)

type Response struct {
	Code       int         `json:"code"`
	Message    string      `json:"message"`
	Data       any         `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

func Success(c *gin.Context, data any) {
	c.JSON(200, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Paginated(c *gin.Context, data any, page, pageSize int, total int64) {
	c.JSON(200, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
		Pagination: &Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		},
	})
}

func Fail(c *gin.Context, httpStatus, appCode int, message string) {
	c.JSON(httpStatus, Response{
		Code:    appCode,
		Message: message,
	})
}
