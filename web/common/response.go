package common

type ErrorResponse struct {
	Message string `json:"message"`
	// Warning marks recoverable conditions the kiosk shows as a toast
	// instead of an error dialog (e.g. a checkout replay).
	Warning bool `json:"warning,omitempty"`
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{
		Message: message,
	}
}

func NewWarningResponse(message string) *ErrorResponse {
	return &ErrorResponse{
		Message: message,
		Warning: true,
	}
}

type SuccessResponse struct {
	Data interface{} `json:"data"`
}

func NewSuccessResponse(data interface{}) *SuccessResponse {
	return &SuccessResponse{
		Data: data,
	}
}

type Pagination struct {
	Total int64 `json:"total"`
}

type SearchResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

func NewSearchResponse(data interface{}, total int64) *SearchResponse {
	return &SearchResponse{
		Data: data,
		Pagination: Pagination{
			Total: total,
		},
	}
}
