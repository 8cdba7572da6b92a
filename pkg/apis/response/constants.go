package response

type ErrCode int

const (
	_                    ErrCode = 10000 + iota
	ErrCodeMalformedJSON         // 10001
	ErrCodeRequestBody           // 10002
	ErrCodeMissingField          // 10003
	ErrCodeConfigRewrite         // 10004
)

// !!! IMPORTANT PLEASE READ FIRST !!!
// You SHOULD add new code at the end, and append comment of number
// Meanwhile, the corresponding error message SHOULD be appended in response.errors
// The order MUST be consistent between them
