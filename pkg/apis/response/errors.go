package response

var errors = map[ErrCode]string{
	ErrCodeMalformedJSON: "The JSON you provided was not well-formed or did not validate against our published format.",
	ErrCodeRequestBody:   "Request body error",
	ErrCodeMissingField:  "Missing mandatory field %s.",
	ErrCodeConfigRewrite: "Failed to rewrite configuration file: %s.",
}

// !!! IMPORTANT PLEASE READ FIRST !!!
// You SHOULD add new code at the end of enum firstly.

var ErrMalformedJSON = &responseError{
	Code:    ErrCodeMalformedJSON,
	Message: errors[ErrCodeMalformedJSON],
}

var ErrRequestBody = &responseError{
	Code:    ErrCodeRequestBody,
	Message: errors[ErrCodeRequestBody],
}

func ErrMissingField(field string) *responseError {
	return generateError(ErrCodeMissingField, field)
}

func ErrConfigRewrite(err error) *responseError {
	return generateErrorWrapper(ErrCodeConfigRewrite, err, err.Error())
}
