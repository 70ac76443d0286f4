package models

// APIResponse is a generic API response wrapper
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Error:   message,
	}
}

// NewValidationErrorResponse creates a validation error response. data
// carries the form state so a client can re-render without another request.
func NewValidationErrorResponse(errors map[string]string, data interface{}) APIResponse {
	return APIResponse{
		Success: false,
		Error:   "Validation failed",
		Errors:  errors,
		Data:    data,
	}
}

// ContactSessionResponse is returned by the contact session endpoints.
type ContactSessionResponse struct {
	ID    string           `json:"id"`
	Valid *bool            `json:"valid,omitempty"`
	Form  ContactFormState `json:"form"`
}

// SetFieldRequest carries one field value; text fields take a string and
// consent takes a boolean.
type SetFieldRequest struct {
	Value interface{} `json:"value"`
}

// SubmitRequest is the optional body of a session submit.
type SubmitRequest struct {
	RecaptchaToken string `json:"recaptchaToken"`
}

// InquiryRequest is the body of a one-shot inquiry submission.
type InquiryRequest struct {
	ContactFields
	RecaptchaToken string `json:"recaptchaToken"`
}

// InquiryResponse is returned after an inquiry has been accepted.
type InquiryResponse struct {
	Ticket string `json:"ticket"`
}
