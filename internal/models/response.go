package models

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func SuccessResponse(data interface{}, message string) Response {
	return Response{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func ErrorResponse(err string) Response {
	return Response{
		Success: false,
		Error:   err,
	}
}

// SubmissionCreated is returned by intake. CheckoutURL is null for free
// submissions.
type SubmissionCreated struct {
	Success       bool          `json:"success"`
	SubmissionID  string        `json:"submission_id"`
	CheckoutURL   *string       `json:"checkout_url"`
	PaymentStatus PaymentStatus `json:"payment_status"`
}

type WebhookAck struct {
	Received bool `json:"received"`
}
