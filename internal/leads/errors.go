package leads

import "errors"

var (
	// ErrInvalidName is returned when neither first nor last name is set
	ErrInvalidName = errors.New("first or last name is required")

	// ErrMissingPhone is returned when the primary phone is missing
	ErrMissingPhone = errors.New("primary phone is required")

	// ErrInvalidPhone is returned when a phone has fewer than 10 digits
	ErrInvalidPhone = errors.New("phone number must have at least 10 digits")

	// ErrInvalidEmail is returned when the email is malformed
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrMissingOrgID is returned when the org scope is missing
	ErrMissingOrgID = errors.New("org_id is required")

	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("lead not found")
)
