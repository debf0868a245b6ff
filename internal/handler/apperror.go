package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInsufficientCredits   = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_CREDITS", "Insufficient credits"}
	ErrInvalidSimulationType = &AppError{http.StatusBadRequest, "INVALID_SIMULATION_TYPE", "Unknown simulation type"}
	ErrPackageNotFound       = &AppError{http.StatusNotFound, "PACKAGE_NOT_FOUND", "Credit package not found"}
	ErrChargeNotFound        = &AppError{http.StatusNotFound, "CHARGE_NOT_FOUND", "Charge not found"}
	ErrEmailTaken            = &AppError{http.StatusConflict, "EMAIL_TAKEN", "Email is already registered"}
	ErrVersionConflict       = &AppError{http.StatusConflict, "VERSION_CONFLICT", "Resource was modified concurrently, please retry"}
	ErrInvalidAmount         = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrGatewayUnavailable    = &AppError{http.StatusServiceUnavailable, "GATEWAY_UNAVAILABLE", "Payment gateway is unavailable, please retry"}
	ErrGatewayRejected       = &AppError{http.StatusBadGateway, "GATEWAY_REJECTED", "Payment gateway rejected the transaction"}
	ErrInvalidSignature      = &AppError{http.StatusUnauthorized, "INVALID_SIGNATURE", "Webhook signature is invalid"}
)
