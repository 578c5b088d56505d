package errs

type ErrorMessage struct {
	Message string
}

func (e *ErrorMessage) Error() string { return e.Message }

type NotFoundError struct {
	ErrorMessage
}

type AlreadyExistsError struct {
	ErrorMessage
}

type ValidationError struct {
	ErrorMessage
}

// PlanLimitError signals that adding an item would exceed the caller's
// subscription ceiling. Webhook paths treat it as a silent skip; tool-facing
// paths surface it as a client error.
type PlanLimitError struct {
	ErrorMessage
	Limit int
}

type DatabaseError struct {
	ErrorMessage
	Operation string
}

type ExternalServiceError struct {
	ErrorMessage
	Service   string
	Transient bool
}

type EncryptionError struct {
	ErrorMessage
}

// SignatureError marks a webhook whose signature failed verification. No
// state may be touched once it is raised.
type SignatureError struct {
	ErrorMessage
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewAlreadyExistsError(message string) *AlreadyExistsError {
	return &AlreadyExistsError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewPlanLimitError(message string, limit int) *PlanLimitError {
	return &PlanLimitError{
		ErrorMessage: ErrorMessage{Message: message},
		Limit:        limit,
	}
}

func NewDatabaseError(operation, message string) *DatabaseError {
	return &DatabaseError{
		ErrorMessage: ErrorMessage{Message: message},
		Operation:    operation,
	}
}

func NewExternalServiceError(service, message string, transient bool) *ExternalServiceError {
	return &ExternalServiceError{
		ErrorMessage: ErrorMessage{Message: message},
		Service:      service,
		Transient:    transient,
	}
}

func NewEncryptionError(message string) *EncryptionError {
	return &EncryptionError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewSignatureError(message string) *SignatureError {
	return &SignatureError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}
