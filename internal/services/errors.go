package services

import "errors"

// Common service errors
var (
	ErrNotFound            = errors.New("registro no encontrado")
	ErrInvalidPolicy       = errors.New("política de mora inválida")
	ErrInvalidState        = errors.New("transición de estado inválida")
	ErrInvalidAmount       = errors.New("monto inválido")
	ErrInvalidSchedule     = errors.New("parámetros de amortización inválidos")
	ErrLoanAlreadyPaid     = errors.New("el préstamo ya está saldado")
	ErrInconsistentPayment = errors.New("los componentes del pago no suman el total")
)
