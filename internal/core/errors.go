package core

import (
	"errors"
	"fmt"
)

// Hata türleri: her servis hatası bu sentinel'lerden birine %w ile sarılır,
// handler katmanı errors.Is ile HTTP koduna çevirir.
var (
	ErrValidation        = errors.New("geçersiz istek")
	ErrInsufficientFunds = errors.New("kasada yeterli bakiye yok")
	ErrInsufficientStock = errors.New("stok yetersiz")
	ErrCrossBranch       = errors.New("kayıtlar aynı şubeye ait değil")
	ErrIllegalState      = errors.New("bu durumda izin verilmeyen işlem")
	ErrForbidden         = errors.New("bu işlem için yetkiniz yok")
)

func Validationf(format string, args ...any) error {
	return wrapf(ErrValidation, format, args...)
}

func InsufficientFundsf(format string, args ...any) error {
	return wrapf(ErrInsufficientFunds, format, args...)
}

func InsufficientStockf(format string, args ...any) error {
	return wrapf(ErrInsufficientStock, format, args...)
}

func CrossBranchf(format string, args ...any) error {
	return wrapf(ErrCrossBranch, format, args...)
}

func IllegalStatef(format string, args ...any) error {
	return wrapf(ErrIllegalState, format, args...)
}

func Forbiddenf(format string, args ...any) error {
	return wrapf(ErrForbidden, format, args...)
}

func wrapf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
