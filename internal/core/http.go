package core

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// HTTPError: servis hatasını fiber hatasına çevirir.
// Mesaj olduğu gibi kullanıcıya gider; 500'ler main'deki ErrorHandler'da loglanır.
func HTTPError(err error) *fiber.Error {
	switch {
	case errors.Is(err, ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrCrossBranch):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrInsufficientStock):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrIllegalState):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrForbidden):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Kayıt bulunamadı")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
