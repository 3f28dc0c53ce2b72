package controllers

import (
	"storefront-service/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators installs the custom binding tags used by request structs.
// It is safe to call more than once.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("productref", func(fl validator.FieldLevel) bool {
		_, found := models.FindProduct(fl.Field().String())
		return found
	})
}
