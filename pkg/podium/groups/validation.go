package groups

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/mikepea/podium/pkg/podium/invite"
)

// RegisterValidators adds the invitecode binding tag to gin's validator
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("invitecode", func(fl validator.FieldLevel) bool {
		return invite.Valid(fl.Field().String())
	})
}
