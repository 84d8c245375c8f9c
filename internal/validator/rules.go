package validator

import "github.com/go-playground/validator/v10"

// registerCustomRules adds domain rules shared by the DTOs.
func registerCustomRules(v *validator.Validate) {
	// plan_credits: credit grants are non-negative, with -1 reserved for
	// unlimited plans.
	_ = v.RegisterValidation("plan_credits", func(fl validator.FieldLevel) bool {
		n := fl.Field().Int()
		return n >= -1
	})
}
