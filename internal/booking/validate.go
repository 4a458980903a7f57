package booking

import (
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			return Category(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("plan", func(fl validator.FieldLevel) bool {
			return Plan(fl.Field().String()).Valid()
		})
		validate = v
	})
	return validate
}

var fieldErrors = map[string]error{
	"FullName": ErrMissingFullName,
	"Email":    ErrInvalidEmail,
	"Category": ErrInvalidCategory,
	"Plan":     ErrInvalidPlan,
	"Message":  ErrMissingMessage,
}

// Validate checks the request the way the form's required/typed inputs do and
// returns the sentinel for the first failing field.
func (r Request) Validate() error {
	err := validatorInstance().Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if sentinel, ok := fieldErrors[verrs[0].StructField()]; ok {
			return sentinel
		}
	}
	return err
}
