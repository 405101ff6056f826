package tracking

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-tracking/core"
)

var (
	sourceTag  = "source"
	sourceText = "source must be one of: pageload, navigation"
)

// InitValidators registers the tracking validators. core.InitValidators must be called first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(sourceTag, sourceValidation)
	core.RegisterCustomTranslation(validate, translator, sourceTag, sourceText)
}

func sourceValidation(fl validator.FieldLevel) bool {
	return Source(fl.Field().String()).IsValid()
}
