package cart

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/tutoring/core"
	"github.com/trezcool/tutoring/core/catalog"
)

var (
	itemTypeTag  = "itemtype"
	itemTypeText = "type must be one of: product, service"
)

// InitValidators registers the cart validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(itemTypeTag, itemTypeValidation)
	core.RegisterCustomTranslation(validate, translator, itemTypeTag, itemTypeText)
}

func itemTypeValidation(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case catalog.KindProduct, catalog.KindService:
		return true
	}
	return false
}
