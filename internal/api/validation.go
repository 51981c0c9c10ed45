package api

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// payloadValidator checks decoded request bodies and renders failures with JSON field names.
type payloadValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func newPayloadValidator() *payloadValidator {
	validate := validator.New()

	english := en.New()
	uni := ut.New(english, english)
	translator, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return &payloadValidator{validate: validate, translator: translator}
}

// Check returns a single human readable message, or "" when the payload is valid.
func (v *payloadValidator) Check(payload interface{}) string {
	err := v.validate.Struct(payload)
	if err == nil {
		return ""
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err.Error()
	}

	messages := make([]string, 0, len(fieldErrors))
	for _, fieldErr := range fieldErrors {
		if fieldErr.Tag() == "notblank" {
			messages = append(messages, fieldErr.Field()+" must not be blank")
			continue
		}
		messages = append(messages, fieldErr.Translate(v.translator))
	}
	return strings.Join(messages, "; ")
}
