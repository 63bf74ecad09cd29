package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

// NewValidator returns a validator whose field names follow the given struct tag
// (for example "mapstructure" or "json") and whose messages are translated to English.
func NewValidator(tagName string) (*validator.Validate, ut.Translator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, nil, fmt.Errorf("failed to register default translations: %w", err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get(tagName), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := validate.RegisterTranslation("required_if", trans, func(ut ut.Translator) error {
		return ut.Add("required_if", "{0} is required for the selected {1}", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("required_if", fe.Field(), strings.SplitN(fe.Param(), " ", 2)[0])
		return t
	}); err != nil {
		return nil, nil, fmt.Errorf("failed to register required_if translation: %w", err)
	}

	return validate, trans, nil
}

func newValidator() (*validator.Validate, ut.Translator, error) {
	return NewValidator("mapstructure")
}

// TranslateErrors flattens validation errors into translated messages.
func TranslateErrors(err error, trans ut.Translator) []string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		msgs = append(msgs, e.Translate(trans))
	}
	return msgs
}
