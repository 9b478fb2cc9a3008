package http

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/rs/zerolog"
)

const notBlankTag = "notblank"

var (
	validatorsOnce sync.Once
	translator     ut.Translator
)

// registerValidators installs custom tags and English messages on gin's validator.
func registerValidators(logger *zerolog.Logger) {
	validatorsOnce.Do(func() {
		validate, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			logger.Warn().Msg("gin validator engine is not go-playground/validator")
			return
		}

		_en := en.New()
		uni := ut.New(_en, _en)
		translator, _ = uni.GetTranslator("en")
		if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
			logger.Warn().Err(err).Msg("failed to register default validation messages")
		}

		// Use JSON tag names for errors instead of Go struct names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		if err := validate.RegisterValidation(notBlankTag, notBlankValidation); err != nil {
			logger.Warn().Err(err).Str("tag", notBlankTag).Msg("failed to register validation")
			return
		}
		err := validate.RegisterTranslation(notBlankTag, translator,
			func(t ut.Translator) error { return t.Add(notBlankTag, "{0} cannot be blank", true) },
			func(t ut.Translator, fe validator.FieldError) string {
				s, _ := t.T(notBlankTag, fe.Field())
				return s
			},
		)
		if err != nil {
			logger.Warn().Err(err).Str("tag", notBlankTag).Msg("failed to register validation message")
		}
	})
}

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return true
}

// bindingMessage renders a bind error for the client. Errors from slice
// bodies are rendered element by element.
func bindingMessage(err error) string {
	var serrs binding.SliceValidationError
	if errors.As(err, &serrs) {
		msgs := make([]string, 0, len(serrs))
		for _, e := range serrs {
			msgs = append(msgs, bindingMessage(e))
		}
		return strings.Join(msgs, "; ")
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && translator != nil {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fe.Translate(translator))
		}
		return strings.Join(msgs, "; ")
	}
	return "invalid request body"
}
