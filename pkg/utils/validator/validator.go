// Package validator wraps go-playground/validator with English and Chinese
// message translation and the service's custom rules.
package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entrans "github.com/go-playground/validator/v10/translations/en"
	zhtrans "github.com/go-playground/validator/v10/translations/zh"
)

// Supported languages.
const (
	LangEN = "en"
	LangZH = "zh"
)

// Validator validates structs tagged with `validate:"..."`.
type Validator struct {
	validate *validator.Validate
	uni      *ut.UniversalTranslator
	trans    map[string]ut.Translator
}

var (
	global     *Validator
	globalOnce sync.Once
	globalMu   sync.RWMutex
)

// Global returns the process-wide validator.
func Global() *Validator {
	globalOnce.Do(func() {
		globalMu.Lock()
		if global == nil {
			global = New()
		}
		globalMu.Unlock()
	})
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// SetGlobal replaces the process-wide validator.
func SetGlobal(v *Validator) {
	globalOnce.Do(func() {})
	globalMu.Lock()
	global = v
	globalMu.Unlock()
}

// New creates a validator with translators and custom rules registered.
func New() *Validator {
	v := &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		trans:    make(map[string]ut.Translator),
	}

	// 错误信息里使用 json 字段名
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	enLocale, zhLocale := en.New(), zh.New()
	v.uni = ut.New(enLocale, enLocale, zhLocale)

	if t, ok := v.uni.GetTranslator(LangEN); ok {
		_ = entrans.RegisterDefaultTranslations(v.validate, t)
		v.trans[LangEN] = t
	}
	if t, ok := v.uni.GetTranslator(LangZH); ok {
		_ = zhtrans.RegisterDefaultTranslations(v.validate, t)
		v.trans[LangZH] = t
	}

	v.registerCustomRules()
	v.registerCustomTranslations()
	return v
}

// GetTranslator returns the translator for lang, or nil.
func (v *Validator) GetTranslator(lang string) ut.Translator {
	return v.trans[normalizeLang(lang)]
}

// Struct validates s and returns the raw validator error.
func (v *Validator) Struct(s any) error {
	return v.validate.Struct(s)
}

// Validate validates s and returns a *ValidationErrors with messages in lang.
func (v *Validator) Validate(s any, lang string) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	return v.translate(verrs, lang)
}

func (v *Validator) translate(verrs validator.ValidationErrors, lang string) *ValidationErrors {
	t := v.GetTranslator(lang)
	out := &ValidationErrors{}
	for _, fe := range verrs {
		msg := fe.Error()
		if t != nil {
			msg = fe.Translate(t)
		}
		out.Errors = append(out.Errors, FieldError{Field: fe.Field(), Tag: fe.Tag(), Message: msg})
	}
	return out
}

// FieldError is a single translated field failure.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidationErrors collects translated field failures.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

// Error joins all field messages.
func (e *ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Message)
	}
	return strings.Join(msgs, "; ")
}

func normalizeLang(lang string) string {
	lang = strings.ToLower(lang)
	if strings.HasPrefix(lang, "zh") {
		return LangZH
	}
	return LangEN
}

// LangFromAcceptLanguage picks zh or en from an Accept-Language header value.
func LangFromAcceptLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if tag == "" {
			continue
		}
		return normalizeLang(tag)
	}
	return LangEN
}
