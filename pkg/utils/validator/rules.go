package validator

import (
	"regexp"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

// Custom validation tags
const (
	TagThreadID     = "threadid"     // 会话 ID：字母数字、-、_、.、:，最长 128
	TagNotBlank     = "notblank"     // 去掉空白后非空
	TagNoWhitespace = "nowhitespace" // 不含空白字符
)

var threadIDRegex = regexp.MustCompile(`^[A-Za-z0-9._:\-]{1,128}$`)

func (v *Validator) registerCustomRules() {
	_ = v.validate.RegisterValidation(TagThreadID, validateThreadID)
	_ = v.validate.RegisterValidation(TagNotBlank, validateNotBlank)
	_ = v.validate.RegisterValidation(TagNoWhitespace, validateNoWhitespace)
}

// 空值交给 required/omitempty 处理。
func validateThreadID(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || threadIDRegex.MatchString(value)
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validateNoWhitespace(fl validator.FieldLevel) bool {
	return !strings.ContainsFunc(fl.Field().String(), unicode.IsSpace)
}

func (v *Validator) registerCustomTranslations() {
	messages := map[string]map[string]string{
		LangEN: {
			TagThreadID:     "{0} may only contain letters, digits, '.', '_', ':', '-' (max 128 characters)",
			TagNotBlank:     "{0} must not be blank",
			TagNoWhitespace: "{0} must not contain whitespace characters",
		},
		LangZH: {
			TagThreadID:     "{0}只能包含字母、数字、'.'、'_'、':'、'-'，且不超过128个字符",
			TagNotBlank:     "{0}不能为空白",
			TagNoWhitespace: "{0}不能包含空白字符",
		},
	}
	for lang, m := range messages {
		trans := v.GetTranslator(lang)
		if trans == nil {
			continue
		}
		for tag, msg := range m {
			registerTranslation(v.validate, trans, tag, msg)
		}
	}
}

func registerTranslation(validate *validator.Validate, trans ut.Translator, tag, message string) {
	_ = validate.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, message, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(tag, fe.Field())
			return t
		},
	)
}
