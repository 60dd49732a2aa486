// Package validation registers the domain binding tags on gin's validator and
// turns binding failures into localized validation errors.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/scoring"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
)

var registerOnce sync.Once

// Register installs the custom tags on gin's default validator. Binding a
// struct that uses them before Register panics inside the validator.
func Register() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		register(v)
	})
}

// New returns a standalone validator with the same tags.
func New() *validator.Validate {
	v := validator.New()
	register(v)
	return v
}

func register(v *validator.Validate) {
	v.RegisterTagNameFunc(jsonName)
	_ = v.RegisterValidation("saudi_id", func(fl validator.FieldLevel) bool {
		return entities.ValidSaudiID(fl.Field().String())
	})
	_ = v.RegisterValidation("iso_alpha2", validateAlpha2)
	_ = v.RegisterValidation("risk_level", func(fl validator.FieldLevel) bool {
		return scoring.Level(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("risk_category", func(fl validator.FieldLevel) bool {
		return scoring.Category(fl.Field().String()).Valid()
	})
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func validateAlpha2(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if len(code) != 2 {
		return false
	}
	for i := 0; i < 2; i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}

// BindJSON decodes the body into obj and reports failures as validation errors.
func BindJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		return Translate(err)
	}
	return nil
}

// BindQuery is BindJSON for query strings.
func BindQuery(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindQuery(obj); err != nil {
		return Translate(err)
	}
	return nil
}

// Translate maps a binding error to a localized AppError naming the first
// offending field.
func Translate(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		en, ar := describe(fe)
		return apperrors.NewLocalizedValidationError(fe.Field(), en, ar)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return apperrors.NewLocalizedValidationError(typeErr.Field,
			fmt.Sprintf("%s has the wrong type", typeErr.Field), fmt.Sprintf("نوع الحقل %s غير صحيح", typeErr.Field))
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return apperrors.NewLocalizedValidationError("", "request body is not valid JSON", "جسم الطلب ليس بتنسيق JSON صالح")
	}
	return apperrors.NewLocalizedValidationError("", "invalid request: "+err.Error(), "طلب غير صالح")
}

func describe(fe validator.FieldError) (string, string) {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field), fmt.Sprintf("الحقل %s مطلوب", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param()), fmt.Sprintf("قيمة %s يجب أن تكون إحدى: %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param()), fmt.Sprintf("الحد الأقصى لـ %s هو %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param()), fmt.Sprintf("الحد الأدنى لـ %s هو %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters", field, fe.Param()), fmt.Sprintf("يجب أن يتكون %s من %s أحرف", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field), "البريد الإلكتروني غير صالح"
	case "saudi_id":
		return "national ID must be 10 digits starting with 1, 2 or 7", "يجب أن يتكون رقم الهوية من 10 أرقام ويبدأ بـ 1 أو 2 أو 7"
	case "iso_alpha2":
		return fmt.Sprintf("%s must be an ISO 3166-1 alpha-2 code", field), "يجب أن يكون الرمز من حرفين"
	case "risk_level":
		return "risk level must be Low, Medium, High or Critical", "مستوى المخاطر غير صالح"
	case "risk_category":
		return "unknown risk category", "فئة المخاطر غير معروفة"
	default:
		return fmt.Sprintf("%s is invalid", field), fmt.Sprintf("قيمة %s غير صالحة", field)
	}
}
