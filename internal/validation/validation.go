package validation

import (
	"reflect"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	once   sync.Once
	engine *validator.Validate
)

// Init configures the validator used by Gin's binding.
// - Uses JSON tag names in errors.
// - Validates decimal amounts as numbers so `gt=0` works on them.
// - Registers the `pwd` alias and the `maxtrim` tag.
func Init() {
	Engine()
}

// Engine returns the validator shared by request binding and the services
func Engine() *validator.Validate {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			v = validator.New()
		}
		configure(v)
		engine = v
	})
	return engine
}

func configure(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterAlias("pwd", "min=8,max=72")
	// maxtrim=N: at most N runes after trimming surrounding whitespace
	_ = v.RegisterValidation("maxtrim", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) <= limit
	})
}

// Email checks a single address with the same rule as the `email` binding tag
func Email(address string) error {
	return Engine().Var(address, "email")
}

// HTTPURL checks that raw is an absolute http(s) URL, the `http_url` binding tag
func HTTPURL(raw string) error {
	return Engine().Var(raw, "http_url")
}
