package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 64 << 10

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON field names instead of Go ones.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type createExpenseRequest struct {
	Description string           `json:"description" validate:"required,max=200"`
	Amount      *decimal.Decimal `json:"amount" validate:"required"`
}

type overrideCategoryRequest struct {
	Category string `json:"category" validate:"required,max=100"`
}

type feedbackRequest struct {
	Decision string `json:"decision" validate:"required,max=50"`
	Reason   string `json:"reason" validate:"max=500"`
}

// malformedRequestError marks input that could not be parsed at all, as
// opposed to input that parsed but failed validation.
type malformedRequestError struct {
	msg string
}

func (e *malformedRequestError) Error() string { return e.msg }

func malformed(format string, args ...any) error {
	return &malformedRequestError{msg: fmt.Sprintf(format, args...)}
}

// decodeJSON reads a single JSON object into dst, sanitizes its string
// fields and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return malformed("request body is empty")
		case errors.As(err, &maxErr):
			return malformed("request body too large")
		default:
			return malformed("malformed JSON: %v", err)
		}
	}
	if dec.More() {
		return malformed("request body must contain a single JSON object")
	}

	sanitizeStrings(dst)
	return validate.Struct(dst)
}

// sanitizeStrings trims and strips control characters from every string
// field of the struct dst points to.
func sanitizeStrings(dst any) {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return
	}
	v = v.Elem()
	for i := 0; i < v.NumField(); i++ {
		if f := v.Field(i); f.Kind() == reflect.String && f.CanSet() {
			f.SetString(sanitizeInput(f.String()))
		}
	}
}

// sanitizeInput removes control characters (except tab and newlines) and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// pathID parses the {id} route variable.
func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, malformed("invalid id %q", raw)
	}
	return id, nil
}
