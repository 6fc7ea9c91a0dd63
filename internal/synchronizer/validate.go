package synchronizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-openapi/inflect"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/roach88/relsync/internal/ir"
)

const (
	tagRequired = "required"
	tagType     = "type"
)

// validateRow checks the listed attributes of data. On insert a missing
// required attribute is an error. On update only present values are
// checked.
func (s *Synchronizer) validateRow(data ir.Row, fields []string, insert bool) []ir.ValidationError {
	var errs []ir.ValidationError
	for _, name := range fields {
		a, ok := s.model.Attribute(name)
		if !ok {
			continue
		}
		v, present := data[name]
		if v == nil {
			if a.Required && (insert || present) {
				errs = append(errs, fieldError(name, tagRequired, "", fmt.Sprintf("%s is required", name)))
			}
			continue
		}
		if !conforms(a.Type, v) {
			errs = append(errs, fieldError(name, tagType, string(a.Type), fmt.Sprintf("%s must be of type %s, got %T", name, a.Type, v)))
			continue
		}
		if a.Required && isText(a.Type) {
			if err := s.validate.Var(v, tagRequired); err != nil {
				errs = append(errs, fieldError(name, tagRequired, "", fmt.Sprintf("%s is required", name)))
				continue
			}
		}
		if a.Validate != "" {
			errs = append(errs, s.runTags(name, a.Validate, v)...)
		}
	}
	return errs
}

// runTags applies validator tags to one value. A malformed tag is reported
// as a failure of that tag rather than a panic.
func (s *Synchronizer) runTags(field, tags string, v any) (errs []ir.ValidationError) {
	defer func() {
		if r := recover(); r != nil {
			errs = []ir.ValidationError{fieldError(field, "invalid_tag", "", fmt.Sprintf("%s: bad validate tag %q: %v", field, tags, r))}
		}
	}()

	err := s.validate.Var(v, tags)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []ir.ValidationError{fieldError(field, "invalid", "", fmt.Sprintf("%s: %v", field, err))}
	}
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s failed on the %q tag", field, fe.Tag())
		errs = append(errs, fieldError(field, fe.Tag(), fe.Param(), msg))
	}
	return errs
}

// ErrorKey returns the key reported when field fails tag:
// ErrorKey("customerId", "required") is "CUSTOMER_ID_REQUIRED".
func ErrorKey(field, tag string) string {
	return strings.ToUpper(inflect.Underscore(field) + "_" + tag)
}

func fieldError(field, tag, param, msg string) ir.ValidationError {
	e := ir.ValidationError{Key: ErrorKey(field, tag), Field: field, Message: msg}
	if param != "" {
		e.Params = map[string]any{"param": param}
	}
	return e
}

func isText(t ir.AttributeType) bool {
	switch t {
	case ir.TypeString, ir.TypeText, ir.TypeUUID, ir.TypeULID:
		return true
	}
	return false
}

// conforms reports whether v can be stored in an attribute of type t.
func conforms(t ir.AttributeType, v any) bool {
	switch t {
	case ir.TypeJSON:
		return true
	case ir.TypeString, ir.TypeText:
		_, ok := v.(string)
		return ok
	case ir.TypeBool:
		_, ok := v.(bool)
		return ok
	case ir.TypeUUID:
		s, ok := v.(string)
		if !ok {
			return false
		}
		_, err := uuid.Parse(s)
		return err == nil
	case ir.TypeULID:
		s, ok := v.(string)
		if !ok {
			return false
		}
		_, err := ulid.ParseStrict(s)
		return err == nil
	case ir.TypeDatetime:
		switch val := v.(type) {
		case time.Time:
			return true
		case string:
			_, err := time.Parse(time.RFC3339Nano, val)
			return err == nil
		}
		return false
	case ir.TypeInt:
		if n, ok := v.(json.Number); ok {
			_, err := n.Int64()
			return err == nil
		}
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return true
		case reflect.Float32, reflect.Float64:
			f := rv.Float()
			return f == math.Trunc(f) && !math.IsInf(f, 0)
		}
		return false
	case ir.TypeFloat:
		if n, ok := v.(json.Number); ok {
			_, err := n.Float64()
			return err == nil
		}
		switch reflect.ValueOf(v).Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			return true
		}
		return false
	}
	return false
}
