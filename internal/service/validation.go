package service

import (
	"errors"
	"fmt"
	"strings"

	"product-order-service/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// FieldError describes one rejected request field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every field error of a rejected request
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return fmt.Sprintf("%s: %s", models.ErrInvalidInput, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return models.ErrInvalidInput
}

// ValidateCreateOrder checks a create-order request
func ValidateCreateOrder(req CreateOrderRequest) (CreateOrderRequest, error) {
	return req, check(req, nil)
}

// ValidateUpdateOrder checks an order patch
func ValidateUpdateOrder(req UpdateOrderRequest) (UpdateOrderRequest, error) {
	var extra []FieldError
	if req.Status != nil && !req.Status.Valid() {
		extra = append(extra, FieldError{Field: "status", Message: "Unknown order status"})
	}
	return req, check(req, extra)
}

// ValidateCreateProduct checks a create-product request. Price and stock
// must both be present; zero is a valid value for either.
func ValidateCreateProduct(req CreateProductRequest) (CreateProductRequest, error) {
	var extra []FieldError
	if req.Price == nil {
		extra = append(extra, FieldError{Field: "price", Message: "This field is required"})
	} else if req.Price.IsNegative() {
		extra = append(extra, FieldError{Field: "price", Message: "Value must be greater than or equal to 0"})
	}
	return req, check(req, extra)
}

// ValidateUpdateProduct checks a product patch
func ValidateUpdateProduct(req UpdateProductRequest) (UpdateProductRequest, error) {
	var extra []FieldError
	if req.Price != nil && req.Price.IsNegative() {
		extra = append(extra, FieldError{Field: "price", Message: "Value must be greater than or equal to 0"})
	}
	return req, check(req, extra)
}

func check(v interface{}, extra []FieldError) error {
	fields := append([]FieldError(nil), extra...)

	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
		}
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fieldName(fe), Message: message(fe)})
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return "Value must be at least " + fe.Param()
	case "max":
		return "Value must be at most " + fe.Param()
	case "gte":
		return "Value must be greater than or equal to " + fe.Param()
	default:
		return "Invalid value"
	}
}
