package checkout

import (
	"reflect"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// Address is the shipping destination submitted with an order.
type Address struct {
	FullName     string `json:"full_name" validate:"required,max=200"`
	AddressLine1 string `json:"address_line1" validate:"required,max=200"`
	AddressLine2 string `json:"address_line2" validate:"max=200"`
	City         string `json:"city" validate:"required,max=100"`
	State        string `json:"state" validate:"required,max=100"`
	PostalCode   string `json:"postal_code" validate:"required,max=20"`
	Country      string `json:"country" validate:"required,max=100"`
}

func (a Address) normalized() Address {
	return Address{
		FullName:     strings.TrimSpace(a.FullName),
		AddressLine1: strings.TrimSpace(a.AddressLine1),
		AddressLine2: strings.TrimSpace(a.AddressLine2),
		City:         strings.TrimSpace(a.City),
		State:        strings.TrimSpace(a.State),
		PostalCode:   strings.TrimSpace(a.PostalCode),
		Country:      strings.TrimSpace(a.Country),
	}
}

// Validate reports every missing or oversized field.
func (a Address) Validate() error {
	err := validate.Struct(a)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !asValidationErrors(err, &fieldErrs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}
	details := map[string]string{}
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			details[fe.Field()] = "is required"
		case "max":
			details[fe.Field()] = "must be at most " + fe.Param() + " characters"
		default:
			details[fe.Field()] = "is invalid"
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid shipping address").WithDetails(details)
}

func (a Address) shipping() models.ShippingAddress {
	out := models.ShippingAddress{
		FullName:     a.FullName,
		AddressLine1: a.AddressLine1,
		City:         a.City,
		State:        a.State,
		PostalCode:   a.PostalCode,
		Country:      a.Country,
	}
	if a.AddressLine2 != "" {
		line2 := a.AddressLine2
		out.AddressLine2 = &line2
	}
	return out
}

// AddressFromProfile builds an address from a saved profile. Missing fields stay
// empty and fail validation.
func AddressFromProfile(p *models.Profile) Address {
	if p == nil {
		return Address{}
	}
	return Address{
		FullName:     deref(p.FullName),
		AddressLine1: deref(p.AddressLine1),
		AddressLine2: deref(p.AddressLine2),
		City:         deref(p.City),
		State:        deref(p.State),
		PostalCode:   deref(p.PostalCode),
		Country:      deref(p.Country),
	}
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = fieldErrs
	}
	return ok
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
