package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{
		validate: validator.New(),
	}
}

func (v *Validator) Struct(s interface{}) error {
	return v.validate.Struct(s)
}

// Message validates s and returns the first failure as a sentence a
// submitter can act on, or "" when s is valid.
func (v *Validator) Message(s interface{}) string {
	err := v.validate.Struct(s)
	if err == nil {
		return ""
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request."
	}
	return describe(verrs[0])
}

var fieldLabels = map[string]string{
	"Name":              "Name",
	"Email":             "Email address",
	"TankName":          "Tank name",
	"TankSize":          "Tank size",
	"Environment":       "Environment",
	"NarrativeSource":   "Text source",
	"AdditionalTanks":   "Additional tanks",
	"Photos":            "Photos",
	"NewTankConfirm":    "Consent",
	"LicenseConfirm":    "Consent",
	"GuidelinesConfirm": "Consent",
	"PermissionContact": "Consent",
	"Password":          "Password",
	"Status":            "Status",
	"PublishedURL":      "Published URL",
	"Count":             "Count",
}

func describe(fe validator.FieldError) string {
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = fe.Field()
	}

	switch fe.Tag() {
	case "required":
		return "Missing required fields."
	case "email":
		return "Invalid email address."
	case "eq":
		if label == "Consent" {
			return "All consent checkboxes are required."
		}
	case "oneof":
		return fmt.Sprintf("Invalid %s selection.", strings.ToLower(label))
	case "gt":
		return fmt.Sprintf("%s must be a positive number.", label)
	case "min", "max":
		if fe.Field() == "AdditionalTanks" {
			return "Additional tanks must be between 0 and 4."
		}
		return fmt.Sprintf("%s is out of range.", label)
	case "url":
		return fmt.Sprintf("%s must be a valid URL.", label)
	}
	return fmt.Sprintf("%s is invalid.", label)
}
