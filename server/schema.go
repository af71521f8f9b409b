package server

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ezoic/churnpulse/dataset"
)

// ChurnRequest is one Telco customer as accepted by POST /predict.
type ChurnRequest struct {
	Gender           string   `json:"gender" validate:"required,oneof=Male Female"`
	SeniorCitizen    *int     `json:"SeniorCitizen" validate:"required,min=0,max=1"`
	Partner          string   `json:"Partner" validate:"required,oneof=Yes No"`
	Dependents       string   `json:"Dependents" validate:"required,oneof=Yes No"`
	Tenure           *int     `json:"tenure" validate:"required,min=0"`
	PhoneService     string   `json:"PhoneService" validate:"required,oneof=Yes No"`
	MultipleLines    string   `json:"MultipleLines" validate:"required,oneof=Yes No 'No phone service'"`
	InternetService  string   `json:"InternetService" validate:"required,oneof=DSL 'Fiber optic' No"`
	OnlineSecurity   string   `json:"OnlineSecurity" validate:"required,oneof=Yes No 'No internet service'"`
	OnlineBackup     string   `json:"OnlineBackup" validate:"required,oneof=Yes No 'No internet service'"`
	DeviceProtection string   `json:"DeviceProtection" validate:"required,oneof=Yes No 'No internet service'"`
	TechSupport      string   `json:"TechSupport" validate:"required,oneof=Yes No 'No internet service'"`
	StreamingTV      string   `json:"StreamingTV" validate:"required,oneof=Yes No 'No internet service'"`
	StreamingMovies  string   `json:"StreamingMovies" validate:"required,oneof=Yes No 'No internet service'"`
	Contract         string   `json:"Contract" validate:"required,oneof=Month-to-month 'One year' 'Two year'"`
	PaperlessBilling string   `json:"PaperlessBilling" validate:"required,oneof=Yes No"`
	PaymentMethod    string   `json:"PaymentMethod" validate:"required,oneof='Electronic check' 'Mailed check' 'Bank transfer (automatic)' 'Credit card (automatic)'"`
	MonthlyCharges   *float64 `json:"MonthlyCharges" validate:"required,min=0"`
	TotalCharges     *float64 `json:"TotalCharges" validate:"omitempty,min=0"`
}

// ChurnResponse is the body of a successful prediction.
type ChurnResponse struct {
	ChurnProbability float64 `json:"churn_probability"`
	ChurnLabel       int     `json:"churn_label"`
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields under their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks r against the schema and returns one FieldError per violation.
func (r *ChurnRequest) Validate() []FieldError {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Field: "", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(errs))
	for _, e := range errs {
		out = append(out, FieldError{Field: e.Field(), Message: errorMessage(e)})
	}
	return out
}

func errorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	case "min":
		return fmt.Sprintf("must be greater than or equal to %s", e.Param())
	case "max":
		return fmt.Sprintf("must be less than or equal to %s", e.Param())
	default:
		return fmt.Sprintf("failed validation: %s", e.Tag())
	}
}

// Record converts a validated request into the row format the pipeline reads.
// A missing TotalCharges is sent as 0.
func (r *ChurnRequest) Record() dataset.Record {
	total := 0.0
	if r.TotalCharges != nil {
		total = *r.TotalCharges
	}
	return dataset.Record{
		"gender":           r.Gender,
		"SeniorCitizen":    strconv.Itoa(*r.SeniorCitizen),
		"Partner":          r.Partner,
		"Dependents":       r.Dependents,
		"tenure":           strconv.Itoa(*r.Tenure),
		"PhoneService":     r.PhoneService,
		"MultipleLines":    r.MultipleLines,
		"InternetService":  r.InternetService,
		"OnlineSecurity":   r.OnlineSecurity,
		"OnlineBackup":     r.OnlineBackup,
		"DeviceProtection": r.DeviceProtection,
		"TechSupport":      r.TechSupport,
		"StreamingTV":      r.StreamingTV,
		"StreamingMovies":  r.StreamingMovies,
		"Contract":         r.Contract,
		"PaperlessBilling": r.PaperlessBilling,
		"PaymentMethod":    r.PaymentMethod,
		"MonthlyCharges":   formatFloat(*r.MonthlyCharges),
		"TotalCharges":     formatFloat(total),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
