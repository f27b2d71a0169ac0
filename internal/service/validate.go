package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/policyops/acctd/internal/model"
	"github.com/policyops/acctd/internal/record"
)

// Validation error codes carried in the field error list.
const (
	codeRequired      = "REQUIRED"
	codeInvalidValue  = "INVALID_VALUE"
	codeInvalidFormat = "INVALID_FORMAT"
)

type requiredField struct {
	Field   string
	Message string
}

var requiredProgramFields = []requiredField{
	{"ProgramName", "Program Name is a mandatory field"},
	{"BranchVal", "Branch Office is a mandatory field"},
	{"OnBoardDt", "On Board Date is a mandatory field"},
}

var requiredPolicyTypeFields = []requiredField{
	{"ProgramName", "Affinity Program Name is a mandatory field"},
	{"PolicyType", "Policy Type Name is a mandatory field"},
}

var requiredPolicyTypeDistributionFields = []requiredField{
	{"ProgramName", "Is Not Null and Mandatory Field"},
	{"PolicyType", "Is Not Null and Mandatory Field"},
	{"RecipCat", "Is Not Null and Mandatory Field"},
	{"DistVia", "Is Not Null and Mandatory Field"},
	{"AttnTo", "Is Not Null and Mandatory Field"},
	{"EMailAddress", "Is Not Null and Mandatory Field"},
}

var programDateFields = []string{"DtCreated", "OnBoardDt", "DateNotif"}
var policyTypeDateFields = []string{"DateCreated"}
var frequencyDateFields = []string{"CompDate"}

var agentPhoneFields = []string{
	"WorkTel1", "CellTel1", "FaxTel1",
	"WorkTel2", "CellTel2", "FaxTel2",
}

// hasValue treats nil and blank strings as absent. Zero numbers are present.
func hasValue(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}

func fieldErr(field, code, message string) model.FieldError {
	return model.FieldError{Field: field, Code: code, Message: message}
}

// coerceNumber accepts numeric types and numeric strings with thousands
// separators. Returns false for anything else, booleans included.
func coerceNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case bool:
		return 0, false
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case string:
		cleaned := strings.TrimSpace(strings.ReplaceAll(x, ",", ""))
		if cleaned == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// validDate accepts empty values, native times, and strings in any of the
// accepted inbound layouts.
func validDate(v any) bool {
	if !hasValue(v) {
		return true
	}
	switch v.(type) {
	case time.Time, *time.Time:
		return true
	case string:
		_, ok := record.ParseDateInput(v).(time.Time)
		return ok
	default:
		return false
	}
}

// validPhone requires exactly ten digits once formatting characters are
// stripped. Empty values pass.
func validPhone(v any) bool {
	if !hasValue(v) {
		return true
	}
	s, ok := v.(string)
	if !ok {
		return false
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits == 10
}

func requireFields(row map[string]any, fields []requiredField) []model.FieldError {
	var errs []model.FieldError
	for _, f := range fields {
		if !hasValue(row[f.Field]) {
			errs = append(errs, fieldErr(f.Field, codeRequired, f.Message))
		}
	}
	return errs
}

func checkDateFormats(row map[string]any, fields []string) []model.FieldError {
	var errs []model.FieldError
	for _, f := range fields {
		if hasValue(row[f]) && !validDate(row[f]) {
			errs = append(errs, fieldErr(f, codeInvalidFormat, "Invalid date format"))
		}
	}
	return errs
}

// ValidateAffinityProgram checks a program payload: mandatory identity
// fields, the inactive-status notification rule, a sane policy count, and
// date formats.
func ValidateAffinityProgram(row map[string]any) []model.FieldError {
	errs := requireFields(row, requiredProgramFields)

	if status, ok := row["AcctStatus"].(string); ok && strings.EqualFold(strings.TrimSpace(status), "inactive") {
		if !hasValue(row["DateNotif"]) {
			errs = append(errs, fieldErr("DateNotif", codeRequired,
				"Notification Date is a mandatory field when account status is changed to Inactive"))
		}
	}

	if hasValue(row["NumPol"]) {
		if n, ok := coerceNumber(row["NumPol"]); !ok || n >= 99999 {
			errs = append(errs, fieldErr("NumPol", codeInvalidValue, "Invalid Value for Number of Policies"))
		}
	}

	return append(errs, checkDateFormats(row, programDateFields)...)
}

// ValidateAffinityPolicyType checks the mandatory name fields and date
// formats of a policy type payload.
func ValidateAffinityPolicyType(row map[string]any) []model.FieldError {
	errs := requireFields(row, requiredPolicyTypeFields)
	return append(errs, checkDateFormats(row, policyTypeDateFields)...)
}

// ValidatePolicyTypeDistributionRows enforces all-or-nothing rows: a row
// with any of the distribution fields set must have all of them set. Fully
// blank rows are ignored.
func ValidatePolicyTypeDistributionRows(rows []map[string]any) []model.FieldError {
	var errs []model.FieldError
	for _, row := range rows {
		any := false
		for _, f := range requiredPolicyTypeDistributionFields {
			if hasValue(row[f.Field]) {
				any = true
				break
			}
		}
		if !any {
			continue
		}
		errs = append(errs, requireFields(row, requiredPolicyTypeDistributionFields)...)
	}
	return errs
}

// ValidateAffinityAgent requires the owning program name and checks phone
// number formats.
func ValidateAffinityAgent(row map[string]any) []model.FieldError {
	var errs []model.FieldError
	if !hasValue(row["ProgramName"]) {
		errs = append(errs, fieldErr("ProgramName", codeRequired, "Program Name is required before Agent Details"))
	}
	for _, f := range agentPhoneFields {
		if hasValue(row[f]) && !validPhone(row[f]) {
			errs = append(errs, fieldErr(f, codeInvalidFormat, "Invalid phone number format"))
		}
	}
	return errs
}

// ValidateFrequencyRows checks the completion date format on each row.
func ValidateFrequencyRows(rows []map[string]any) []model.FieldError {
	var errs []model.FieldError
	for _, row := range rows {
		errs = append(errs, checkDateFormats(row, frequencyDateFields)...)
	}
	return errs
}
