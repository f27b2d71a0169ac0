package service

import (
	"testing"
)

func TestValidateAffinityProgramRequiredFields(t *testing.T) {
	errs := ValidateAffinityProgram(map[string]any{})
	got := make(map[string]string)
	for _, e := range errs {
		got[e.Field] = e.Code
	}
	for _, want := range []string{"ProgramName", "BranchVal", "OnBoardDt"} {
		if got[want] != codeRequired {
			t.Errorf("missing REQUIRED error for %s: %v", want, got)
		}
	}
}

func TestValidateAffinityProgramInactiveNeedsNotification(t *testing.T) {
	row := map[string]any{
		"ProgramName": "Prog", "BranchVal": "NY", "OnBoardDt": "2024-01-01",
		"AcctStatus": " Inactive ",
	}
	errs := ValidateAffinityProgram(row)
	found := false
	for _, e := range errs {
		if e.Field == "DateNotif" && e.Code == codeRequired {
			found = true
		}
	}
	if !found {
		t.Errorf("inactive status without DateNotif must fail: %v", errs)
	}

	row["DateNotif"] = "2024-02-01"
	if errs := ValidateAffinityProgram(row); len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestValidateAffinityProgramNumPol(t *testing.T) {
	base := map[string]any{"ProgramName": "P", "BranchVal": "B", "OnBoardDt": "2024-01-01"}

	tests := []struct {
		name   string
		numPol any
		valid  bool
	}{
		{"absent", nil, true},
		{"blank string", " ", true},
		{"int in range", 42, true},
		{"string with separator", "1,234", true},
		{"at limit", 99999, false},
		{"over limit", 123456, false},
		{"not a number", "lots", false},
		{"boolean", true, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			row := map[string]any{"NumPol": tc.numPol}
			for k, v := range base {
				row[k] = v
			}
			errs := ValidateAffinityProgram(row)
			failed := false
			for _, e := range errs {
				if e.Field == "NumPol" {
					failed = true
				}
			}
			if failed == tc.valid {
				t.Errorf("NumPol=%v: failed=%v, want valid=%v", tc.numPol, failed, tc.valid)
			}
		})
	}
}

func TestValidateAffinityProgramDateFormats(t *testing.T) {
	row := map[string]any{
		"ProgramName": "P", "BranchVal": "B",
		"OnBoardDt": "not a date",
	}
	errs := ValidateAffinityProgram(row)
	found := false
	for _, e := range errs {
		if e.Field == "OnBoardDt" && e.Code == codeInvalidFormat {
			found = true
		}
	}
	if !found {
		t.Errorf("bad date must produce INVALID_FORMAT: %v", errs)
	}
}

func TestValidateAffinityPolicyType(t *testing.T) {
	errs := ValidateAffinityPolicyType(map[string]any{"DateCreated": "junk"})
	got := make(map[string]string)
	for _, e := range errs {
		got[e.Field] = e.Code
	}
	if got["ProgramName"] != codeRequired || got["PolicyType"] != codeRequired {
		t.Errorf("required fields missing: %v", got)
	}
	if got["DateCreated"] != codeInvalidFormat {
		t.Errorf("bad DateCreated not flagged: %v", got)
	}
}

func TestValidatePolicyTypeDistributionRowsAllOrNothing(t *testing.T) {
	rows := []map[string]any{
		{}, // fully blank rows are ignored
		{"ProgramName": "P"},
	}
	errs := ValidatePolicyTypeDistributionRows(rows)
	if len(errs) != 5 {
		t.Fatalf("want 5 errors for the partial row, got %d: %v", len(errs), errs)
	}
	for _, e := range errs {
		if e.Field == "ProgramName" {
			t.Errorf("present field must not be flagged: %v", e)
		}
	}
}

func TestValidateAffinityAgentPhones(t *testing.T) {
	row := map[string]any{
		"ProgramName": "P",
		"WorkTel1":    "(212) 555-0134",
		"CellTel1":    "555-0134",
	}
	errs := ValidateAffinityAgent(row)
	if len(errs) != 1 || errs[0].Field != "CellTel1" || errs[0].Code != codeInvalidFormat {
		t.Errorf("errs = %v", errs)
	}
}

func TestValidateAffinityAgentRequiresProgram(t *testing.T) {
	errs := ValidateAffinityAgent(map[string]any{})
	if len(errs) != 1 || errs[0].Field != "ProgramName" {
		t.Errorf("errs = %v", errs)
	}
}

func TestValidateFrequencyRows(t *testing.T) {
	rows := []map[string]any{
		{"CompDate": "2024-01-02"},
		{"CompDate": "garbage"},
		{"CompDate": ""},
	}
	errs := ValidateFrequencyRows(rows)
	if len(errs) != 1 || errs[0].Field != "CompDate" {
		t.Errorf("errs = %v", errs)
	}
}
