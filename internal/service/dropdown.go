package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/policyops/acctd/internal/model"
)

// dropdownQuery is a canned lookup statement, optionally parameterized.
type dropdownQuery struct {
	Stmt   string
	Params []any
}

// dropdownQueries are the named lookups that read from management tables
// rather than the generic dropdown store. Several carry the legacy spaced
// column names, which is why the write path bracket-quotes identifiers.
var dropdownQueries = map[string]dropdownQuery{
	"SAC_Contact1": {Stmt: "SELECT LANID, SACName FROM tblMGTUsers ORDER BY SACName"},
	"SAC_Contact2": {Stmt: "SELECT LANID, SACName, EmpTitle, TelNum, EMailID FROM tblMGTUsers ORDER BY SACName"},
	"AcctOwner":    {Stmt: "SELECT SACName, EMailID, EmpTitle, TelNum, TelExt, LANID FROM tblMGTUsers ORDER BY SACName"},
	"LossCtlRep1":  {Stmt: "SELECT PK_Number, RepName, LCEmail, LCTel, LAN_ID FROM tblLossCtrl ORDER BY RepName"},
	"LossCtlRep2": {
		Stmt:   "SELECT PK_Number, RepName, Active, LCEmail FROM tblLossCtrl WHERE Active = ? ORDER BY RepName",
		Params: []any{"Yes"},
	},
	"RiskSolMgr": {Stmt: "SELECT PK_Number, RepName, LCEmail, LAN_ID FROM tblLossCtrl ORDER BY RepName"},
	"BranchName": {Stmt: "SELECT BranchNmb, BranchName, ReportingBranch FROM tblBranch ORDER BY BranchName"},
	"ServLevel":  {Stmt: "SELECT PK_Number, [service Level], [Dollar Threshold] FROM tblServiceLevel ORDER BY SortNum"},
	"Underwriters": {
		Stmt: "SELECT PK_Number, [UW Last], [UW Email] FROM tblUnderwriters ORDER BY [UW Last]",
	},
	"EDW_AGENT_LIST": {Stmt: "SELECT PK_Number, Agent_Code, Agent_Name FROM tblEDW_AGENT_LIST ORDER BY Agent_Code"},
	"tblGrpCode": {
		Stmt: "SELECT PK_Number, tblGrpCode.Code, tblGrpCode.[Prgram Expanded Name] AS ProgramExpandedName FROM tblGrpCode ORDER BY tblGrpCode.Code",
	},
	"LossCtl": {
		Stmt: "SELECT tblLossCtrl.PK_Number, tblLossCtrl.RepName, tblLossCtrl.LCEmail FROM tblLossCtrl WHERE tblLossCtrl.Active = 'Yes' ORDER BY tblLossCtrl.RepName",
	},
}

// dropdownDefinition describes the writable shape of a named dropdown:
// where rows live, the key column, and the API-to-database column map.
type dropdownDefinition struct {
	Table      string
	PrimaryKey string
	Columns    map[string]string
}

func listColumns(names ...string) map[string]string {
	m := make(map[string]string, len(names))
	for _, n := range names {
		m[n] = n
	}
	return m
}

var dropdownDefinitions = map[string]dropdownDefinition{
	"SAC_Contact1": {Table: "tblMGTUsers", PrimaryKey: "LANID", Columns: listColumns("SACName")},
	"SAC_Contact2": {Table: "tblMGTUsers", PrimaryKey: "LANID", Columns: listColumns("SACName", "EmpTitle", "TelNum", "EMailID")},
	"AcctOwner":    {Table: "tblMGTUsers", PrimaryKey: "LANID", Columns: listColumns("SACName", "EMailID", "EmpTitle", "TelNum", "TelExt")},
	"LossCtlRep1":  {Table: "tblLossCtrl", PrimaryKey: "PK_Number", Columns: listColumns("RepName", "LCEmail", "LCTel", "LAN_ID")},
	"LossCtlRep2":  {Table: "tblLossCtrl", PrimaryKey: "PK_Number", Columns: listColumns("RepName", "Active", "LCEmail")},
	"RiskSolMgr":   {Table: "tblLossCtrl", PrimaryKey: "PK_Number", Columns: listColumns("RepName", "LCEmail", "LAN_ID")},
	"BranchName":   {Table: "tblBranch", PrimaryKey: "BranchNmb", Columns: listColumns("BranchName", "ReportingBranch")},
	"ServLevel":    {Table: "tblServiceLevel", PrimaryKey: "PK_Number", Columns: listColumns("service Level", "Dollar Threshold")},
	"Underwriters": {Table: "tblUnderwriters", PrimaryKey: "PK_Number", Columns: listColumns("UW Last", "UW Email")},
	"EDW_AGENT_LIST": {
		Table: "tblEDW_AGENT_LIST", PrimaryKey: "PK_Number", Columns: listColumns("Agent_Code", "Agent_Name"),
	},
	"tblGrpCode": {
		Table:      "tblGrpCode",
		PrimaryKey: "PK_Number",
		Columns: map[string]string{
			"Code":                "Code",
			"ProgramExpandedName": "Prgram Expanded Name",
		},
	},
	"LossCtl": {Table: "tblLossCtrl", PrimaryKey: "PK_Number", Columns: listColumns("RepName", "LCEmail")},
}

// defaultDropdownDefinition is the generic key/value store. Unlisted names
// live there as row groups keyed by DD_Type.
var defaultDropdownDefinition = dropdownDefinition{
	Table:      "tblDropDowns",
	PrimaryKey: "DD_Key",
	Columns:    listColumns("DD_Value", "DD_SortOrder"),
}

// identityPrimaryKeys are database-assigned keys that must stay out of
// MERGE insert lists.
var identityPrimaryKeys = map[string]struct{}{
	"DD_Key":    {},
	"PK_Number": {},
}

// DropdownService serves the reference lists behind the UI's select inputs.
type DropdownService struct {
	store RecordStore
}

func NewDropdownService(store RecordStore) *DropdownService {
	return &DropdownService{store: store}
}

func dropdownDefinitionFor(name string) dropdownDefinition {
	if def, ok := dropdownDefinitions[name]; ok {
		return def
	}
	return defaultDropdownDefinition
}

// Get returns the values for one named dropdown. "all" dumps the whole
// generic store; names without a canned query fall back to a DD_Type lookup.
func (s *DropdownService) Get(ctx context.Context, name string) ([]map[string]any, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, InputError("Dropdown type is required")
	}
	if strings.EqualFold(name, "all") {
		stmt := "SELECT DD_Key, DD_Type, DD_Value, DD_SortOrder FROM tblDropDowns ORDER BY DD_Type, COALESCE(DD_SortOrder, 0), DD_Value"
		return s.store.RunRawQuery(ctx, stmt, nil)
	}

	if q, ok := dropdownQueries[name]; ok {
		return s.store.RunRawQuery(ctx, q.Stmt, q.Params)
	}

	stmt := "SELECT DD_Key, DD_Value, DD_SortOrder FROM tblDropDowns WHERE DD_Type = ? ORDER BY COALESCE(DD_SortOrder, 0), DD_Value"
	return s.store.RunRawQuery(ctx, stmt, []any{name})
}

// normalizeRows maps API column names to database columns and rejects any
// column outside the definition.
func normalizeDropdownRows(rows []map[string]any, def dropdownDefinition) ([]map[string]any, error) {
	if len(rows) == 0 {
		return nil, InputError("Payload rows are required")
	}

	normalized := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		var extra []string
		for col := range row {
			if _, ok := def.Columns[col]; !ok && col != def.PrimaryKey {
				extra = append(extra, col)
			}
		}
		if len(extra) > 0 {
			sort.Strings(extra)
			return nil, InputError(fmt.Sprintf("Invalid column(s): %s", strings.Join(extra, ", ")))
		}

		out := make(map[string]any, len(row))
		if val, ok := row[def.PrimaryKey]; ok {
			out[def.PrimaryKey] = val
		}
		for apiCol, dbCol := range def.Columns {
			if val, ok := row[apiCol]; ok {
				out[dbCol] = val
			}
		}
		if len(out) == 0 {
			return nil, InputError("Each row must include data")
		}
		normalized = append(normalized, out)
	}
	return normalized, nil
}

// Upsert writes rows for one named dropdown: rows with a key value merge,
// keyless rows insert fresh so the database can assign the key.
func (s *DropdownService) Upsert(ctx context.Context, name string, rows []map[string]any) (model.StatusResponse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.StatusResponse{}, InputError("Dropdown type is required")
	}
	if strings.EqualFold(name, "all") {
		return model.StatusResponse{}, InputError("Dropdown type must be specified")
	}

	def := dropdownDefinitionFor(name)
	normalized, err := normalizeDropdownRows(rows, def)
	if err != nil {
		return model.StatusResponse{}, err
	}

	if def.Table == "tblDropDowns" {
		for _, row := range normalized {
			row["DD_Type"] = name
		}
	}

	var keyed, keyless []map[string]any
	for _, row := range normalized {
		if hasValue(row[def.PrimaryKey]) {
			keyed = append(keyed, row)
		} else {
			delete(row, def.PrimaryKey)
			keyless = append(keyless, row)
		}
	}

	_, identity := identityPrimaryKeys[def.PrimaryKey]
	total, err := s.store.MergeUpsert(ctx, def.Table, keyed, []string{def.PrimaryKey}, identity)
	if err != nil {
		return model.StatusResponse{}, err
	}
	if len(keyless) > 0 {
		n, err := s.store.InsertRecords(ctx, def.Table, keyless)
		if err != nil {
			return model.StatusResponse{}, err
		}
		total += n
	}

	return model.StatusResponse{Message: "Upsert successful", Count: total}, nil
}

// Delete removes rows by primary key. Every row must name a key value.
func (s *DropdownService) Delete(ctx context.Context, name string, rows []map[string]any) (model.StatusResponse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.StatusResponse{}, InputError("Dropdown type is required")
	}
	if strings.EqualFold(name, "all") {
		return model.StatusResponse{}, InputError("Dropdown type must be specified")
	}
	if len(rows) == 0 {
		return model.StatusResponse{}, InputError("Payload rows are required")
	}

	def := dropdownDefinitionFor(name)
	keys := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		var extra []string
		for col := range row {
			if _, ok := def.Columns[col]; !ok && col != def.PrimaryKey {
				extra = append(extra, col)
			}
		}
		if len(extra) > 0 {
			sort.Strings(extra)
			return model.StatusResponse{}, InputError(fmt.Sprintf("Invalid column(s): %s", strings.Join(extra, ", ")))
		}
		if !hasValue(row[def.PrimaryKey]) {
			return model.StatusResponse{}, InputError(fmt.Sprintf("%s is required for deletion", def.PrimaryKey))
		}
		keys = append(keys, map[string]any{def.PrimaryKey: row[def.PrimaryKey]})
	}

	n, err := s.store.DeleteRecords(ctx, def.Table, keys, []string{def.PrimaryKey})
	if err != nil {
		return model.StatusResponse{}, err
	}
	return model.StatusResponse{Message: "Deletion successful", Count: n}, nil
}
