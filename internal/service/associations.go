package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/policyops/acctd/internal/model"
	"github.com/policyops/acctd/internal/query"
)

const associationsTable = "tblSACAccountAssociations"

// AssociationPayload links one parent account to a set of child accounts.
type AssociationPayload struct {
	ParentAccount string   `json:"parent_account"`
	ChildAccounts []string `json:"child_account"`
}

// AssociationService maintains the symmetric parent/child account links.
// Every association is stored twice, once in each direction, so either
// account can be queried as the parent.
type AssociationService struct {
	store RecordStore
}

func NewAssociationService(store RecordStore) *AssociationService {
	return &AssociationService{store: store}
}

// normalizeChildren trims, drops blanks, and de-duplicates while keeping
// first-seen order.
func normalizeChildren(children []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, child := range children {
		child = strings.TrimSpace(child)
		if child == "" {
			continue
		}
		if _, ok := seen[child]; ok {
			continue
		}
		seen[child] = struct{}{}
		out = append(out, child)
	}
	return out
}

func (s *AssociationService) normalizePayload(payload AssociationPayload) (string, []string, error) {
	parent := strings.TrimSpace(payload.ParentAccount)
	if parent == "" {
		return "", nil, InputError("parent_account is required")
	}

	children := normalizeChildren(payload.ChildAccounts)
	kept := children[:0]
	for _, child := range children {
		if child != parent {
			kept = append(kept, child)
		}
	}
	return parent, kept, nil
}

// Get returns the associations of one parent with the account names and
// statuses of both sides joined in.
func (s *AssociationService) Get(ctx context.Context, parentAccount string) ([]map[string]any, error) {
	parentAccount = strings.TrimSpace(parentAccount)
	if parentAccount == "" {
		return nil, InputError("ParentAccount is required")
	}

	stmt := "SELECT assoc.ParentAccount, parent.CustomerName AS ParentCustomerName, parent.AcctStatus AS ParentAcctStatus, " +
		"assoc.AssociatedAccount, child.CustomerName AS AssociatedCustomerName, child.AcctStatus AS AssociatedAcctStatus " +
		"FROM tblSACAccountAssociations AS assoc " +
		"LEFT JOIN tblAcctSpecial AS parent ON assoc.ParentAccount = parent.CustomerNum " +
		"LEFT JOIN tblAcctSpecial AS child ON assoc.AssociatedAccount = child.CustomerNum " +
		"WHERE assoc.ParentAccount = ? ORDER BY assoc.AssociatedAccount"
	return s.store.RunRawQuery(ctx, stmt, []any{parentAccount})
}

// Add links the parent to each child in both directions, skipping pairs the
// table already holds.
func (s *AssociationService) Add(ctx context.Context, payload AssociationPayload) (model.StatusResponse, error) {
	parent, children, err := s.normalizePayload(payload)
	if err != nil {
		return model.StatusResponse{}, err
	}
	if len(children) == 0 {
		return model.StatusResponse{Message: "No new associations to add", Count: 0}, nil
	}

	existing := make(map[string]struct{})
	for _, account := range append([]string{parent}, children...) {
		rows, err := s.store.FetchRecords(ctx, associationsTable,
			query.Filters{{Column: "ParentAccount", Value: account}}, "")
		if err != nil {
			return model.StatusResponse{}, err
		}
		for _, row := range rows {
			val := row["AssociatedAccount"]
			if val == nil {
				continue
			}
			if associated := strings.TrimSpace(fmt.Sprint(val)); associated != "" {
				existing[account+"\x00"+associated] = struct{}{}
			}
		}
	}

	var toInsert []map[string]any
	for _, child := range children {
		for _, pair := range [][2]string{{parent, child}, {child, parent}} {
			if _, ok := existing[pair[0]+"\x00"+pair[1]]; ok {
				continue
			}
			toInsert = append(toInsert, map[string]any{
				"ParentAccount":     pair[0],
				"AssociatedAccount": pair[1],
			})
		}
	}

	if len(toInsert) == 0 {
		return model.StatusResponse{Message: "No new associations to add", Count: 0}, nil
	}

	n, err := s.store.InsertRecords(ctx, associationsTable, toInsert)
	if err != nil {
		return model.StatusResponse{}, err
	}
	return model.StatusResponse{Message: "Insertion successful", Count: n}, nil
}

// Delete removes both directions of each parent/child pair.
func (s *AssociationService) Delete(ctx context.Context, payload AssociationPayload) (model.StatusResponse, error) {
	parent, children, err := s.normalizePayload(payload)
	if err != nil {
		return model.StatusResponse{}, err
	}
	if len(children) == 0 {
		return model.StatusResponse{Message: "No data provided for deletion", Count: 0}, nil
	}

	var rows []map[string]any
	for _, child := range children {
		rows = append(rows,
			map[string]any{"ParentAccount": parent, "AssociatedAccount": child},
			map[string]any{"ParentAccount": child, "AssociatedAccount": parent},
		)
	}

	n, err := s.store.DeleteRecords(ctx, associationsTable, rows, []string{"ParentAccount", "AssociatedAccount"})
	if err != nil {
		return model.StatusResponse{}, err
	}
	return model.StatusResponse{Message: "Deletion successful", Count: n}, nil
}
