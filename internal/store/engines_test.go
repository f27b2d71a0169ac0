package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
)

// The engine tests run against an in-process driver that records every
// statement and transaction event, so batch semantics are checked without a
// SQL Server instance.

type recordingConn struct {
	stmts     []string
	failOn    int // 1-based statement index that fails, 0 = never
	begins    int
	commits   int
	rollbacks int
}

func (c *recordingConn) Prepare(query string) (driver.Stmt, error) {
	return &recordingStmt{conn: c, query: query}, nil
}
func (c *recordingConn) Close() error { return nil }
func (c *recordingConn) Begin() (driver.Tx, error) {
	c.begins++
	return &recordingTx{conn: c}, nil
}

type recordingTx struct{ conn *recordingConn }

func (t *recordingTx) Commit() error   { t.conn.commits++; return nil }
func (t *recordingTx) Rollback() error { t.conn.rollbacks++; return nil }

type recordingStmt struct {
	conn  *recordingConn
	query string
}

func (s *recordingStmt) Close() error  { return nil }
func (s *recordingStmt) NumInput() int { return -1 }
func (s *recordingStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.conn.stmts = append(s.conn.stmts, s.query)
	if s.conn.failOn != 0 && len(s.conn.stmts) == s.conn.failOn {
		return nil, errors.New("violation of UNIQUE KEY constraint")
	}
	return driver.RowsAffected(1), nil
}
func (s *recordingStmt) Query(args []driver.Value) (driver.Rows, error) {
	return nil, errors.New("not a query driver")
}

type recordingConnector struct{ conn *recordingConn }

func (c recordingConnector) Connect(context.Context) (driver.Conn, error) { return c.conn, nil }
func (c recordingConnector) Driver() driver.Driver                        { return recordingDriver{c.conn} }

type recordingDriver struct{ conn *recordingConn }

func (d recordingDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func recordingStore(failOn int) (*Store, *recordingConn) {
	conn := &recordingConn{failOn: failOn}
	db := sqlx.NewDb(sql.OpenDB(recordingConnector{conn}), "sqlserver")
	return &Store{db: db}, conn
}

// A nil pool panics the moment a transaction or statement starts, so these
// empty-batch tests double as proof that no transaction is opened.

func TestMergeUpsertEmptyBatchSkipsTransaction(t *testing.T) {
	s := &Store{}
	n, err := s.MergeUpsert(context.Background(), "tblAcctSpecial", nil, []string{"CustNum"}, false)
	if err != nil || n != 0 {
		t.Errorf("empty batch: n = %d, err = %v", n, err)
	}
}

func TestInsertRecordsAllEmptyRowsSkipsTransaction(t *testing.T) {
	s := &Store{}
	n, err := s.InsertRecords(context.Background(), "tblPolicies", []map[string]any{{}, {}})
	if err != nil || n != 0 {
		t.Errorf("all-empty batch: n = %d, err = %v", n, err)
	}
}

func TestDeleteRecordsEmptyBatchSkipsTransaction(t *testing.T) {
	s := &Store{}
	n, err := s.DeleteRecords(context.Background(), "tblHCMUsers", nil, []string{"CustNum"})
	if err != nil || n != 0 {
		t.Errorf("empty batch: n = %d, err = %v", n, err)
	}
}

func TestMergeUpsertCommitsBatchOnce(t *testing.T) {
	s, conn := recordingStore(0)
	rows := []map[string]any{
		{"CustNum": "100", "UserName": "amy"},
		{"CustNum": "101", "UserName": "bob"},
		{"CustNum": "102", "UserName": "cat"},
	}

	n, err := s.MergeUpsert(context.Background(), "tblHCMUsers", rows, []string{"CustNum", "UserName"}, false)
	if err != nil {
		t.Fatalf("MergeUpsert: %v", err)
	}
	if n != len(rows) {
		t.Errorf("n = %d, want %d", n, len(rows))
	}
	if conn.begins != 1 || conn.commits != 1 || conn.rollbacks != 0 {
		t.Errorf("tx events = begins %d, commits %d, rollbacks %d; want one begin, one commit",
			conn.begins, conn.commits, conn.rollbacks)
	}
	if len(conn.stmts) != len(rows) {
		t.Fatalf("executed %d statements, want %d", len(conn.stmts), len(rows))
	}
	for _, stmt := range conn.stmts {
		if !strings.Contains(stmt, "MERGE INTO [tblHCMUsers]") {
			t.Errorf("statement = %q", stmt)
		}
	}
}

func TestMergeUpsertRollsBackWholeBatchOnFailure(t *testing.T) {
	s, conn := recordingStore(2)
	rows := []map[string]any{
		{"CustNum": "100", "UserName": "amy"},
		{"CustNum": "101", "UserName": "bob"},
		{"CustNum": "102", "UserName": "cat"},
	}

	n, err := s.MergeUpsert(context.Background(), "tblHCMUsers", rows, []string{"CustNum", "UserName"}, false)
	if err == nil {
		t.Fatal("mid-batch failure must surface")
	}
	if !strings.Contains(err.Error(), "upsert into tblHCMUsers") {
		t.Errorf("err = %v", err)
	}
	if n != 0 {
		t.Errorf("n = %d, want 0 after rollback", n)
	}
	if conn.commits != 0 || conn.rollbacks != 1 {
		t.Errorf("tx events = commits %d, rollbacks %d; want rollback only",
			conn.commits, conn.rollbacks)
	}
	if len(conn.stmts) != 2 {
		t.Errorf("executed %d statements, want 2 (stop at the failure)", len(conn.stmts))
	}
}

func TestInsertRecordsRollsBackOnFirstFailure(t *testing.T) {
	s, conn := recordingStore(1)
	rows := []map[string]any{
		{"ProgramName": "P1"},
		{"ProgramName": "P2"},
	}

	n, err := s.InsertRecords(context.Background(), "tblAcctAffinityProgram", rows)
	if err == nil {
		t.Fatal("failure must surface")
	}
	if n != 0 || conn.commits != 0 || conn.rollbacks != 1 {
		t.Errorf("n = %d, commits = %d, rollbacks = %d", n, conn.commits, conn.rollbacks)
	}
}

func TestInsertRecordsSkipsEmptyRowsInMixedBatch(t *testing.T) {
	s, conn := recordingStore(0)
	rows := []map[string]any{
		{"ProgramName": "P1"},
		{},
		{"ProgramName": "P2"},
	}

	n, err := s.InsertRecords(context.Background(), "tblAcctAffinityProgram", rows)
	if err != nil {
		t.Fatalf("InsertRecords: %v", err)
	}
	if n != 2 || len(conn.stmts) != 2 {
		t.Errorf("n = %d, statements = %d; empty rows must not execute", n, len(conn.stmts))
	}
}

func TestDeleteRecordsCommitsBatchOnce(t *testing.T) {
	s, conn := recordingStore(0)
	rows := []map[string]any{
		{"ParentAccount": "P", "AssociatedAccount": "C1"},
		{"ParentAccount": "C1", "AssociatedAccount": "P"},
	}

	n, err := s.DeleteRecords(context.Background(), "tblSACAccountAssociations", rows,
		[]string{"ParentAccount", "AssociatedAccount"})
	if err != nil {
		t.Fatalf("DeleteRecords: %v", err)
	}
	if n != 2 {
		t.Errorf("n = %d", n)
	}
	if conn.begins != 1 || conn.commits != 1 {
		t.Errorf("tx events = begins %d, commits %d", conn.begins, conn.commits)
	}
	for _, stmt := range conn.stmts {
		if !strings.HasPrefix(stmt, "DELETE FROM [tblSACAccountAssociations]") {
			t.Errorf("statement = %q", stmt)
		}
	}
}

func TestUpdateFieldForAllRowsValidatesIdentifiers(t *testing.T) {
	s := &Store{}
	_, err := s.UpdateFieldForAllRows(context.Background(), "tblPolicies", "B]x", "v", "CustomerNum", "1")
	if err == nil {
		t.Fatal("bracket in identifier must be rejected before execution")
	}
}

func TestUpdateFieldForAllRowsRunsSingleUpdate(t *testing.T) {
	s, conn := recordingStore(0)
	n, err := s.UpdateFieldForAllRows(context.Background(), "tblPolicies", "PolicyStatus", "Closed", "CustomerNum", "100")
	if err != nil {
		t.Fatalf("UpdateFieldForAllRows: %v", err)
	}
	if n != 1 {
		t.Errorf("n = %d", n)
	}
	if len(conn.stmts) != 1 || !strings.HasPrefix(conn.stmts[0], "UPDATE [tblPolicies] SET [PolicyStatus]") {
		t.Errorf("stmts = %v", conn.stmts)
	}
	if conn.begins != 0 {
		t.Errorf("single-statement update must not open a transaction, begins = %d", conn.begins)
	}
}
