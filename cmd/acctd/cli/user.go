package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/policyops/acctd/internal/config"
	"github.com/policyops/acctd/internal/store"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage local login users",
		Long:  "Create users and reset passwords for local credential login. Only used outside the SSO environments.",
	}

	cmd.AddCommand(newUserCreateCmd())
	cmd.AddCommand(newUserPasswdCmd())

	return cmd
}

// ---------- user create ----------

func newUserCreateCmd() *cobra.Command {
	var (
		email     string
		password  string
		firstName string
		lastName  string
		role      string
		branch    string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new login user",
		Example: `  acctd user create --email amy@example.com --role underwriter
  acctd user create --email amy@example.com --password secret  # skips the prompt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserCreate(email, password, firstName, lastName, role, branch)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "User email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted if omitted)")
	cmd.Flags().StringVar(&firstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&role, "role", "underwriter", "Role: admin, director, or underwriter")
	cmd.Flags().StringVar(&branch, "branch", "", "Branch name")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runUserCreate(email, password, firstName, lastName, role, branch string) error {
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address: %q", email)
	}
	switch role {
	case "admin", "director", "underwriter":
	default:
		return fmt.Errorf("role must be admin, director, or underwriter, got %q", role)
	}

	password, err := resolvePassword(password)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	row := map[string]any{
		"FirstName":  firstName,
		"LastName":   lastName,
		"Email":      email,
		"Role":       role,
		"BranchName": branch,
		"Password":   string(hash),
		"Active":     true,
	}
	if _, err := st.InsertRecords(context.Background(), "tblUsers", []map[string]any{row}); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Printf("Created user %q with role %s\n", email, role)
	return nil
}

// ---------- user passwd ----------

func newUserPasswdCmd() *cobra.Command {
	var (
		email    string
		password string
	)

	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Reset a user's password",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserPasswd(email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "User email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "New password (prompted if omitted)")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runUserPasswd(email, password string) error {
	password, err := resolvePassword(password)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	user, err := st.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("lookup user %q: %w", email, err)
	}
	if err := st.UpdateUserPassword(ctx, user.ID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	fmt.Printf("Password updated for %q\n", email)
	return nil
}

// ---------- helpers ----------

func resolvePassword(password string) (string, error) {
	if password == "" {
		fmt.Print("Password: ")
		pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Println()
		password = string(pwBytes)

		fmt.Print("Confirm password: ")
		confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return "", fmt.Errorf("failed to read confirmation: %w", err)
		}
		fmt.Println()

		if password != string(confirmBytes) {
			return "", fmt.Errorf("passwords do not match")
		}
	}

	if len(password) < 8 {
		return "", fmt.Errorf("password must be at least 8 characters")
	}
	return password, nil
}

func openStore() (*store.Store, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	st, err := store.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}
