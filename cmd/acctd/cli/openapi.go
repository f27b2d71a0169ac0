package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/policyops/acctd/internal/openapi"
	"github.com/policyops/acctd/internal/service"
)

func newOpenAPICmd() *cobra.Command {
	var (
		outputFile string
		baseURL    string
	)

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Generate the OpenAPI specification",
		Long: `Generate the OpenAPI 3.1 specification for the acctd API. The document
covers every entity route, the session endpoints, dropdowns, policies,
searches, and compose links.`,
		Example: `  acctd openapi                  # print to stdout
  acctd openapi -o openapi.json  # write to file`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpenAPI(baseURL, outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write spec to file instead of stdout")
	cmd.Flags().StringVar(&baseURL, "base-url", "http://localhost:8080", "Server URL embedded in the spec")

	return cmd
}

func runOpenAPI(baseURL, outputFile string) error {
	// Generation needs only the entity configurations, not a database.
	doc := openapi.Generate(service.NewRegistry(nil), baseURL)

	jsonBytes, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal spec: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, jsonBytes, 0644); err != nil {
			return fmt.Errorf("write spec: %w", err)
		}
		fmt.Printf("Wrote OpenAPI spec to %s\n", outputFile)
		return nil
	}
	fmt.Println(string(jsonBytes))
	return nil
}
