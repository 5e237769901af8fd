package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"expense-gst-reconciler/cmd/reconciler/config"
	"expense-gst-reconciler/internal/reconciler"
	"expense-gst-reconciler/internal/reporter"
)

// Flags for the process command
var (
	inputFile    string
	region       string
	vendorFile   string
	employeeFile string
	outputFormat string
	outputFile   string

	splitSlack    float64
	rateTolerance float64

	postingView bool
)

// processCmd represents the process command
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process an expense extract into a reconciled tax ledger",
	Long: `Process reads an expense system extract, keeps company-paid cash
lines, merges separately-posted tax lines onto their expense lines,
assigns tax codes, splits mixed lines, and produces the aggregated ledger
with a per-report reconciliation.

Examples:
  # Australian GST batch to the console
  reconciler process --input extract.csv --region AU

  # New Zealand batch with vendor resolution, written as JSON
  reconciler process --input extract.csv --region NZ \
    --vendor-file vendors.csv --employee-file employees.csv \
    --output-format json --output-file result.json

  # Include the flattened posting view and loosen the split slack
  reconciler process --input extract.csv --region AU \
    --posting-view --split-slack 0.10`,

	PreRunE: validateProcessFlags,
	RunE:    runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVarP(&inputFile, "input", "i", "", "path to the expense extract CSV (required)")
	processCmd.Flags().StringVarP(&region, "region", "r", "", "jurisdiction region code: AU, NZ (required)")

	processCmd.Flags().StringVar(&vendorFile, "vendor-file", "", "vendor name to supplier ID lookup CSV")
	processCmd.Flags().StringVar(&employeeFile, "employee-file", "", "employee ID to supplier ID lookup CSV")

	processCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	processCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	processCmd.Flags().Float64Var(&splitSlack, "split-slack", -1, "mixed-split conservation slack in currency units (default: region setting)")
	processCmd.Flags().Float64Var(&rateTolerance, "rate-tolerance", -1, "tax rate tolerance (default: region setting)")

	processCmd.Flags().BoolVar(&postingView, "posting-view", false, "include the flattened posting view in the output")

	processCmd.MarkFlagRequired("input")
	processCmd.MarkFlagRequired("region")

	viper.BindPFlag("input", processCmd.Flags().Lookup("input"))
	viper.BindPFlag("region", processCmd.Flags().Lookup("region"))
	viper.BindPFlag("vendor-file", processCmd.Flags().Lookup("vendor-file"))
	viper.BindPFlag("employee-file", processCmd.Flags().Lookup("employee-file"))
	viper.BindPFlag("output-format", processCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", processCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("split-slack", processCmd.Flags().Lookup("split-slack"))
	viper.BindPFlag("rate-tolerance", processCmd.Flags().Lookup("rate-tolerance"))
	viper.BindPFlag("posting-view", processCmd.Flags().Lookup("posting-view"))
}

func validateProcessFlags(cmd *cobra.Command, args []string) error {
	// Viper values allow overrides from a config file
	inputFile = viper.GetString("input")
	region = viper.GetString("region")
	vendorFile = viper.GetString("vendor-file")
	employeeFile = viper.GetString("employee-file")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	splitSlack = viper.GetFloat64("split-slack")
	rateTolerance = viper.GetFloat64("rate-tolerance")
	postingView = viper.GetBool("posting-view")

	if inputFile == "" {
		return fmt.Errorf("input is required")
	}
	if region == "" {
		return fmt.Errorf("region is required")
	}

	if err := validateFileExists(inputFile, "expense extract"); err != nil {
		return err
	}
	if vendorFile != "" {
		if err := validateFileExists(vendorFile, "vendor lookup file"); err != nil {
			return err
		}
	}
	if employeeFile != "" {
		if err := validateFileExists(employeeFile, "employee lookup file"); err != nil {
			return err
		}
	}

	validFormats := map[string]bool{"console": true, "json": true, "csv": true}
	if !validFormats[outputFormat] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	if splitSlack != -1 && splitSlack < 0 {
		return fmt.Errorf("split slack cannot be negative")
	}
	if rateTolerance != -1 && rateTolerance <= 0 {
		return fmt.Errorf("rate tolerance must be positive")
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	handler := NewCLIErrorHandler()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting batch...\n")
		fmt.Fprintf(os.Stderr, "Input: %s\n", inputFile)
		fmt.Fprintf(os.Stderr, "Region: %s\n", region)
		fmt.Fprintf(os.Stderr, "Output format: %s\n", outputFormat)
		if outputFile != "" {
			fmt.Fprintf(os.Stderr, "Output file: %s\n", outputFile)
		}
	}

	jur, err := config.CreateJurisdiction(region, splitSlack, rateTolerance)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	batchConfig := config.CreateBatchConfig(inputFile, vendorFile, employeeFile, jur, postingView)

	engine, err := reconciler.NewEngine(batchConfig)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	result, err := engine.Run(ctx)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	reportConfig := config.CreateReportConfig(outputFormat, postingView)
	generator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		return fmt.Errorf("failed to create report generator: %w", err)
	}

	var writer io.Writer = os.Stdout
	if outputFile != "" {
		file, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		writer = file
	}

	if err := generator.GenerateReport(result.Report(), writer); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if outputFile != "" && viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Report written to %s\n", outputFile)
	}

	return nil
}
