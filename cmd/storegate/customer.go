package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/sagarc03/storegate"
)

var (
	customerFirstName string
	customerLastName  string
	customerEmail     string
	customerPhone     string
	customerNoPrompt  bool
)

var customerCmd = &cobra.Command{
	Use:   "customer",
	Short: "Save and read customer records",
}

var customerSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Insert a new customer record",
	Long: `Insert a customer record. The partition key is the upper-cased last name
and first name joined by an underscore; the row key is a fresh UUID. Records
are never overwritten.

Missing names are prompted for unless --no-prompt is set.

Examples:
  storegate customer save --first John --last Smith --email john@example.com
  storegate customer save -q --no-prompt --first Ada --last Lovelace`,
	Args: cobra.NoArgs,
	RunE: runCustomerSave,
}

var customerGetCmd = &cobra.Command{
	Use:   "get <partition-key> <row-key>",
	Short: "Read a customer record",
	Args:  cobra.ExactArgs(2),
	RunE:  runCustomerGet,
}

func init() {
	customerSaveCmd.Flags().StringVar(&customerFirstName, "first", "", "first name")
	customerSaveCmd.Flags().StringVar(&customerLastName, "last", "", "last name")
	customerSaveCmd.Flags().StringVar(&customerEmail, "email", "", "email address")
	customerSaveCmd.Flags().StringVar(&customerPhone, "phone", "", "phone number")
	customerSaveCmd.Flags().BoolVar(&customerNoPrompt, "no-prompt", false, "never prompt for missing fields")

	customerCmd.AddCommand(customerSaveCmd)
	customerCmd.AddCommand(customerGetCmd)
	rootCmd.AddCommand(customerCmd)
}

func runCustomerSave(cmd *cobra.Command, _ []string) error {
	if !customerNoPrompt {
		if err := promptMissing(&customerFirstName, "First name"); err != nil {
			return err
		}
		if err := promptMissing(&customerLastName, "Last name"); err != nil {
			return err
		}
	}

	service, cleanup, err := serviceFor(cmd, need{entities: true})
	if err != nil {
		return err
	}
	defer cleanup()

	rowKey, err := service.SaveCustomer(cmd.Context(), customerFirstName, customerLastName, customerEmail, customerPhone)
	if err != nil {
		return err
	}

	return getFormatter().FormatCustomerSaved(os.Stdout, storegate.PartitionKey(customerFirstName, customerLastName), rowKey)
}

func promptMissing(value *string, label string) error {
	if *value != "" {
		return nil
	}

	prompt := promptui.Prompt{
		Label: label,
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New(strings.ToLower(label) + " is required")
			}
			return nil
		},
	}

	result, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return fmt.Errorf("%w: %s not provided", storegate.ErrInvalidInput, strings.ToLower(label))
		}
		return fmt.Errorf("prompt %s: %w", strings.ToLower(label), err)
	}

	*value = strings.TrimSpace(result)
	return nil
}

func runCustomerGet(cmd *cobra.Command, args []string) error {
	service, cleanup, err := serviceFor(cmd, need{entities: true})
	if err != nil {
		return err
	}
	defer cleanup()

	rec, err := service.GetCustomer(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}

	return getFormatter().FormatCustomer(os.Stdout, rec)
}
