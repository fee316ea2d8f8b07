package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/bibbank/bureau-service/internal/domain/service"
)

func emiCmd() *cobra.Command {
	var (
		amount string
		rate   string
		years  int
	)
	cmd := &cobra.Command{
		Use:   "emi",
		Short: "Compute the monthly installment for a loan",
		Long: `Compute the reducing-balance EMI the lender ranking shows.

The rate may be a lender's advertised range; its lower bound is used.

Examples:
  bureauctl emi --amount 2500000 --rate "8.35% - 9.10%" --years 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			principal, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", amount, err)
			}
			emi, ok := service.CalculateEMI(principal, rate, years)
			fmt.Fprintln(cmd.OutOrStdout(), service.FormatEMI(emi, ok))
			return nil
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "loan principal")
	cmd.Flags().StringVar(&rate, "rate", "", "annual interest rate in percent, or a range")
	cmd.Flags().IntVar(&years, "years", 20, "tenure in years")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("rate")
	return cmd
}
