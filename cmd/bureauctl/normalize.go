package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/service"
	"github.com/bibbank/bureau-service/internal/domain/valueobject"
)

type normalizedProfile struct {
	ProviderKind   string               `json:"provider_kind"`
	Score          *int                 `json:"score"`
	ScoreSource    string               `json:"score_source"`
	ActiveEMITotal decimal.Decimal      `json:"active_emi_total"`
	Identity       model.IdentityFields `json:"identity"`
	OpenTradelines []model.Tradeline    `json:"open_tradelines"`
}

func normalizeCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "normalize [report.json]",
		Short: "Normalize a raw bureau report into the canonical profile",
		Long: `Normalize a raw bureau or identity payload and print the canonical
profile as JSON. Reads stdin when no file is given. Without --kind the
payload shape is inferred.

Examples:
  bureauctl normalize report.json
  bureauctl normalize --kind SECONDARY_BUREAU < truelink.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			pk, err := providerKind(kind, raw)
			if err != nil {
				return err
			}
			profile, err := service.NewProfileNormalizer(service.NewObligationExtractor()).Normalize(raw, pk)
			if err != nil {
				return err
			}

			out := normalizedProfile{
				ProviderKind:   profile.ProviderKind().String(),
				ScoreSource:    profile.ScoreSource().String(),
				ActiveEMITotal: profile.ActiveEMITotal(),
				Identity:       profile.Identity().Fields(),
				OpenTradelines: profile.OpenTradelines(),
			}
			if s, ok := profile.Score(); ok {
				out.Score = &s
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "payload kind: PRIMARY_BUREAU, SECONDARY_BUREAU, PAN_REGISTRY or STORED_RECORD")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 {
		return io.ReadAll(cmd.InOrStdin())
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	return raw, nil
}

func providerKind(flag string, raw []byte) (valueobject.ProviderKind, error) {
	if flag != "" {
		return valueobject.NewProviderKind(flag)
	}
	root, err := service.DecodePayload(raw)
	if err != nil {
		return valueobject.ProviderKind{}, err
	}
	pk, ok := service.InferProviderKind(root)
	if !ok {
		return valueobject.ProviderKind{}, errors.New("cannot infer the payload kind, pass --kind")
	}
	return pk, nil
}
