package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bibbank/bureau-service/pkg/auth"
	"github.com/bibbank/bureau-service/pkg/tlsutil"
)

func devCertsCmd() *cobra.Command {
	var opts tlsutil.DevCertOptions
	cmd := &cobra.Command{
		Use:   "dev-certs",
		Short: "Generate a development CA and gRPC server certificate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := tlsutil.GenerateDevCerts(opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "CA certificate:     %s\n", files.CA)
			fmt.Fprintf(out, "server certificate: %s\n", files.Cert)
			fmt.Fprintf(out, "server key:         %s\n", files.Key)
			fmt.Fprintln(out, "set GRPC_TLS_CERT_FILE and GRPC_TLS_KEY_FILE to serve TLS")
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&opts.Hosts, "host", []string{"localhost", "127.0.0.1"}, "DNS names or IPs of the server")
	cmd.Flags().StringVar(&opts.OutDir, "out", "certs", "output directory")
	cmd.Flags().StringVar(&opts.Organization, "org", "BIB Bureau Dev", "certificate organization")
	cmd.Flags().DurationVar(&opts.Validity, "validity", 90*24*time.Hour, "server certificate validity")
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		subject  string
		clientID string
		roles    []string
		issuer   string
		ttl      time.Duration
		keyFile  string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for local testing",
		Long: `Issue a signed JWT accepted by bureaud. The key is taken from --key
(an RSA private key PEM) or JWT_SECRET.

Examples:
  JWT_SECRET=dev bureauctl token --sub officer-1 --role loan_officer`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := auth.JWTConfig{Issuer: issuer, Expiration: ttl}
			switch {
			case keyFile != "":
				key, err := auth.LoadKeyFromFile(keyFile)
				if err != nil {
					return err
				}
				cfg.PrivateKeyPEM = string(key)
			case os.Getenv("JWT_SECRET") != "":
				cfg.Secret = os.Getenv("JWT_SECRET")
			default:
				return errors.New("pass --key or set JWT_SECRET")
			}
			svc, err := auth.NewJWTService(cfg)
			if err != nil {
				return err
			}
			token, err := svc.GenerateToken(subject, clientID, roles)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "sub", "", "token subject")
	cmd.Flags().StringVar(&clientID, "client", "", "client id claim")
	cmd.Flags().StringSliceVar(&roles, "role", []string{auth.RoleLoanOfficer}, "roles to grant")
	cmd.Flags().StringVar(&issuer, "issuer", "bib-gateway", "issuer claim")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultExpiration, "token lifetime")
	cmd.Flags().StringVar(&keyFile, "key", "", "RSA private key PEM file")
	_ = cmd.MarkFlagRequired("sub")
	return cmd
}
