package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/ilkin0/docguard/internal/client"
	"github.com/ilkin0/docguard/internal/policy"
	"github.com/ilkin0/docguard/internal/utils"
	"github.com/spf13/cobra"
)

// errInvalid signals a rejected file; the envelope has already been printed.
var errInvalid = errors.New("file is not valid")

func newRootCmd() *cobra.Command {
	var policyFile string

	root := &cobra.Command{
		Use:           "docguard",
		Short:         "Verify documents against the upload policy",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&policyFile, "policy", utils.GetEnv("POLICY_FILE", ""),
		"YAML policy table (built-in defaults when empty)")

	root.AddCommand(newVerifyCmd(&policyFile), newPolicyCmd(&policyFile))
	return root
}

func newVerifyCmd(policyFile *string) *cobra.Command {
	var destination, contentType string

	cmd := &cobra.Command{
		Use:   "verify <path>",
		Short: "Verify a local file through the service, or locally when none is configured",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := policy.Load(*policyFile)
			if err != nil {
				return err
			}

			path := args[0]
			if contentType == "" {
				if contentType, err = detectContentType(path); err != nil {
					return err
				}
			}
			if destination == "" {
				destination = table.DefaultDestination()
			}

			f, err := client.FromPath(path, contentType)
			if err != nil {
				return err
			}

			c := client.New(client.LoadConfig(), table, nil)
			res := c.Verify(cmd.Context(), f, destination)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return fmt.Errorf("failed to print result: %w", err)
			}

			if !res.Valid {
				return errInvalid
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&destination, "destination", "d", "", "destination bucket (first allow-listed destination when empty)")
	cmd.Flags().StringVarP(&contentType, "content-type", "t", "", "declared content type (detected from content when empty)")
	return cmd
}

func newPolicyCmd(policyFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "policy",
		Short: "Print the effective policy table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := policy.Load(*policyFile)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "EXTENSION\tMIME TYPES\tMAX SIZE\tSIGNATURES")
			for _, ext := range table.Extensions() {
				entry, _ := table.Lookup(ext)

				sigs := make([]string, 0, len(entry.Signatures()))
				for _, sig := range entry.Signatures() {
					sigs = append(sigs, hex.EncodeToString(sig))
				}
				if len(sigs) == 0 {
					sigs = append(sigs, "-")
				}

				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					ext,
					strings.Join(entry.MIMETypes(), ", "),
					humanize.Bytes(uint64(entry.MaxSize())),
					strings.Join(sigs, ", "),
				)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\nDestinations: %s\n", strings.Join(table.Destinations(), ", "))
			return nil
		},
	}
}

func detectContentType(path string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to detect content type: %w", err)
	}

	mediaType, _, err := mime.ParseMediaType(mt.String())
	if err != nil {
		return mt.String(), nil
	}
	return mediaType, nil
}
