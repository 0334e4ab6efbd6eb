package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hmprotos/dentalverify/internal/eligibility"
	"github.com/hmprotos/dentalverify/internal/platform/export"
)

// readDocument decodes an eligibility response from path, or stdin for "-".
func readDocument(cmd *cobra.Command, path string) (*eligibility.Response, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var resp eligibility.Response
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &resp, nil
}

// writeJSON writes v indented to path, or stdout when path is "" or "-".
func writeJSON(cmd *cobra.Command, path string, v any) error {
	out := cmd.OutOrStdout()
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func flattenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flatten",
		Short: "Split the Others service of a saved eligibility response",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _ := cmd.Flags().GetString("in")
			out, _ := cmd.Flags().GetString("out")

			resp, err := readDocument(cmd, in)
			if err != nil {
				return err
			}
			return writeJSON(cmd, out, eligibility.Flatten(resp))
		},
	}
	cmd.Flags().String("in", "-", "Eligibility response JSON (- for stdin)")
	cmd.Flags().String("out", "-", "Output file (- for stdout)")
	return cmd
}

func projectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Print the display grid of every service of an eligibility response",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _ := cmd.Flags().GetString("in")
			out, _ := cmd.Flags().GetString("out")
			modeName, _ := cmd.Flags().GetString("mode")

			mode, err := eligibility.ParseSortingMode(modeName)
			if err != nil {
				return err
			}
			resp, err := readDocument(cmd, in)
			if err != nil {
				return err
			}
			if !resp.Processed() {
				return fmt.Errorf("response was not processed by the payer: %q", resp.APIResponseMessage)
			}
			return writeJSON(cmd, out, eligibility.ProjectResponse(eligibility.Flatten(resp), mode))
		},
	}
	cmd.Flags().String("in", "-", "Eligibility response JSON (- for stdin)")
	cmd.Flags().String("out", "-", "Output file (- for stdout)")
	cmd.Flags().String("mode", "benefit", "Grid layout: benefit or network")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the by-network rows of an eligibility response as Parquet",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _ := cmd.Flags().GetString("in")
			out, _ := cmd.Flags().GetString("out")
			responseID, _ := cmd.Flags().GetString("response-id")
			if in == "" || out == "" {
				return fmt.Errorf("--in and --out are required")
			}
			if responseID == "" {
				responseID = strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
			}

			resp, err := readDocument(cmd, in)
			if err != nil {
				return err
			}
			n, err := export.WriteFile(out, responseID, resp)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d row(s) to %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().String("in", "", "Eligibility response JSON")
	cmd.Flags().String("out", "", "Parquet output file")
	cmd.Flags().String("response-id", "", "Response id stored with each row (default: input file name)")
	return cmd
}
