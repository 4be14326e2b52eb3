package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"solana-airdrop/internal/airdrop"
	"solana-airdrop/internal/domain"
)

var errInvalidRecipients = errors.New("recipient list has invalid entries")

func newValidateCmd(_ *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.csv|file.json>",
		Short: "Validate a recipient list without sending anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readRecipients(args[0])
			if err != nil {
				return err
			}

			valid, errs, err := airdrop.ValidateRecipients(raw)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, msg := range errs {
				fmt.Fprintln(out, msg)
			}
			fmt.Fprintf(out, "%d valid, %d rejected\n", len(valid), len(errs))
			if len(errs) > 0 {
				return errInvalidRecipients
			}
			return nil
		},
	}
}

// readRecipients loads a CSV (address,amount header) or JSON file. JSON may be
// a bare array or an object with a "recipients" array. Blank CSV rows are skipped.
func readRecipients(path string) ([]domain.RecipientRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		var rows []domain.RecipientRequest
		if err := gocsv.UnmarshalBytes(data, &rows); err != nil && !errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		out := rows[:0]
		for _, r := range rows {
			if strings.TrimSpace(r.Address) != "" && strings.TrimSpace(r.Amount.String()) != "" {
				out = append(out, r)
			}
		}
		return out, nil
	}

	var list []domain.RecipientRequest
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Recipients []domain.RecipientRequest `json:"recipients"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return wrapped.Recipients, nil
}
