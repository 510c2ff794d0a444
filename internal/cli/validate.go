package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/app_registry/internal/app/domain/application"
	"github.com/R3E-Network/app_registry/internal/app/storage"
)

// Finding is the JSON form of a validation finding.
type Finding struct {
	Index  int    `json:"index"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

// ValidationReport is printed by validate and by a rejected seed.
type ValidationReport struct {
	Source   string    `json:"source"`
	Valid    bool      `json:"valid"`
	Findings []Finding `json:"findings"`
}

func newReport(source string, err error) ValidationReport {
	report := ValidationReport{Source: source, Valid: err == nil, Findings: []Finding{}}
	for _, f := range application.Findings(err) {
		report.Findings = append(report.Findings, Finding{Index: f.Index, Field: f.Field, Reason: f.Reason})
	}
	return report
}

func (f *OutputFormatter) Report(r ValidationReport) error {
	if f.Format == "json" {
		return f.JSON(r)
	}
	if r.Valid {
		_, err := fmt.Fprintln(f.Writer, Colorize(f.Writer, fmt.Sprintf("✓ %s is valid", r.Source), ColorGreen))
		return err
	}
	fmt.Fprintln(f.Writer, Colorize(f.Writer, fmt.Sprintf("✗ %s has %d problem(s)", r.Source, len(r.Findings)), ColorRed))
	for _, finding := range r.Findings {
		ve := application.ValidationError{Index: finding.Index, Field: finding.Field, Reason: finding.Reason}
		fmt.Fprintf(f.Writer, "  - %s\n", ve.Error())
	}
	return nil
}

// NewValidateCommand checks the stored document: every record well formed and
// every name unique. Findings exit with ExitFailure.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the stored collection for malformed or duplicate records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *session, out *OutputFormatter) error {
				err := s.apps.ValidateCollection(cmd.Context())
				if err != nil && len(application.Findings(err)) == 0 {
					return WrapExitError(ExitCommandError, "validate collection", err)
				}
				if err := out.Report(newReport("collection", err)); err != nil {
					return err
				}
				if err != nil {
					return NewExitError(ExitFailure, "collection failed validation")
				}
				return nil
			})
		},
	}
}

type seedOptions struct {
	force bool
}

// NewSeedCommand replaces the stored collection with a JSON document read
// from a file. The document is validated first and nothing is written if it
// has findings.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed FILE",
		Short: "Load a JSON document into the configured storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "read seed file", err)
			}
			return withSession(cmd, rootOpts, func(s *session, out *OutputFormatter) error {
				if verr := application.ValidateDocument(data); verr != nil {
					if err := out.Report(newReport(args[0], verr)); err != nil {
						return err
					}
					return NewExitError(ExitFailure, "seed document failed validation")
				}
				apps, err := storage.Decode(data)
				if err != nil {
					return WrapExitError(ExitCommandError, "decode seed file", err)
				}

				if !opts.force {
					existing, err := s.store.Load(cmd.Context())
					switch {
					case errors.Is(err, storage.ErrDocumentNotFound):
					case err != nil:
						return WrapExitError(ExitCommandError, "read current collection (use --force to overwrite it)", err)
					case len(existing) > 0:
						return NewExitError(ExitFailure, fmt.Sprintf("storage already holds %d applications; use --force to replace them", len(existing)))
					}
				}

				if err := s.store.Persist(cmd.Context(), apps); err != nil {
					return WrapExitError(ExitCommandError, "write collection", err)
				}
				s.log.WithField("count", len(apps)).Info("collection seeded")
				return out.Message(ColorGreen, "seeded %d applications", len(apps))
			})
		},
	}
	cmd.Flags().BoolVar(&opts.force, "force", false, "replace the current collection, even if it is unreadable")
	return cmd
}
