package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/app_registry/internal/app/domain/application"
)

// NewListCommand prints every record in stored order.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all applications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *session, out *OutputFormatter) error {
				apps, err := s.apps.LoadAll(cmd.Context())
				if err != nil {
					return WrapExitError(ExitCommandError, "list applications", err)
				}
				out.VerboseLog("%d applications", len(apps))
				return out.Records(apps)
			})
		},
	}
}

// NewGetCommand prints the record named by its argument.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get NAME",
		Short: "Show one application by exact name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *session, out *OutputFormatter) error {
				app, found, err := s.apps.FindByName(cmd.Context(), args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "get application", err)
				}
				if !found {
					return notFound(args[0])
				}
				return out.Record(app)
			})
		},
	}
}

type searchOptions struct {
	name  string
	owner string
	valid string
}

// NewSearchCommand filters the collection. Flags combine with AND; with none
// set every record matches.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search applications by name, owner and validity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria := application.Criteria{
				AppName:  opts.name,
				AppOwner: opts.owner,
				IsValid:  application.ParseValidity(opts.valid),
			}
			return withSession(cmd, rootOpts, func(s *session, out *OutputFormatter) error {
				apps, err := s.apps.Search(cmd.Context(), criteria)
				if err != nil {
					return WrapExitError(ExitCommandError, "search applications", err)
				}
				return out.Records(apps)
			})
		},
	}
	cmd.Flags().StringVar(&opts.name, "name", "", "case-insensitive substring of the name")
	cmd.Flags().StringVar(&opts.owner, "owner", "", "case-insensitive substring of the owner")
	cmd.Flags().StringVar(&opts.valid, "valid", "", `"true" for valid records, anything else for invalid`)
	return cmd
}

type updateOptions struct {
	owner string
	valid string
}

// NewUpdateCommand changes the owner and/or validity of one record.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &updateOptions{}
	cmd := &cobra.Command{
		Use:   "update NAME",
		Short: "Update an application's owner or validity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch application.Patch
			if cmd.Flags().Changed("owner") {
				patch.AppOwner = &opts.owner
			}
			if cmd.Flags().Changed("valid") {
				valid, err := strconv.ParseBool(opts.valid)
				if err != nil {
					return NewExitError(ExitCommandError, fmt.Sprintf("--valid must be a boolean, got %q", opts.valid))
				}
				patch.IsValid = &valid
			}
			if patch.IsEmpty() {
				return NewExitError(ExitCommandError, "nothing to update: set --owner and/or --valid")
			}
			return withSession(cmd, rootOpts, func(s *session, out *OutputFormatter) error {
				app, found, err := s.apps.Update(cmd.Context(), args[0], patch)
				if err != nil {
					return WrapExitError(ExitCommandError, "update application", err)
				}
				if !found {
					return notFound(args[0])
				}
				return out.Record(app)
			})
		},
	}
	cmd.Flags().StringVar(&opts.owner, "owner", "", "new owner")
	cmd.Flags().StringVar(&opts.valid, "valid", "", "new validity (true|false)")
	return cmd
}

// NewDeleteCommand removes the first record with the given name.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *session, out *OutputFormatter) error {
				app, found, err := s.apps.Delete(cmd.Context(), args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "delete application", err)
				}
				if !found {
					return notFound(args[0])
				}
				return out.Record(app)
			})
		},
	}
}

func notFound(name string) error {
	return NewExitError(ExitFailure, fmt.Sprintf("application %q not found", name))
}

func withSession(cmd *cobra.Command, rootOpts *RootOptions, fn func(*session, *OutputFormatter) error) error {
	s, err := openSession(cmd.Context(), rootOpts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s, newFormatter(rootOpts, cmd))
}
