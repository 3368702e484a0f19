package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verist/sitechain/internal/ledger"
)

// ProjectAddOptions holds flags for the project add command.
type ProjectAddOptions struct {
	*RootOptions
	Name  string
	Actor string
}

// NewProjectCommand creates the project command group.
func NewProjectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage the project registry",
	}

	cmd.AddCommand(newProjectAddCommand(rootOpts))
	cmd.AddCommand(newProjectListCommand(rootOpts))

	return cmd
}

func newProjectAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProjectAddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <project-id>",
		Short: "Register a project",
		Long: `Register a project so progress can be reported against it.

Registration opens the project's progress chain and writes a
CREATE_PROJECT record to the audit chain.

Example:
  sitechain project add bridge-a12 --name "North Bridge" --actor admin-1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectAdd(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "human-readable project name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&opts.Actor, "actor", "", "acting user recorded on the audit trail (required)")
	_ = cmd.MarkFlagRequired("actor")

	return cmd
}

func runProjectAdd(opts *ProjectAddOptions, projectID string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Output:    opts.Output,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	l, cleanup, err := openLedger(opts.RootOptions)
	if err != nil {
		return err
	}
	defer cleanup()

	project, err := l.CreateProject(cmd.Context(), ledger.ProjectInput{
		ID:      projectID,
		Name:    opts.Name,
		ActorID: opts.Actor,
	})
	if err != nil {
		return ledgerFailure(formatter, err)
	}

	if formatter.Output == "json" {
		return formatter.Success(project)
	}
	fmt.Fprintf(formatter.Writer, "✓ Project registered: %s (%s)\n", project.ID, project.Name)
	return nil
}

func newProjectListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered projects",
		Long: `List all registered projects with their creation timestamps.

Example:
  sitechain project list
  sitechain project list --output json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectList(rootOpts, cmd)
		},
	}

	return cmd
}

func runProjectList(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Output:    opts.Output,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	l, cleanup, err := openLedger(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	projects, err := l.ListProjects(cmd.Context())
	if err != nil {
		return ledgerFailure(formatter, err)
	}

	if formatter.Output == "json" {
		return formatter.Success(projects)
	}

	if len(projects) == 0 {
		fmt.Fprintln(formatter.Writer, "No projects registered.")
		return nil
	}
	for _, p := range projects {
		fmt.Fprintf(formatter.Writer, "%s  %s  (created %s)\n", p.ID, p.Name, p.CreatedAt.String())
	}
	return nil
}
