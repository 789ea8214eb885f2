package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"knowledgestack/internal/domain/models"
	"knowledgestack/internal/domain/services"

	"github.com/spf13/cobra"
)

func newOrgCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "org",
		Short: "Manage organizations",
		Long: `Create and list organizations.

Examples:
  kbctl org create "Acme Corp" --slug acme --brand "#1d4ed8"
  kbctl org list`,
	}

	cmd.AddCommand(newOrgCreateCmd(e))
	cmd.AddCommand(newOrgListCmd(e))

	return cmd
}

func newOrgCreateCmd(e *env) *cobra.Command {
	var (
		slug  string
		brand string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &services.CreateOrganizationRequest{Name: args[0], BrandPrimary: brand}
			if slug != "" {
				req.Slug = &slug
			}
			org, err := e.stack.OrgService.CreateOrganization(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created organization %s (slug %s, id %s)\n", org.Name, org.Slug, org.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&slug, "slug", "", "Subdomain slug (derived from the name when omitted)")
	cmd.Flags().StringVar(&brand, "brand", "", "Primary brand color as #rrggbb")

	return cmd
}

func newOrgListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List organizations",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			orgs, err := e.stack.OrgService.ListOrganizations(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SLUG\tNAME\tID")
			for _, org := range orgs {
				fmt.Fprintf(w, "%s\t%s\t%s\n", org.Slug, org.Name, org.ID)
			}
			return w.Flush()
		},
	}
}

func newUserCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(newUserCreateCmd(e))
	return cmd
}

func newUserCreateCmd(e *env) *cobra.Command {
	var (
		email       string
		displayName string
		password    string
	)

	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a user",
		Long: `Create a user with a local password. The password is read from
--password or, when that is empty, from KB_PASSWORD.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("KB_PASSWORD")
			}
			user, err := e.stack.OrgService.CreateUser(cmd.Context(), &services.CreateUserRequest{
				Username:    args[0],
				Email:       email,
				DisplayName: displayName,
				Password:    password,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (id %s)\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&displayName, "display-name", "", "Name shown in the UI")
	cmd.Flags().StringVar(&password, "password", "", "Password (defaults to $KB_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newMemberCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Manage organization memberships",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "grant <org-slug> <username-or-email> <admin|editor|viewer>",
		Short: "Grant or change a user's role in an organization",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			membership, err := e.stack.OrgService.GrantRole(cmd.Context(), args[0], args[1], models.Role(args[2]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s in %s\n", args[1], membership.Role, args[0])
			return nil
		},
	})
	return cmd
}

func newSearchCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Maintain the search index",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "reindex <org-slug>",
		Short: "Rebuild an organization's search index from the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			org, err := e.stack.OrgService.GetOrganizationBySlug(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("organization %s: %w", args[0], err)
			}
			n, err := e.stack.Search.Reindex(cmd.Context(), org.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d records for %s\n", n, org.Slug)
			return nil
		},
	})
	return cmd
}
