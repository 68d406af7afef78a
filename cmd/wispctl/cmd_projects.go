package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"wisp/internal/project"
)

func (c *cli) listCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your apps, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, err := c.env.Backend.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			project.SortByCreatedDesc(rows)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), rows)
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No apps yet. Create one with `wispctl create`.")
				return nil
			}
			return writeTable(cmd.OutOrStdout(), rows, time.Now())
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (c *cli) getCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.env.Backend.GetProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), p)
			}
			writeDetail(cmd.OutOrStdout(), p, c.env.Config.AppDomain)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (c *cli) discoverCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List public apps from the community, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, err := c.env.Backend.ListPublicProjects(cmd.Context())
			if err != nil {
				return err
			}
			project.SortByCreatedDesc(rows)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), rows)
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No community apps yet.")
				return nil
			}
			return writeGallery(cmd.OutOrStdout(), rows, c.env.Config.AppDomain, time.Now())
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (c *cli) createCmd() *cobra.Command {
	var d project.Draft
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an app from a prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := c.env.RequireSession()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("private") {
				d.Private = sess.Preferences.PrivateByDefault
			}
			d = d.Normalize()
			if err := d.Validate(); err != nil {
				return err
			}

			row := d.Row(sess.UserID)
			var p project.Project
			if d.IconPath != "" {
				p, err = c.env.API.CreateProject(cmd.Context(), row, d.IconPath)
			} else {
				p, err = c.env.Backend.InsertProject(cmd.Context(), row)
			}
			if err != nil {
				return err
			}
			c.env.Logger.Info("project created", "id", p.ID, "project_id", p.ProjectID)
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", p.Title(), p.ID)
			if u := p.URL(c.env.Config.AppDomain); u != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "It will be live at %s once deployed.\n", u)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&d.Name, "name", "", "app name")
	f.StringVar(&d.Description, "description", "", "one-line description")
	f.StringVar(&d.Prompt, "prompt", "", "what the app should do")
	f.BoolVar(&d.Private, "private", false, "make the app private (default from preferences)")
	f.StringVar(&d.IconPath, "icon", "", "path to an icon image to upload")
	return cmd
}

func (c *cli) editCmd() *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Describe a change; the app is regenerated and redeployed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := c.env.RequireSession()
			if err != nil {
				return err
			}
			if description == "" {
				return fmt.Errorf("--description is required")
			}
			if err := c.env.API.UpdateProject(cmd.Context(), args[0], description, sess.UserID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Change requested; the app will redeploy.")
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "the change to make")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.env.RequireSession(); err != nil {
				return err
			}
			if err := c.env.Backend.DeleteProject(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, rows []project.Project, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tCREATED")
	for _, p := range rows {
		created := "-"
		if t := p.Created(); !t.IsZero() {
			created = humanize.RelTime(t, now, "ago", "from now")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Title(), p.Status.Label(), created)
	}
	return tw.Flush()
}

func writeGallery(w io.Writer, rows []project.Project, appDomain string, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tURL\tCREATED")
	for _, p := range rows {
		created := "-"
		if t := p.Created(); !t.IsZero() {
			created = humanize.RelTime(t, now, "ago", "from now")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Title(), p.URL(appDomain), created)
	}
	return tw.Flush()
}

func writeDetail(w io.Writer, p project.Project, appDomain string) {
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(w, "%-12s %s\n", name+":", value)
		}
	}
	stamp := func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Local().Format(time.RFC3339)
	}
	visibility := "Public"
	if p.Private {
		visibility = "Private"
	}

	field("ID", p.ID)
	field("Title", p.Title())
	field("Name", p.Name)
	field("Status", p.Status.Label())
	field("Message", project.Deref(p.StatusMessage))
	field("Error", project.Deref(p.Error))
	field("URL", p.URL(appDomain))
	field("Visibility", visibility)
	field("Created", stamp(p.CreatedAt))
	field("Updated", stamp(p.LastUpdated))
	field("Deployed", stamp(p.DeployedAt))
	field("Project ID", p.ProjectID)
	if p.Description != "" {
		fmt.Fprintf(w, "\n%s\n", p.Description)
	}
	if prompt := project.Deref(p.Prompt); prompt != "" {
		fmt.Fprintf(w, "\nPrompt:\n%s\n", prompt)
	}
}
