package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"wisp/internal/api"
)

func (c *cli) refineCmd() *cobra.Command {
	var req api.RefineRequest
	var answers []string
	cmd := &cobra.Command{
		Use:   "refine",
		Short: "Ask the server to sharpen a prompt",
		Long: `Sends the prompt to the refine endpoint. The server either returns a
refined prompt or clarifying questions; answer them with repeated
--answer <question-id>=<reply> flags on the next call.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(req.Prompt) == "" {
				return errors.New("--prompt is required")
			}
			for _, a := range answers {
				id, reply, ok := strings.Cut(a, "=")
				if !ok || id == "" {
					return fmt.Errorf("answer %q: want <question-id>=<reply>", a)
				}
				req.Answers = append(req.Answers, api.Answer{QuestionID: id, Answer: reply})
			}

			resp, err := c.env.API.Refine(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, q := range resp.Questions {
				fmt.Fprintf(out, "[%s] %s\n", q.ID, q.Question)
				if len(q.Options) > 0 {
					fmt.Fprintf(out, "    options: %s\n", strings.Join(q.Options, ", "))
				}
			}
			if resp.Prompt != "" {
				if len(resp.Questions) > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintln(out, resp.Prompt)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Prompt, "prompt", "", "the prompt to refine")
	f.StringVar(&req.Name, "name", "", "app name, for context")
	f.StringVar(&req.Description, "description", "", "app description, for context")
	f.StringArrayVar(&answers, "answer", nil, "answer to a clarifying question, as <question-id>=<reply>")
	return cmd
}

func (c *cli) loginCmd() *cobra.Command {
	var token, userID string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an access token for later commands",
		Long: `Stores the access token (and user id) in the local state file. Without
--user the token is checked against the auth service and the user id is
taken from the response.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if token == "" {
				return errors.New("--token is required")
			}
			if userID == "" {
				c.env.Backend.SetAccessToken(token)
				u, err := c.env.Backend.GetUser(cmd.Context())
				if err != nil {
					return fmt.Errorf("verify token: %w", err)
				}
				userID = u.ID
			}
			sess, err := c.env.Sessions.SignIn(token, userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", sess.UserID)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "access token")
	cmd.Flags().StringVar(&userID, "user", "", "user id (looked up from the token when empty)")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := c.env.Sessions.SignOut(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func (c *cli) accountCmd() *cobra.Command {
	account := &cobra.Command{
		Use:   "account",
		Short: "Manage your account",
	}
	var yes bool
	del := &cobra.Command{
		Use:   "delete",
		Short: "Delete your account and every app in it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := c.env.RequireSession()
			if err != nil {
				return err
			}
			if !yes {
				return errors.New("this deletes every app and cannot be undone; pass --yes to confirm")
			}
			if err := c.env.API.DeleteAccount(cmd.Context(), sess.UserID); err != nil {
				return err
			}
			if _, err := c.env.Sessions.SignOut(); err != nil {
				return fmt.Errorf("account deleted, but signing out failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Account deleted")
			return nil
		},
	}
	del.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	account.AddCommand(del)
	return account
}
