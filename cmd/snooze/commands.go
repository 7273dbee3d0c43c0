package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/pders01/snooze/internal/api"
	"github.com/pders01/snooze/internal/model"
	"github.com/pders01/snooze/internal/storage"
	"github.com/pders01/snooze/internal/validation"
)

var errNotLoggedIn = errors.New("not logged in (run snooze login)")

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Faint(true)
)

// withEnv wraps a command body with setup and teardown.
func withEnv(opts *options, fn func(cmd *cobra.Command, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := setup(opts)
		if err != nil {
			return err
		}
		defer e.Close()
		return fn(cmd, e, args)
	}
}

// currentUser restores the persisted login, or fails with errNotLoggedIn.
func currentUser(ctx context.Context, e *env) (*model.User, error) {
	sess, err := e.store.LoadSession()
	if err != nil {
		return nil, err
	}
	user, err := e.client.GetSessionUser(ctx, sess.Token, sess.Username)
	if errors.Is(err, api.ErrAuth) {
		if clearErr := e.store.ClearSession(); clearErr != nil {
			return nil, clearErr
		}
		return nil, fmt.Errorf("%w: saved session was rejected", errNotLoggedIn)
	}
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errNotLoggedIn
	}
	return user, nil
}

func persist(e *env, user *model.User) error {
	return e.store.SaveSession(storage.Session{Token: user.Token, Username: user.Username})
}

func printStories(w io.Writer, c *model.StoryCollection, user *model.User) {
	if c.Len() == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No stories."))
		return
	}
	for _, s := range c.Stories() {
		mark := " "
		if user != nil && user.IsFavorite(s.ID) {
			mark = "★"
		}
		fmt.Fprintf(w, "%s %s %s\n", mark, titleStyle.Render(s.Title), mutedStyle.Render("("+s.Host()+")"))
		fmt.Fprintf(w, "  %s\n", mutedStyle.Render(fmt.Sprintf("%s • by %s • posted by %s", s.ID, s.Author, s.Username)))
	}
}

func newStoriesCmd(opts *options) *cobra.Command {
	var mine, favorites bool

	cmd := &cobra.Command{
		Use:   "stories",
		Short: "List stories",
		Args:  cobra.NoArgs,
		RunE: withEnv(opts, func(cmd *cobra.Command, e *env, args []string) error {
			ctx := cmd.Context()

			if !mine && !favorites {
				stories, err := e.client.FetchAllStories(ctx)
				if err != nil {
					return err
				}
				// the favorite marker is a bonus, anonymous listing is fine
				user, err := currentUser(ctx, e)
				if err != nil && !errors.Is(err, errNotLoggedIn) {
					return err
				}
				printStories(cmd.OutOrStdout(), stories, user)
				return nil
			}

			user, err := currentUser(ctx, e)
			if err != nil {
				return err
			}
			if mine {
				printStories(cmd.OutOrStdout(), user.OwnStories, user)
			} else {
				printStories(cmd.OutOrStdout(), user.Favorites, user)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&mine, "mine", false, "Only stories you submitted")
	cmd.Flags().BoolVar(&favorites, "favorites", false, "Only your favorites")
	cmd.MarkFlagsMutuallyExclusive("mine", "favorites")
	return cmd
}

func newSubmitCmd(opts *options) *cobra.Command {
	var draft model.Draft

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a story",
		Args:  cobra.NoArgs,
		RunE: withEnv(opts, func(cmd *cobra.Command, e *env, args []string) error {
			if err := validation.Required(
				validation.Field{Name: "author", Value: draft.Author},
				validation.Field{Name: "title", Value: draft.Title},
				validation.Field{Name: "url", Value: draft.URL},
			); err != nil {
				return err
			}

			user, err := currentUser(cmd.Context(), e)
			if err != nil {
				return err
			}
			story, err := e.client.SubmitStory(cmd.Context(), user, draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Submitted %s (%s)\n", story.Title, story.ID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&draft.Author, "author", "", "Story author")
	cmd.Flags().StringVar(&draft.Title, "title", "", "Story title")
	cmd.Flags().StringVar(&draft.URL, "url", "", "Story link")
	return cmd
}

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <story-id>",
		Short: "Delete one of your stories",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(opts, func(cmd *cobra.Command, e *env, args []string) error {
			user, err := currentUser(cmd.Context(), e)
			if err != nil {
				return err
			}
			if err := e.client.DeleteStory(cmd.Context(), user, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		}),
	}
}

func newFavoriteCmd(opts *options, add bool) *cobra.Command {
	use, short, done := "favorite", "Add a story to your favorites", "Favorited"
	if !add {
		use, short, done = "unfavorite", "Remove a story from your favorites", "Unfavorited"
	}

	return &cobra.Command{
		Use:   use + " <story-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(opts, func(cmd *cobra.Command, e *env, args []string) error {
			user, err := currentUser(cmd.Context(), e)
			if err != nil {
				return err
			}
			if add {
				err = e.client.AddFavorite(cmd.Context(), user, args[0])
			} else {
				err = e.client.RemoveFavorite(cmd.Context(), user, args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d favorites)\n", done, args[0], user.Favorites.Len())
			return nil
		}),
	}
}

func newLoginCmd(opts *options) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: withEnv(opts, func(cmd *cobra.Command, e *env, args []string) error {
			user, err := e.client.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			if err := persist(e, user); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", user.Username)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newSignupCmd(opts *options) *cobra.Command {
	var username, password, name string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: withEnv(opts, func(cmd *cobra.Command, e *env, args []string) error {
			user, err := e.client.CreateUser(cmd.Context(), username, password, name)
			if err != nil {
				return err
			}
			if err := persist(e, user); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s and logged in\n", user.Username)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newLogoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: withEnv(opts, func(cmd *cobra.Command, e *env, args []string) error {
			if err := e.store.ClearSession(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		}),
	}
}

func newWhoamiCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		Args:  cobra.NoArgs,
		RunE: withEnv(opts, func(cmd *cobra.Command, e *env, args []string) error {
			user, err := currentUser(cmd.Context(), e)
			if errors.Is(err, errNotLoggedIn) {
				fmt.Fprintln(cmd.OutOrStdout(), "anonymous")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", user.Name, user.Username)
			fmt.Fprintf(cmd.OutOrStdout(), "%d stories, %d favorites\n", user.OwnStories.Len(), user.Favorites.Len())
			return nil
		}),
	}
}
