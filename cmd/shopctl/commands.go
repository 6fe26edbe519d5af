package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"myshop/internal/apperr"
	"myshop/internal/auth"
	"myshop/internal/catalog"
	"myshop/internal/models"
	"myshop/internal/resource"
	"myshop/internal/session"
	"myshop/internal/state"
	"myshop/internal/store"
)

var (
	email    string
	password string
	newName  string
	signOut  bool
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List every product",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCatalog(cmd, showProducts, func(ctx context.Context, repo catalog.Repository) resource.Result[[]models.Product] {
			return repo.ListProducts(ctx)
		})
	},
}

var productCmd = &cobra.Command{
	Use:   "product <id>",
	Short: "Show one product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid product id %q", args[0])
		}
		return runCatalog(cmd, showProduct, func(ctx context.Context, repo catalog.Repository) resource.Result[models.Product] {
			return repo.GetProduct(ctx, id)
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search products by title, description, brand or category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCatalog(cmd, showProducts, func(ctx context.Context, repo catalog.Repository) resource.Result[[]models.Product] {
			return repo.SearchProducts(ctx, args[0])
		})
	},
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List category names",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCatalog(cmd, showCategories, func(ctx context.Context, repo catalog.Repository) resource.Result[[]string] {
			return repo.ListCategories(ctx)
		})
	},
}

var categoryCmd = &cobra.Command{
	Use:   "category <name>",
	Short: "List the products of one category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCatalog(cmd, showProducts, func(ctx context.Context, repo catalog.Repository) resource.Result[[]models.Product] {
			return repo.ListProductsByCategory(ctx, args[0])
		})
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Log in and show your profile",
	Long: `Log in with --email and --password, then show the stored profile.

With --set-name the display name is written first and the profile shown is
the one read back afterwards. With --sign-out the session is ended and the
signed-out slot is shown.`,
	Args: cobra.NoArgs,
	RunE: runProfile,
}

func runCatalog[T any](cmd *cobra.Command, show func(w io.Writer, v T), read func(context.Context, catalog.Repository) resource.Result[T]) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	repo, err := catalogRepository()
	if err != nil {
		return err
	}

	h := state.NewHolder(ctx, func(ctx context.Context) resource.Result[T] {
		return read(ctx, repo)
	})
	defer h.Close()

	return watch[T](ctx, cmd.OutOrStdout(), h, retries, show)
}

func runProfile(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	out := cmd.OutOrStdout()

	if password == "" {
		password = os.Getenv("SHOPCTL_PASSWORD")
	}

	st, err := store.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	repo := auth.NewRepository(st, auth.LogMailer{}, cfg.PasswordResetTTL)
	sess := session.New()
	if err := render(out, repo.Login(ctx, sess, email, password), func(io.Writer, models.Principal) {}); err != nil {
		return err
	}

	ctl := state.NewProfileController(ctx, repo, sess)
	defer ctl.Close()

	if newName != "" {
		current, err := ctl.Await(ctx)
		if err != nil {
			return err
		}
		p, err := renamed(current, email, newName)
		if err != nil {
			return err
		}
		if err := render(out, ctl.Update(ctx, p), showProfile); err != nil {
			return err
		}
	} else if err := watch[models.UserProfile](ctx, out, ctl, retries, showProfile); err != nil {
		return err
	}

	if signOut {
		ctl.SignOut()
		fmt.Fprintf(out, "signed out: %v\n", ctl.State().Err())
	}
	return nil
}

// renamed returns the profile to write for a name change. A missing profile
// starts from an empty document; any other read failure is returned, since
// the write is a full replace and would drop the fields it could not read.
func renamed(current resource.Result[models.UserProfile], email, name string) (models.UserProfile, error) {
	p, ok := current.Value()
	if !ok {
		err := current.Err()
		if err == nil {
			err = apperr.New(apperr.KindUnknown, "profile not loaded")
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return models.UserProfile{}, fmt.Errorf("%s: %w", apperr.KindOf(err), err)
		}
		p = models.UserProfile{Email: email}
	}
	p.Name = name
	return p, nil
}
