package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"myshop/internal/apperr"
	"myshop/internal/models"
	"myshop/internal/resource"
)

// slot is satisfied by state.Holder and state.ProfileController.
type slot[T any] interface {
	Await(ctx context.Context) (resource.Result[T], error)
	Retry(ctx context.Context) resource.Result[T]
}

// watch waits for the slot to settle, retrying a failure up to retries
// times, then renders it. The final failure is returned.
func watch[T any](ctx context.Context, out io.Writer, h slot[T], retries int, show func(io.Writer, T)) error {
	r, err := h.Await(ctx)
	if err != nil {
		return err
	}

	for attempt := 1; r.IsFailure() && attempt <= retries; attempt++ {
		fmt.Fprintf(out, "failed (%s), retrying %d/%d\n", apperr.KindOf(r.Err()), attempt, retries)
		r = h.Retry(ctx)
	}
	return render(out, r, show)
}

func render[T any](out io.Writer, r resource.Result[T], show func(io.Writer, T)) error {
	return resource.Match(r,
		func() error {
			fmt.Fprintln(out, "loading...")
			return nil
		},
		func(v T) error {
			show(out, v)
			return nil
		},
		func(err error) error {
			return fmt.Errorf("%s: %w", apperr.KindOf(err), err)
		},
	)
}

func showProducts(out io.Writer, products []models.Product) {
	if len(products) == 0 {
		fmt.Fprintln(out, "no products")
		return
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tBRAND\tCATEGORY\tPRICE\tRATING")
	for _, p := range products {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%.1f\n", p.ID, p.Title, p.Brand, p.Category, p.Price, p.Rating)
	}
	_ = tw.Flush()
}

func showProduct(out io.Writer, p models.Product) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", p.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", p.Title)
	fmt.Fprintf(tw, "Description:\t%s\n", p.Description)
	fmt.Fprintf(tw, "Brand:\t%s\n", p.Brand)
	fmt.Fprintf(tw, "Category:\t%s\n", p.Category)
	fmt.Fprintf(tw, "Price:\t%d (-%.0f%%)\n", p.Price, p.DiscountPercentage)
	fmt.Fprintf(tw, "Rating:\t%.1f\n", p.Rating)
	fmt.Fprintf(tw, "Stock:\t%d\n", p.Stock)
	_ = tw.Flush()
}

func showCategories(out io.Writer, categories []string) {
	fmt.Fprintln(out, strings.Join(categories, "\n"))
}

func showProfile(out io.Writer, p models.UserProfile) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Name:\t%s\n", p.Name)
	fmt.Fprintf(tw, "Email:\t%s\n", p.Email)
	fmt.Fprintf(tw, "Phone:\t%s\n", p.Phone)
	fmt.Fprintf(tw, "Address:\t%s\n", p.Address)
	_ = tw.Flush()
}
