package main

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myshop/internal/apperr"
	"myshop/internal/catalog"
	"myshop/internal/models"
	"myshop/internal/resource"
	"myshop/internal/state"
)

func TestWatchRendersSuccess(t *testing.T) {
	repo := catalog.NewFixture()
	h := state.NewHolder(context.Background(), func(ctx context.Context) resource.Result[[]models.Product] {
		return repo.ListProducts(ctx)
	})
	defer h.Close()

	var out bytes.Buffer
	require.NoError(t, watch[[]models.Product](context.Background(), &out, h, 0, showProducts))
	assert.Contains(t, out.String(), "Men's Jeans")
	assert.Contains(t, out.String(), "CATEGORY")
}

func TestWatchRetriesFailures(t *testing.T) {
	var calls atomic.Int32
	h := state.NewHolder(context.Background(), func(ctx context.Context) resource.Result[[]string] {
		if calls.Add(1) < 3 {
			return resource.Failure[[]string](apperr.New(apperr.KindTransport, "catalog unavailable"))
		}
		return resource.Success([]string{"clothing"})
	})
	defer h.Close()

	var out bytes.Buffer
	require.NoError(t, watch[[]string](context.Background(), &out, h, 2, showCategories))
	assert.Contains(t, out.String(), "retrying 2/2")
	assert.Contains(t, out.String(), "clothing")
}

func TestWatchReturnsFinalFailure(t *testing.T) {
	repo := catalog.NewFixture()
	h := state.NewHolder(context.Background(), func(ctx context.Context) resource.Result[models.Product] {
		return repo.GetProduct(ctx, 404)
	})
	defer h.Close()

	var out bytes.Buffer
	err := watch[models.Product](context.Background(), &out, h, 1, showProduct)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Contains(t, err.Error(), "not_found")
}

func TestRenderLoading(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, render(&out, resource.Loading[models.UserProfile](), showProfile))
	assert.Equal(t, "loading...\n", out.String())
}
