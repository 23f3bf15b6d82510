package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/commerce-core/internal/inventory/domain"
	"github.com/tair/commerce-core/pkg/database/databasetest"
)

func TestGormInventoryRepository(t *testing.T) {
	db := databasetest.NewSQLite(t, &domain.Inventory{}, &domain.StockMovement{})
	repo := NewTracingInventoryRepository(NewGormInventoryRepository(db))
	ctx := context.Background()

	main := &domain.Inventory{ProductID: 1, Location: "main", Quantity: 10, ReservedQuantity: 3, LowStockThreshold: 8}
	require.NoError(t, repo.Create(ctx, main))
	assert.Equal(t, 7, main.AvailableQuantity, "available is derived on save")

	backup := &domain.Inventory{ProductID: 1, Location: "backup", Quantity: 5}
	require.NoError(t, repo.Create(ctx, backup))

	dup := &domain.Inventory{ProductID: 1, Location: "main"}
	assert.Error(t, repo.Create(ctx, dup), "product and location are unique together")

	got, err := repo.LockByProductAndLocation(ctx, 1, "backup")
	require.NoError(t, err)
	assert.Equal(t, backup.ID, got.ID)

	_, err = repo.LockByProductAndLocation(ctx, 1, "nowhere")
	assert.ErrorIs(t, err, domain.ErrInventoryNotFound)

	sum, err := repo.SumAvailableByProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 12, sum)

	sum, err = repo.SumAvailableByProduct(ctx, 99)
	require.NoError(t, err)
	assert.Zero(t, sum)

	low, err := repo.FindLowStock(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, main.ID, low[0].ID)

	productID := uint(1)
	all, total, err := repo.FindAll(ctx, domain.InventoryFilter{ProductID: &productID, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 1)

	main.ReservedQuantity = 0
	require.NoError(t, repo.Save(ctx, main))
	got, err = repo.FindByID(ctx, main.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.AvailableQuantity)

	require.NoError(t, repo.Delete(ctx, backup.ID))
	assert.ErrorIs(t, repo.Delete(ctx, backup.ID), domain.ErrInventoryNotFound)
}

func TestGormInventoryRepository_CreateIfAbsent(t *testing.T) {
	db := databasetest.NewSQLite(t, &domain.Inventory{}, &domain.StockMovement{})
	repo := NewTracingInventoryRepository(NewGormInventoryRepository(db))
	ctx := context.Background()

	first := &domain.Inventory{ProductID: 3, Location: "main", Quantity: 6}
	created, err := repo.CreateIfAbsent(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, first.ID)

	created, err = repo.CreateIfAbsent(ctx, &domain.Inventory{ProductID: 3, Location: "main", Quantity: 99})
	require.NoError(t, err)
	assert.False(t, created)

	got, err := repo.LockByProductAndLocation(ctx, 3, "main")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, 6, got.Quantity)
}

func TestGormMovementRepository(t *testing.T) {
	db := databasetest.NewSQLite(t, &domain.Inventory{}, &domain.StockMovement{})
	repo := NewTracingMovementRepository(NewGormMovementRepository(db))
	ctx := context.Background()

	inventoryID := uint(4)
	to := "store"
	for _, m := range []domain.StockMovement{
		{ProductID: 1, InventoryID: &inventoryID, Type: domain.MovementIn, Quantity: 5, QuantityAfter: 5, Location: "main"},
		{ProductID: 1, InventoryID: &inventoryID, Type: domain.MovementTransfer, Quantity: 2, QuantityBefore: 5, QuantityAfter: 3, Location: "main", ToLocation: &to},
		{ProductID: 2, Type: domain.MovementOut, Quantity: 1, QuantityBefore: 1, Location: "main"},
	} {
		m := m
		require.NoError(t, repo.Append(ctx, &m))
	}

	productID := uint(1)
	movements, total, err := repo.FindAll(ctx, domain.MovementFilter{ProductID: &productID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, domain.MovementTransfer, movements[0].Type, "newest first")

	transfer := domain.MovementTransfer
	_, total, err = repo.FindAll(ctx, domain.MovementFilter{Type: &transfer})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, total, err = repo.FindAll(ctx, domain.MovementFilter{Location: "store"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total, "destination location matches transfers")

	future := time.Now().Add(time.Hour)
	_, total, err = repo.FindAll(ctx, domain.MovementFilter{From: &future})
	require.NoError(t, err)
	assert.Zero(t, total)

	detached, err := repo.DetachInventory(ctx, inventoryID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), detached)

	_, total, err = repo.FindAll(ctx, domain.MovementFilter{InventoryID: &inventoryID})
	require.NoError(t, err)
	assert.Zero(t, total)

	_, total, err = repo.FindAll(ctx, domain.MovementFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total, "entries survive detaching")
}
