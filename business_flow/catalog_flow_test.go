package businessflow_test

import (
	"testing"

	"github.com/amirphl/Kuruma-no-Ichiba/app/dto"
	businessflow "github.com/amirphl/Kuruma-no-Ichiba/business_flow"
	"github.com/amirphl/Kuruma-no-Ichiba/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogFlow(t *testing.T) {
	withEnv(t, func(e *env) {
		t.Run("GetReturnsSeededSnapshot", func(t *testing.T) {
			got, err := e.catalog.GetFilterCatalog(ctx())
			require.NoError(t, err)
			assert.Equal(t, int64(1), got.Version)
			assert.Equal(t, []string{"Honda", "Tata"}, got.Brands)
			assert.Equal(t, []string{"Nexon", "Punch"}, got.Models["Tata"])
		})

		t.Run("ReplaceBumpsVersionAndNormalizes", func(t *testing.T) {
			got, err := e.catalog.UpdateFilterCatalog(ctx(), &dto.UpdateFilterCatalogRequest{
				Version: 1,
				Brands:  []string{" Tata", "Honda", "Maruti", "Tata"},
				Models: map[string][]string{
					"Honda":  {"City", "Civic"},
					"Tata":   {"Punch", "Nexon", "Nexon"},
					"Maruti": {"Swift"},
				},
				Years: []int{2020, 2024, 2022, 2023, 2021, 2024},
			}, e.admin, meta)
			require.NoError(t, err)
			assert.Equal(t, int64(2), got.Version)
			assert.Equal(t, []string{"Honda", "Maruti", "Tata"}, got.Brands)
			assert.Equal(t, []string{"Nexon", "Punch"}, got.Models["Tata"])
			assert.Equal(t, []int{2024, 2023, 2022, 2021, 2020}, got.Years)
		})

		t.Run("StaleVersionIsRejected", func(t *testing.T) {
			_, err := e.catalog.UpdateFilterCatalog(ctx(), &dto.UpdateFilterCatalogRequest{
				Version: 1,
				Brands:  []string{"Kia"},
				Years:   []int{2024},
			}, e.admin, meta)
			assertKind(t, err, businessflow.KindConflict)
			assert.True(t, businessflow.IsStaleCatalog(err))
			assertCode(t, err, "STALE_CATALOG")

			current, err := e.catalog.Snapshot(ctx())
			require.NoError(t, err)
			assert.Equal(t, int64(2), current.Version)
			assert.True(t, current.Document.HasBrand("Maruti"))

			stale, err := e.audits.ByFilter(ctx(), models.AuditLogFilter{Action: ptr(models.AuditActionCatalogUpdateStale)}, "", 0, 0)
			require.NoError(t, err)
			assert.Len(t, stale, 1)
		})

		t.Run("ModelsOfUnknownBrandAreRejected", func(t *testing.T) {
			_, err := e.catalog.UpdateFilterCatalog(ctx(), &dto.UpdateFilterCatalogRequest{
				Version: 2,
				Brands:  []string{"Honda"},
				Models:  map[string][]string{"Tata": {"Nexon"}},
				Years:   []int{2024},
			}, e.admin, meta)
			assertKind(t, err, businessflow.KindValidation)
			assert.Contains(t, businessflow.FieldErrors(err), "models")
		})

		t.Run("OnlyAdminAndManagerWrite", func(t *testing.T) {
			for _, actor := range []businessflow.Actor{e.editor, e.agent, e.customer, businessflow.Anonymous} {
				_, err := e.catalog.ApplyOperation(ctx(), &dto.CatalogOperationRequest{Version: 2, Op: dto.CatalogOpAddBrand, Brand: "Kia"}, actor, meta)
				assertKind(t, err, businessflow.KindPermission)
			}
		})

		t.Run("AddModelToUnknownBrand", func(t *testing.T) {
			_, err := e.catalog.ApplyOperation(ctx(), &dto.CatalogOperationRequest{Version: 2, Op: dto.CatalogOpAddModel, Brand: "Kia", Model: "Seltos"}, e.admin, meta)
			assertKind(t, err, businessflow.KindValidation)
			assert.ErrorIs(t, err, businessflow.ErrUnknownBrand)
		})

		t.Run("OperationAtStaleVersion", func(t *testing.T) {
			_, err := e.catalog.ApplyOperation(ctx(), &dto.CatalogOperationRequest{Version: 1, Op: dto.CatalogOpAddYear, Year: 2019}, e.admin, meta)
			assert.True(t, businessflow.IsStaleCatalog(err))
		})

		t.Run("RenameBrandCarriesModels", func(t *testing.T) {
			got, err := e.catalog.ApplyOperation(ctx(), &dto.CatalogOperationRequest{Version: 2, Op: dto.CatalogOpRenameBrand, Brand: "Maruti", NewName: "Maruti Suzuki"}, e.admin, meta)
			require.NoError(t, err)
			assert.Equal(t, int64(3), got.Version)
			assert.NotContains(t, got.Brands, "Maruti")
			assert.Equal(t, []string{"Swift"}, got.Models["Maruti Suzuki"])
			_, stillThere := got.Models["Maruti"]
			assert.False(t, stillThere)
		})

		t.Run("RemoveBrandDropsModels", func(t *testing.T) {
			got, err := e.catalog.ApplyOperation(ctx(), &dto.CatalogOperationRequest{Version: 3, Op: dto.CatalogOpRemoveBrand, Brand: "Maruti Suzuki"}, e.admin, meta)
			require.NoError(t, err)
			assert.Equal(t, []string{"Honda", "Tata"}, got.Brands)
			_, stillThere := got.Models["Maruti Suzuki"]
			assert.False(t, stillThere)
		})

		t.Run("YearOperations", func(t *testing.T) {
			got, err := e.catalog.ApplyOperation(ctx(), &dto.CatalogOperationRequest{Version: 4, Op: dto.CatalogOpAddYear, Year: 2025}, e.admin, meta)
			require.NoError(t, err)
			assert.Equal(t, 2025, got.Years[0])

			_, err = e.catalog.ApplyOperation(ctx(), &dto.CatalogOperationRequest{Version: 5, Op: dto.CatalogOpRemoveYear, Year: 1990}, e.admin, meta)
			assertKind(t, err, businessflow.KindValidation)
		})

		t.Run("UnknownOperation", func(t *testing.T) {
			_, err := e.catalog.ApplyOperation(ctx(), &dto.CatalogOperationRequest{Version: 5, Op: "merge_brand"}, e.admin, meta)
			assertKind(t, err, businessflow.KindValidation)
			assert.Contains(t, businessflow.FieldErrors(err), "op")
		})
	})
}

func TestCatalogFlowEmptyCatalog(t *testing.T) {
	withEnv(t, func(e *env) {
		require.NoError(t, e.db.DB.Where("1 = 1").Delete(&models.FilterCatalog{}).Error)

		got, err := e.catalog.GetFilterCatalog(ctx())
		require.NoError(t, err)
		assert.Equal(t, int64(0), got.Version)
		assert.Empty(t, got.Brands)

		updated, err := e.catalog.ApplyOperation(ctx(), &dto.CatalogOperationRequest{Version: 0, Op: dto.CatalogOpAddBrand, Brand: "Kia"}, e.admin, meta)
		require.NoError(t, err)
		assert.Equal(t, int64(1), updated.Version)
		assert.Equal(t, []string{"Kia"}, updated.Brands)
	})
}

func ptr[T any](v T) *T {
	return &v
}
