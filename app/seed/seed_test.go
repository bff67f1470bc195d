package seed_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/amirphl/Kuruma-no-Ichiba/app/seed"
	"github.com/amirphl/Kuruma-no-Ichiba/models"
	"github.com/amirphl/Kuruma-no-Ichiba/repository"
	testingutil "github.com/amirphl/Kuruma-no-Ichiba/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const catalogYAML = `
brands: [Tata, " Honda", Tata]
models:
  Tata: [Nexon, Punch]
  Honda: [City]
years: [2019, 2024, 2021]
`

func TestParseCatalog(t *testing.T) {
	doc, err := seed.ParseCatalog([]byte(catalogYAML))
	require.NoError(t, err)
	assert.Equal(t, []string{"Honda", "Tata"}, doc.Brands)
	assert.Equal(t, []string{"Nexon", "Punch"}, doc.Models["Tata"])
	assert.Equal(t, []int{2024, 2021, 2019}, doc.Years)

	_, err = seed.ParseCatalog([]byte("brands: []\n"))
	assert.ErrorIs(t, err, seed.ErrEmptyCatalogFile)

	_, err = seed.ParseCatalog([]byte("brands: [Tata]\nmodels:\n  Kia: [Seltos]\n"))
	assert.ErrorIs(t, err, models.ErrCatalogOrphanModels)

	_, err = seed.ParseCatalog([]byte("brands: {"))
	assert.Error(t, err)
}

func TestLoadCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o600))

	doc, err := seed.LoadCatalogFile(path)
	require.NoError(t, err)
	assert.True(t, doc.HasModel("Honda", "City"))

	_, err = seed.LoadCatalogFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSeeder(t *testing.T) {
	err := testingutil.TestWithDB(func(db *testingutil.TestDB) error {
		ctx := context.Background()
		s := seed.NewSeeder(db.DB, bcrypt.MinCost, zap.NewNop())
		doc, err := seed.ParseCatalog([]byte(catalogYAML))
		require.NoError(t, err)

		t.Run("CatalogIsWrittenOnce", func(t *testing.T) {
			first, wrote, err := s.SeedCatalog(ctx, doc, false)
			require.NoError(t, err)
			assert.True(t, wrote)
			assert.Equal(t, int64(1), first.Version)

			again, wrote, err := s.SeedCatalog(ctx, testingutil.DefaultCatalog(), false)
			require.NoError(t, err)
			assert.False(t, wrote)
			assert.Equal(t, int64(1), again.Version)
			assert.Equal(t, doc.Brands, again.Document.Brands)

			forced, wrote, err := s.SeedCatalog(ctx, testingutil.DefaultCatalog(), true)
			require.NoError(t, err)
			assert.True(t, wrote)
			assert.Equal(t, int64(2), forced.Version)
		})

		t.Run("AdminIsCreatedOnce", func(t *testing.T) {
			_, _, err := s.EnsureAdmin(ctx, "root", "short")
			assert.ErrorIs(t, err, seed.ErrWeakPassword)

			admin, created, err := s.EnsureAdmin(ctx, " root ", "s3cret-pass")
			require.NoError(t, err)
			assert.True(t, created)
			assert.Equal(t, models.RoleAdmin, admin.Role)
			assert.Equal(t, "root", admin.Username)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("s3cret-pass")))

			same, created, err := s.EnsureAdmin(ctx, "root", "another-pass")
			require.NoError(t, err)
			assert.False(t, created)
			assert.Equal(t, admin.ID, same.ID)

			_, _, err = s.EnsureAdmin(ctx, "  ", "s3cret-pass")
			assert.Error(t, err)
		})
		return nil
	})
	require.NoError(t, err)
}

func TestSeederRun(t *testing.T) {
	err := testingutil.TestWithDB(func(db *testingutil.TestDB) error {
		ctx := context.Background()
		s := seed.NewSeeder(db.DB, bcrypt.MinCost, zap.NewNop())
		catalogs := repository.NewFilterCatalogRepository(db.DB)
		users := repository.NewStaffUserRepository(db.DB)
		doc, err := seed.ParseCatalog([]byte(catalogYAML))
		require.NoError(t, err)

		t.Run("RejectedAdminRollsBackCatalog", func(t *testing.T) {
			_, err := s.Run(ctx, seed.Plan{Catalog: doc, AdminUsername: "root", AdminPassword: "short"})
			assert.ErrorIs(t, err, seed.ErrWeakPassword)

			current, err := catalogs.Current(ctx)
			require.NoError(t, err)
			assert.Nil(t, current)
			admin, err := users.ByUsername(ctx, "root")
			require.NoError(t, err)
			assert.Nil(t, admin)
		})

		t.Run("CatalogAndAdminTogether", func(t *testing.T) {
			res, err := s.Run(ctx, seed.Plan{Catalog: doc, AdminUsername: "root", AdminPassword: "s3cret-pass"})
			require.NoError(t, err)
			assert.True(t, res.CatalogWritten)
			assert.Equal(t, int64(1), res.Catalog.Version)
			assert.True(t, res.AdminCreated)
			assert.Equal(t, models.RoleAdmin, res.Admin.Role)
		})

		t.Run("CatalogOnly", func(t *testing.T) {
			res, err := s.Run(ctx, seed.Plan{Catalog: doc, Overwrite: true})
			require.NoError(t, err)
			assert.True(t, res.CatalogWritten)
			assert.Equal(t, int64(2), res.Catalog.Version)
			assert.Nil(t, res.Admin)
		})
		return nil
	})
	require.NoError(t, err)
}
