// Package seed loads the initial filter catalog and bootstraps the first staff account
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/amirphl/Kuruma-no-Ichiba/models"
	"github.com/amirphl/Kuruma-no-Ichiba/repository"
	"github.com/amirphl/Kuruma-no-Ichiba/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

var (
	ErrEmptyCatalogFile = errors.New("catalog file has no brands")
	ErrWeakPassword     = errors.New("admin password must be at least 8 characters")
)

// LoadCatalogFile reads a YAML catalog from disk
func LoadCatalogFile(path string) (models.CatalogDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return models.CatalogDocument{}, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes, normalizes and validates a YAML catalog
func ParseCatalog(raw []byte) (models.CatalogDocument, error) {
	var doc models.CatalogDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return models.CatalogDocument{}, fmt.Errorf("failed to parse catalog: %w", err)
	}

	doc = doc.Normalize()
	if len(doc.Brands) == 0 {
		return models.CatalogDocument{}, ErrEmptyCatalogFile
	}
	if err := doc.Validate(); err != nil {
		return models.CatalogDocument{}, fmt.Errorf("invalid catalog: %w", err)
	}
	return doc, nil
}

// Seeder writes bootstrap data through the repositories
type Seeder struct {
	db         *gorm.DB
	catalogs   repository.FilterCatalogRepository
	users      repository.StaffUserRepository
	bcryptCost int
	logger     *zap.Logger
}

func NewSeeder(db *gorm.DB, bcryptCost int, logger *zap.Logger) *Seeder {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Seeder{
		db:         db,
		catalogs:   repository.NewFilterCatalogRepository(db),
		users:      repository.NewStaffUserRepository(db),
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Plan is one seeding run. An empty AdminUsername seeds the catalog only.
type Plan struct {
	Catalog       models.CatalogDocument
	Overwrite     bool
	AdminUsername string
	AdminPassword string
}

// Result reports what a run wrote
type Result struct {
	Catalog        *models.FilterCatalog
	CatalogWritten bool
	Admin          *models.StaffUser
	AdminCreated   bool
}

// Run applies the plan in one transaction. A rejected admin account leaves the catalog untouched.
func (s *Seeder) Run(ctx context.Context, plan Plan) (*Result, error) {
	res := &Result{}
	err := repository.WithTransaction(ctx, s.db, func(ctx context.Context) error {
		var err error
		res.Catalog, res.CatalogWritten, err = s.SeedCatalog(ctx, plan.Catalog, plan.Overwrite)
		if err != nil {
			return err
		}
		if plan.AdminUsername == "" {
			return nil
		}
		res.Admin, res.AdminCreated, err = s.EnsureAdmin(ctx, plan.AdminUsername, plan.AdminPassword)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// SeedCatalog writes doc as the first catalog version.
// An existing catalog is left alone unless overwrite is set, in which case doc
// becomes the next version. The returned bool reports whether anything was written.
func (s *Seeder) SeedCatalog(ctx context.Context, doc models.CatalogDocument, overwrite bool) (*models.FilterCatalog, bool, error) {
	current, err := s.catalogs.Current(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read catalog: %w", err)
	}

	var expected int64
	if current != nil {
		if !overwrite {
			s.logger.Info("catalog already present, skipping", zap.Int64("version", current.Version))
			return current, false, nil
		}
		expected = current.Version
	}

	written, err := s.catalogs.CompareAndSwap(ctx, expected, doc, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to write catalog: %w", err)
	}

	s.logger.Info("catalog seeded",
		zap.Int64("version", written.Version),
		zap.Int("brands", len(doc.Brands)),
		zap.Int("years", len(doc.Years)),
	)
	return written, true, nil
}

// EnsureAdmin creates an active admin account when the username is free.
// An existing account is returned untouched, whatever its role.
func (s *Seeder) EnsureAdmin(ctx context.Context, username, password string) (*models.StaffUser, bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, false, errors.New("admin username is required")
	}

	existing, err := s.users.ByUsername(ctx, username)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up %s: %w", username, err)
	}
	if existing != nil {
		s.logger.Info("staff account already exists, skipping", zap.String("username", username), zap.String("role", existing.Role.String()))
		return existing, false, nil
	}

	if len(password) < 8 {
		return nil, false, ErrWeakPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, false, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.StaffUser{
		Username:     username,
		PasswordHash: string(hashed),
		DisplayName:  "Administrator",
		Role:         models.RoleAdmin,
		IsActive:     utils.ToPtr(true),
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, false, fmt.Errorf("failed to create admin: %w", err)
	}

	s.logger.Info("admin account created", zap.String("username", username), zap.Uint("id", user.ID))
	return user, true, nil
}
