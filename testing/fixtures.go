package testing

import (
	"fmt"
	"math/rand"

	"github.com/amirphl/Kuruma-no-Ichiba/models"
	"github.com/amirphl/Kuruma-no-Ichiba/utils"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the plain-text password of every fixture user
const TestPassword = "TestPass123!"

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateUser creates an active user holding the role
func (tf *TestFixtures) CreateUser(role models.Role) (*models.StaffUser, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.StaffUser{
		Username:     fmt.Sprintf("%s-%09d", role, rand.Intn(900000000)+100000000),
		PasswordHash: string(hashed),
		DisplayName:  "Test " + role.String(),
		Role:         role,
		IsActive:     utils.ToPtr(true),
	}
	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create %s user: %w", role, err)
	}
	return user, nil
}

// DefaultCatalog is the vocabulary most tests run against
func DefaultCatalog() models.CatalogDocument {
	return models.CatalogDocument{
		Brands: []string{"Honda", "Tata"},
		Models: map[string][]string{
			"Honda": {"City", "Civic"},
			"Tata":  {"Nexon", "Punch"},
		},
		Years: []int{2024, 2023, 2022, 2021, 2020},
	}
}

// SeedCatalog writes the document as catalog version 1
func (tf *TestFixtures) SeedCatalog(doc models.CatalogDocument) (*models.FilterCatalog, error) {
	row := &models.FilterCatalog{
		ID:       models.FilterCatalogID,
		Version:  1,
		Document: doc,
	}
	if err := tf.DB.DB.Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to seed filter catalog: %w", err)
	}
	return row, nil
}

// NewCar returns a valid, unsaved Tata Nexon listing
func NewCar(submittedBy uint) *models.Car {
	return &models.Car{
		Brand:        "Tata",
		Model:        "Nexon",
		Year:         2022,
		Price:        900000,
		KmRun:        15000,
		Fuel:         models.FuelTypePetrol,
		Transmission: models.TransmissionManual,
		Ownership:    1,
		Color:        "Blue",
		EngineCC:     1199,
		Images:       models.StringList{"https://x/1.png"},
		Badges:       models.BadgeSet{},
		Status:       models.CarStatusPending,
		SubmittedBy:  submittedBy,
	}
}

// CreateCar persists the car after applying the optional mutators
func (tf *TestFixtures) CreateCar(submittedBy uint, status models.CarStatus, mutate ...func(*models.Car)) (*models.Car, error) {
	car := NewCar(submittedBy)
	car.Status = status
	for _, m := range mutate {
		m(car)
	}
	if err := tf.DB.DB.Create(car).Error; err != nil {
		return nil, fmt.Errorf("failed to create car: %w", err)
	}
	return car, nil
}

// CreateInquiry persists a new inquiry against the car
func (tf *TestFixtures) CreateInquiry(car *models.Car, mutate ...func(*models.Inquiry)) (*models.Inquiry, error) {
	inq := &models.Inquiry{
		CarID:         car.ID,
		CustomerName:  "Ramesh",
		CustomerPhone: "9000000000",
		CarSummary:    car.Summary(),
		Status:        models.InquiryStatusNew,
	}
	for _, m := range mutate {
		m(inq)
	}
	if err := tf.DB.DB.Create(inq).Error; err != nil {
		return nil, fmt.Errorf("failed to create inquiry: %w", err)
	}
	return inq, nil
}
