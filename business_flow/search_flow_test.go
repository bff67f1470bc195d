package businessflow

import (
	"testing"
	"time"

	"github.com/amirphl/Kuruma-no-Ichiba/app/dto"
	"github.com/amirphl/Kuruma-no-Ichiba/models"
	"github.com/stretchr/testify/assert"
)

func searchCars() []*models.Car {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	car := func(id uint, brand, model string, year int, price, km int64, color string, status models.CarStatus) *models.Car {
		return &models.Car{
			ID: id, Brand: brand, Model: model, Year: year, Price: price, KmRun: km, Color: color,
			Status: status, CreatedAt: base.Add(time.Duration(id) * time.Hour),
		}
	}
	return []*models.Car{
		car(1, "Tata", "Nexon", 2022, 900000, 15000, "Blue", models.CarStatusApproved),
		car(2, "Tata", "Punch", 2023, 650000, 8000, "Red", models.CarStatusApproved),
		car(3, "Honda", "City", 2021, 1100000, 30000, "Pearl White", models.CarStatusApproved),
		car(4, "Honda", "Civic", 2020, 1500000, 45000, "Midnight Blue", models.CarStatusApproved),
		car(5, "Tata", "Nexon", 2024, 1200000, 2000, "Grey", models.CarStatusPending),
		car(6, "Honda", "City", 2022, 400000, 90000, "Black", models.CarStatusRejected),
	}
}

func ids(cars []*models.Car) []uint {
	out := make([]uint, 0, len(cars))
	for _, c := range cars {
		out = append(out, c.ID)
	}
	return out
}

func search(req dto.SearchListingsRequest, offset, limit int) searchResult {
	return newSearchQuery(&req).run(searchCars(), offset, limit)
}

func TestSearchQuery(t *testing.T) {
	t.Run("OnlyApprovedNewestFirst", func(t *testing.T) {
		res := search(dto.SearchListingsRequest{}, 0, 20)
		assert.Equal(t, []uint{4, 3, 2, 1}, ids(res.page))
		assert.Equal(t, 4, res.total)
	})

	t.Run("BoundsComeFromApprovedCars", func(t *testing.T) {
		res := search(dto.SearchListingsRequest{}, 0, 20)
		assert.Equal(t, bounds{650000, 1500000}, res.price)
		assert.Equal(t, bounds{8000, 45000}, res.km)
	})

	t.Run("BrandsAreAnInSet", func(t *testing.T) {
		res := search(dto.SearchListingsRequest{Brands: []string{"honda", "Tata", " Tata "}}, 0, 20)
		assert.Equal(t, 4, res.total)
		res = search(dto.SearchListingsRequest{Brands: []string{"Honda"}}, 0, 20)
		assert.Equal(t, []uint{4, 3}, ids(res.page))
	})

	t.Run("ModelNeedsExactlyOneBrand", func(t *testing.T) {
		res := search(dto.SearchListingsRequest{Brands: []string{"Tata"}, Model: ptrTo("Nexon")}, 0, 20)
		assert.Equal(t, []uint{1}, ids(res.page))

		res = search(dto.SearchListingsRequest{Brands: []string{"Tata", "Honda"}, Model: ptrTo("Nexon")}, 0, 20)
		assert.Equal(t, 4, res.total)

		res = search(dto.SearchListingsRequest{Model: ptrTo("Nexon")}, 0, 20)
		assert.Equal(t, 4, res.total)
	})

	t.Run("RangesAreInclusive", func(t *testing.T) {
		res := search(dto.SearchListingsRequest{PriceMin: ptrTo[int64](650000), PriceMax: ptrTo[int64](1100000)}, 0, 20)
		assert.Equal(t, []uint{3, 2, 1}, ids(res.page))

		res = search(dto.SearchListingsRequest{KmMax: ptrTo[int64](15000)}, 0, 20)
		assert.Equal(t, []uint{2, 1}, ids(res.page))

		res = search(dto.SearchListingsRequest{KmMin: ptrTo[int64](45000), KmMax: ptrTo[int64](45000)}, 0, 20)
		assert.Equal(t, []uint{4}, ids(res.page))
	})

	t.Run("ExactYears", func(t *testing.T) {
		res := search(dto.SearchListingsRequest{Year: ptrTo(2022)}, 0, 20)
		assert.Equal(t, []uint{1}, ids(res.page))

		res = search(dto.SearchListingsRequest{RegistrationYear: ptrTo(2022)}, 0, 20)
		assert.Empty(t, res.page)
	})

	t.Run("ColorAndFreeTextIgnoreCase", func(t *testing.T) {
		res := search(dto.SearchListingsRequest{Color: ptrTo("BLUE")}, 0, 20)
		assert.Equal(t, []uint{4, 1}, ids(res.page))

		res = search(dto.SearchListingsRequest{FreeText: ptrTo("tata nexon 2022")}, 0, 20)
		assert.Equal(t, []uint{1}, ids(res.page))

		res = search(dto.SearchListingsRequest{FreeText: ptrTo("pearl")}, 0, 20)
		assert.Equal(t, []uint{3}, ids(res.page))

		res = search(dto.SearchListingsRequest{FreeText: ptrTo("Maruti")}, 0, 20)
		assert.Zero(t, res.total)
		assert.NotNil(t, res.page)
	})

	t.Run("PredicatesAreAnded", func(t *testing.T) {
		res := search(dto.SearchListingsRequest{Brands: []string{"Honda"}, Color: ptrTo("blue"), PriceMax: ptrTo[int64](1200000)}, 0, 20)
		assert.Empty(t, res.page)
	})

	t.Run("Sorts", func(t *testing.T) {
		cases := map[string][]uint{
			dto.SearchSortOldest:    {1, 2, 3, 4},
			dto.SearchSortPriceAsc:  {2, 1, 3, 4},
			dto.SearchSortPriceDesc: {4, 3, 1, 2},
			dto.SearchSortKmAsc:     {2, 1, 3, 4},
		}
		for sort, want := range cases {
			res := search(dto.SearchListingsRequest{Sort: sort}, 0, 20)
			assert.Equal(t, want, ids(res.page), sort)
		}
	})

	t.Run("Pagination", func(t *testing.T) {
		res := search(dto.SearchListingsRequest{}, 1, 2)
		assert.Equal(t, []uint{3, 2}, ids(res.page))
		assert.Equal(t, 4, res.total)

		res = search(dto.SearchListingsRequest{}, 3, 2)
		assert.Equal(t, []uint{1}, ids(res.page))

		res = search(dto.SearchListingsRequest{}, 10, 2)
		assert.Empty(t, res.page)
		assert.Equal(t, 4, res.total)
	})

	t.Run("NoApprovedCars", func(t *testing.T) {
		res := newSearchQuery(&dto.SearchListingsRequest{}).run([]*models.Car{searchCars()[4]}, 0, 20)
		assert.Zero(t, res.total)
		assert.Equal(t, bounds{}, res.price)
	})
}

func ptrTo[T any](v T) *T {
	return &v
}
