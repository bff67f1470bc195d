package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/Kuruma-no-Ichiba/models"
)

// ListingSummarizer turns a complete listing into human readable text.
// The production collaborator is an external text-generation service.
type ListingSummarizer interface {
	Summarize(ctx context.Context, car *models.Car) (string, error)
}

// TemplateSummarizer builds the summary locally from the listing fields
type TemplateSummarizer struct{}

func NewTemplateSummarizer() ListingSummarizer {
	return &TemplateSummarizer{}
}

func (s *TemplateSummarizer) Summarize(ctx context.Context, car *models.Car) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if car == nil {
		return "", fmt.Errorf("nothing to summarize")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d %s %s in %s", car.Year, car.Brand, car.Model, strings.ToLower(car.Color))
	fmt.Fprintf(&b, ", %s %s, %d cc", strings.ToLower(string(car.Fuel)), strings.ToLower(string(car.Transmission)), car.EngineCC)
	fmt.Fprintf(&b, ", %d km", car.KmRun)
	if car.Ownership == 1 {
		b.WriteString(", single owner")
	} else {
		fmt.Fprintf(&b, ", %d owners", car.Ownership)
	}
	if car.RegistrationYear != nil {
		fmt.Fprintf(&b, ", registered %d", *car.RegistrationYear)
	}
	fmt.Fprintf(&b, ". Asking %d.", car.Price)
	if car.Badges.Has(models.CarBadgePriceDrop) {
		b.WriteString(" Price recently dropped.")
	}
	return b.String(), nil
}
