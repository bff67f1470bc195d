package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// queryParser reads optional typed query parameters and collects malformed ones by name
type queryParser struct {
	c    fiber.Ctx
	errs map[string]string
}

func newQueryParser(c fiber.Ctx) *queryParser {
	return &queryParser{c: c, errs: map[string]string{}}
}

func (p *queryParser) raw(key string) (string, bool) {
	v := strings.TrimSpace(p.c.Query(key))
	return v, v != ""
}

func (p *queryParser) str(key string) *string {
	v, ok := p.raw(key)
	if !ok {
		return nil
	}
	return &v
}

func (p *queryParser) int(key string) *int {
	v, ok := p.raw(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs[key] = "must be an integer"
		return nil
	}
	return &n
}

func (p *queryParser) int64(key string) *int64 {
	v, ok := p.raw(key)
	if !ok {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.errs[key] = "must be an integer"
		return nil
	}
	return &n
}

func (p *queryParser) uint(key string) *uint {
	v, ok := p.raw(key)
	if !ok {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		p.errs[key] = "must be a positive integer"
		return nil
	}
	u := uint(n)
	return &u
}

func (p *queryParser) bool(key string) *bool {
	v, ok := p.raw(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs[key] = "must be true or false"
		return nil
	}
	return &b
}

// intOr returns the parameter or def when it is absent or malformed
func (p *queryParser) intOr(key string, def int) int {
	if n := p.int(key); n != nil {
		return *n
	}
	return def
}

// list accepts both repeated keys and comma-separated values
func (p *queryParser) list(key string) []string {
	var out []string
	for _, raw := range p.c.Request().URI().QueryArgs().PeekMulti(key) {
		for _, part := range strings.Split(string(raw), ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// failed writes a 400 listing every malformed parameter
func (p *queryParser) failed() (bool, error) {
	if len(p.errs) == 0 {
		return false, nil
	}
	return true, ErrorResponse(p.c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_QUERY", p.errs)
}
