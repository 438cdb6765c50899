package utils

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPagination(t *testing.T) {
	cases := []struct {
		page, limit int
		want        Pagination
	}{
		{1, 20, Pagination{Page: 1, Limit: 20, Offset: 0}},
		{3, 10, Pagination{Page: 3, Limit: 10, Offset: 20}},
		{0, 0, Pagination{Page: 1, Limit: 20, Offset: 0}},
		{-2, 500, Pagination{Page: 1, Limit: 100, Offset: 0}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NewPagination(tc.page, tc.limit))
	}
}

func TestParsePagination(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(ParsePagination(c).Meta(42))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/?page=2&limit=abc", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"current_page":2,"items_per_page":20,"total_items":42}`, string(body))
}
