package interfaces

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCategories_ByType(t *testing.T) {
	mux := newFixture().mux(owner())

	w := do(mux, http.MethodGet, "/categories?type=expense", "")
	require.Equal(t, http.StatusOK, w.Code)

	var categories []domain.Category
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &categories))
	assert.Len(t, categories, 2)

	w = do(mux, http.MethodGet, "/categories?type=income", "")
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &categories))
	require.Len(t, categories, 1)
	assert.Equal(t, "Other", categories[0].NameEn)
}

func TestGetCategories_InvalidType(t *testing.T) {
	w := do(newFixture().mux(owner()), http.MethodGet, "/categories?type=invalidType", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid category type", decode(t, w).Error)
}

func TestCreateCategory(t *testing.T) {
	mux := newFixture().mux(owner())

	w := do(mux, http.MethodPost, "/categories", `{"name_en":"Rickshaw","name_ur":"رکشہ","type":"expense"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(mux, http.MethodPost, "/categories", `{"name_en":"food"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(newFixture().mux(viewer()), http.MethodPost, "/categories", `{"name_en":"Toys"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
