package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngredientAPI_Unauthorized(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodGet, "/api/ingredients/", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestIngredientAPI_List(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "user@example.com", "testpass123", "")
	otherToken := ts.register(t, "other@example.com", "testpass123", "")

	createVocab(t, ts, token, "/api/ingredients/", "Kale")
	createVocab(t, ts, token, "/api/ingredients/", "Salt")
	createVocab(t, ts, otherToken, "/api/ingredients/", "Vinegar")

	ingredients := listVocab(t, ts, token, "/api/ingredients/")
	require.Len(t, ingredients, 2)
	assert.Equal(t, "Salt", ingredients[0].Name)
	assert.Equal(t, "Kale", ingredients[1].Name)
}

func TestIngredientAPI_AssignedOnly(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "user@example.com", "testpass123", "")

	createVocab(t, ts, token, "/api/ingredients/", "Lentils")
	createRecipe(t, ts, token, sampleRecipe(map[string]any{
		"title":       "Apple crumble",
		"ingredients": []map[string]string{{"name": "Apples"}},
	}))
	createRecipe(t, ts, token, sampleRecipe(map[string]any{
		"title":       "Apple pie",
		"ingredients": []map[string]string{{"name": "Apples"}},
	}))

	ingredients := listVocab(t, ts, token, "/api/ingredients/?assigned_only=1")
	require.Len(t, ingredients, 1)
	assert.Equal(t, "Apples", ingredients[0].Name)
}

func TestIngredientAPI_Create(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "user@example.com", "testpass123", "")

	ingredient := createVocab(t, ts, token, "/api/ingredients/", "Cabbage")
	assert.NotZero(t, ingredient.ID)

	t.Run("blank name rejected", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/ingredients/", token, map[string]string{"name": ""})
		require.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("duplicate name rejected", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/ingredients/", token, map[string]string{"name": "Cabbage"})
		require.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestIngredientAPI_Update(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "user@example.com", "testpass123", "")
	otherToken := ts.register(t, "other@example.com", "testpass123", "")

	ingredient := createVocab(t, ts, token, "/api/ingredients/", "Coriander")
	path := fmt.Sprintf("/api/ingredients/%d", ingredient.ID)

	resp := ts.do(t, http.MethodPatch, path, token, map[string]string{"name": "Cilantro"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var got vocabPayload
	decode(t, resp, &got)
	assert.Equal(t, "Cilantro", got.Name)

	resp = ts.do(t, http.MethodPatch, path, otherToken, map[string]string{"name": "Stolen"})
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestIngredientAPI_Delete(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "user@example.com", "testpass123", "")

	ingredient := createVocab(t, ts, token, "/api/ingredients/", "Flour")
	path := fmt.Sprintf("/api/ingredients/%d", ingredient.ID)

	resp := ts.do(t, http.MethodDelete, path, token, nil)
	require.Equal(t, http.StatusNoContent, resp.Code)

	assert.Empty(t, listVocab(t, ts, token, "/api/ingredients/"))
}
