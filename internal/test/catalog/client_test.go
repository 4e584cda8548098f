package catalog_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardprint-backend/internal/catalog"
)

type collectionBody struct {
	Identifiers []catalog.Identifier `json:"identifiers"`
}

func TestCollection(t *testing.T) {
	var mu sync.Mutex
	var seen []catalog.Identifier

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/cards/collection", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		var body collectionBody
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		seen = append(seen, body.Identifiers...)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"name":"Island","set":"unf","collector_number":"235","image_uris":{"large":"https://img.test/island.jpg"}}],"not_found":[]}`)
	}))
	defer server.Close()

	client := catalog.NewClient(server.URL + "/")
	cards, err := client.Collection(context.Background(), []catalog.Identifier{{Name: "Island"}})
	require.NoError(t, err)

	require.Len(t, cards, 1)
	assert.Equal(t, "Island", cards[0].Name)
	assert.Equal(t, "235", cards[0].CollectorNumber)
	assert.Equal(t, []catalog.Identifier{{Name: "Island"}}, seen)
}

func TestCollection_Batches(t *testing.T) {
	var requests atomic.Int32
	var sizes sync.Map

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)
		var body collectionBody
		_ = json.NewDecoder(r.Body).Decode(&body)
		sizes.Store(n, len(body.Identifiers))
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer server.Close()

	ids := make([]catalog.Identifier, catalog.MaxIdentifiersPerRequest+5)
	for i := range ids {
		ids[i] = catalog.Identifier{Name: fmt.Sprintf("card %d", i)}
	}

	_, err := catalog.NewClient(server.URL).Collection(context.Background(), ids)
	require.NoError(t, err)

	assert.Equal(t, int32(2), requests.Load())
	first, _ := sizes.Load(int32(1))
	second, _ := sizes.Load(int32(2))
	assert.Equal(t, catalog.MaxIdentifiersPerRequest, first)
	assert.Equal(t, 5, second)
}

func TestCollection_RetriesThenFails(t *testing.T) {
	if testing.Short() {
		t.Skip("waits through the full backoff schedule")
	}

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := catalog.NewClient(server.URL).Collection(context.Background(), []catalog.Identifier{{Name: "Island"}})
	require.Error(t, err)
	assert.Equal(t, int32(3), requests.Load())
}

func TestCardImages(t *testing.T) {
	single := catalog.Card{ImageURIs: &catalog.ImageURIs{Large: "front.jpg"}}
	front, back := single.Images()
	assert.Equal(t, "front.jpg", front)
	assert.Empty(t, back)

	double := catalog.Card{
		ImageURIs: &catalog.ImageURIs{Large: "ignored.jpg"},
		CardFaces: []catalog.Face{
			{Name: "Day", ImageURIs: &catalog.ImageURIs{Large: "day.jpg"}},
			{Name: "Night", ImageURIs: &catalog.ImageURIs{Large: "night.jpg"}},
		},
	}
	front, back = double.Images()
	assert.Equal(t, "day.jpg", front)
	assert.Equal(t, "night.jpg", back)

	front, back = catalog.Card{}.Images()
	assert.Empty(t, front)
	assert.Empty(t, back)
}
