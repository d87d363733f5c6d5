package drill

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/amee-go/internal/api"
)

// Drill responses as the service returns them for the generic car category.
const (
	fuelResponse = `{"choices":{"name":"fuel","choices":[
		{"name":"average","value":"average"},
		{"name":"cng","value":"cng"},
		{"name":"diesel","value":"diesel"},
		{"name":"lpg","value":"lpg"},
		{"name":"petrol","value":"petrol"},
		{"name":"petrol hybrid","value":"petrol hybrid"}]},
		"dataCategory":{"path":"/transport/car/generic"}}`

	dieselSizeResponse = `{"choices":{"name":"size","choices":[
		{"name":"small","value":"small"},
		{"name":"medium","value":"medium"},
		{"name":"large","value":"large"}]}}`

	// One remaining value arrives as a bare object, not an array.
	averageSizeResponse = `{"choices":{"name":"size","choices":{"name":"average","value":"average"}}}`

	dieselLargeResponse = `{"choices":{"name":"uid","choices":[{"name":"4F6CBCEE95F7","value":"4F6CBCEE95F7"}]}}`

	metadataResponse = `{"choices":{"name":"uid","choices":[{"name":"8A4E9D3B2C10","value":"8A4E9D3B2C10"}]}}`

	ambiguousResponse = `{"choices":{"name":"uid","choices":[
		{"name":"111111111111","value":"111111111111"},
		{"name":"222222222222","value":"222222222222"}]}}`

	emptyUIDResponse = `{"choices":{"name":"uid","choices":[]}}`
)

// fixtureSender answers drill requests from a table keyed by path and
// encoded query.
type fixtureSender struct {
	responses map[string]string
	requests  []string
	err       error
}

func (f *fixtureSender) Send(_ context.Context, verb, path string, params url.Values) (json.RawMessage, error) {
	key := verb + " " + path
	if q := params.Encode(); q != "" {
		key += "?" + q
	}

	f.requests = append(f.requests, key)

	if f.err != nil {
		return nil, f.err
	}

	body, ok := f.responses[key]
	if !ok {
		return nil, &api.RequestError{Verb: verb, Path: path, StatusCode: http.StatusNotFound, Err: api.ErrNotFound}
	}

	return json.RawMessage(body), nil
}

func newFixtureSender() *fixtureSender {
	return &fixtureSender{responses: map[string]string{
		"GET /data/transport/car/generic/drill":                        fuelResponse,
		"GET /data/transport/car/generic/drill?fuel=diesel":            dieselSizeResponse,
		"GET /data/transport/car/generic/drill?fuel=average":           averageSizeResponse,
		"GET /data/transport/car/generic/drill?fuel=diesel&size=large": dieselLargeResponse,
		"GET /data/metadata/drill":                                     metadataResponse,
		"GET /data/transport/car/generic/drill?fuel=lpg":               ambiguousResponse,
		"GET /data/transport/car/generic/drill?fuel=cng":               emptyUIDResponse,
	}}
}

func TestResolve_NoDiscriminators(t *testing.T) {
	r := NewResolver(newFixtureSender(), slog.Default())

	step, err := r.Resolve(context.Background(), "/metadata", Options{})
	require.NoError(t, err)
	assert.True(t, step.Terminal())
	assert.Equal(t, "8A4E9D3B2C10", step.UID)
	assert.Empty(t, step.Discriminator)
	assert.Empty(t, step.Choices)
}

func TestResolve_FirstDiscriminator(t *testing.T) {
	r := NewResolver(newFixtureSender(), slog.Default())

	step, err := r.Resolve(context.Background(), "/transport/car/generic", Options{})
	require.NoError(t, err)
	assert.False(t, step.Terminal())
	assert.Equal(t, "fuel", step.Discriminator)

	want := []Choice{
		{"average", "average"},
		{"cng", "cng"},
		{"diesel", "diesel"},
		{"lpg", "lpg"},
		{"petrol", "petrol"},
		{"petrol hybrid", "petrol hybrid"},
	}
	assert.Equal(t, want, step.Choices)
}

func TestResolve_ArrayShape(t *testing.T) {
	r := NewResolver(newFixtureSender(), slog.Default())

	step, err := r.Resolve(context.Background(), "/transport/car/generic", Options{"fuel": "diesel"})
	require.NoError(t, err)
	assert.Equal(t, "size", step.Discriminator)
	assert.Equal(t, map[string]string{"small": "small", "medium": "medium", "large": "large"}, step.Values())
	assert.Equal(t, Options{"fuel": "diesel"}, step.Options)
}

func TestResolve_SingleObjectShapeNormalizesLikeArray(t *testing.T) {
	r := NewResolver(newFixtureSender(), slog.Default())

	step, err := r.Resolve(context.Background(), "/transport/car/generic", Options{"fuel": "average"})
	require.NoError(t, err)
	assert.Equal(t, "size", step.Discriminator)
	assert.Equal(t, []Choice{{"average", "average"}}, step.Choices)
	assert.Equal(t, map[string]string{"average": "average"}, step.Values())

	// The same single value wrapped in an array must produce the same step.
	arrayForm := &fixtureSender{responses: map[string]string{
		"GET /data/transport/car/generic/drill?fuel=average": `{"choices":{"name":"size","choices":[{"name":"average","value":"average"}]}}`,
	}}

	fromArray, err := NewResolver(arrayForm, slog.Default()).
		Resolve(context.Background(), "/transport/car/generic", Options{"fuel": "average"})
	require.NoError(t, err)
	assert.Equal(t, step, fromArray)
}

func TestResolve_Terminal(t *testing.T) {
	r := NewResolver(newFixtureSender(), slog.Default())

	step, err := r.Resolve(context.Background(), "transport/car/generic/",
		Options{"fuel": "diesel", "size": "large"})
	require.NoError(t, err)
	assert.True(t, step.Terminal())
	assert.Equal(t, "4F6CBCEE95F7", step.UID)
	assert.Equal(t, "/transport/car/generic", step.Path)
}

func TestResolve_AmbiguousTerminal(t *testing.T) {
	tests := []struct {
		name  string
		fuel  string
		count int
	}{
		{"several entries", "lpg", 2},
		{"no entries", "cng", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(newFixtureSender(), slog.Default())

			step, err := r.Resolve(context.Background(), "/transport/car/generic", Options{"fuel": tt.fuel})
			require.Error(t, err)
			assert.Nil(t, step)
			assert.ErrorIs(t, err, ErrAmbiguous)

			var ae *AmbiguousError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, "/transport/car/generic", ae.Path)
			assert.Equal(t, Options{"fuel": tt.fuel}, ae.Options)
			assert.Equal(t, tt.count, ae.Count)
			assert.Contains(t, err.Error(), "/transport/car/generic")
			assert.Contains(t, err.Error(), "fuel="+tt.fuel)
		})
	}
}

func TestResolve_MalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no choices", `{"dataCategory":{}}`},
		{"no name", `{"choices":{"choices":[]}}`},
		{"scalar choices", `{"choices":{"name":"fuel","choices":"diesel"}}`},
		{"bad entry", `{"choices":{"name":"fuel","choices":[1,2]}}`},
		{"not an object", `[]`},
		{"uid without value", `{"choices":{"name":"uid","choices":[{"name":"8A4E9D3B2C10"}]}}`},
		{"single uid object without value", `{"choices":{"name":"uid","choices":{"name":"8A4E9D3B2C10"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fixtureSender{responses: map[string]string{"GET /data/x/drill": tt.body}}

			_, err := NewResolver(sender, slog.Default()).Resolve(context.Background(), "/x", nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestResolve_NullChoicesIsEmpty(t *testing.T) {
	sender := &fixtureSender{responses: map[string]string{
		"GET /data/x/drill": `{"choices":{"name":"fuel","choices":null}}`,
	}}

	step, err := NewResolver(sender, slog.Default()).Resolve(context.Background(), "/x", nil)
	require.NoError(t, err)
	assert.Equal(t, "fuel", step.Discriminator)
	assert.Empty(t, step.Choices)
}

func TestResolve_SenderErrorPropagates(t *testing.T) {
	want := errors.New("network down")
	sender := &fixtureSender{err: want}

	_, err := NewResolver(sender, slog.Default()).Resolve(context.Background(), "/x", nil)
	assert.ErrorIs(t, err, want)
}

func TestResolve_NormalizesDecomposedLabels(t *testing.T) {
	// "cafe" followed by a combining acute accent (NFD).
	decomposed := "cafe\u0301"
	sender := &fixtureSender{responses: map[string]string{
		"GET /data/x/drill": `{"choices":{"name":"type","choices":{"name":"` + decomposed + `","value":"` + decomposed + `"}}}`,
	}}

	step, err := NewResolver(sender, slog.Default()).Resolve(context.Background(), "/x", nil)
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9", step.Choices[0].Value)
	assert.Equal(t, "caf\u00e9", step.Choices[0].Name)
}

func TestResolveUID(t *testing.T) {
	r := NewResolver(newFixtureSender(), slog.Default())

	uid, err := r.ResolveUID(context.Background(), "/transport/car/generic",
		Options{"fuel": "diesel", "size": "large"})
	require.NoError(t, err)
	assert.Equal(t, "4F6CBCEE95F7", uid)

	_, err = r.ResolveUID(context.Background(), "/transport/car/generic", Options{"fuel": "diesel"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.ErrorIs(t, err, ErrAmbiguous)

	var ie *IncompleteError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "size", ie.Discriminator)
	assert.Len(t, ie.Choices, 3)
}

func TestCleanPath(t *testing.T) {
	assert.Equal(t, "/transport/car", CleanPath("transport/car/"))
	assert.Equal(t, "/transport/car", CleanPath("/transport/car"))
	assert.Equal(t, "", CleanPath("/"))
	assert.Equal(t, "/data/drill", DrillPath(CleanPath("")))
}

func TestOptions_String(t *testing.T) {
	assert.Equal(t, "{fuel=diesel size=large}", Options{"size": "large", "fuel": "diesel"}.String())
	assert.Equal(t, "{}", Options(nil).String())
	assert.NotNil(t, Options(nil).Clone())
}

// TestResolve_ThroughClient runs the resolver on a real api.Client against
// an httptest service, covering authentication and query encoding.
func TestResolve_ThroughClient(t *testing.T) {
	fixtures := newFixtureSender().responses

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth" {
			w.Header().Set("authToken", "tok")
			return
		}

		if r.Header.Get("authToken") != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		key := r.Method + " " + r.URL.Path
		if q := r.URL.Query().Encode(); q != "" {
			key += "?" + q
		}

		body, ok := fixtures[key]
		if !ok {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(strings.TrimSpace(body)))
	}))
	defer srv.Close()

	client := api.NewClient(api.Options{
		BaseURL:     srv.URL,
		APIKey:      "key",
		APIPassword: "password",
		HTTPClient:  srv.Client(),
	})

	r := NewResolver(client, slog.Default())

	step, err := r.Resolve(context.Background(), "/transport/car/generic", Options{"fuel": "average"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"average": "average"}, step.Values())

	_, err = r.Resolve(context.Background(), "/transport/car/unknown", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrNotFound)
}
