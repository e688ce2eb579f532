package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ieee0824/g2p-go/decoder"
	"github.com/ieee0824/g2p-go/semiring"
)

type fakeG2P struct {
	lastN int
	fail  bool
}

func (f *fakeG2P) Phoneticize(_ context.Context, word string, n int) ([]decoder.Path, error) {
	f.lastN = n
	if f.fail {
		return nil, errors.New("boom")
	}
	if word == "zzz" {
		return nil, nil
	}
	paths := make([]decoder.Path, n)
	for i := range paths {
		paths[i] = decoder.Path{Phonemes: strings.Split(word, ""), Cost: semiring.Weight(float64(i) + 0.5)}
	}
	return paths, nil
}

func (f *fakeG2P) PhoneticizeAll(ctx context.Context, words []string, n, _ int) ([][]decoder.Path, error) {
	out := make([][]decoder.Path, len(words))
	for i, w := range words {
		p, err := f.Phoneticize(ctx, w, n)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func serve(t *testing.T, e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	e := New(&fakeG2P{}, 1, "test")
	rec := serve(t, e, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestPhoneticize(t *testing.T) {
	g := &fakeG2P{}
	e := New(g, 2, "test")

	rec := serve(t, e, http.MethodGet, "/phoneticize?word=cat", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, g.lastN, "default n")

	var res WordResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "cat", res.Word)
	require.Len(t, res.Pronunciations, 2)
	assert.Equal(t, "c a t", res.Pronunciations[0].Phonemes)
	assert.Equal(t, 0.5, res.Pronunciations[0].Cost)

	rec = serve(t, e, http.MethodGet, "/phoneticize?word=cat&n=4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, g.lastN)

	rec = serve(t, e, http.MethodGet, "/phoneticize?word=zzz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Empty(t, res.Pronunciations)
}

func TestPhoneticize_BadRequests(t *testing.T) {
	e := New(&fakeG2P{}, 1, "test")
	for _, target := range []string{
		"/phoneticize",
		"/phoneticize?word=%20",
		"/phoneticize?word=cat&n=x",
		"/phoneticize?word=cat&n=-1",
		"/phoneticize?word=cat&n=1000",
	} {
		rec := serve(t, e, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestPhoneticize_Failure(t *testing.T) {
	e := New(&fakeG2P{fail: true}, 1, "test")
	rec := serve(t, e, http.MethodGet, "/phoneticize?word=cat", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = serve(t, e, http.MethodPost, "/phoneticize", `{"words":["cat"]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPhoneticizeBatch(t *testing.T) {
	e := New(&fakeG2P{}, 1, "test")
	rec := serve(t, e, http.MethodPost, "/phoneticize", `{"words":["ab","zzz","c"],"n":1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var res BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Results, 3)
	assert.Equal(t, "ab", res.Results[0].Word)
	assert.Equal(t, "a b", res.Results[0].Pronunciations[0].Phonemes)
	assert.Empty(t, res.Results[1].Pronunciations)
	assert.Equal(t, "c", res.Results[2].Word)
}

func TestPhoneticizeBatch_BadRequests(t *testing.T) {
	e := New(&fakeG2P{}, 1, "test")
	for _, body := range []string{
		`{"words":[]}`,
		`{"words":["a"],"n":-3}`,
		`not json`,
	} {
		rec := serve(t, e, http.MethodPost, "/phoneticize", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	words := make([]string, MaxWords+1)
	for i := range words {
		words[i] = "a"
	}
	raw, err := json.Marshal(BatchRequest{Words: words})
	require.NoError(t, err)
	rec := serve(t, e, http.MethodPost, "/phoneticize", string(raw))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
