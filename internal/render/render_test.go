package render

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chenjiandongx/gitv/internal/config"
	"github.com/chenjiandongx/gitv/internal/query"
)

var resultFixture = query.Result{
	Columns: []string{"label", "n"},
	Rows: [][]any{
		{"x", int64(1)},
		{"y", int64(2)},
	},
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func testEngine(t *testing.T) *query.Engine {
	t.Helper()

	engine, err := query.Open()
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })

	ctx := context.Background()
	require.NoError(t, engine.Exec(ctx, `CREATE TABLE repo (foo TEXT)`))

	for _, v := range []string{"a", "b", "c"} {
		require.NoError(t, engine.Exec(ctx, `INSERT INTO repo VALUES (?)`, v))
	}

	return engine
}

func chartFixture() *config.ChartConfig {
	return &config.ChartConfig{
		Type: "pie",
		Name: "test-chart",
		Data: map[string]any{
			"labels": "${foo}",
			"datasets": []any{
				map[string]any{
					"data":            "${foo}",
					"backgroundColor": "${random}",
				},
			},
		},
		Options: map[string]any{
			"plugins": map[string]any{
				"datalabels": map[string]any{
					"formatter": "${percent}",
				},
			},
		},
	}
}

// TestResolveChart verifies placeholder, palette, and formatter binding.
func TestResolveChart(t *testing.T) {
	t.Parallel()

	renderer, err := New(nil, config.Display{}, discardLogger,
		WithRand(rand.New(rand.NewSource(42))))
	require.NoError(t, err)

	cms := []ColumnMap{{"foo": []any{"a", "b", "c"}}}

	data, options, resolveErr := renderer.resolveChart(chartFixture(), cms)
	require.NoError(t, resolveErr)

	assert.Equal(t, []any{"a", "b", "c"}, data["labels"])

	datasets := data["datasets"].([]any)
	dataset := datasets[0].(map[string]any)
	assert.Equal(t, []any{"a", "b", "c"}, dataset["data"])

	background := dataset["backgroundColor"].([]any)
	assert.NotEmpty(t, background)

	formatter := options["plugins"].(map[string]any)["datalabels"].(map[string]any)["formatter"].(string)
	assert.True(t, strings.HasPrefix(formatter, "{{% function"))

	// When every placeholder resolves, no ${…} token survives.
	serialized, marshalErr := marshalChart(map[string]any{"data": data, "options": options})
	require.NoError(t, marshalErr)
	assert.NotContains(t, serialized, "${")
	assert.NotContains(t, serialized, `"{{%`)
	assert.NotContains(t, serialized, `%}}"`)
}

// TestResolveChart_MismatchedData verifies non-mapping data sections abort
// the chart.
func TestResolveChart_MismatchedData(t *testing.T) {
	t.Parallel()

	renderer, err := New(nil, config.Display{}, discardLogger)
	require.NoError(t, err)

	chart := &config.ChartConfig{Name: "bad", Data: []any{"not", "a", "mapping"}}

	_, _, resolveErr := renderer.resolveChart(chart, []ColumnMap{{}})
	require.ErrorIs(t, resolveErr, ErrMismatchedDataSection)
}

// TestResolveChart_DoesNotMutateConfig verifies the loaded chart tree stays
// intact across renders.
func TestResolveChart_DoesNotMutateConfig(t *testing.T) {
	t.Parallel()

	renderer, err := New(nil, config.Display{}, discardLogger)
	require.NoError(t, err)

	chart := chartFixture()
	_, _, resolveErr := renderer.resolveChart(chart, []ColumnMap{{"foo": []any{"a"}}})
	require.NoError(t, resolveErr)

	data := chart.Data.(map[string]any)
	assert.Equal(t, "${foo}", data["labels"])
}

// TestRender_HTML drives the html mode end to end through a real engine.
func TestRender_HTML(t *testing.T) {
	t.Parallel()

	dest := t.TempDir()
	display := config.Display{
		Destination: dest,
		RenderMode:  ModeHTML,
		Queries: []config.Query{
			{
				Statements: []string{`SELECT foo FROM repo`},
				Chart:      chartFixture(),
			},
		},
	}

	renderer, err := New(testEngine(t), display, discardLogger,
		WithRand(rand.New(rand.NewSource(1))))
	require.NoError(t, err)
	require.NoError(t, renderer.Render(context.Background()))

	content, readErr := os.ReadFile(filepath.Join(dest, "test-chart.html"))
	require.NoError(t, readErr)

	html := string(content)
	assert.Contains(t, html, `id="test-chart"`)
	assert.Contains(t, html, `"labels":["a","b","c"]`)
	assert.Contains(t, html, "function(value, context)")
	assert.NotContains(t, html, "{{%")
	assert.NotContains(t, html, "%}}")
	assert.NotContains(t, html, "${")
}

// TestRender_Image drives the image mode against a stub render API.
func TestRender_Image(t *testing.T) {
	t.Parallel()

	imageBytes := []byte("\x89PNG-fake")

	var posted map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, renderRoute, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))

		_, _ = w.Write(imageBytes)
	}))
	t.Cleanup(server.Close)

	dest := t.TempDir()
	display := config.Display{
		Destination: dest,
		RenderMode:  ModeImage,
		RenderAPI:   server.URL,
		Queries: []config.Query{
			{
				Statements: []string{`SELECT foo FROM repo`},
				Chart:      chartFixture(),
			},
		},
	}

	renderer, err := New(testEngine(t), display, discardLogger,
		WithRand(rand.New(rand.NewSource(1))))
	require.NoError(t, err)
	require.NoError(t, renderer.Render(context.Background()))

	content, readErr := os.ReadFile(filepath.Join(dest, "test-chart.png"))
	require.NoError(t, readErr)
	assert.Equal(t, imageBytes, content)

	require.NotNil(t, posted)
	assert.Equal(t, DefaultBackgroundColor, posted["backgroundColor"])
	assert.Equal(t, DefaultImageFormat, posted["format"])

	chart := posted["chart"].(map[string]any)
	assert.Equal(t, "pie", chart["type"])
}

// TestLibraryOverrides verifies user palette and function entries override
// the built-ins.
func TestLibraryOverrides(t *testing.T) {
	t.Parallel()

	display := config.Display{
		Colors:    map[string][]string{"turbo": {"#000000"}},
		Functions: map[string]string{"percent": "{{% function(v) { return v; } %}}"},
	}

	renderer, err := New(nil, display, discardLogger)
	require.NoError(t, err)

	assert.Equal(t, []string{"#000000"}, renderer.palettes["turbo"])
	assert.Contains(t, renderer.functions["percent"], "return v;")

	// Built-ins without overrides stay available.
	assert.NotEmpty(t, renderer.palettes["tableau"])
	assert.NotEmpty(t, renderer.functions["value"])
}
