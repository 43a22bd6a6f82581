package render

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/chenjiandongx/gitv/internal/config"
	"github.com/chenjiandongx/gitv/internal/query"
)

// Render modes.
const (
	ModeTable = "table"
	ModeHTML  = "html"
	ModeImage = "image"
)

// Chart rendering defaults.
const (
	DefaultRenderAPI       = "https://quickchart.io"
	DefaultBackgroundColor = "white"
	DefaultImageFormat     = "png"
	DefaultChartWidth      = 640
	DefaultChartHeight     = 480
)

// renderRoute is the chart endpoint path of the render API.
const renderRoute = "/chart"

// Default CDN URLs of the chart dependencies.
const (
	defaultChartJS    = "https://cdn.jsdelivr.net/npm/chart.js@3.7.1/dist/chart.min.js"
	defaultStacked100 = "https://cdn.jsdelivr.net/npm/chartjs-plugin-stacked100@1.0.0/build/index.min.js"
	defaultDatalabels = "https://cdn.jsdelivr.net/npm/chartjs-plugin-datalabels@2.0.0/dist/chartjs-plugin-datalabels.min.js"
)

// Sentinels wrapping JS function literals; the stripped form leaves the
// literals unquoted inside the serialized chart config.
const (
	fnSentinelOpen  = `"{{%`
	fnSentinelClose = `%}}"`
)

// ErrMismatchedDataSection indicates a chart data section that is not a
// mapping.
var ErrMismatchedDataSection = errors.New("mismatched: chart data section should be a mapping")

// ErrUnsupportedRenderMode indicates an unknown render_mode value.
var ErrUnsupportedRenderMode = errors.New("unsupported render mode")

//go:embed assets/chart.tpl.html
var chartTemplate string

// Renderer executes the configured queries and renders their results.
type Renderer struct {
	engine    *query.Engine
	display   config.Display
	logger    *slog.Logger
	palettes  map[string][]string
	functions map[string]string
	rng       *rand.Rand
	client    *resty.Client
}

// Option customizes a Renderer.
type Option func(*Renderer)

// WithRand replaces the palette randomness source; used by tests to pin
// the ${random} pick.
func WithRand(rng *rand.Rand) Option {
	return func(r *Renderer) {
		r.rng = rng
	}
}

// New creates a renderer over an engine with tables already mounted.
func New(engine *query.Engine, display config.Display, logger *slog.Logger, opts ...Option) (*Renderer, error) {
	palettes, paletteErr := loadPalettes(display.Colors)
	if paletteErr != nil {
		return nil, paletteErr
	}

	functions, functionErr := loadFunctions(display.Functions)
	if functionErr != nil {
		return nil, functionErr
	}

	renderer := &Renderer{
		engine:    engine,
		display:   display,
		logger:    logger,
		palettes:  palettes,
		functions: functions,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		client:    resty.New(),
	}

	for _, opt := range opts {
		opt(renderer)
	}

	return renderer, nil
}

// Render runs the configured mode over every query.
func (r *Renderer) Render(ctx context.Context) error {
	switch r.display.RenderMode {
	case ModeTable:
		return r.renderTables(ctx)
	case ModeHTML, ModeImage:
		return r.renderCharts(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedRenderMode, r.display.RenderMode)
	}
}

func (r *Renderer) renderTables(ctx context.Context) error {
	for _, q := range r.display.Queries {
		for _, statement := range q.Statements {
			now := time.Now()

			fmt.Printf("SQL: %s\n", statement)

			result, selectErr := r.engine.Select(ctx, statement)
			if selectErr != nil {
				return selectErr
			}

			RenderTable(os.Stdout, result)
			fmt.Printf("Query OK, elapsed: %s\n", time.Since(now))
		}
	}

	return nil
}

func (r *Renderer) renderCharts(ctx context.Context) error {
	mkdirErr := os.MkdirAll(r.display.Destination, 0o750)
	if mkdirErr != nil {
		return fmt.Errorf("create destination dir: %w", mkdirErr)
	}

	for _, q := range r.display.Queries {
		cms := make([]ColumnMap, 0, len(q.Statements))

		for _, statement := range q.Statements {
			result, selectErr := r.engine.Select(ctx, statement)
			if selectErr != nil {
				return selectErr
			}

			cms = append(cms, NewColumnMap(result))
		}

		if q.Chart == nil || len(cms) == 0 {
			continue
		}

		chartErr := r.renderChart(ctx, q.Chart, cms)
		if chartErr != nil {
			return chartErr
		}
	}

	return nil
}

func (r *Renderer) renderChart(ctx context.Context, chart *config.ChartConfig, cms []ColumnMap) error {
	data, options, resolveErr := r.resolveChart(chart, cms)
	if resolveErr != nil {
		return resolveErr
	}

	if r.display.RenderMode == ModeImage {
		return r.renderImage(ctx, chart, data)
	}

	return r.renderHTML(chart, data, options)
}

// resolveChart walks the chart data and options trees, binding every
// placeholder against the query results and the palette and function
// libraries.
func (r *Renderer) resolveChart(chart *config.ChartConfig, cms []ColumnMap) (data, options map[string]any, err error) {
	source, ok := chart.Data.(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("%w: chart %q", ErrMismatchedDataSection, chart.Name)
	}

	data, _ = deepCopy(source).(map[string]any)

	if labels, present := data["labels"]; present {
		data["labels"] = resolveValue(labels, cms)
	}

	if datasets, isSeq := data["datasets"].([]any); isSeq {
		for _, element := range datasets {
			dataset, isMap := element.(map[string]any)
			if !isMap {
				continue
			}

			if values, present := dataset["data"]; present {
				dataset["data"] = resolveValue(values, cms)
			}

			if background, present := dataset["backgroundColor"]; present {
				dataset["backgroundColor"] = r.resolveBackground(background)
			}
		}
	}

	options, _ = deepCopy(chart.Options).(map[string]any)
	if options == nil {
		options = map[string]any{}
	}

	r.resolveFormatter(options)

	return data, options, nil
}

// resolveBackground replaces a ${palette} placeholder with the palette's
// color list; ${random} picks a palette uniformly at random.
func (r *Renderer) resolveBackground(value any) any {
	s, isString := value.(string)
	if !isString {
		return value
	}

	variable, ok := ParseVariable(s)
	if !ok {
		return value
	}

	name := variable.Column
	if name == randomPalette {
		names := paletteNames(r.palettes)
		name = names[r.rng.Intn(len(names))]
	}

	colors, found := r.palettes[name]
	if !found {
		return value
	}

	out := make([]any, 0, len(colors))
	for _, color := range colors {
		out = append(out, color)
	}

	return out
}

// resolveFormatter rewrites options.plugins.datalabels.formatter from a
// ${fn} placeholder into the library's JS function literal.
func (r *Renderer) resolveFormatter(options map[string]any) {
	plugins, ok := options["plugins"].(map[string]any)
	if !ok {
		return
	}

	datalabels, ok := plugins["datalabels"].(map[string]any)
	if !ok {
		return
	}

	formatter, ok := datalabels["formatter"].(string)
	if !ok {
		return
	}

	variable, parsed := ParseVariable(formatter)
	if !parsed {
		return
	}

	literal, found := r.functions[variable.Column]
	if found {
		datalabels["formatter"] = literal
	}
}

// templateData feeds the embedded chart HTML template.
type templateData struct {
	Title      string
	ChartJS    string
	Stacked100 string
	Datalabels string
	Width      int
	Height     int
	ChartID    string
	Config     string
}

func (r *Renderer) renderHTML(chart *config.ChartConfig, data, options map[string]any) error {
	payload := map[string]any{
		"type":    chart.Type,
		"data":    data,
		"options": options,
	}

	serialized, marshalErr := marshalChart(payload)
	if marshalErr != nil {
		return marshalErr
	}

	dependency := r.dependency()

	tpl, parseErr := template.New("chart").Parse(chartTemplate)
	if parseErr != nil {
		return fmt.Errorf("parse chart template: %w", parseErr)
	}

	var buf bytes.Buffer

	executeErr := tpl.Execute(&buf, templateData{
		Title:      chart.Name,
		ChartJS:    dependency.ChartJS,
		Stacked100: dependency.Stacked100,
		Datalabels: dependency.Datalabels,
		Width:      chartWidth(chart),
		Height:     chartHeight(chart),
		ChartID:    chart.Name,
		Config:     serialized,
	})
	if executeErr != nil {
		return fmt.Errorf("execute chart template: %w", executeErr)
	}

	dest := filepath.Join(r.display.Destination, chart.Name+".html")

	writeErr := os.WriteFile(dest, buf.Bytes(), 0o600)
	if writeErr != nil {
		return fmt.Errorf("write chart html: %w", writeErr)
	}

	r.logger.Info("render html", "dest", dest)

	return nil
}

func (r *Renderer) renderImage(ctx context.Context, chart *config.ChartConfig, data map[string]any) error {
	api := r.display.RenderAPI
	if api == "" {
		api = DefaultRenderAPI
	}

	background := r.display.BackgroundColor
	if background == "" {
		background = DefaultBackgroundColor
	}

	format := r.display.Format
	if format == "" {
		format = DefaultImageFormat
	}

	body := map[string]any{
		"backgroundColor": background,
		"width":           chartWidth(chart),
		"height":          chartHeight(chart),
		"format":          format,
		"chart": map[string]any{
			"type": chart.Type,
			"data": data,
		},
	}

	response, postErr := r.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(api + renderRoute)
	if postErr != nil {
		return fmt.Errorf("render image: %w", postErr)
	}

	if response.IsError() {
		return fmt.Errorf("render image: unexpected status %s", response.Status())
	}

	dest := filepath.Join(r.display.Destination, chart.Name+"."+format)

	writeErr := os.WriteFile(dest, response.Body(), 0o600)
	if writeErr != nil {
		return fmt.Errorf("write chart image: %w", writeErr)
	}

	r.logger.Info("render image", "dest", dest)

	return nil
}

func (r *Renderer) dependency() config.Dependency {
	dependency := config.Dependency{
		ChartJS:    defaultChartJS,
		Stacked100: defaultStacked100,
		Datalabels: defaultDatalabels,
	}

	if r.display.Dependency == nil {
		return dependency
	}

	if r.display.Dependency.ChartJS != "" {
		dependency.ChartJS = r.display.Dependency.ChartJS
	}

	if r.display.Dependency.Stacked100 != "" {
		dependency.Stacked100 = r.display.Dependency.Stacked100
	}

	if r.display.Dependency.Datalabels != "" {
		dependency.Datalabels = r.display.Dependency.Datalabels
	}

	return dependency
}

// marshalChart serializes a chart payload without HTML escaping (function
// literals contain '>' and '&') and strips the function sentinels so the
// literals appear unquoted.
func marshalChart(payload any) (string, error) {
	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)

	encodeErr := encoder.Encode(payload)
	if encodeErr != nil {
		return "", fmt.Errorf("marshal chart config: %w", encodeErr)
	}

	serialized := strings.TrimSpace(buf.String())
	serialized = strings.ReplaceAll(serialized, fnSentinelOpen, "")
	serialized = strings.ReplaceAll(serialized, fnSentinelClose, "")

	return serialized, nil
}

func chartWidth(chart *config.ChartConfig) int {
	if chart.Width > 0 {
		return chart.Width
	}

	return DefaultChartWidth
}

func chartHeight(chart *config.ChartConfig) int {
	if chart.Height > 0 {
		return chart.Height
	}

	return DefaultChartHeight
}

// deepCopy clones a decoded YAML tree so resolution never mutates the
// loaded config.
func deepCopy(node any) any {
	switch v := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			out[key] = deepCopy(value)
		}

		return out
	case []any:
		out := make([]any, len(v))
		for i, value := range v {
			out[i] = deepCopy(value)
		}

		return out
	default:
		return v
	}
}
