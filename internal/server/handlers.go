package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"strings"

	"go.uber.org/zap"

	"github.com/ironsheep/ecg-tools-mcp/internal/detection"
	"github.com/ironsheep/ecg-tools-mcp/internal/diagnosis"
	"github.com/ironsheep/ecg-tools-mcp/internal/digitize"
	"github.com/ironsheep/ecg-tools-mcp/internal/imaging"
	"github.com/ironsheep/ecg-tools-mcp/internal/ocr"
	"github.com/ironsheep/ecg-tools-mcp/internal/render"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "ecg_load", "ecg_digitize").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// paramsError marks a failure caused by the caller's arguments.
type paramsError struct {
	err error
}

func (e *paramsError) Error() string { return e.err.Error() }
func (e *paramsError) Unwrap() error { return e.err }

func invalidParams(format string, args ...interface{}) error {
	return &paramsError{err: fmt.Errorf(format, args...)}
}

// ToolErrorData is the data member of a tool failure response.
type ToolErrorData struct {
	// Kind is a machine-readable failure class: image_format, calibration,
	// binarization, extraction, no_criterion, unknown_criterion, no_model,
	// ocr_unavailable or internal.
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// errorKind classifies err for ToolErrorData.
func errorKind(err error) string {
	switch {
	case errors.Is(err, diagnosis.ErrNoCriterion):
		return "no_criterion"
	case errors.Is(err, diagnosis.ErrUnknownCriterion):
		return "unknown_criterion"
	case errors.Is(err, diagnosis.ErrNoModel):
		return "no_model"
	case errors.Is(err, ocr.ErrOCRUnavailable):
		return "ocr_unavailable"
	default:
		return digitize.Kind(err)
	}
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Bad arguments and unknown tools return code -32602. Tool execution errors
// return code -32000 with a ToolErrorData naming the failure kind.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		var pe *paramsError
		if errors.As(err, &pe) {
			return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
		}
		data := ToolErrorData{Kind: errorKind(err), Detail: err.Error()}
		s.logger.Info("tool failed",
			zap.String("tool", params.Name),
			zap.String("kind", data.Kind),
			zap.Error(err))
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", data)
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals and checks its arguments
//  2. Applies configured defaults for optional parameters
//  3. Loads the strip from the cache
//  4. Runs the pipeline stages it needs
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Image Information
	case "ecg_load":
		return s.handleLoad(args)

	// Calibration
	case "ecg_detect_orientation":
		return s.handleDetectOrientation(args)
	case "ecg_detect_grid":
		return s.handleDetectGrid(args)
	case "ecg_binarize":
		return s.handleBinarize(args)
	case "ecg_edge_map":
		return s.handleEdgeMap(args)
	case "ecg_grid_overlay":
		return s.handleGridOverlay(args)
	case "ecg_crop_lead":
		return s.handleCropLead(args)

	// Digitizing
	case "ecg_digitize":
		return s.handleDigitize(args)
	case "ecg_plot_signal":
		return s.handlePlotSignal(args)
	case "ecg_read_annotations":
		return s.handleReadAnnotations(args)

	// Diagnosis
	case "ecg_diagnose_stemi":
		return s.handleDiagnoseSTEMI(args)
	case "ecg_classify":
		return s.handleClassify(args)

	default:
		return nil, invalidParams("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments. A missing arguments object decodes
// as empty.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return &paramsError{err: fmt.Errorf("invalid arguments: %w", err)}
	}
	return nil
}

// loadImage returns the cached strip at path. Unreadable files are image
// format errors.
func (s *Server) loadImage(path string) (image.Image, error) {
	if path == "" {
		return nil, invalidParams("path is required")
	}
	img, err := s.cache.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", digitize.ErrImageFormat, err)
	}
	return img, nil
}

// pipelineFor returns the pipeline and options for a layout override. An
// empty name selects the configured layout.
func (s *Server) pipelineFor(layout string) (*digitize.Pipeline, digitize.Options, error) {
	if layout == "" {
		return s.pipeline, s.opts, nil
	}
	l, err := digitize.LayoutByName(layout)
	if err != nil {
		return nil, digitize.Options{}, &paramsError{err: err}
	}
	opts := s.opts
	opts.Extract.Layout = l
	return digitize.New(opts, digitize.WithLogger(s.logger.Named("digitize"))), opts, nil
}

// RegisterModel adds a network model for condition to the server's registry,
// using the configured threshold for that condition.
func (s *Server) RegisterModel(condition diagnosis.Diagnosis, name string, m diagnosis.Model) error {
	return s.registry.Register(diagnosis.Entry{
		Condition: condition,
		Name:      name,
		Model:     m,
		Threshold: s.cfg.ModelThreshold(condition),
	})
}

// === Image Information Handlers ===

type pathArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleLoad(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, invalidParams("path is required")
	}
	info, err := imaging.LoadStripInfo(s.cache, a.Path, s.cfg.Grid.ChromaThreshold, s.cfg.Grid.MinChromaFraction)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", digitize.ErrImageFormat, err)
	}
	return info, nil
}

// === Calibration Handlers ===

type orientationResult struct {
	digitize.Orientation

	// Width and Height are the dimensions after levelling.
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s *Server) handleDetectOrientation(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	oriented, o, err := s.pipeline.CorrectOrientation(img)
	if err != nil {
		return nil, err
	}
	return &orientationResult{
		Orientation: o,
		Width:       oriented.Bounds().Dx(),
		Height:      oriented.Bounds().Dy(),
	}, nil
}

type gridResult struct {
	Orientation digitize.Orientation   `json:"orientation"`
	Grid        *digitize.GridAnalysis `json:"grid"`

	// SecondsPerPixel and MillivoltsPerPixel convert pixel offsets on the
	// levelled strip at the configured paper speed and gain.
	SecondsPerPixel    float64 `json:"seconds_per_pixel"`
	MillivoltsPerPixel float64 `json:"millivolts_per_pixel"`
}

func (s *Server) handleDetectGrid(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	oriented, o, err := s.pipeline.CorrectOrientation(img)
	if err != nil {
		return nil, err
	}
	analysis, err := digitize.NewAutocorrelationGrid(s.opts.Grid).Analyze(oriented)
	if err != nil {
		return nil, fmt.Errorf("grid: %w", err)
	}
	return &gridResult{
		Orientation:        o,
		Grid:               analysis,
		SecondsPerPixel:    1 / (analysis.Scale.PixelsPerMMX * s.opts.Extract.PaperSpeed),
		MillivoltsPerPixel: 1 / (analysis.Scale.PixelsPerMMY * s.opts.Extract.Gain),
	}, nil
}

type binarizeResult struct {
	Mask        *imaging.EncodedImage `json:"mask"`
	Channel     string                `json:"channel"`
	InkPixels   int                   `json:"ink_pixels"`
	InkFraction float64               `json:"ink_fraction"`
	Orientation digitize.Orientation  `json:"orientation"`
}

func (s *Server) handleBinarize(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	oriented, o, err := s.pipeline.CorrectOrientation(img)
	if err != nil {
		return nil, err
	}
	mask, err := s.pipeline.Binarize(oriented)
	if err != nil {
		return nil, err
	}
	_, channel := digitize.NewAdaptiveBinarizer(s.opts.Binarize).Intensity(oriented)

	encoded, err := imaging.EncodePNG(mask.Image())
	if err != nil {
		return nil, err
	}
	return &binarizeResult{
		Mask:        encoded,
		Channel:     channel,
		InkPixels:   mask.InkPixels(),
		InkFraction: mask.InkFraction(),
		Orientation: o,
	}, nil
}

type edgeMapArgs struct {
	Path      string  `json:"path"`
	Axis      string  `json:"axis"`
	Threshold float64 `json:"threshold"`
}

type edgeMapResult struct {
	Image      *imaging.EncodedImage `json:"image"`
	Axis       string                `json:"axis"`
	Threshold  float64               `json:"threshold"`
	EdgePixels int                   `json:"edge_pixels"`
}

var edgeAxes = map[string]imaging.EdgeAxis{
	"horizontal": imaging.HorizontalStructures,
	"vertical":   imaging.VerticalStructures,
	"all":        imaging.AllStructures,
}

func (s *Server) handleEdgeMap(args json.RawMessage) (interface{}, error) {
	var a edgeMapArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Axis == "" {
		a.Axis = "horizontal"
	}
	axis, ok := edgeAxes[a.Axis]
	if !ok {
		return nil, invalidParams("unknown axis %q", a.Axis)
	}
	if a.Threshold == 0 {
		a.Threshold = s.opts.Orientation.EdgeThreshold
	}
	if a.Threshold < 0 {
		return nil, invalidParams("threshold must be positive, got %g", a.Threshold)
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}

	edges := imaging.DirectionalEdges(img, a.Threshold, axis)
	encoded, err := imaging.EncodePNG(imaging.EdgeImage(edges))
	if err != nil {
		return nil, err
	}
	return &edgeMapResult{
		Image:      encoded,
		Axis:       a.Axis,
		Threshold:  a.Threshold,
		EdgePixels: len(detection.EdgePoints(edges)),
	}, nil
}

type gridOverlayArgs struct {
	Path      string  `json:"path"`
	SpacingMM float64 `json:"spacing_mm"`
	Color     string  `json:"color"`
}

type gridOverlayResult struct {
	Image     *imaging.EncodedImage `json:"image"`
	Scale     digitize.GridScale    `json:"scale"`
	SpacingMM float64               `json:"spacing_mm"`
	StepX     float64               `json:"step_x_px"`
	StepY     float64               `json:"step_y_px"`
}

func (s *Server) handleGridOverlay(args json.RawMessage) (interface{}, error) {
	var a gridOverlayArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.SpacingMM == 0 {
		a.SpacingMM = 5
	}
	if a.SpacingMM < 0 {
		return nil, invalidParams("spacing_mm must be positive, got %g", a.SpacingMM)
	}
	if a.Color == "" {
		a.Color = s.cfg.Server.OverlayColor
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	oriented, _, err := s.pipeline.CorrectOrientation(img)
	if err != nil {
		return nil, err
	}
	scale, err := s.pipeline.DetectGrid(oriented)
	if err != nil {
		return nil, err
	}

	stepX := scale.PixelsPerMMX * a.SpacingMM
	stepY := scale.PixelsPerMMY * a.SpacingMM
	overlay, err := imaging.OverlayGrid(oriented, stepX, stepY, a.Color)
	if err != nil {
		return nil, &paramsError{err: err}
	}
	encoded, err := imaging.EncodePNG(overlay)
	if err != nil {
		return nil, err
	}
	return &gridOverlayResult{
		Image:     encoded,
		Scale:     scale,
		SpacingMM: a.SpacingMM,
		StepX:     stepX,
		StepY:     stepY,
	}, nil
}

type cropLeadArgs struct {
	Path   string  `json:"path"`
	Lead   string  `json:"lead"`
	Layout string  `json:"layout"`
	Scale  float64 `json:"scale"`
}

type cropLeadResult struct {
	*imaging.EncodedImage
	Lead   string           `json:"lead"`
	Region detection.Bounds `json:"region"`
}

func (s *Server) handleCropLead(args json.RawMessage) (interface{}, error) {
	var a cropLeadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	if a.Scale < 0 {
		return nil, invalidParams("scale must be positive, got %g", a.Scale)
	}
	pipe, opts, err := s.pipelineFor(a.Layout)
	if err != nil {
		return nil, err
	}
	region, ok := findRegion(opts.Extract.Layout, a.Lead)
	if !ok {
		return nil, invalidParams("lead %q not in layout %s (have %s)",
			a.Lead, opts.Extract.Layout.Name, strings.Join(opts.Extract.Layout.Leads(), ", "))
	}

	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	oriented, _, err := pipe.CorrectOrientation(img)
	if err != nil {
		return nil, err
	}
	b := oriented.Bounds()
	rect := region.Rect(b.Dx(), b.Dy())
	crop, err := imaging.Crop(oriented, rect, a.Scale)
	if err != nil {
		return nil, err
	}
	encoded, err := imaging.EncodePNG(crop)
	if err != nil {
		return nil, err
	}
	return &cropLeadResult{
		EncodedImage: encoded,
		Lead:         region.Lead,
		Region:       detection.Bounds{X1: rect.Min.X, Y1: rect.Min.Y, X2: rect.Max.X, Y2: rect.Max.Y},
	}, nil
}

// findRegion looks a lead up by name, ignoring case.
func findRegion(l digitize.Layout, lead string) (digitize.LeadRegion, bool) {
	for _, r := range l.Regions {
		if strings.EqualFold(r.Lead, lead) {
			return r, true
		}
	}
	return digitize.LeadRegion{}, false
}

// === Digitizing Handlers ===

type digitizeArgs struct {
	Path   string `json:"path"`
	Layout string `json:"layout"`
}

type digitizeResult struct {
	Layout          string                 `json:"layout"`
	Signal          *digitize.SignalMatrix `json:"signal"`
	Samples         int                    `json:"samples"`
	DurationSeconds float64                `json:"duration_seconds"`
	Orientation     digitize.Orientation   `json:"orientation"`
	Scale           digitize.GridScale     `json:"scale"`
}

// digitize runs the full pipeline for a tool call.
func (s *Server) digitize(path, layout string) (*digitize.Result, digitize.Options, error) {
	pipe, opts, err := s.pipelineFor(layout)
	if err != nil {
		return nil, opts, err
	}
	img, err := s.loadImage(path)
	if err != nil {
		return nil, opts, err
	}
	res, err := pipe.Run(img)
	if err != nil {
		return nil, opts, err
	}
	return res, opts, nil
}

func (s *Server) handleDigitize(args json.RawMessage) (interface{}, error) {
	var a digitizeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	res, opts, err := s.digitize(a.Path, a.Layout)
	if err != nil {
		return nil, err
	}
	return &digitizeResult{
		Layout:          opts.Extract.Layout.Name,
		Signal:          res.Signal,
		Samples:         res.Signal.Len(),
		DurationSeconds: res.Signal.Duration(),
		Orientation:     res.Orientation,
		Scale:           res.Scale,
	}, nil
}

type plotSignalArgs struct {
	Path   string   `json:"path"`
	Layout string   `json:"layout"`
	Leads  []string `json:"leads"`
	Width  int      `json:"width"`
	Height int      `json:"height"`
}

type plotSignalResult struct {
	imaging.EncodedImage
	Leads           []string `json:"leads"`
	DurationSeconds float64  `json:"duration_seconds"`
}

func (s *Server) handlePlotSignal(args json.RawMessage) (interface{}, error) {
	var a plotSignalArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Width == 0 {
		a.Width = s.cfg.Server.PlotWidth
	}
	if a.Height == 0 {
		a.Height = s.cfg.Server.PlotHeight
	}
	if a.Width < 0 || a.Height < 0 {
		return nil, invalidParams("invalid plot size %dx%d", a.Width, a.Height)
	}
	res, _, err := s.digitize(a.Path, a.Layout)
	if err != nil {
		return nil, err
	}
	for _, lead := range a.Leads {
		if _, ok := res.Signal.Lead(lead); !ok {
			return nil, invalidParams("lead %q not in signal (have %s)", lead, strings.Join(res.Signal.Leads, ", "))
		}
	}

	png, err := render.PlotLeads(res.Signal, a.Leads, a.Width, a.Height)
	if err != nil {
		return nil, err
	}
	leads := a.Leads
	if len(leads) == 0 {
		leads = res.Signal.Leads
	}
	return &plotSignalResult{
		EncodedImage: imaging.EncodedImage{
			Width:       a.Width,
			Height:      a.Height,
			ImageBase64: base64.StdEncoding.EncodeToString(png),
			MimeType:    "image/png",
		},
		Leads:           leads,
		DurationSeconds: res.Signal.Duration(),
	}, nil
}

type readAnnotationsArgs struct {
	Path          string  `json:"path"`
	Language      string  `json:"language"`
	MinConfidence float64 `json:"min_confidence"`
}

type readAnnotationsResult struct {
	*ocr.Result

	// ConfiguredSpeed and ConfiguredGain are what the digitizer assumes.
	// A mismatch with the printed labels means the configuration is wrong
	// for this strip.
	ConfiguredSpeed float64 `json:"configured_speed_mm_per_sec"`
	ConfiguredGain  float64 `json:"configured_gain_mm_per_mv"`
}

func (s *Server) handleReadAnnotations(args json.RawMessage) (interface{}, error) {
	var a readAnnotationsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Language == "" {
		a.Language = ocr.DefaultLanguage
	}
	if a.MinConfidence == 0 {
		a.MinConfidence = 0.3
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	res, err := ocr.ReadAnnotations(img, a.Language, a.MinConfidence)
	if err != nil {
		return nil, err
	}
	return &readAnnotationsResult{
		Result:          res,
		ConfiguredSpeed: s.opts.Extract.PaperSpeed,
		ConfiguredGain:  s.opts.Extract.Gain,
	}, nil
}

// === Diagnosis Handlers ===

type diagnoseSTEMIArgs struct {
	STE60V3   *float64 `json:"ste60_v3_mm"`
	QTc       *float64 `json:"qtc_ms"`
	RAV4      *float64 `json:"ra_v4_mm"`
	Criterion string   `json:"criterion"`
}

type diagnosisResult struct {
	*diagnosis.Result
	Explanation string `json:"explanation"`
}

func (s *Server) handleDiagnoseSTEMI(args json.RawMessage) (interface{}, error) {
	var a diagnoseSTEMIArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.STE60V3 == nil || a.QTc == nil || a.RAV4 == nil {
		return nil, invalidParams("ste60_v3_mm, qtc_ms and ra_v4_mm are required")
	}

	name := a.Criterion
	if name == "" {
		name = s.cfg.Diagnosis.Criterion
	}
	criterion, err := diagnosis.CriterionByName(name)
	if err != nil {
		return nil, err
	}

	res, err := criterion.Classify(diagnosis.RiskMarkers{STE60V3: *a.STE60V3, QTc: *a.QTc, RAV4: *a.RAV4})
	if err != nil {
		return nil, &paramsError{err: err}
	}
	return &diagnosisResult{Result: res, Explanation: res.Explain()}, nil
}

type classifyArgs struct {
	Path      string `json:"path"`
	Layout    string `json:"layout"`
	Condition string `json:"condition"`
}

func (s *Server) handleClassify(args json.RawMessage) (interface{}, error) {
	var a classifyArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	condition, err := diagnosis.ParseDiagnosis(a.Condition)
	if err != nil {
		return nil, &paramsError{err: err}
	}
	res, _, err := s.digitize(a.Path, a.Layout)
	if err != nil {
		return nil, err
	}
	out, err := diagnosis.ClassifyWithModel(s.registry, condition, res.Signal.Samples, res.Signal.SamplingRate)
	if err != nil {
		return nil, err
	}
	return &diagnosisResult{Result: out, Explanation: out.Explain()}, nil
}
