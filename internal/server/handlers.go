package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"

	"github.com/ironsheep/omr-tools/internal/analysis"
	"github.com/ironsheep/omr-tools/internal/detection"
	"github.com/ironsheep/omr-tools/internal/export"
	"github.com/ironsheep/omr-tools/internal/grading"
	"github.com/ironsheep/omr-tools/internal/histogram"
	"github.com/ironsheep/omr-tools/internal/project"
	"github.com/ironsheep/omr-tools/internal/sheet"
	"github.com/ironsheep/omr-tools/internal/structure"
)

var (
	errNoProject = errors.New("no project loaded; call omr_load_project first")
	errNoSheet   = errors.New("unknown sheet")
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "omr_analyze").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}
	if len(params.Arguments) == 0 {
		params.Arguments = json.RawMessage("{}")
	}

	s.mu.Lock()
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	s.mu.Unlock()
	if err != nil {
		s.log.Warn().Err(err).Str("tool", params.Name).Msg("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
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
// The caller holds s.mu.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Project
	case "omr_load_project":
		return s.handleLoadProject(args)
	case "omr_save_project":
		return s.handleSaveProject(args)
	}

	if s.project == nil {
		if !isKnownTool(name) {
			return nil, fmt.Errorf("unknown tool: %s", name)
		}
		return nil, errNoProject
	}

	switch name {
	// Structure
	case "omr_suggest_markers":
		return s.handleSuggestMarkers(args)

	// Analysis
	case "omr_analyze":
		return s.handleAnalyze(ctx, args)
	case "omr_sheet_status":
		return s.handleSheetStatus(args)
	case "omr_sheet_answers":
		return s.handleSheetAnswers(args)
	case "omr_toggle_override":
		return s.handleToggleOverride(args)

	// Thresholds
	case "omr_set_thresholds":
		return s.handleSetThresholds(args)
	case "omr_guess_thresholds":
		return s.handleGuessThresholds(args)

	// Results
	case "omr_scores":
		return s.handleScores()
	case "omr_export":
		return s.handleExport(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

func isKnownTool(name string) bool {
	for _, t := range GetToolDefinitions() {
		if t.Name == name {
			return true
		}
	}
	return false
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
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

func (s *Server) sheet(id string) (*sheet.Sheet, error) {
	sh := s.project.Sheet(id)
	if sh == nil {
		return nil, fmt.Errorf("%w: %q", errNoSheet, id)
	}
	return sh, nil
}

func (s *Server) group(index int) (*structure.QuestionGroup, error) {
	groups := s.project.Structure.QuestionGroups()
	if index < 0 || index >= len(groups) {
		return nil, fmt.Errorf("group %d out of range (project has %d groups)", index, len(groups))
	}
	return groups[index], nil
}

// === Project Handlers ===

type pathArgs struct {
	Path string `json:"path"`
}

// ProjectSummary describes an open project.
type ProjectSummary struct {
	Path           string `json:"path"`
	Sheets         int    `json:"sheets"`
	Groups         int    `json:"groups"`
	Markers        int    `json:"markers"`
	Strategy       string `json:"strategy"`
	ReferenceSheet string `json:"reference_sheet,omitempty"`
}

func (s *Server) summary() ProjectSummary {
	p := s.project
	sum := ProjectSummary{
		Path:     s.projectPath,
		Sheets:   len(p.Sheets),
		Groups:   len(p.Structure.QuestionGroups()),
		Markers:  len(p.Structure.RegistrationMarkers()),
		Strategy: p.Strategy.String(),
	}
	if ref := p.ReferenceSheet(); ref != nil {
		sum.ReferenceSheet = ref.ID
	}
	return sum
}

func (s *Server) handleLoadProject(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	p, err := project.Load(a.Path)
	if err != nil {
		return nil, err
	}
	if s.opts.Thresholding != "" {
		if p.Strategy, err = analysis.ParseStrategy(s.opts.Thresholding); err != nil {
			return nil, err
		}
	}
	p.Log = s.opts.Logger.With().Str("component", "project").Logger()
	s.project, s.projectPath = p, a.Path
	s.opts.Loader.Clear()
	s.log.Info().Str("path", a.Path).Int("sheets", len(p.Sheets)).Msg("project loaded")
	return s.summary(), nil
}

func (s *Server) handleSaveProject(args json.RawMessage) (interface{}, error) {
	if s.project == nil {
		return nil, errNoProject
	}
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		a.Path = s.projectPath
	}
	if err := s.project.Save(a.Path); err != nil {
		return nil, err
	}
	s.projectPath = a.Path
	return s.summary(), nil
}

// === Structure Handlers ===

type suggestArgs struct {
	SheetID string `json:"sheet_id"`
	MinSize int    `json:"min_size"`
	MaxSize int    `json:"max_size"`
	Limit   int    `json:"limit"`
	Apply   bool   `json:"apply"`
}

// SuggestResult lists marker candidates and, when applied, the markers now
// in the structure.
type SuggestResult struct {
	SheetID    string                `json:"sheet_id"`
	Candidates []detection.Candidate `json:"candidates"`
	Count      int                   `json:"count"`
	Applied    []detection.Point     `json:"applied,omitempty"`
}

// markerMargin is the white border kept around a detected square in the
// marker template.
const markerMargin = 6

func (s *Server) handleSuggestMarkers(args json.RawMessage) (interface{}, error) {
	var a suggestArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	sh := s.project.ReferenceSheet()
	if a.SheetID != "" {
		var err error
		if sh, err = s.sheet(a.SheetID); err != nil {
			return nil, err
		}
	}
	if sh == nil {
		return nil, errors.New("sheet_id is required when the project has no reference sheet")
	}

	page, err := s.opts.Loader.Load(sh.FilePath, sh.Rotation())
	if err != nil {
		return nil, err
	}
	opts := detection.DefaultOptions()
	if a.MinSize > 0 {
		opts.MinSize = a.MinSize
	}
	if a.MaxSize > 0 {
		opts.MaxSize = a.MaxSize
	}
	candidates := detection.SuggestMarkers(page, opts)

	res := SuggestResult{SheetID: sh.ID, Count: len(candidates)}
	if a.Apply {
		first, second, ok := detection.FarthestPair(candidates)
		if !ok {
			return nil, errors.New("no marker candidates to apply")
		}
		st := s.project.Structure
		for _, m := range st.RegistrationMarkers() {
			st.RemoveRegistrationMarker(m)
		}
		pair := []detection.Candidate{first, second}
		if len(candidates) == 1 {
			pair = pair[:1]
		}
		for _, c := range pair {
			m := structure.NewRegistrationMarker(c.Center.X, c.Center.Y)
			m.SetImageWidth(c.Width + 2*markerMargin)
			m.SetImageHeight(c.Height + 2*markerMargin)
			if err := st.AddRegistrationMarker(m); err != nil {
				return nil, err
			}
			res.Applied = append(res.Applied, c.Center)
		}
		if err := s.project.SetReferenceSheet(sh.ID, s.opts.Loader); err != nil {
			return nil, err
		}
	}

	limit := a.Limit
	if limit <= 0 {
		limit = 10
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	res.Candidates = candidates
	return res, nil
}

// === Analysis Handlers ===

type analyzeArgs struct {
	Strategy string `json:"strategy"`
	Workers  int    `json:"workers"`
}

// AnalyzeResult summarizes a batch run.
type AnalyzeResult struct {
	RunID          string   `json:"run_id"`
	Total          int      `json:"total"`
	Analyzed       int      `json:"analyzed"`
	Reused         int      `json:"reused"`
	Skipped        []string `json:"skipped,omitempty"`
	Errors         []string `json:"errors,omitempty"`
	Strategy       string   `json:"strategy"`
	BlackThreshold int      `json:"black_threshold"`
	WhiteThreshold int      `json:"white_threshold"`
	ElapsedMs      int64    `json:"elapsed_ms"`
}

func (s *Server) handleAnalyze(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a analyzeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Strategy != "" {
		strategy, err := analysis.ParseStrategy(a.Strategy)
		if err != nil {
			return nil, err
		}
		s.project.Strategy = strategy
	}
	workers := s.opts.Workers
	if a.Workers > 0 {
		workers = a.Workers
	}

	report, err := s.project.Analyze(ctx, s.opts.Loader, analysis.Options{
		Workers: workers,
		Labels:  s.opts.Labels,
		Logger:  &s.log,
	})
	if err != nil {
		return nil, err
	}

	res := AnalyzeResult{
		RunID:          report.RunID,
		Total:          report.Total,
		Analyzed:       report.Analyzed,
		Reused:         report.Reused,
		Skipped:        report.Skipped,
		Strategy:       s.project.Strategy.String(),
		BlackThreshold: s.project.Histogram.BlackThreshold(),
		WhiteThreshold: s.project.Histogram.WhiteThreshold(),
		ElapsedMs:      report.Elapsed.Milliseconds(),
	}
	var merr *multierror.Error
	if errors.As(report.Errors, &merr) {
		for _, e := range merr.WrappedErrors() {
			res.Errors = append(res.Errors, e.Error())
		}
	}
	return res, nil
}

type sheetArgs struct {
	SheetID string `json:"sheet_id"`
}

// SheetStatus describes one sheet.
type SheetStatus struct {
	ID        string `json:"id"`
	File      string `json:"file"`
	Status    string `json:"status"`
	StudentID string `json:"student_id,omitempty"`
	FormLabel string `json:"form_label,omitempty"`
	Rotation  int    `json:"rotation"`
	Transform string `json:"transform,omitempty"`
}

func sheetStatus(sh *sheet.Sheet) SheetStatus {
	st := SheetStatus{
		ID:        sh.ID,
		File:      sh.FilePath,
		Status:    sh.Status().String(),
		StudentID: sh.StudentID(),
		FormLabel: sh.FormLabel,
		Rotation:  sh.Rotation(),
	}
	if sh.Analyzed() {
		st.Transform = sh.Transform().String()
	}
	return st
}

func (s *Server) handleSheetStatus(args json.RawMessage) (interface{}, error) {
	var a sheetArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.SheetID != "" {
		sh, err := s.sheet(a.SheetID)
		if err != nil {
			return nil, err
		}
		return []SheetStatus{sheetStatus(sh)}, nil
	}
	out := make([]SheetStatus, 0, len(s.project.Sheets))
	for _, sh := range s.project.Sheets {
		out = append(out, sheetStatus(sh))
	}
	return out, nil
}

// QuestionAnswer is the result of one question on one sheet.
type QuestionAnswer struct {
	Number  int     `json:"number"`
	Choices string  `json:"choices"`
	Correct string  `json:"correct,omitempty"`
	Outcome string  `json:"outcome,omitempty"`
	Score   float64 `json:"score"`
	// Uncertain lists the alternatives the classifier could not decide.
	Uncertain []string `json:"uncertain,omitempty"`
}

// GroupAnswers holds the answers of one question group.
type GroupAnswers struct {
	Index       int              `json:"index"`
	Orientation string           `json:"orientation"`
	Questions   []QuestionAnswer `json:"questions"`
}

// SheetAnswers is the answer sheet as read.
type SheetAnswers struct {
	SheetStatus
	Groups []GroupAnswers `json:"groups"`
	Total  float64        `json:"total"`
}

func (s *Server) handleSheetAnswers(args json.RawMessage) (interface{}, error) {
	var a sheetArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	sh, err := s.sheet(a.SheetID)
	if err != nil {
		return nil, err
	}

	scheme := s.project.Grading
	groups := s.project.Structure.QuestionGroups()
	out := SheetAnswers{SheetStatus: sheetStatus(sh), Total: scheme.TotalScore(sh, groups)}
	for i, g := range groups {
		ga := GroupAnswers{Index: i, Orientation: g.Orientation().String()}
		for q := 0; q < g.Questions(); q++ {
			qa := QuestionAnswer{Number: g.QuestionNumber(q), Choices: sh.Choices(g, q)}
			if g.Orientation().Graded() {
				qa.Correct = g.CorrectChoices(q)
				qa.Outcome = grading.Evaluate(sh, g, q).String()
				qa.Score = scheme.Score(sh, g, q)
			}
			for alt := 0; alt < g.Alternatives(); alt++ {
				row, col := g.Cell(q, alt)
				if sh.HasAnswers() && sh.Answer(g, row, col) == sheet.Uncertain {
					qa.Uncertain = append(qa.Uncertain, g.AlternativeLabel(alt))
				}
			}
			ga.Questions = append(ga.Questions, qa)
		}
		out.Groups = append(out.Groups, ga)
	}
	return out, nil
}

type overrideArgs struct {
	SheetID string `json:"sheet_id"`
	Group   int    `json:"group"`
	Row     int    `json:"row"`
	Col     int    `json:"col"`
}

// OverrideResult reports a bubble after an override change.
type OverrideResult struct {
	Override string `json:"override"`
	Answer   string `json:"answer"`
	Status   string `json:"status"`
}

func (s *Server) handleToggleOverride(args json.RawMessage) (interface{}, error) {
	var a overrideArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	sh, err := s.sheet(a.SheetID)
	if err != nil {
		return nil, err
	}
	g, err := s.group(a.Group)
	if err != nil {
		return nil, err
	}
	o, err := sh.ToggleOverride(g, a.Row, a.Col)
	if err != nil {
		return nil, err
	}
	return OverrideResult{
		Override: o.String(),
		Answer:   sh.Answer(g, a.Row, a.Col).String(),
		Status:   sh.Status().String(),
	}, nil
}

// === Threshold Handlers ===

type thresholdArgs struct {
	Black   int    `json:"black"`
	White   int    `json:"white"`
	SheetID string `json:"sheet_id"`
}

// ThresholdResult reports the thresholds in effect after a change.
type ThresholdResult struct {
	SheetID string `json:"sheet_id,omitempty"`
	Black   int    `json:"black"`
	White   int    `json:"white"`
}

// thresholdTarget returns the histogram a threshold tool acts on and
// recalculates the affected answers once it has been changed.
func (s *Server) thresholdTarget(sheetID string) (*histogram.Histogram, func(), error) {
	if sheetID == "" {
		return s.project.Histogram, s.project.CalculateAnswers, nil
	}
	sh, err := s.sheet(sheetID)
	if err != nil {
		return nil, nil, err
	}
	h := sh.Histogram()
	recalc := func() {
		for _, g := range s.project.Structure.QuestionGroups() {
			sh.CalculateAnswers(g, h.BlackThreshold(), h.WhiteThreshold())
		}
	}
	return h, recalc, nil
}

func (s *Server) handleSetThresholds(args json.RawMessage) (interface{}, error) {
	var a thresholdArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	h, recalc, err := s.thresholdTarget(a.SheetID)
	if err != nil {
		return nil, err
	}
	h.SetBlackThreshold(a.Black)
	h.SetWhiteThreshold(a.White)
	recalc()
	return ThresholdResult{SheetID: a.SheetID, Black: h.BlackThreshold(), White: h.WhiteThreshold()}, nil
}

func (s *Server) handleGuessThresholds(args json.RawMessage) (interface{}, error) {
	var a sheetArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	h, recalc, err := s.thresholdTarget(a.SheetID)
	if err != nil {
		return nil, err
	}
	h.GuessThreshold()
	recalc()
	return ThresholdResult{SheetID: a.SheetID, Black: h.BlackThreshold(), White: h.WhiteThreshold()}, nil
}

// === Result Handlers ===

// SheetScore is the graded total of one sheet.
type SheetScore struct {
	ID        string  `json:"id"`
	StudentID string  `json:"student_id"`
	Status    string  `json:"status"`
	Total     float64 `json:"total"`
	Max       float64 `json:"max"`
}

func (s *Server) handleScores() (interface{}, error) {
	scheme := s.project.Grading
	groups := s.project.Structure.QuestionGroups()
	maxTotal := scheme.MaxTotal(groups)
	out := make([]SheetScore, 0, len(s.project.Sheets))
	for _, sh := range s.project.Sheets {
		out = append(out, SheetScore{
			ID:        sh.ID,
			StudentID: export.StudentID(sh),
			Status:    sh.Status().String(),
			Total:     scheme.TotalScore(sh, groups),
			Max:       maxTotal,
		})
	}
	return out, nil
}

type exportArgs struct {
	Format  string  `json:"format"`
	Path    string  `json:"path"`
	SheetID string  `json:"sheet_id"`
	Zoom    float64 `json:"zoom"`
}

// ExportResult reports a written file.
type ExportResult struct {
	Path   string `json:"path"`
	Format string `json:"format"`
	Bytes  int64  `json:"bytes"`
}

func (s *Server) handleExport(args json.RawMessage) (interface{}, error) {
	var a exportArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}

	p := s.project
	var write func(f *os.File) error
	switch a.Format {
	case "answers-csv":
		write = func(f *os.File) error { return export.WriteAnswersCSV(f, p.Sheets, p.Structure) }
	case "results-csv":
		write = func(f *os.File) error { return export.WriteResultsCSV(f, p.Sheets, p.Structure, p.Grading) }
	case "results-xlsx":
		write = func(f *os.File) error { return export.WriteResultsXLSX(f, p.Sheets, p.Structure, p.Grading) }
	case "feedback":
		sh, err := s.sheet(a.SheetID)
		if err != nil {
			return nil, err
		}
		page, err := s.opts.Loader.Load(sh.FilePath, sh.Rotation())
		if err != nil {
			return nil, err
		}
		groups := p.Structure.QuestionGroups()
		caption := fmt.Sprintf("%s  %g/%g", export.StudentID(sh), p.Grading.TotalScore(sh, groups), p.Grading.MaxTotal(groups))
		write = func(f *os.File) error {
			return export.FeedbackJPEG(f, page, sh, p.Structure, export.FeedbackOptions{Zoom: a.Zoom, Caption: caption})
		}
	default:
		return nil, fmt.Errorf("unknown export format %q", a.Format)
	}

	f, err := os.Create(a.Path)
	if err != nil {
		return nil, err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(a.Path)
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	info, err := os.Stat(a.Path)
	if err != nil {
		return nil, err
	}
	return ExportResult{Path: a.Path, Format: a.Format, Bytes: info.Size()}, nil
}
