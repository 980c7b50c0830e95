package server

import (
	"context"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/omr-tools/internal/detection"
	"github.com/ironsheep/omr-tools/internal/imaging"
	"github.com/ironsheep/omr-tools/internal/project"
	"github.com/ironsheep/omr-tools/internal/sheet"
	"github.com/ironsheep/omr-tools/internal/structure"
)

// drawSheet renders a 200x200 sheet shifted by (dx, dy) with a registration
// square centred on (30,30) and one bubble of g filled.
func drawSheet(g *structure.QuestionGroup, filled, dx, dy int) *imaging.PixelBuffer {
	page := imaging.NewPixelBuffer(200, 200)
	imaging.Fill(page, page.Bounds(), 255, 255, 255)
	imaging.Fill(page, image.Rect(22, 22, 38, 38).Add(image.Pt(dx, dy)), 0, 0, 0)
	imaging.Fill(page, sheet.BubbleRect(g, 0, filled).Add(image.Pt(dx, dy)), 20, 20, 20)
	return page
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// createTestProject writes two sheets answering one question (key C) and a
// project file referencing them. The reference sheet answers A, the other
// sheet is shifted by (4,3) and answers C.
func createTestProject(t *testing.T) (dir, path string) {
	t.Helper()
	dir = t.TempDir()

	p := project.New()
	g := structure.NewQuestionGroup(80, 80, 140, 80)
	g.SetRowCount(1)
	g.SetIndexOffset(1)
	if err := g.SetCorrectChoices(0, "C"); err != nil {
		t.Fatal(err)
	}
	p.Structure.AddQuestionGroup(g)
	if err := p.Structure.AddRegistrationMarker(structure.NewRegistrationMarker(30, 30)); err != nil {
		t.Fatal(err)
	}

	writePNG(t, filepath.Join(dir, "0-ref.png"), drawSheet(g, 0, 0, 0))
	writePNG(t, filepath.Join(dir, "1-shifted.png"), drawSheet(g, 2, 4, 3))
	if _, err := p.ImportSheets(dir); err != nil {
		t.Fatal(err)
	}
	if err := p.SetReferenceSheet("0-ref.png", imaging.NewPageLoader(2, 0)); err != nil {
		t.Fatal(err)
	}

	path = filepath.Join(dir, "exam.omr.yaml")
	if err := p.Save(path); err != nil {
		t.Fatal(err)
	}
	return dir, path
}

// callTool invokes a tool through tools/call and decodes its JSON result
// into out. It returns the JSON-RPC error, if any.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}, out interface{}) *MCPError {
	t.Helper()
	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, _ := json.Marshal(params)

	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		return resp.Error
	}

	content := resp.Result.(map[string]interface{})["content"].([]map[string]interface{})
	if len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("unexpected content %v", content)
	}
	if out != nil {
		if err := json.Unmarshal([]byte(content[0]["text"].(string)), out); err != nil {
			t.Fatalf("decode %s result: %v", name, err)
		}
	}
	return nil
}

func mustCall(t *testing.T, s *Server, name string, args map[string]interface{}, out interface{}) {
	t.Helper()
	if err := callTool(t, s, name, args, out); err != nil {
		t.Fatalf("%s: %s: %v", name, err.Message, err.Data)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer()
	resp := s.handleToolsCall(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("Error: got %+v, want code -32602", resp.Error)
	}
}

func TestHandleToolsCall_Errors(t *testing.T) {
	s := newTestServer()

	tests := []struct {
		name    string
		tool    string
		args    map[string]interface{}
		wantErr string
	}{
		{"unknown tool", "image_load", nil, "unknown tool"},
		{"no project", "omr_scores", nil, "no project loaded"},
		{"save without project", "omr_save_project", nil, "no project loaded"},
		{"load without path", "omr_load_project", map[string]interface{}{}, "path is required"},
		{"load missing file", "omr_load_project", map[string]interface{}{"path": "/nonexistent/exam.omr.yaml"}, "no such file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := callTool(t, s, tt.tool, tt.args, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Code != -32000 {
				t.Errorf("Code: got %d, want -32000", err.Code)
			}
			if data, _ := err.Data.(string); !strings.Contains(data, tt.wantErr) {
				t.Errorf("Data: got %q, want it to contain %q", data, tt.wantErr)
			}
		})
	}
}

func TestHandlers_Workflow(t *testing.T) {
	dir, path := createTestProject(t)
	s := newTestServer()

	var summary ProjectSummary
	mustCall(t, s, "omr_load_project", map[string]interface{}{"path": path}, &summary)
	if summary.Sheets != 2 || summary.Groups != 1 || summary.Markers != 1 || summary.ReferenceSheet != "0-ref.png" {
		t.Errorf("summary: got %+v", summary)
	}

	var statuses []SheetStatus
	mustCall(t, s, "omr_sheet_status", nil, &statuses)
	for _, st := range statuses {
		if st.Status != sheet.NotAnalyzed.String() {
			t.Errorf("%s before analysis: status %s", st.ID, st.Status)
		}
	}

	var run AnalyzeResult
	mustCall(t, s, "omr_analyze", map[string]interface{}{"workers": 2}, &run)
	if run.Total != 2 || run.Analyzed != 2 || len(run.Errors) != 0 || run.RunID == "" {
		t.Errorf("analyze: got %+v", run)
	}

	var shifted SheetAnswers
	mustCall(t, s, "omr_sheet_answers", map[string]interface{}{"sheet_id": "1-shifted.png"}, &shifted)
	if len(shifted.Groups) != 1 || len(shifted.Groups[0].Questions) != 1 {
		t.Fatalf("answers: got %+v", shifted)
	}
	q := shifted.Groups[0].Questions[0]
	if q.Number != 1 || q.Choices != "C" || q.Correct != "C" || q.Outcome != "correct" || q.Score != 1 {
		t.Errorf("shifted question: got %+v", q)
	}
	if shifted.Transform == "" {
		t.Error("shifted sheet should report its transform")
	}

	scores := func() map[string]float64 {
		var list []SheetScore
		mustCall(t, s, "omr_scores", nil, &list)
		out := make(map[string]float64)
		for _, sc := range list {
			if sc.Max != 1 {
				t.Errorf("%s: max %v, want 1", sc.ID, sc.Max)
			}
			out[sc.ID] = sc.Total
		}
		return out
	}
	if got := scores(); got["0-ref.png"] != -0.5 || got["1-shifted.png"] != 1 {
		t.Errorf("scores: got %v", got)
	}

	// Two toggles on the filled bubble: forced filled, then forced empty.
	toggle := map[string]interface{}{"sheet_id": "0-ref.png", "group": 0, "row": 0, "col": 0}
	var ov OverrideResult
	mustCall(t, s, "omr_toggle_override", toggle, &ov)
	if ov.Override != "filled" || ov.Answer != "filled" {
		t.Errorf("first toggle: got %+v", ov)
	}
	mustCall(t, s, "omr_toggle_override", toggle, &ov)
	if ov.Override != "empty" || ov.Answer != "empty" {
		t.Errorf("second toggle: got %+v", ov)
	}
	if got := scores(); got["0-ref.png"] != 0 {
		t.Errorf("score after override: got %v, want 0", got["0-ref.png"])
	}
	if err := callTool(t, s, "omr_toggle_override", map[string]interface{}{"sheet_id": "0-ref.png", "group": 3}, nil); err == nil {
		t.Error("expected error for a group out of range")
	}

	// Thresholds of 0/0 make every bubble of the sheet empty.
	var th ThresholdResult
	mustCall(t, s, "omr_set_thresholds", map[string]interface{}{"sheet_id": "1-shifted.png", "black": 0, "white": 0}, &th)
	if th.Black != 0 || th.White != 0 {
		t.Errorf("set thresholds: got %+v", th)
	}
	if got := scores(); got["1-shifted.png"] != 0 {
		t.Errorf("score with 0/0 thresholds: got %v, want 0", got["1-shifted.png"])
	}
	mustCall(t, s, "omr_guess_thresholds", map[string]interface{}{"sheet_id": "1-shifted.png"}, &th)
	if th.Black >= th.White {
		t.Errorf("guessed thresholds: got %+v", th)
	}
	if got := scores(); got["1-shifted.png"] != 1 {
		t.Errorf("score with guessed thresholds: got %v, want 1", got["1-shifted.png"])
	}

	for _, format := range []string{"answers-csv", "results-csv", "results-xlsx"} {
		var res ExportResult
		out := filepath.Join(dir, "out-"+format)
		mustCall(t, s, "omr_export", map[string]interface{}{"format": format, "path": out}, &res)
		if res.Bytes == 0 {
			t.Errorf("%s: empty file", format)
		}
	}
	csv, err := os.ReadFile(filepath.Join(dir, "out-results-csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(csv), "1-shifted.png,1-shifted.png,1,1") {
		t.Errorf("results csv:\n%s", csv)
	}

	var fb ExportResult
	feedback := filepath.Join(dir, "feedback.jpg")
	mustCall(t, s, "omr_export", map[string]interface{}{"format": "feedback", "path": feedback, "sheet_id": "1-shifted.png", "zoom": 0.5}, &fb)
	f, err := os.Open(feedback)
	if err != nil {
		t.Fatal(err)
	}
	cfg, _, err := image.DecodeConfig(f)
	f.Close()
	if err != nil {
		t.Fatalf("decode feedback: %v", err)
	}
	if cfg.Width != 100 || cfg.Height != 100 {
		t.Errorf("feedback size: got %dx%d, want 100x100", cfg.Width, cfg.Height)
	}

	if err := callTool(t, s, "omr_export", map[string]interface{}{"format": "pdf", "path": filepath.Join(dir, "x.pdf")}, nil); err == nil {
		t.Error("expected error for unknown export format")
	}
	if _, err := os.Stat(filepath.Join(dir, "x.pdf")); !os.IsNotExist(err) {
		t.Error("unknown format should not create a file")
	}

	// The override survives a save and reload.
	saved := filepath.Join(dir, "saved.omr.yaml")
	mustCall(t, s, "omr_save_project", map[string]interface{}{"path": saved}, &summary)
	if summary.Path != saved {
		t.Errorf("save: got path %q", summary.Path)
	}
	reloaded, err := project.Load(saved)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	g := reloaded.Structure.QuestionGroups()[0]
	if o := reloaded.Sheet("0-ref.png").AnswerOverride(g, 0, 0); o != sheet.ForceEmpty {
		t.Errorf("override after reload: got %v, want empty", o)
	}
}

func TestHandlers_SuggestMarkers(t *testing.T) {
	dir := t.TempDir()
	page := imaging.NewPixelBuffer(200, 200)
	imaging.Fill(page, page.Bounds(), 255, 255, 255)
	imaging.Fill(page, image.Rect(22, 22, 38, 38), 0, 0, 0)
	imaging.Fill(page, image.Rect(162, 162, 178, 178), 0, 0, 0)
	writePNG(t, filepath.Join(dir, "scan.png"), page)

	p := project.New()
	if _, err := p.ImportSheets(dir); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "exam.omr.yaml")
	if err := p.Save(path); err != nil {
		t.Fatal(err)
	}

	s := newTestServer()
	mustCall(t, s, "omr_load_project", map[string]interface{}{"path": path}, nil)

	if err := callTool(t, s, "omr_suggest_markers", nil, nil); err == nil {
		t.Error("expected error without a reference sheet")
	}

	var res SuggestResult
	mustCall(t, s, "omr_suggest_markers", map[string]interface{}{"sheet_id": "scan.png", "limit": 1}, &res)
	if res.Count != 2 || len(res.Candidates) != 1 || len(res.Applied) != 0 {
		t.Errorf("suggest: got %+v", res)
	}

	mustCall(t, s, "omr_suggest_markers", map[string]interface{}{"sheet_id": "scan.png", "apply": true}, &res)
	want := []detection.Point{{X: 30, Y: 30}, {X: 170, Y: 170}}
	if len(res.Applied) != 2 || res.Applied[0] != want[0] || res.Applied[1] != want[1] {
		t.Errorf("applied: got %v, want %v", res.Applied, want)
	}

	markers := s.project.Structure.RegistrationMarkers()
	if len(markers) != 2 || markers[0].ImageWidth() != 16+2*markerMargin || markers[0].Template() == nil {
		t.Errorf("markers after apply: %+v", markers)
	}
	var summary ProjectSummary
	mustCall(t, s, "omr_save_project", nil, &summary)
	if summary.Markers != 2 || summary.ReferenceSheet != "scan.png" {
		t.Errorf("summary after apply: got %+v", summary)
	}
}
