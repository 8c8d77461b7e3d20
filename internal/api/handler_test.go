package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/exporter"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/importer"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/service/dashboard"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/service/excel"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/service/excel/exceltest"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/service/geocode"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/service/imagestore"
	memstore "github.com/magicmaxmagic/qualification-generator-sub000/internal/service/store"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type staticProvider map[string]geocode.Point

func (p staticProvider) Lookup(_ context.Context, address string) (float64, float64, error) {
	pt, ok := p[address]
	if !ok {
		return 0, 0, geocode.ErrNoResult
	}
	return pt.Lat, pt.Lon, nil
}

func newTestRouter(t *testing.T, withGeocoder bool) *gin.Engine {
	t.Helper()
	return newTestRouterWithExports(t, withGeocoder, "")
}

func newTestRouterWithExports(t *testing.T, withGeocoder bool, exportDir string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cache, err := excel.NewCache(4, excel.DefaultLoadOptions())
	if err != nil {
		t.Fatalf("init cache: %v", err)
	}
	sessions, err := dashboard.NewRegistry(8)
	if err != nil {
		t.Fatalf("init registry: %v", err)
	}
	images, err := imagestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("init image store: %v", err)
	}
	deps := Deps{
		Coordinator: importer.NewCoordinator(cache, model.DefaultCriteriaRegistry(), sessions, nil, nil),
		Sessions:    sessions,
		Backend:     memstore.NewMemorySessionStore(),
		Images:      images,
		ExportDir:   exportDir,
	}
	if withGeocoder {
		g, err := geocode.New(staticProvider{"Paris, France": {Lat: 48.8566, Lon: 2.3522}}, geocode.Config{})
		if err != nil {
			t.Fatalf("init geocoder: %v", err)
		}
		deps.Geocoder = g
	}

	r := gin.New()
	r.Use(SessionMiddleware("vendorlens_session", time.Hour))
	NewHandler(deps).RegisterRoutes(r.Group("/api"))
	return r
}

func do(t *testing.T, r http.Handler, session, method, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v body=%s", err, w.Body.String())
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("unmarshal data: %v body=%s", err, env.Data)
		}
	}
	return env
}

func multipartBody(t *testing.T, files map[string][][]byte, values map[string][]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, list := range files {
		for i, data := range list {
			fw, err := mw.CreateFormFile(field, field+string(rune('a'+i))+".png")
			if err != nil {
				t.Fatalf("create form file: %v", err)
			}
			_, _ = fw.Write(data)
		}
	}
	for field, list := range values {
		for _, v := range list {
			_ = mw.WriteField(field, v)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func upload(t *testing.T, r http.Handler, session string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, map[string][][]byte{"file": {data}}, nil)
	return do(t, r, session, http.MethodPost, "/api/workbook", body, ct)
}

func TestStatus_NewSessionGetsCookie(t *testing.T) {
	r := newTestRouter(t, false)

	w := do(t, r, "", http.MethodGet, "/api/status", nil, "")
	var status StatusResponse
	env := decode(t, w, &status)
	if env.Code != CodeOK || status.Loaded {
		t.Fatalf("unexpected status: %+v %+v", env, status)
	}
	if _, err := uuid.Parse(status.SessionID); err != nil {
		t.Fatalf("session id %q is not a uuid", status.SessionID)
	}
	if !strings.Contains(w.Header().Get("Set-Cookie"), "vendorlens_session="+status.SessionID) {
		t.Fatalf("cookie not issued: %q", w.Header().Get("Set-Cookie"))
	}
}

func TestViews_RequireWorkbook(t *testing.T) {
	r := newTestRouter(t, false)
	session := uuid.NewString()

	for _, path := range []string{"/api/home", "/api/companies", "/api/alignment", "/api/radar", "/api/solutions/x/images"} {
		env := decode(t, do(t, r, session, http.MethodGet, path, nil, ""), nil)
		if env.Code != CodeNoWorkbook {
			t.Fatalf("%s: code = %d, want %d", path, env.Code, CodeNoWorkbook)
		}
	}
}

func TestUploadWorkbook_Views(t *testing.T) {
	r := newTestRouter(t, false)
	session := uuid.NewString()

	var report importer.ImportReport
	if env := decode(t, upload(t, r, session, exceltest.Sample(t)), &report); env.Code != CodeOK {
		t.Fatalf("upload failed: %+v", env)
	}
	if report.Companies != 2 || report.Solutions != 2 || report.Requirements != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}

	var home HomeResponse
	decode(t, do(t, r, session, http.MethodGet, "/api/home", nil, ""), &home)
	if len(home.Companies) != 2 || home.Summary.CompleteRadars != 1 {
		t.Fatalf("unexpected home: %+v", home)
	}

	var traces []struct {
		Company string    `json:"company"`
		Values  []float64 `json:"values"`
	}
	decode(t, do(t, r, session, http.MethodGet, "/api/radar?company=Acme&company=Globex", nil, ""), &traces)
	if len(traces) != 1 || traces[0].Company != "Acme" || len(traces[0].Values) != 6 {
		t.Fatalf("unexpected radar: %+v", traces)
	}

	var detail struct {
		Name      string            `json:"name"`
		Solutions []*model.Solution `json:"solutions"`
		Radar     []json.RawMessage `json:"radar"`
	}
	decode(t, do(t, r, session, http.MethodGet, "/api/companies/Acme", nil, ""), &detail)
	if detail.Name != "Acme" || len(detail.Solutions) != 1 || detail.Solutions[0].Name != "Acme Widget" || len(detail.Radar) != 1 {
		t.Fatalf("unexpected detail: %+v", detail)
	}

	if env := decode(t, do(t, r, session, http.MethodGet, "/api/companies/Nobody", nil, ""), nil); env.Code != CodeNotFound {
		t.Fatalf("unknown company code = %d", env.Code)
	}

	logo := do(t, r, session, http.MethodGet, "/api/companies/Acme/logo", nil, "")
	if logo.Code != http.StatusFound || logo.Header().Get("Location") != "https://acme.example/logo.png" {
		t.Fatalf("logo: status=%d location=%q", logo.Code, logo.Header().Get("Location"))
	}

	var cube AlignmentResponse
	decode(t, do(t, r, session, http.MethodGet, "/api/alignment", nil, ""), &cube)
	if cube.Total != 3 || len(cube.Companies) != 2 {
		t.Fatalf("unexpected alignment: %+v", cube)
	}
	decode(t, do(t, r, session, http.MethodGet, "/api/alignment?type=Base", nil, ""), &cube)
	if cube.Total != 2 || cube.Groups[0].Requirements[0].Cells["Acme"].Badge != model.BadgeYes {
		t.Fatalf("unexpected base group: %+v", cube.Groups)
	}
}

func TestUploadWorkbook_MissingSheet(t *testing.T) {
	r := newTestRouter(t, false)
	data := exceltest.Build(t, exceltest.Sheet{Name: "Feuil1", Rows: [][]interface{}{{"a"}, {"b"}}})

	var payload struct {
		Role      string   `json:"role"`
		Available []string `json:"available"`
	}
	env := decode(t, upload(t, r, uuid.NewString(), data), &payload)
	if env.Code != CodeSheetNotFound {
		t.Fatalf("code = %d, want %d (%s)", env.Code, CodeSheetNotFound, env.Message)
	}
	if len(payload.Available) != 1 || payload.Available[0] != "Feuil1" {
		t.Fatalf("available = %v", payload.Available)
	}
}

func TestUploadWorkbookStream(t *testing.T) {
	r := newTestRouter(t, false)
	body, ct := multipartBody(t, map[string][][]byte{"file": {exceltest.Sample(t)}}, nil)
	w := do(t, r, uuid.NewString(), http.MethodPost, "/api/workbook/stream", body, ct)

	if got := w.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("content type = %q", got)
	}
	events := sseEvents(t, w.Body.String())
	if len(events) == 0 || events[0].Type != importer.EventStart || events[len(events)-1].Type != importer.EventDone {
		t.Fatalf("unexpected events: %+v", events)
	}
}

type sseEvent struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

func sseEvents(t *testing.T, stream string) []sseEvent {
	t.Helper()
	var out []sseEvent
	sc := bufio.NewScanner(strings.NewReader(stream))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var e sseEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &e); err != nil {
			t.Fatalf("bad event %q: %v", line, err)
		}
		out = append(out, e)
	}
	return out
}

func TestSessionsAreIsolated(t *testing.T) {
	r := newTestRouter(t, false)
	a, b := uuid.NewString(), uuid.NewString()
	if env := decode(t, upload(t, r, a, exceltest.Sample(t)), nil); env.Code != CodeOK {
		t.Fatalf("upload failed: %+v", env)
	}
	if env := decode(t, do(t, r, b, http.MethodGet, "/api/home", nil, ""), nil); env.Code != CodeNoWorkbook {
		t.Fatalf("session b sees a workbook: %+v", env)
	}

	decode(t, do(t, r, a, http.MethodDelete, "/api/workbook", nil, ""), nil)
	if env := decode(t, do(t, r, a, http.MethodGet, "/api/home", nil, ""), nil); env.Code != CodeNoWorkbook {
		t.Fatalf("workbook not cleared: %+v", env)
	}
}

func TestSolutionImages(t *testing.T) {
	r := newTestRouter(t, false)
	session := uuid.NewString()
	decode(t, upload(t, r, session, exceltest.Sample(t)), nil)

	png := exceltest.PNG(t, 400, 200, color.NRGBA{R: 200, A: 255})
	body, ct := multipartBody(t,
		map[string][][]byte{"files": {png, png}},
		map[string][]string{"urls": {"https://img.example/a.png\n\n  https://img.example/b.png "}},
	)
	var added struct {
		Images []model.Image `json:"images"`
	}
	if env := decode(t, do(t, r, session, http.MethodPost, "/api/solutions/Acme%20Widget/images", body, ct), &added); env.Code != CodeOK {
		t.Fatalf("add images failed: %+v", env)
	}

	var origins []model.ImageOrigin
	for _, img := range added.Images {
		origins = append(origins, img.Origin)
	}
	want := []model.ImageOrigin{model.OriginWorkbook, model.OriginURL, model.OriginURL, model.OriginUpload}
	if len(origins) != len(want) {
		t.Fatalf("origins = %v, want %v", origins, want)
	}
	for i := range want {
		if origins[i] != want[i] {
			t.Fatalf("origins = %v, want %v", origins, want)
		}
	}

	thumb := do(t, r, session, http.MethodGet, "/api/solutions/Acme%20Widget/images/files/0/thumbnail?width=100", nil, "")
	if thumb.Code != http.StatusOK || thumb.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("thumbnail: status=%d body=%s", thumb.Code, thumb.Body.String())
	}

	if env := decode(t, do(t, r, session, http.MethodDelete, "/api/solutions/Acme%20Widget/images/file/0", nil, ""), nil); env.Code != CodeOK {
		t.Fatalf("delete failed: %+v", env)
	}
	if env := decode(t, do(t, r, session, http.MethodDelete, "/api/solutions/Acme%20Widget/images/file/0", nil, ""), nil); env.Code != CodeNotFound {
		t.Fatalf("second delete code = %d", env.Code)
	}
	if env := decode(t, do(t, r, session, http.MethodDelete, "/api/solutions/Acme%20Widget/images/other/0", nil, ""), nil); env.Code != CodeBadRequest {
		t.Fatalf("bad kind code = %d", env.Code)
	}

	var gallery []model.Image
	decode(t, do(t, r, session, http.MethodGet, "/api/solutions/Acme%20Widget/images", nil, ""), &gallery)
	if len(gallery) != 3 {
		t.Fatalf("gallery = %+v", gallery)
	}
}

func TestAlignmentExport(t *testing.T) {
	r := newTestRouter(t, false)
	session := uuid.NewString()
	decode(t, upload(t, r, session, exceltest.Sample(t)), nil)

	w := do(t, r, session, http.MethodGet, "/api/alignment/export", nil, "")
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != xlsxContentType {
		t.Fatalf("export: status=%d type=%q", w.Code, w.Header().Get("Content-Type"))
	}
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	if idx, err := f.GetSheetIndex(exporter.SheetAlignment); err != nil || idx < 0 {
		t.Fatalf("alignment sheet missing: %v %v", f.GetSheetList(), err)
	}
}

func TestAlignmentExportStream_Download(t *testing.T) {
	exportDir := t.TempDir()
	r := newTestRouterWithExports(t, false, exportDir)
	session := uuid.NewString()
	decode(t, upload(t, r, session, exceltest.Sample(t)), nil)

	w := do(t, r, session, http.MethodPost, "/api/alignment/export/stream", nil, "")
	events := sseEvents(t, w.Body.String())
	last := events[len(events)-1]
	if last.Type != "done" {
		t.Fatalf("last event = %+v", last)
	}
	link, _ := last.Data["downloadUrl"].(string)
	if !strings.HasPrefix(link, "/api/alignment/export/download/") {
		t.Fatalf("download url = %q", link)
	}
	if staged, _ := filepath.Glob(filepath.Join(exportDir, "*.xlsx")); len(staged) != 1 {
		t.Fatalf("staged exports = %v", staged)
	}

	if env := decode(t, do(t, r, uuid.NewString(), http.MethodGet, link, nil, ""), nil); env.Code != CodeNotFound {
		t.Fatalf("other session downloaded the export: %+v", env)
	}
	dl := do(t, r, session, http.MethodGet, link, nil, "")
	if dl.Code != http.StatusOK || dl.Header().Get("Content-Type") != xlsxContentType {
		t.Fatalf("download: status=%d", dl.Code)
	}
	if env := decode(t, do(t, r, session, http.MethodGet, link, nil, ""), nil); env.Code != CodeNotFound {
		t.Fatalf("download link reused: %+v", env)
	}
	if staged, _ := filepath.Glob(filepath.Join(exportDir, "*.xlsx")); len(staged) != 0 {
		t.Fatalf("downloaded export not removed: %v", staged)
	}
}

func TestGeocode(t *testing.T) {
	off := newTestRouter(t, false)
	if env := decode(t, do(t, off, uuid.NewString(), http.MethodGet, "/api/geocode?address=Paris", nil, ""), nil); env.Code != CodeGeocodeOff {
		t.Fatalf("disabled geocoder code = %d", env.Code)
	}

	r := newTestRouter(t, true)
	session := uuid.NewString()
	var found struct {
		Point geocode.Point `json:"point"`
	}
	if env := decode(t, do(t, r, session, http.MethodGet, "/api/geocode?address=Paris,%20France", nil, ""), &found); env.Code != CodeOK {
		t.Fatalf("geocode failed: %+v", env)
	}
	if found.Point.Lat != 48.8566 {
		t.Fatalf("point = %+v", found.Point)
	}
	if env := decode(t, do(t, r, session, http.MethodGet, "/api/geocode?address=Atlantis", nil, ""), nil); env.Code != CodeGeocodeNoMatch {
		t.Fatalf("unknown address code = %d", env.Code)
	}

	decode(t, upload(t, r, session, exceltest.Sample(t)), nil)
	if env := decode(t, do(t, r, session, http.MethodGet, "/api/companies/Acme/location", nil, ""), &found); env.Code != CodeOK || found.Point.Lon != 2.3522 {
		t.Fatalf("company location: %+v %+v", env, found)
	}
}

func TestBuildExportContentDisposition(t *testing.T) {
	t.Parallel()

	got := buildExportContentDisposition("Évaluation 2024.xlsx")
	want := "attachment; filename=\"_valuation 2024-alignement.xlsx\"; filename*=UTF-8''%C3%89valuation%202024-alignement.xlsx"
	if got != want {
		t.Fatalf("content-disposition mismatch:\n got: %s\nwant: %s", got, want)
	}
}
