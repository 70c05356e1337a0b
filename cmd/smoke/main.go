package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

const (
	defaultAPIBase = "http://localhost:8080"
)

var (
	apiBase    string
	client     = &http.Client{Timeout: 30 * time.Second}
	createdIDs = make(map[string]string) // track created resources for cleanup
)

// sampleDocument is a minimal vendor usage export with one user section.
const sampleDocument = `<html><body>
<table id="header">
<tr><td>Date Created:</td><td>3/2/2024</td></tr>
<tr><td>Date Range:</td><td>2/1/2024 - 2/29/2024</td></tr>
</table>
<table>
<tr class="group-header"><td>User Name</td></tr>
<tr><td></td></tr>
<tr><td>smoke.user</td></tr>
<tr class="column-header"><th>Model</th><th>Name</th><th>IP</th><th>c3</th><th>c4</th><th>c5</th><th>c6</th><th>Mono</th><th>Color</th><th>Blank</th><th>Total</th><th>c11</th><th>c12</th><th>PDF</th><th>Copy</th><th>c15</th><th>c16</th><th>c17</th><th>c18</th><th>Excel</th><th>PPT</th><th>Word</th><th>Other</th><th>c23</th><th>Print</th><th>c25</th><th>c26</th><th>Simplex</th><th>Duplex</th></tr>
<tr><td>Smoke MFP 9000</td><td>Office Printer</td><td>10.0.0.9</td><td>0</td><td>0</td><td>0</td><td>0</td><td>40</td><td>2</td><td>0</td><td>42</td><td>0</td><td>0</td><td>1</td><td>0</td><td>0</td><td>0</td><td>0</td><td>0</td><td>0</td><td>0</td><td>3</td><td>0</td><td>0</td><td>42</td><td>0</td><td>0</td><td>40</td><td>2</td></tr>
</table>
</body></html>`

func main() {
	fmt.Println("=== Usage Hub E2E Smoke Test ===")
	fmt.Println()

	apiBase = getEnv("API_BASE_URL", defaultAPIBase)
	fmt.Printf("API Base: %s\n", apiBase)
	fmt.Println()

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Healthz", testHealthz},
		{"Parse Document", testParseDocument},
		{"Save Report", testSaveReport},
		{"List Reports", testListReports},
		{"Get Report", testGetReport},
		{"Rename Identity", testRenameIdentity},
		{"Summary", testSummary},
		{"Export CSV", testExportCSV},
		{"Export PDF", testExportPDF},
		{"Delete Report", testDeleteReport},
	}

	failed := false
	for i, step := range steps {
		fmt.Printf("[%d/%d] %s... ", i+1, len(steps), step.name)
		if err := step.fn(); err != nil {
			fmt.Printf("❌ FAILED\n")
			fmt.Printf("  Error: %v\n\n", err)
			failed = true
			break
		}
		fmt.Printf("✅ OK\n")
	}

	fmt.Println()
	if failed {
		fmt.Println("❌ SMOKE TEST FAILED")
		os.Exit(1)
	}

	fmt.Println("✅ ALL SMOKE TESTS PASSED")
}

func testHealthz() error {
	resp, err := client.Get(apiBase + "/healthz")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}

// parsedPeriod holds the period payload between steps so the save step can
// persist exactly what the parse step returned.
var parsedPeriod json.RawMessage

func testParseDocument() error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "smoke-feb.html")
	if err != nil {
		return err
	}
	if _, err := part.Write([]byte(sampleDocument)); err != nil {
		return err
	}
	mw.Close()

	req, err := http.NewRequest("POST", apiBase+"/v1/parse", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var period struct {
		ID    string                     `json:"id"`
		Users map[string]json.RawMessage `json:"users"`
	}
	if err := json.Unmarshal(body, &period); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	if period.ID == "" {
		return fmt.Errorf("parsed period has no id")
	}
	if _, ok := period.Users["smoke.user"]; !ok {
		return fmt.Errorf("expected user smoke.user in parsed period, got %d users", len(period.Users))
	}

	parsedPeriod = body
	return nil
}

func testSaveReport() error {
	payload := map[string]interface{}{
		"reportName": fmt.Sprintf("Smoke %d", time.Now().UnixMilli()),
		"userName":   "Smoke Tester",
		"periods":    []json.RawMessage{parsedPeriod},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := client.Post(apiBase+"/v1/reports", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return statusError(resp)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	if result.ID == "" {
		return fmt.Errorf("saved report has no id")
	}

	createdIDs["report"] = result.ID
	return nil
}

func testListReports() error {
	resp, err := client.Get(apiBase + "/v1/reports?user=" + url.QueryEscape("Smoke Tester"))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	var result struct {
		Reports []struct {
			ID string `json:"id"`
		} `json:"reports"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	for _, r := range result.Reports {
		if r.ID == createdIDs["report"] {
			return nil
		}
	}
	return fmt.Errorf("saved report not found in listing")
}

func testGetReport() error {
	resp, err := client.Get(apiBase + "/v1/reports/" + createdIDs["report"])
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}

func testRenameIdentity() error {
	payload := map[string]string{
		"from": "smoke.user",
		"to":   "Smoke User",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := client.Post(apiBase+"/v1/reports/"+createdIDs["report"]+"/users/rename",
		"application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	var result struct {
		Periods []struct {
			Users map[string]json.RawMessage `json:"users"`
		} `json:"periods"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	if len(result.Periods) == 0 {
		return fmt.Errorf("report has no periods after rename")
	}
	if _, ok := result.Periods[0].Users["Smoke User"]; !ok {
		return fmt.Errorf("renamed identity missing from report")
	}
	return nil
}

func testSummary() error {
	resp, err := client.Get(apiBase + "/v1/reports/" + createdIDs["report"] + "/summary")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	var result struct {
		Users    []string                   `json:"users"`
		Printers []string                   `json:"printers"`
		PerUser  map[string]json.RawMessage `json:"perUserTotals"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	if len(result.PerUser) == 0 {
		return fmt.Errorf("summary has no per-user totals")
	}
	return nil
}

func testExportCSV() error {
	return testExport("csv", "text/csv")
}

func testExportPDF() error {
	return testExport("pdf", "application/pdf")
}

func testExport(format, wantType string) error {
	resp, err := client.Get(apiBase + "/v1/reports/" + createdIDs["report"] + "/export?format=" + format)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	if ct := resp.Header.Get("Content-Type"); ct != wantType {
		return fmt.Errorf("content type=%q, want %q", ct, wantType)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("empty %s export", format)
	}
	return nil
}

func testDeleteReport() error {
	req, err := http.NewRequest("DELETE", apiBase+"/v1/reports/"+createdIDs["report"], nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return statusError(resp)
	}
	return nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
