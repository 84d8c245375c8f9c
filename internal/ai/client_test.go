package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validExtraction = `{
	"personal_info": {"name": "Jane Dow", "email": "jane@example.com"},
	"experience": [{"company": "Acme", "title": "Engineer"}],
	"skills": {"technical": ["Go"], "soft": []}
}`

func aiServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, APIKey: "test-key"})
}

func respondOutput(t *testing.T, w http.ResponseWriter, output string) {
	t.Helper()
	require.NoError(t, json.NewEncoder(w).Encode(chatResponse{Output: output}))
}

func TestClient_ExtractResume(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest

	client := aiServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		respondOutput(t, w, validExtraction)
	})

	data, err := client.ExtractResume(context.Background(), []byte("%PDF"), "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, "Jane Dow", data.PersonalInfo.Name)
	assert.Equal(t, "Acme", data.Experience[0].Company)
	assert.Equal(t, []string{"Go"}, data.Skills.Technical)

	assert.Equal(t, "Bearer test-key", gotAuth)
	require.Len(t, gotReq.Attachments, 1)
	assert.Equal(t, "application/pdf", gotReq.Attachments[0].MimeType)
	assert.NotEmpty(t, gotReq.Attachments[0].Data)
}

func TestClient_ExtractResumeSalvagesWrappedJSON(t *testing.T) {
	client := aiServer(t, func(w http.ResponseWriter, r *http.Request) {
		respondOutput(t, w, "Here is the extracted resume:\n```json\n"+validExtraction+"\n```\nLet me know if you need anything else.")
	})

	data, err := client.ExtractResume(context.Background(), []byte("%PDF"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "Jane Dow", data.PersonalInfo.Name)
}

func TestClient_ExtractResumeRejectsNonJSON(t *testing.T) {
	client := aiServer(t, func(w http.ResponseWriter, r *http.Request) {
		respondOutput(t, w, "I could not read the attachment.")
	})

	_, err := client.ExtractResume(context.Background(), []byte("%PDF"), "application/pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-json")
}

func TestClient_ExtractResumeRejectsSchemaViolation(t *testing.T) {
	client := aiServer(t, func(w http.ResponseWriter, r *http.Request) {
		// personal_info must be an object.
		respondOutput(t, w, `{"personal_info": "Jane Dow"}`)
	})

	_, err := client.ExtractResume(context.Background(), []byte("%PDF"), "application/pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema")
}

func TestClient_ExtractResumeServerError(t *testing.T) {
	client := aiServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.ExtractResume(context.Background(), []byte("%PDF"), "application/pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestClient_GenerateSummaryTrimsOutput(t *testing.T) {
	client := aiServer(t, func(w http.ResponseWriter, r *http.Request) {
		respondOutput(t, w, "\n  A seasoned Go engineer.  \n")
	})

	summary, err := client.GenerateSummary(context.Background(), &ResumeData{
		PersonalInfo: PersonalInfo{Name: "Jane Dow"},
	})
	require.NoError(t, err)
	assert.Equal(t, "A seasoned Go engineer.", summary)
}

func TestClient_GenerateCoverLetterIncludesJobDescription(t *testing.T) {
	var gotReq chatRequest
	client := aiServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		respondOutput(t, w, "Dear hiring manager,")
	})

	letter, err := client.GenerateCoverLetter(context.Background(),
		&ResumeData{PersonalInfo: PersonalInfo{Name: "Jane Dow"}},
		"Senior Go engineer for the billing team.")
	require.NoError(t, err)
	assert.Equal(t, "Dear hiring manager,", letter)

	assert.Contains(t, gotReq.Input, "Jane Dow")
	assert.Contains(t, gotReq.Input, "billing team")
}

func TestClient_CancelledContextStopsRetries(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		respondOutput(t, w, validExtraction)
	}))
	srv.Close() // force transport errors so the retry path runs

	client := NewClient(Config{BaseURL: srv.URL})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ExtractResume(ctx, []byte("%PDF"), "application/pdf")
	require.Error(t, err)
	assert.Zero(t, atomic.LoadInt64(&calls))
}

func TestSalvageJSON(t *testing.T) {
	raw, err := salvageJSON(`  {"a": 1}  `)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1}`, string(raw))

	raw, err = salvageJSON("prefix {\"a\": {\"b\": 2}} suffix")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": {"b": 2}}`, string(raw))

	_, err = salvageJSON("no object here")
	require.Error(t, err)
}
