package score_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sprachpilot/parlo/internal/score"
)

func TestRemoteJudge_Assess(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("x-pronounce-secret"); got != "s3cret" {
			t.Errorf("secret header = %q, want %q", got, "s3cret")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"overallScore": 91,
			"grade":        "excellent",
			"details":      map[string]any{"recognizedText": "bonjour"},
		})
	}))
	defer srv.Close()

	rj := score.NewRemoteJudge(srv.URL, score.WithRemoteSecret("s3cret"))
	res, err := rj.Assess(context.Background(), score.AssessRequest{
		TargetText: "bonjour",
		Language:   "fr-FR",
		AudioWAV:   []byte("RIFFfakewav"),
	})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if res.OverallScore != 91 || res.Grade != "excellent" || res.RecognizedText != "bonjour" {
		t.Errorf("result = %+v, want 91/excellent/bonjour", res)
	}

	if gotBody["targetText"] != "bonjour" || gotBody["language"] != "fr-FR" {
		t.Errorf("request body = %v, want targetText/language set", gotBody)
	}
	audio, _ := gotBody["audioBase64"].(string)
	if !strings.HasPrefix(audio, "data:audio/wav;base64,") {
		t.Errorf("audioBase64 = %q, want data-URL prefix", audio)
	}
	if miscue, _ := gotBody["enableMiscue"].(bool); !miscue {
		t.Error("enableMiscue = false, want true by default")
	}

	v := res.Verdict(85)
	if !v.Pass || v.OverallPercent != 91 || v.UsedHeard != "bonjour" {
		t.Errorf("Verdict(85) = %+v, want pass at 91%%", v)
	}
}

func TestRemoteJudge_AssessErrorResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "upstream unavailable"})
	}))
	defer srv.Close()

	rj := score.NewRemoteJudge(srv.URL)
	_, err := rj.Assess(context.Background(), score.AssessRequest{
		TargetText: "bonjour",
		Language:   "fr-FR",
		AudioWAV:   []byte("RIFFfakewav"),
	})
	if err == nil {
		t.Fatal("Assess on 502: err = nil, want error")
	}
	if !strings.Contains(err.Error(), "upstream unavailable") {
		t.Errorf("err = %v, want upstream error message included", err)
	}
}

func TestRemoteJudge_AssessEmptyAudio(t *testing.T) {
	t.Parallel()

	rj := score.NewRemoteJudge("http://localhost:0")
	if _, err := rj.Assess(context.Background(), score.AssessRequest{TargetText: "x"}); err == nil {
		t.Fatal("Assess with empty audio: err = nil, want error")
	}
}

func TestRemoteJudge_Healthy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{"ok", http.StatusOK, `{"ok":true}`, false},
		{"not ok", http.StatusOK, `{"ok":false}`, true},
		{"not found", http.StatusNotFound, `{}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := score.NewRemoteJudge(srv.URL).Healthy(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Healthy() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
