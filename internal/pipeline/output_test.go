package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestImageOutputNormalize(t *testing.T) {
	tests := []struct {
		name    string
		out     ImageOutput
		wantURL string
		wantLen int
		wantErr bool
	}{
		{name: "plain url", out: URLOutput(" https://cdn.example/a.png "), wantURL: "https://cdn.example/a.png"},
		{name: "object", out: ImageOutput{Object: &OutputObject{URL: "https://cdn.example/b.png"}}, wantURL: "https://cdn.example/b.png"},
		{name: "bytes", out: BytesOutput([]byte{1, 2, 3}), wantLen: 3},
		{
			name: "collection uses first",
			out: ImageOutput{Collection: []ImageOutput{
				URLOutput("https://cdn.example/first.png"),
				URLOutput("https://cdn.example/second.png"),
			}},
			wantURL: "https://cdn.example/first.png",
		},
		{
			name:    "nested collection",
			out:     ImageOutput{Collection: []ImageOutput{{Collection: []ImageOutput{{Object: &OutputObject{URL: "u"}}}}}},
			wantURL: "u",
		},
		{name: "empty collection", out: ImageOutput{Collection: []ImageOutput{}}, wantErr: true},
		{name: "object without url", out: ImageOutput{Object: &OutputObject{}}, wantErr: true},
		{name: "zero", out: ImageOutput{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := tt.out.Normalize()
			if tt.wantErr {
				if !errors.Is(err, ErrNoOutput) {
					t.Errorf("Normalize() error = %v, want ErrNoOutput", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if ref.URL != tt.wantURL || len(ref.Data) != tt.wantLen {
				t.Errorf("Normalize() = {URL:%q Data:%d}, want {URL:%q Data:%d}", ref.URL, len(ref.Data), tt.wantURL, tt.wantLen)
			}
			if ref.Empty() {
				t.Error("ref reports empty")
			}
		})
	}
}

func TestOutputFromJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		wantURL string
		wantErr bool
	}{
		{"string", "https://r.example/out.png", "https://r.example/out.png", false},
		{"list", []any{"https://r.example/0.png", "https://r.example/1.png"}, "https://r.example/0.png", false},
		{"object with url", map[string]any{"url": "https://r.example/o.png"}, "https://r.example/o.png", false},
		{"null", nil, "", true},
		{"empty list", []any{}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := OutputFromJSON(tt.in).Normalize()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Normalize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if ref.URL != tt.wantURL {
				t.Errorf("URL = %q, want %q", ref.URL, tt.wantURL)
			}
		})
	}
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte("payload"))
		case "/gone":
			w.WriteHeader(http.StatusGone)
			w.Write([]byte("expired"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(5 * time.Second)

	data, err := f.Fetch(context.Background(), srv.URL+"/ok")
	if err != nil || string(data) != "payload" {
		t.Fatalf("Fetch(/ok) = %q, %v", data, err)
	}

	for path, status := range map[string]int{"/gone": http.StatusGone, "/boom": http.StatusInternalServerError} {
		_, err := f.Fetch(context.Background(), srv.URL+path)
		var se *HTTPStatusError
		if !errors.As(err, &se) || se.StatusCode() != status {
			t.Errorf("Fetch(%s) error = %v, want status %d", path, err, status)
		}
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{StageAnalyze, "AnalysisError"},
		{StageAnnotate, "AnnotationError"},
		{StageFinalize, "SpecificationError"},
	}
	for _, tt := range tests {
		err := &StageError{Stage: tt.stage, Err: errors.New("x")}
		if err.Kind() != tt.want {
			t.Errorf("Kind(%s) = %q, want %q", tt.stage, err.Kind(), tt.want)
		}
		if !IsStage(err, tt.stage) {
			t.Errorf("IsStage(%s) = false", tt.stage)
		}
	}

	ue := &UpstreamError{Collaborator: CollaboratorEditor, Timeout: true, Err: context.DeadlineExceeded}
	if got := ue.Error(); got != "editor call timed out: context deadline exceeded" {
		t.Errorf("UpstreamError.Error() = %q", got)
	}
}
