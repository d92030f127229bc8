package chat

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fpang/veo3-storyboard/internal/auth"
	"github.com/fpang/veo3-storyboard/internal/imagecodec"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Prefer string
	Input  map[string]any
}

func newReplicateServer(t *testing.T, handle func(w http.ResponseWriter, r *http.Request, polls int32)) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var reqs []recordedRequest
	var polls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Auth:   r.Header.Get("Authorization"),
			Prefer: r.Header.Get("Prefer"),
		}
		if r.Method == http.MethodPost {
			var body predictionRequest
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode request: %v", err)
			}
			rec.Input = body.Input
		} else {
			atomic.AddInt32(&polls, 1)
		}
		reqs = append(reqs, rec)
		w.Header().Set("Content-Type", "application/json")
		handle(w, r, atomic.LoadInt32(&polls))
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func TestReplicateGeneratorImmediateSuccess(t *testing.T) {
	srv, reqs := newReplicateServer(t, func(w http.ResponseWriter, r *http.Request, _ int32) {
		w.Write([]byte(`{"id":"p1","status":"succeeded","output":["https://cdn.example/a.png"]}`))
	})

	gen := NewReplicateGenerator(NewReplicateClient("tok", WithBaseURL(srv.URL)), "")
	out, err := gen.Generate(context.Background(), "a lighthouse at dawn")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	ref, err := out.Normalize()
	if err != nil || ref.URL != "https://cdn.example/a.png" {
		t.Fatalf("Normalize() = %+v, %v", ref, err)
	}

	if len(*reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(*reqs))
	}
	req := (*reqs)[0]
	if req.Path != "/models/"+ModelFluxSchnell+"/predictions" {
		t.Errorf("path = %q", req.Path)
	}
	if req.Auth != "Bearer tok" || req.Prefer != "wait" {
		t.Errorf("headers = %q / %q", req.Auth, req.Prefer)
	}
	want := map[string]any{"prompt": "a lighthouse at dawn", "num_outputs": float64(1), "aspect_ratio": "1:1", "output_format": "png"}
	for k, v := range want {
		if req.Input[k] != v {
			t.Errorf("input[%s] = %v, want %v", k, req.Input[k], v)
		}
	}
}

func TestReplicateEditorPolls(t *testing.T) {
	var srvURL string
	srv, reqs := newReplicateServer(t, func(w http.ResponseWriter, r *http.Request, polls int32) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":"p2","status":"starting","urls":{"get":"` + srvURL + `/predictions/p2"}}`))
			return
		}
		if polls < 2 {
			w.Write([]byte(`{"id":"p2","status":"processing"}`))
			return
		}
		w.Write([]byte(`{"id":"p2","status":"succeeded","output":"https://cdn.example/edited.png"}`))
	})
	srvURL = srv.URL

	client := NewReplicateClient("tok", WithBaseURL(srv.URL), WithPollInterval(time.Millisecond))
	editor := NewReplicateEditor(client, "")
	out, err := editor.Edit(context.Background(), "draw arrows", "data:image/png;base64,AAAA")
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if ref, _ := out.Normalize(); ref.URL != "https://cdn.example/edited.png" {
		t.Errorf("output URL = %q", ref.URL)
	}

	if len(*reqs) != 3 {
		t.Fatalf("requests = %d, want create + 2 polls", len(*reqs))
	}
	create := (*reqs)[0]
	if create.Path != "/models/"+ModelFluxKontextMax+"/predictions" {
		t.Errorf("create path = %q", create.Path)
	}
	if create.Input["guidance_scale"] != 3.5 || create.Input["num_inference_steps"] != float64(28) {
		t.Errorf("editor parameters = %v", create.Input)
	}
	if create.Input["input_image"] != "data:image/png;base64,AAAA" || create.Input["prompt"] != "draw arrows" {
		t.Errorf("editor input = %v", create.Input)
	}
	// The second poll has no urls.get and falls back to the prediction path.
	if (*reqs)[2].Path != "/predictions/p2" {
		t.Errorf("poll path = %q", (*reqs)[2].Path)
	}
}

func TestReplicateFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind auth.ValidationErrorType
		check    func(t *testing.T, err error)
	}{
		{
			name:     "unauthorized",
			status:   http.StatusUnauthorized,
			body:     `{"detail":"Invalid token."}`,
			wantKind: auth.ErrTypeInvalidKey,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				if !errors.As(err, &apiErr) || apiErr.Detail != "Invalid token." {
					t.Errorf("error = %v, want APIError with detail", err)
				}
			},
		},
		{
			name:     "throttled",
			status:   http.StatusTooManyRequests,
			body:     `{"detail":"slow down"}`,
			wantKind: auth.ErrTypeQuotaExceeded,
		},
		{
			name:     "server error",
			status:   http.StatusBadGateway,
			body:     `<html>bad gateway</html>`,
			wantKind: auth.ErrTypeNetworkError,
		},
		{
			name:     "prediction failed",
			status:   http.StatusCreated,
			body:     `{"id":"p3","status":"failed","error":"NSFW content detected"}`,
			wantKind: auth.ErrTypeUnknown,
			check: func(t *testing.T, err error) {
				var pe *PredictionError
				if !errors.As(err, &pe) || pe.Status != StatusFailed || pe.Message != "NSFW content detected" {
					t.Errorf("error = %v, want failed PredictionError", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newReplicateServer(t, func(w http.ResponseWriter, r *http.Request, _ int32) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			gen := NewReplicateGenerator(NewReplicateClient("tok", WithBaseURL(srv.URL)), "")
			_, err := gen.Generate(context.Background(), "x")
			if err == nil {
				t.Fatal("Generate() succeeded")
			}
			if got := auth.Classify(err).Type; got != tt.wantKind {
				t.Errorf("Classify() = %s, want %s", got, tt.wantKind)
			}
			if tt.check != nil {
				tt.check(t, err)
			}
		})
	}
}

func TestReplicatePollingHonorsContext(t *testing.T) {
	srv, _ := newReplicateServer(t, func(w http.ResponseWriter, r *http.Request, _ int32) {
		w.Write([]byte(`{"id":"p4","status":"processing"}`))
	})
	client := NewReplicateClient("tok", WithBaseURL(srv.URL), WithPollInterval(5*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := client.Run(ctx, ModelFluxSchnell, map[string]any{"prompt": "x"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() error = %v, want deadline exceeded", err)
	}
}

func TestGeminiImageEditor(t *testing.T) {
	edited, err := imagecodec.EncodePNG(image.NewRGBA(image.Rect(0, 0, 3, 2)))
	if err != nil {
		t.Fatal(err)
	}

	var gotKey, gotPath string
	var gotReq geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(geminiResponse{Candidates: []geminiCandidate{{
			Content: geminiContent{Parts: []geminiPart{
				{Text: "Done."},
				{InlineData: &geminiBlobData{MIMEType: "image/png", Data: base64.StdEncoding.EncodeToString(edited)}},
			}},
		}}})
	}))
	defer srv.Close()

	client := NewGeminiImageClient("key", "")
	client.baseURL = srv.URL
	uri, err := imagecodec.Encode(image.NewRGBA(image.Rect(0, 0, 4, 4)))
	if err != nil {
		t.Fatal(err)
	}

	out, err := NewGeminiImageEditor(client).Edit(context.Background(), "draw a red circle", uri)
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	ref, err := out.Normalize()
	if err != nil || len(ref.Data) != len(edited) {
		t.Fatalf("Normalize() = %d bytes, %v", len(ref.Data), err)
	}

	if gotKey != "key" || !strings.HasSuffix(gotPath, ModelGemini3ProImage+":generateContent") {
		t.Errorf("request key/path = %q %q", gotKey, gotPath)
	}
	if gotReq.SystemInstruction == nil || len(gotReq.Contents) != 1 || len(gotReq.Contents[0].Parts) != 2 {
		t.Fatalf("request shape = %+v", gotReq)
	}
	if gotReq.Contents[0].Parts[1].Text != "draw a red circle" {
		t.Errorf("instruction = %q", gotReq.Contents[0].Parts[1].Text)
	}
}

func TestGeminiImageEditorErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"forbidden", http.StatusForbidden, `{"error":{"code":403,"message":"denied"}}`},
		{"text only", http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"I cannot edit this."}]}}]}`},
		{"embedded error", http.StatusOK, `{"error":{"code":429,"message":"quota"}}`},
	}
	uri, _ := imagecodec.Encode(image.NewRGBA(image.Rect(0, 0, 2, 2)))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewGeminiImageClient("key", "")
			client.baseURL = srv.URL
			if _, err := NewGeminiImageEditor(client).Edit(context.Background(), "x", uri); err == nil {
				t.Error("Edit() succeeded")
			}
		})
	}
}
