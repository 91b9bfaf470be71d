package inference

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cashcue/internal/services"
)

func TestHTTPGatewayUploadsMultipartFile(t *testing.T) {
	var gotAuth string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		gotAuth = r.Header.Get("Authorization")
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Filename != "frame.jpg" {
			t.Errorf("filename = %q", header.Filename)
		}
		gotBody, _ = io.ReadAll(file)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"predictions":[{"class":"100","confidence":0.9,"x":1,"y":2,"width":3,"height":4}]}`)
	}))
	t.Cleanup(server.Close)

	gw := NewHTTPGateway(server.URL, WithAPIKey("secret"), WithTimeout(time.Second))
	records, err := gw.Infer(context.Background(), []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("Infer returned error: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if string(gotBody) != "jpeg-bytes" {
		t.Errorf("uploaded body = %q", gotBody)
	}
	if len(records) != 1 || records[0]["class"] != "100" {
		t.Fatalf("records = %v", records)
	}
}

func TestHTTPGatewayStatusErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model warming up", http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	_, err := NewHTTPGateway(server.URL).Infer(context.Background(), []byte("x"))
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}

func TestHTTPGatewayRejectsEmptyInput(t *testing.T) {
	if _, err := NewHTTPGateway("http://127.0.0.1:1").Infer(context.Background(), nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := NewHTTPGateway("").Infer(context.Background(), []byte("x")); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestHTTPGatewayHonoursContext(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := NewHTTPGateway(server.URL).Infer(ctx, []byte("x")); err == nil {
		t.Fatal("expected error after context deadline")
	}
}

func TestDecodeRecordsShapes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
		wantErr bool
	}{
		{"predictions", `{"predictions":[{"class":"50"},{"class":"100"}]}`, 2, false},
		{"detections", `{"detections":[{"label":"20"}]}`, 1, false},
		{"bare array", `[{"name":"500"}, 7, "x"]`, 1, false},
		{"no list", `{"status":"ok"}`, 0, false},
		{"scalar", `42`, 0, true},
		{"invalid", `{`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := DecodeRecords([]byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeRecords() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(records) != tt.want {
				t.Errorf("len = %d, want %d", len(records), tt.want)
			}
		})
	}
}
