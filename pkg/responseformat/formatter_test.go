package responseformat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

type payload struct {
	StationName string  `json:"station_name"`
	Temperature float64 `json:"temperature"`
}

func TestWriteResponse(t *testing.T) {
	f := NewFormatter()
	data := payload{StationName: "T1", Temperature: 21.4}

	tests := []struct {
		name        string
		url         string
		contentType string
	}{
		{"default json", "/latest", ContentTypeJSON},
		{"unknown format falls back to json", "/latest?format=xml", ContentTypeJSON},
		{"msgpack", "/latest?format=msgpack", ContentTypeMsgPack},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)

			if err := f.WriteResponse(rec, req, data, map[string]string{"Cache-Control": "no-cache"}); err != nil {
				t.Fatalf("WriteResponse: %v", err)
			}
			if got := rec.Header().Get("Content-Type"); got != tt.contentType {
				t.Errorf("Content-Type = %q, want %q", got, tt.contentType)
			}
			if got := rec.Header().Get("Cache-Control"); got != "no-cache" {
				t.Errorf("Cache-Control = %q", got)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
				t.Errorf("CORS header = %q", got)
			}

			var decoded map[string]any
			if tt.contentType == ContentTypeMsgPack {
				if err := msgpack.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
					t.Fatalf("msgpack decode: %v", err)
				}
			} else if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
				t.Fatalf("json decode: %v", err)
			}
			if decoded["station_name"] != "T1" {
				t.Errorf("station_name = %v, want json tag names in both formats", decoded["station_name"])
			}
			if decoded["temperature"] != 21.4 {
				t.Errorf("temperature = %v", decoded["temperature"])
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/measurements?limit=x", nil)

	if err := NewFormatter().WriteError(rec, req, http.StatusBadRequest, "invalid limit"); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["error"] != "invalid limit" {
		t.Errorf("body = %v", body)
	}
}
