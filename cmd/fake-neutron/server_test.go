package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/AltairaLabs/netgateway-provider/internal/fakeneutron"
)

func TestBuildService_SeedsNetworks(t *testing.T) {
	svc, err := buildService(&serverConfig{Revision: "v2", Networks: []string{"public"}}, zerolog.Nop())
	if err != nil {
		t.Fatalf("buildService: %v", err)
	}

	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v2.0/networks?name=public", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Networks []struct {
			Name string `json:"name"`
		} `json:"networks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Networks) != 1 || body.Networks[0].Name != "public" {
		t.Errorf("networks = %+v, want one named public", body.Networks)
	}
}

func TestBuildService_UnknownRevision(t *testing.T) {
	if _, err := buildService(&serverConfig{Revision: "v9"}, zerolog.Nop()); err == nil {
		t.Fatal("expected error for unknown revision")
	}
}

func TestBuildService_Token(t *testing.T) {
	svc, err := buildService(&serverConfig{Revision: "v1", Token: "secret"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("buildService: %v", err)
	}

	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v2.0/network-gateways", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status without token = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v2.0/network-gateways", nil)
	req.Header.Set("X-Auth-Token", "secret")
	rec = httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status with token = %d, want 200", rec.Code)
	}
}

func TestBuildMux_Routes(t *testing.T) {
	api := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	svc, _ := fakeneutron.New("v1")
	mux := buildMux(api, newHealthHandler(svc))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/health status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v2.0/network-gateways", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("api status = %d, want %d", rec.Code, http.StatusTeapot)
	}
}
