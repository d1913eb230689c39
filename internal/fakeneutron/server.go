// Package fakeneutron is an in-memory implementation of the network
// gateway extension of the OpenStack network service. It backs client
// tests and local experiments, and can be told to answer deletes and
// disconnects with server errors.
package fakeneutron

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Operations that can be told to fail.
const (
	OpDelete     = "delete"
	OpDisconnect = "disconnect"
	OpList       = "list"
)

// Device is a gateway device.
type Device struct {
	ID            string `json:"id"`
	InterfaceName string `json:"interface_name"`
}

// Port is a network attached to a gateway.
type Port struct {
	PortID           string `json:"port_id"`
	NetworkID        string `json:"network_id"`
	SegmentationType string `json:"segmentation_type"`
	SegmentationID   *int   `json:"segmentation_id"`
}

// Gateway is a stored gateway record.
type Gateway struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	TenantID string   `json:"tenant_id"`
	Devices  []Device `json:"devices"`
	Default  bool     `json:"default"`
	Shared   *bool    `json:"shared,omitempty"`
	Ports    []Port   `json:"ports"`
}

// Network is a stored network record.
type Network struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// failure is a queued error answer.
type failure struct {
	status int
	// apply performs the operation before answering with the error.
	apply bool
}

// Server is the fake service. Its zero value is not usable; call New.
type Server struct {
	mu       sync.Mutex
	revision string
	single   string
	plural   string
	shared   bool
	token    string
	gateways map[string]*Gateway
	networks map[string]*Network
	failures map[string][]failure
	requests []string
	log      zerolog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithToken requires every request to carry token in X-Auth-Token.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// New creates a server speaking the given schema revision ("v1" or "v2").
func New(revision string, opts ...Option) (*Server, error) {
	s := &Server{
		revision: revision,
		gateways: make(map[string]*Gateway),
		networks: make(map[string]*Network),
		failures: make(map[string][]failure),
		log:      zerolog.Nop(),
	}
	switch revision {
	case "v1":
		s.single, s.plural = "network_gateway", "network_gateways"
	case "v2":
		s.single, s.plural, s.shared = "net_gateway", "net_gateways", true
	default:
		return nil, fmt.Errorf("unknown schema revision %q", revision)
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Handler returns the HTTP handler serving the /v2.0 API.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)
	if s.token != "" {
		r.Use(s.requireToken)
	}

	api := r.PathPrefix("/v2.0").Subrouter()
	api.HandleFunc("/network-gateways", s.listGateways).Methods(http.MethodGet)
	api.HandleFunc("/network-gateways", s.createGateway).Methods(http.MethodPost)
	api.HandleFunc("/network-gateways/{id}", s.showGateway).Methods(http.MethodGet)
	api.HandleFunc("/network-gateways/{id}", s.deleteGateway).Methods(http.MethodDelete)
	api.HandleFunc("/network-gateways/{id}/connect_network", s.connectNetwork).Methods(http.MethodPut)
	api.HandleFunc("/network-gateways/{id}/disconnect_network", s.disconnectNetwork).Methods(http.MethodPut)
	api.HandleFunc("/networks", s.listNetworks).Methods(http.MethodGet)
	api.HandleFunc("/networks/{id}", s.showNetwork).Methods(http.MethodGet)
	return r
}

// AddNetwork stores a network and returns its id.
func (s *Server) AddNetwork(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := &Network{ID: uuid.NewString(), Name: name, Status: "ACTIVE"}
	s.networks[n.ID] = n
	return n.ID
}

// Gateway returns a copy of a stored gateway.
func (s *Server) Gateway(id string) (Gateway, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gw, ok := s.gateways[id]
	if !ok {
		return Gateway{}, false
	}
	out := *gw
	out.Ports = slices.Clone(gw.Ports)
	return out, true
}

// RemoveGateway drops a gateway and its ports without an API call, as an
// out-of-band cleanup would.
func (s *Server) RemoveGateway(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.gateways, id)
}

// FailNext makes the next call of op answer with status. When apply is
// true the operation still takes effect, leaving the caller with an error
// for work that was done.
func (s *Server) FailNext(op string, status int, apply bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], failure{status: status, apply: apply})
}

// Stats summarizes what the server holds.
type Stats struct {
	Revision    string `json:"schema_revision"`
	Gateways    int    `json:"gateways"`
	Connections int    `json:"connections"`
	Networks    int    `json:"networks"`
}

// Stats returns a snapshot of the stored records.
func (s *Server) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{Revision: s.revision, Gateways: len(s.gateways), Networks: len(s.networks)}
	for _, gw := range s.gateways {
		st.Connections += len(gw.Ports)
	}
	return st
}

// Requests returns "METHOD path" for every request served.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// popFailure returns the next queued failure of op. Callers hold s.mu.
func (s *Server) popFailure(op string) (failure, bool) {
	q := s.failures[op]
	if len(q) == 0 {
		return failure{}, false
	}
	s.failures[op] = q[1:]
	return q[0], true
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		s.log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Str("query", r.URL.RawQuery).Msg("request")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Auth-Token") != s.token {
			writeFault(w, http.StatusUnauthorized, "NotAuthorized", "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listGateways(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.popFailure(OpList); ok {
		writeFault(w, f.status, "NeutronException", "injected list failure")
		return
	}
	filterID := r.URL.Query().Get("id")
	out := make([]Gateway, 0, len(s.gateways))
	for id, gw := range s.gateways {
		if filterID != "" && id != filterID {
			continue
		}
		out = append(out, s.view(gw))
	}
	slices.SortFunc(out, func(a, b Gateway) int { return strings.Compare(a.ID, b.ID) })
	writeJSON(w, http.StatusOK, map[string]any{s.plural: out})
}

func (s *Server) createGateway(w http.ResponseWriter, r *http.Request) {
	var body map[string]Gateway
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeFault(w, http.StatusBadRequest, "HTTPBadRequest", "malformed request body")
		return
	}
	req, ok := body[s.single]
	if !ok {
		writeFault(w, http.StatusBadRequest, "HTTPBadRequest", fmt.Sprintf("Resource body required: %s", s.single))
		return
	}
	if len(req.Devices) == 0 {
		writeFault(w, http.StatusBadRequest, "InvalidInput", "Invalid input for operation: devices must not be empty.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	gw := &Gateway{
		ID:       uuid.NewString(),
		Name:     req.Name,
		TenantID: req.TenantID,
		Devices:  req.Devices,
		Ports:    []Port{},
	}
	if s.shared {
		shared := req.Shared != nil && *req.Shared
		gw.Shared = &shared
	}
	s.gateways[gw.ID] = gw
	writeJSON(w, http.StatusCreated, map[string]any{s.single: s.view(gw)})
}

func (s *Server) showGateway(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gw, ok := s.gateways[mux.Vars(r)["id"]]
	if !ok {
		gatewayNotFound(w, mux.Vars(r)["id"])
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{s.single: s.view(gw)})
}

func (s *Server) deleteGateway(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := mux.Vars(r)["id"]

	f, failing := s.popFailure(OpDelete)
	if failing && !f.apply {
		writeFault(w, f.status, "NeutronException", "injected delete failure")
		return
	}
	gw, ok := s.gateways[id]
	if !ok {
		gatewayNotFound(w, id)
		return
	}
	if len(gw.Ports) > 0 && !failing {
		writeFault(w, http.StatusConflict, "NetworkGatewayPortInUse",
			fmt.Sprintf("Port %s is owned by gateway %s and cannot be deleted", gw.Ports[0].PortID, id))
		return
	}
	delete(s.gateways, id)
	if failing {
		writeFault(w, f.status, "NeutronException", "injected delete failure")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// connectionBody is the body of connect_network and disconnect_network.
type connectionBody struct {
	NetworkID        string `json:"network_id"`
	SegmentationType string `json:"segmentation_type"`
	SegmentationID   *int   `json:"segmentation_id"`
}

func (s *Server) connectNetwork(w http.ResponseWriter, r *http.Request) {
	var req connectionBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFault(w, http.StatusBadRequest, "HTTPBadRequest", "malformed request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := mux.Vars(r)["id"]
	gw, ok := s.gateways[id]
	if !ok {
		gatewayNotFound(w, id)
		return
	}
	if _, ok := s.networks[req.NetworkID]; !ok {
		writeFault(w, http.StatusNotFound, "NetworkNotFound", fmt.Sprintf("Network %s could not be found.", req.NetworkID))
		return
	}
	if req.SegmentationType == "vlan" && (req.SegmentationID == nil || *req.SegmentationID == 0) {
		writeFault(w, http.StatusBadRequest, "InvalidInput", "segmentation_id must be specified for using vlan")
		return
	}
	for _, p := range gw.Ports {
		if sameSegment(p, req) {
			writeFault(w, http.StatusConflict, "GatewayConnectionInUse",
				fmt.Sprintf("The network %s is already connected to gateway %s", req.NetworkID, id))
			return
		}
	}

	port := Port{
		PortID:           uuid.NewString(),
		NetworkID:        req.NetworkID,
		SegmentationType: req.SegmentationType,
		SegmentationID:   req.SegmentationID,
	}
	gw.Ports = append(gw.Ports, port)
	writeJSON(w, http.StatusOK, map[string]any{"connection_info": map[string]string{
		"network_gateway_id": id,
		"network_id":         req.NetworkID,
		"port_id":            port.PortID,
	}})
}

func (s *Server) disconnectNetwork(w http.ResponseWriter, r *http.Request) {
	var req connectionBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFault(w, http.StatusBadRequest, "HTTPBadRequest", "malformed request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := mux.Vars(r)["id"]

	f, failing := s.popFailure(OpDisconnect)
	if failing && !f.apply {
		writeFault(w, f.status, "NeutronException", "injected disconnect failure")
		return
	}
	gw, ok := s.gateways[id]
	if !ok {
		gatewayNotFound(w, id)
		return
	}
	idx := slices.IndexFunc(gw.Ports, func(p Port) bool { return sameSegment(p, req) })
	if idx < 0 {
		writeFault(w, http.StatusNotFound, "GatewayConnectionNotFound",
			fmt.Sprintf("The connection %s was not found on the network gateway %s", req.NetworkID, id))
		return
	}
	gw.Ports = slices.Delete(gw.Ports, idx, idx+1)
	if failing {
		writeFault(w, f.status, "NeutronException", "injected disconnect failure")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) listNetworks(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := r.URL.Query().Get("name")
	out := make([]Network, 0, len(s.networks))
	for _, n := range s.networks {
		if name != "" && n.Name != name {
			continue
		}
		out = append(out, *n)
	}
	slices.SortFunc(out, func(a, b Network) int { return strings.Compare(a.ID, b.ID) })
	writeJSON(w, http.StatusOK, map[string]any{"networks": out})
}

func (s *Server) showNetwork(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := mux.Vars(r)["id"]
	n, ok := s.networks[id]
	if !ok {
		writeFault(w, http.StatusNotFound, "NetworkNotFound", fmt.Sprintf("Network %s could not be found.", id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"network": n})
}

// view returns the wire form of gw for this revision.
func (s *Server) view(gw *Gateway) Gateway {
	out := *gw
	out.Ports = slices.Clone(gw.Ports)
	if !s.shared {
		out.Shared = nil
	}
	return out
}

func sameSegment(p Port, req connectionBody) bool {
	if p.NetworkID != req.NetworkID || p.SegmentationType != req.SegmentationType {
		return false
	}
	if p.SegmentationID == nil || req.SegmentationID == nil {
		return p.SegmentationID == nil && req.SegmentationID == nil
	}
	return *p.SegmentationID == *req.SegmentationID
}

func gatewayNotFound(w http.ResponseWriter, id string) {
	writeFault(w, http.StatusNotFound, "NetworkGatewayNotFound", fmt.Sprintf("Network Gateway %s could not be found", id))
}

func writeFault(w http.ResponseWriter, status int, typ, msg string) {
	writeJSON(w, status, map[string]any{"NeutronError": map[string]string{
		"type":    typ,
		"message": msg,
		"detail":  "",
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
