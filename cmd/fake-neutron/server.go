package main

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/AltairaLabs/netgateway-provider/internal/fakeneutron"
)

// buildService creates the fake service and seeds the configured networks.
func buildService(cfg *serverConfig, log zerolog.Logger) (*fakeneutron.Server, error) {
	opts := []fakeneutron.Option{fakeneutron.WithLogger(log)}
	if cfg.Token != "" {
		opts = append(opts, fakeneutron.WithToken(cfg.Token))
	}
	svc, err := fakeneutron.New(cfg.Revision, opts...)
	if err != nil {
		return nil, err
	}
	for _, name := range cfg.Networks {
		id := svc.AddNetwork(name)
		log.Info().Str("name", name).Str("id", id).Msg("network created")
	}
	return svc, nil
}

// buildMux creates the HTTP mux with the API and health routes.
func buildMux(api, healthH http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/health", healthH)
	mux.Handle("/", api)
	return mux
}
