package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cdeck95/filament-tracking/auth"
	"github.com/cdeck95/filament-tracking/srvreg"
	"go.uber.org/zap"
)

// WebServer handles HTTP requests for the filament tracking API.
type WebServer struct {
	httpAddr        string
	server          *http.Server
	serviceRegistry *srvreg.ServiceRegistry
	gate            *auth.Gate
	logger          *zap.SugaredLogger
	startTime       time.Time
}

// NewWebServer creates a new web server.
func NewWebServer(httpPort string, serviceRegistry *srvreg.ServiceRegistry, gate *auth.Gate, logger *zap.SugaredLogger) *WebServer {
	mux := http.NewServeMux()

	ws := &WebServer{
		httpAddr: ":" + httpPort,
		server: &http.Server{
			Addr:    ":" + httpPort,
			Handler: mux,
		},
		serviceRegistry: serviceRegistry,
		gate:            gate,
		logger:          logger,
		startTime:       time.Now(),
	}

	// Register routes
	mux.HandleFunc("/", ws.handleRoot)
	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/api/", ws.handleAPI)

	return ws
}

// Start starts the web server.
func (ws *WebServer) Start() error {
	ws.logger.Infow("starting filament tracking web server", "addr", ws.httpAddr)

	go func() {
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ws.logger.Errorw("web server error", "err", err)
		}
	}()

	ws.logger.Info("web server started successfully")
	return nil
}

// Shutdown gracefully shuts down the web server.
func (ws *WebServer) Shutdown(ctx context.Context) error {
	ws.logger.Info("shutting down web server...")
	return ws.server.Shutdown(ctx)
}

// handleRoot shows service information.
func (ws *WebServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(ws.startTime).Round(time.Second)

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)

	html := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <title>Filament Tracking</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; background: #f5f5f5; }
        .container { background: white; padding: 30px; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #2c5aa0; margin-top: 0; }
        .endpoint { background: #f8f9fa; padding: 10px; margin: 8px 0; border-radius: 4px; font-family: monospace; }
        .method { font-weight: bold; color: #007bff; margin-right: 10px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Filament Tracking</h1>
        <p>Uptime: %s</p>
        <h3>Endpoints:</h3>
        <div class="endpoint"><span class="method">GET</span>/api/filaments - List filaments</div>
        <div class="endpoint"><span class="method">POST</span>/api/filaments - Add a filament</div>
        <div class="endpoint"><span class="method">GET</span>/api/filaments/:id - Get one filament</div>
        <div class="endpoint"><span class="method">PUT</span>/api/filaments/:id - Replace a filament</div>
        <div class="endpoint"><span class="method">PATCH</span>/api/filaments/:id - Update a filament</div>
        <div class="endpoint"><span class="method">DELETE</span>/api/filaments/:id - Delete a filament</div>
        <div class="endpoint"><span class="method">GET</span>/api/brands, /api/materials, /api/colors - Reference collections</div>
    </div>
</body>
</html>
	`, uptime)

	w.Write([]byte(html))
}

// handleHealth returns service status as JSON.
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	info := map[string]interface{}{
		"status":      "ok",
		"uptime":      time.Since(ws.startTime).Round(time.Second).String(),
		"authEnabled": ws.gate.Enabled(),
		"service":     "filament-tracking",
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

// handleAPI authenticates the caller and dispatches to the service
// registry. Every /api route passes through here, so no handler can run
// without a resolved identity when the gate is enabled.
func (ws *WebServer) handleAPI(w http.ResponseWriter, r *http.Request) {
	identity, err := ws.gate.Authenticate(r)
	if err != nil {
		jsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		jsonError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	// EscapedPath keeps percent escapes intact; handlers decode the
	// segments they use.
	req := &srvreg.Request{
		Method: r.Method,
		Path:   r.URL.EscapedPath(),
		Body:   string(bodyBytes),
		Tenant: identity.TenantID,
	}

	response, err := req.GenerateResponse(r.Context(), ws.serviceRegistry)
	if err != nil {
		ws.logger.Errorw("error generating response", "err", err, "path", req.Path)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	ws.logger.Infow("api request processed",
		"method", req.Method,
		"path", req.Path,
		"status", response.StatusCode,
	)

	writeResponse(w, response)
}

// writeResponse writes a Response to http.ResponseWriter.
func writeResponse(w http.ResponseWriter, resp *srvreg.Response) {
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	w.Write([]byte(resp.Body))
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := map[string]string{
		"error": message,
	}
	json.NewEncoder(w).Encode(errorResp)
}
