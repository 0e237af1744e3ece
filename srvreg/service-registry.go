package srvreg

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/cdeck95/filament-tracking/repository"
	"go.uber.org/zap"
)

// Request represents an incoming API request. Path keeps its percent
// escapes; handlers decode the segments they care about. Tenant is the
// scoping key resolved by the access gate, empty for single-user installs.
type Request struct {
	Method string
	Path   string
	Body   string
	Tenant string
}

// Response represents an API response
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

// HandlerFunc is a function that handles a request
type HandlerFunc func(context.Context, *Request) (*Response, error)

// ServiceRegistry manages all service handlers
type ServiceRegistry struct {
	handlers   map[string]map[string]HandlerFunc
	repository *repository.Repository
	logger     *zap.SugaredLogger
}

var defaultHeaders = map[string]string{
	"Content-Type": "application/json",
}

// NewServiceRegistry creates a new service registry
func NewServiceRegistry(repo *repository.Repository, logger *zap.SugaredLogger) *ServiceRegistry {
	return &ServiceRegistry{
		handlers:   make(map[string]map[string]HandlerFunc),
		repository: repo,
		logger:     logger,
	}
}

// RegisterHandler registers a handler for a specific method and path
func (sr *ServiceRegistry) RegisterHandler(method, path string, handler HandlerFunc) {
	if sr.handlers[method] == nil {
		sr.handlers[method] = make(map[string]HandlerFunc)
	}
	sr.handlers[method][path] = handler
	sr.logger.Debugw("registered handler", "method", method, "path", path)
}

// GetHandlerForPath finds the handler for a given method and path
func (sr *ServiceRegistry) GetHandlerForPath(method, path string) (HandlerFunc, bool) {
	methodHandlers, exists := sr.handlers[method]
	if !exists {
		return nil, false
	}

	// Try exact match first
	if handler, exists := methodHandlers[path]; exists {
		return handler, true
	}

	// Try pattern matching for paths with parameters
	for pattern, handler := range methodHandlers {
		if matchPath(pattern, path) {
			return handler, true
		}
	}

	return nil, false
}

// matchPath checks if a path matches a pattern with parameters.
// It supports patterns like "/api/filaments/:id" matching "/api/filaments/3".
func matchPath(pattern, path string) bool {
	patternParts := strings.Split(pattern, "/")
	pathParts := strings.Split(path, "/")

	if len(patternParts) != len(pathParts) {
		return false
	}

	for i := 0; i < len(patternParts); i++ {
		if strings.HasPrefix(patternParts[i], ":") {
			// This is a parameter, it matches anything
			continue
		}
		if patternParts[i] != pathParts[i] {
			return false
		}
	}

	return true
}

// RegisterDefaultServices sets up all entity endpoints.
func (sr *ServiceRegistry) RegisterDefaultServices() {
	sr.logger.Info("registering filament tracking services...")

	// Brand endpoints
	sr.RegisterHandler("GET", "/api/brands", sr.ListBrandsHandler)
	sr.RegisterHandler("POST", "/api/brands", sr.AddBrandHandler)
	sr.RegisterHandler("PATCH", "/api/brands/:brand", sr.UpdateBrandHandler)
	sr.RegisterHandler("DELETE", "/api/brands/:brand", sr.DeleteBrandHandler)

	// Material endpoints
	sr.RegisterHandler("GET", "/api/materials", sr.ListMaterialsHandler)
	sr.RegisterHandler("POST", "/api/materials", sr.AddMaterialHandler)
	sr.RegisterHandler("PATCH", "/api/materials/:material", sr.UpdateMaterialHandler)
	sr.RegisterHandler("DELETE", "/api/materials/:material", sr.DeleteMaterialHandler)

	// Color endpoints
	sr.RegisterHandler("GET", "/api/colors", sr.ListColorsHandler)
	sr.RegisterHandler("POST", "/api/colors", sr.AddColorHandler)
	sr.RegisterHandler("PATCH", "/api/colors/:color", sr.UpdateColorHandler)
	sr.RegisterHandler("DELETE", "/api/colors/:color", sr.DeleteColorHandler)

	// Filament endpoints
	sr.RegisterHandler("GET", "/api/filaments", sr.ListFilamentsHandler)
	sr.RegisterHandler("POST", "/api/filaments", sr.AddFilamentHandler)
	sr.RegisterHandler("GET", "/api/filaments/:id", sr.GetFilamentHandler)
	sr.RegisterHandler("PUT", "/api/filaments/:id", sr.ReplaceFilamentHandler)
	sr.RegisterHandler("PATCH", "/api/filaments/:id", sr.PatchFilamentHandler)
	sr.RegisterHandler("DELETE", "/api/filaments/:id", sr.DeleteFilamentHandler)

	sr.logger.Info("all services registered")
}

// GenerateResponse executes the request and generates a response
func (req *Request) GenerateResponse(ctx context.Context, services *ServiceRegistry) (*Response, error) {
	handler, found := services.GetHandlerForPath(req.Method, req.Path)

	if !found {
		return &Response{
			StatusCode: http.StatusNotFound,
			Headers:    defaultHeaders,
			Body:       fmt.Sprintf(`{"error":"Service not found for %s %s"}`, req.Method, req.Path),
		}, nil
	}

	return handler(ctx, req)
}

// pathSegment returns the percent-decoded path segment at index, counting
// from the start of the path ("/api/brands/Prusament" index 3 is
// "Prusament").
func pathSegment(path string, index int) (string, bool) {
	parts := strings.Split(path, "/")
	if index < 0 || index >= len(parts) {
		return "", false
	}
	decoded, err := url.PathUnescape(parts[index])
	if err != nil {
		return "", false
	}
	return decoded, true
}

// jsonResponse marshals a payload into a Response.
func jsonResponse(statusCode int, payload interface{}) *Response {
	body, err := json.Marshal(payload)
	if err != nil {
		return &Response{
			StatusCode: http.StatusInternalServerError,
			Headers:    defaultHeaders,
			Body:       `{"error":"Failed to encode response"}`,
		}
	}
	return &Response{
		StatusCode: statusCode,
		Headers:    defaultHeaders,
		Body:       string(body),
	}
}

// errorResponse builds a JSON error body.
func errorResponse(statusCode int, message string) *Response {
	return jsonResponse(statusCode, map[string]string{"error": message})
}

// messageResponse builds the {"message": ...} success body most mutation
// endpoints answer with.
func messageResponse(message string) *Response {
	return jsonResponse(http.StatusOK, map[string]string{"message": message})
}

// repoErrorResponse translates a repository error to an API response.
func (sr *ServiceRegistry) repoErrorResponse(repoErr *repository.RepositoryError, message string) *Response {
	switch repoErr.Code {
	case repository.CodeNotFound:
		return errorResponse(http.StatusNotFound, message)
	case repository.CodeConflict:
		return errorResponse(http.StatusConflict, repoErr.Message)
	default:
		sr.logger.Errorw(message, "code", repoErr.Code, "detail", repoErr.Detail)
		return errorResponse(http.StatusInternalServerError, message)
	}
}
