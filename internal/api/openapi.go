package api

import "net/http"

type route struct {
	method, path, summary, scope string
	params                       []string
}

var adminRoutes = []route{
	{method: "get", path: "/channels", summary: "Running and queued tasks for every active channel", scope: ScopeTasksRead},
	{method: "get", path: "/channels/{channel}/tasks", summary: "Running and queued tasks for one channel", scope: ScopeTasksRead, params: []string{"channel"}},
	{method: "delete", path: "/channels/{channel}/task", summary: "Cancel the channel's most recent active task", scope: ScopeTasksWrite, params: []string{"channel"}},
	{method: "get", path: "/history", summary: "Persisted task log, newest first", scope: ScopeHistoryRead},
	{method: "get", path: "/history/{taskID}", summary: "One persisted task", scope: ScopeHistoryRead, params: []string{"taskID"}},
	{method: "get", path: "/budget", summary: "Monthly spend against the budget", scope: ScopeHistoryRead},
	{method: "get", path: "/events", summary: "Server-sent task lifecycle events", scope: ScopeEventsRead},
	{method: "get", path: "/metrics", summary: "Prometheus metrics", scope: ScopeMetrics},
}

// buildOpenAPIDoc returns an OpenAPI 3.1 document for the admin routes.
func buildOpenAPIDoc() map[string]any {
	paths := map[string]any{}
	for _, rt := range adminRoutes {
		params := make([]any, 0, len(rt.params))
		for _, p := range rt.params {
			params = append(params, map[string]any{
				"name":     p,
				"in":       "path",
				"required": true,
				"schema":   map[string]any{"type": "string"},
			})
		}

		operation := map[string]any{
			"summary":     rt.summary,
			"operationId": rt.method + rt.path,
			"parameters":  params,
			"responses": map[string]any{
				"200": map[string]any{"description": "OK"},
				"401": map[string]any{"description": "Missing or invalid token"},
				"403": map[string]any{"description": "Requires scope " + rt.scope},
			},
			"security": []any{map[string]any{"BearerAuth": []string{}}},
		}

		item, _ := paths[rt.path].(map[string]any)
		if item == nil {
			item = map[string]any{}
			paths[rt.path] = item
		}
		item[rt.method] = operation
	}

	return map[string]any{
		"openapi": "3.1.0",
		"info": map[string]any{
			"title":   "slackagent admin API",
			"version": "1.0",
		},
		"paths": paths,
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"BearerAuth": map[string]any{
					"type":   "http",
					"scheme": "bearer",
				},
			},
		},
	}
}

// handleOpenAPI handles GET /openapi.json (no auth).
func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, buildOpenAPIDoc())
}
