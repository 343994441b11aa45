package logging

import (
	"context"
)

type contextKey string

// Trace ids are not stored here; the logger reads them from the active span.
const (
	UpdateIDKey      contextKey = "update_id"
	ChatIDKey        contextKey = "chat_id"
	RequestIDKey     contextKey = "request_id"
	HTTPRequestIDKey contextKey = "http_request_id"
	ServiceNameKey   contextKey = "service_name"
)

func WithUpdateID(ctx context.Context, updateID int64) context.Context {
	return context.WithValue(ctx, UpdateIDKey, updateID)
}

func WithChatID(ctx context.Context, chatID int64) context.Context {
	return context.WithValue(ctx, ChatIDKey, chatID)
}

// WithRequestID tags the context with the dispatch request envelope id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithHTTPRequestID tags the context with the X-Request-ID of the inbound
// HTTP request.
func WithHTTPRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, HTTPRequestIDKey, requestID)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, ServiceNameKey, serviceName)
}

func GetUpdateID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(UpdateIDKey).(int64)
	return id, ok
}

func GetChatID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ChatIDKey).(int64)
	return id, ok
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

func GetHTTPRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(HTTPRequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

func GetServiceName(ctx context.Context) string {
	if serviceName, ok := ctx.Value(ServiceNameKey).(string); ok {
		return serviceName
	}
	return ""
}

func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 10)

	if updateID, ok := GetUpdateID(ctx); ok {
		fields = append(fields, "update_id", updateID)
	}

	if chatID, ok := GetChatID(ctx); ok {
		fields = append(fields, "chat_id", chatID)
	}

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}

	if requestID := GetHTTPRequestID(ctx); requestID != "" {
		fields = append(fields, "http_request_id", requestID)
	}

	if serviceName := GetServiceName(ctx); serviceName != "" {
		fields = append(fields, "service_name", serviceName)
	}

	return fields
}
