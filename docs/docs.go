// Package docs registers the Swagger document served at /swagger/index.html.
// Regenerate with `swag init -g cmd/main.go` after changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/quiz-sessions": {
            "post": {
                "tags": ["Quiz Sessions"],
                "summary": "Open a quiz session",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Bearer token forwarded to the backend", "name": "Authorization", "in": "header", "required": true},
                    {"type": "integer", "description": "User ID", "name": "X-User-ID", "in": "header", "required": true},
                    {"type": "integer", "description": "Organization ID", "name": "X-Organization-ID", "in": "header", "required": true},
                    {"description": "Quiz to open", "name": "session", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.OpenSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.SessionResponse"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "502": {"description": "Backend unavailable; session opened in error phase", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/quiz-sessions/{session_id}": {
            "get": {
                "tags": ["Quiz Sessions"],
                "summary": "Get a quiz session",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "description": "User ID", "name": "X-User-ID", "in": "header", "required": true},
                    {"type": "string", "description": "Session ID", "name": "session_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.SessionResponse"}},
                    "404": {"description": "Session not found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["Quiz Sessions"],
                "summary": "Close a quiz session",
                "parameters": [
                    {"type": "integer", "description": "User ID", "name": "X-User-ID", "in": "header", "required": true},
                    {"type": "string", "description": "Session ID", "name": "session_id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Session not found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/quiz-sessions/{session_id}/submit": {
            "post": {
                "tags": ["Quiz Sessions"],
                "summary": "Check the current answer",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "description": "User ID", "name": "X-User-ID", "in": "header", "required": true},
                    {"type": "string", "description": "Session ID", "name": "session_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.SessionResponse"}},
                    "409": {"description": "Already checked or a submission is pending", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "502": {"description": "Saving progress or evaluation failed", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/quiz-sessions/{session_id}/tutor/messages": {
            "post": {
                "tags": ["Tutor"],
                "summary": "Reply to the tutor",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "description": "User ID", "name": "X-User-ID", "in": "header", "required": true},
                    {"type": "string", "description": "Session ID", "name": "session_id", "in": "path", "required": true},
                    {"description": "Student reply", "name": "message", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.TutorMessageRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.TutorResponse"}},
                    "409": {"description": "Tutor busy or conversation concluded", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "502": {"description": "Evaluation failed", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "dto.ErrorResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "details": {"type": "array", "items": {"type": "string"}}
            }
        },
        "dto.OpenSessionRequest": {
            "type": "object",
            "required": ["quiz_id", "subject_id", "topic_id"],
            "properties": {
                "quiz_id": {"type": "integer"},
                "subject_id": {"type": "integer"},
                "topic_id": {"type": "integer"}
            }
        },
        "dto.TutorMessageRequest": {
            "type": "object",
            "required": ["content"],
            "properties": {
                "content": {"type": "string"}
            }
        },
        "dto.TurnResponse": {
            "type": "object",
            "properties": {
                "role": {"type": "string"},
                "content": {"type": "string"},
                "type": {"type": "string"}
            }
        },
        "dto.TutorResponse": {
            "type": "object",
            "properties": {
                "session_id": {"type": "string"},
                "phase": {"type": "string"},
                "messages": {"type": "array", "items": {"$ref": "#/definitions/dto.TurnResponse"}},
                "retry_count": {"type": "integer"},
                "max_retries": {"type": "integer"},
                "concluded": {"type": "boolean"},
                "busy": {"type": "boolean"}
            }
        },
        "dto.SessionResponse": {
            "type": "object",
            "properties": {
                "session_id": {"type": "string"},
                "phase": {"type": "string"},
                "error": {"type": "string"},
                "quiz_id": {"type": "integer"},
                "subject_id": {"type": "integer"},
                "topic_id": {"type": "integer"},
                "attempt_number": {"type": "integer"},
                "current_question": {"type": "integer"},
                "total_questions": {"type": "integer"},
                "selected": {"type": "string"},
                "has_selection": {"type": "boolean"},
                "checked": {"type": "boolean"},
                "is_correct": {"type": "boolean"},
                "answered_questions": {"type": "integer"},
                "score": {"type": "integer"},
                "completed": {"type": "boolean"},
                "time_spent": {"type": "integer"},
                "pending": {"type": "boolean"},
                "checked_questions": {"type": "array", "items": {"type": "integer"}},
                "tutor": {"$ref": "#/definitions/dto.TutorResponse"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Quiz Session & Tutor API",
	Description:      "Quiz answering sessions with progress reconciliation and a Socratic tutor for wrong answers.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
