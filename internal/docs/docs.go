// Package docs registers the OpenAPI document for the HTTP transport.
//
// Regenerate with: swag init -g internal/transport/http/http.go -o internal/docs
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
        "/sessions": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Open a session",
                "parameters": [
                    {"description": "Tone selection", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/message.OpenRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/message.SessionInfo"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/message.Error"}}
                }
            }
        },
        "/sessions/{id}": {
            "delete": {
                "tags": ["sessions"],
                "summary": "Close a session",
                "parameters": [
                    {"type": "string", "description": "Session ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/message.Error"}}
                }
            }
        },
        "/sessions/{id}/history": {
            "get": {
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Session history",
                "parameters": [
                    {"type": "string", "description": "Session ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/message.History"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/message.Error"}}
                }
            }
        },
        "/sessions/{id}/turns": {
            "post": {
                "consumes": ["application/json", "audio/wav", "audio/ogg", "audio/mpeg"],
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Submit a recording",
                "parameters": [
                    {"type": "string", "description": "Session ID", "name": "id", "in": "path", "required": true},
                    {"description": "Turn request (JSON). For raw audio, POST the bytes directly.", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/message.TurnRequest"}},
                    {"type": "string", "description": "Conversation tone (raw audio uploads)", "name": "X-Voicetone-Conversation-Tone", "in": "header"},
                    {"type": "string", "description": "Voice tone (raw audio uploads)", "name": "X-Voicetone-Voice-Tone", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/message.TurnResult"}},
                    "400": {"description": "No audio", "schema": {"$ref": "#/definitions/message.TurnResult"}},
                    "404": {"description": "Unknown session", "schema": {"$ref": "#/definitions/message.Error"}},
                    "413": {"description": "Audio too large", "schema": {"$ref": "#/definitions/message.Error"}},
                    "422": {"description": "Nothing to say", "schema": {"$ref": "#/definitions/message.TurnResult"}},
                    "502": {"description": "Backend failure", "schema": {"$ref": "#/definitions/message.TurnResult"}}
                }
            }
        },
        "/tones": {
            "get": {
                "produces": ["application/json"],
                "tags": ["tones"],
                "summary": "List tones",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/message.ToneInfo"}}
                }
            }
        },
        "/ws": {
            "get": {
                "tags": ["sessions"],
                "summary": "Conversation over WebSocket",
                "parameters": [
                    {"type": "string", "description": "Conversation tone", "name": "conversation_tone", "in": "query"},
                    {"type": "string", "description": "Voice tone", "name": "voice_tone", "in": "query"},
                    {"type": "string", "default": "audio/wav", "description": "MIME type of the binary messages", "name": "content_type", "in": "query"}
                ],
                "responses": {
                    "101": {"description": "Switching Protocols"}
                }
            }
        }
    },
    "definitions": {
        "message.Error": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "message.History": {
            "type": "object",
            "properties": {
                "session_id": {"type": "string"},
                "turns": {"type": "array", "items": {"$ref": "#/definitions/message.TurnResult"}}
            }
        },
        "message.OpenRequest": {
            "type": "object",
            "properties": {
                "conversation_tone": {"type": "string"},
                "voice_tone": {"type": "string"}
            }
        },
        "message.SessionInfo": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "strategy": {"type": "string"},
                "conversation_tone": {"type": "string"},
                "voice_tone": {"type": "string"},
                "language": {"type": "string"},
                "languages": {"type": "array", "items": {"type": "string"}},
                "turns": {"type": "integer"}
            }
        },
        "message.ToneInfo": {
            "type": "object",
            "properties": {
                "default": {"type": "string"},
                "tones": {"type": "array", "items": {"type": "string"}},
                "languages": {"type": "array", "items": {"type": "string"}},
                "strategy": {"type": "string"}
            }
        },
        "message.TurnRequest": {
            "type": "object",
            "properties": {
                "session_id": {"type": "string"},
                "audio": {"type": "string", "format": "byte"},
                "content_type": {"type": "string"},
                "conversation_tone": {"type": "string"},
                "voice_tone": {"type": "string"}
            }
        },
        "message.TurnResult": {
            "type": "object",
            "properties": {
                "session_id": {"type": "string"},
                "turn_id": {"type": "string"},
                "created_at": {"type": "string"},
                "state": {"type": "string", "enum": ["NEW_AUDIO", "TRANSCRIBED", "RESPONDED", "SPOKEN"]},
                "unchanged": {"type": "boolean"},
                "transcript": {"type": "string"},
                "language": {"type": "string"},
                "reply": {"type": "string"},
                "delivery": {"type": "string"},
                "settings": {"$ref": "#/definitions/tone.Prosody"},
                "tokens": {"type": "integer"},
                "transcription_ms": {"type": "integer"},
                "generation_ms": {"type": "integer"},
                "synthesis_ms": {"type": "integer"},
                "conversation_tone": {"type": "string"},
                "voice_tone": {"type": "string"},
                "audio": {"type": "string", "format": "byte"},
                "content_type": {"type": "string"},
                "synthesis_error": {"type": "string"},
                "error": {"type": "string"}
            }
        },
        "tone.Prosody": {
            "type": "object",
            "properties": {
                "voice": {"type": "string"},
                "rate": {"type": "string"},
                "pitch": {"type": "string"},
                "volume": {"type": "string"},
                "style": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "voicetone API",
	Description:      "Spoken conversations with tone-controlled speech synthesis.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
