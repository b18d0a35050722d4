package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Attendance API",
        "description": "Teacher-scoped rosters, check-ins and attendance statistics",
        "version": "1.0.0"
    },
    "basePath": "{{.BasePath}}",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Teacher accounts and tokens"},
        {"name": "Students", "description": "Roster management"},
        {"name": "Subjects", "description": "Subjects owned by the teacher"},
        {"name": "Courses", "description": "Course groupings and their subjects"},
        {"name": "Enrollments", "description": "Student to subject enrollment"},
        {"name": "Attendance", "description": "Check-ins, display list, statistics and readiness"},
        {"name": "Roster", "description": "JSON roster import and export"}
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Auth"],
                "summary": "Register a teacher",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "409": {"description": "Email taken"}}
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Issue an access token",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Invalid credentials"}}
            }
        },
        "/auth/me": {
            "get": {"tags": ["Auth"], "summary": "Current teacher", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "course_id", "in": "query", "type": "string"},
                    {"name": "subject_id", "in": "query", "type": "string"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {"tags": ["Students"], "summary": "Create student", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}}}
        },
        "/students/{id}": {
            "get": {"tags": ["Students"], "summary": "Get student", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}},
            "put": {"tags": ["Students"], "summary": "Update student", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Students"], "summary": "Delete student", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"204": {"description": "Deleted"}}}
        },
        "/students/{id}/subjects": {
            "get": {"tags": ["Enrollments"], "summary": "Subjects of a student", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["Enrollments"], "summary": "Replace enrollments of a student", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "400": {"description": "Foreign subject"}}}
        },
        "/students/{id}/check-ins": {
            "get": {"tags": ["Attendance"], "summary": "Check-in history of a student", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "from", "in": "query", "type": "string"}, {"name": "to", "in": "query", "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/subjects": {
            "get": {"tags": ["Subjects"], "summary": "List subjects", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Subjects"], "summary": "Create subject", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}, "409": {"description": "Code taken"}}}
        },
        "/subjects/{id}": {
            "get": {"tags": ["Subjects"], "summary": "Get subject", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["Subjects"], "summary": "Update subject", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Subjects"], "summary": "Delete subject", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"204": {"description": "Deleted"}}}
        },
        "/subjects/{id}/students": {
            "get": {"tags": ["Enrollments"], "summary": "Students enrolled in a subject", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/courses": {
            "get": {"tags": ["Courses"], "summary": "List courses", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Courses"], "summary": "Create course", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}}}
        },
        "/courses/{id}": {
            "get": {"tags": ["Courses"], "summary": "Get course", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["Courses"], "summary": "Update course", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Courses"], "summary": "Delete course", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"204": {"description": "Deleted"}}}
        },
        "/courses/{id}/subjects": {
            "put": {"tags": ["Courses"], "summary": "Replace subjects of a course", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/attendance": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Attendance display list",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "subject_id", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "array", "items": {"type": "string", "enum": ["PRESENT", "ABSENT", "LATE", "EXCUSED"]}, "collectionFormat": "multi"},
                    {"name": "range", "in": "query", "type": "string", "enum": ["TODAY", "THIS_WEEK", "THIS_MONTH", "ALL"]},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "sort", "in": "query", "type": "string", "enum": ["NAME_ASC", "NAME_DESC", "TIME_ASC", "TIME_DESC", "STATUS"]}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/attendance/eligible": {
            "get": {"tags": ["Attendance"], "summary": "Enrolled students without a check-in", "security": [{"BearerAuth": []}], "parameters": [{"name": "subject_id", "in": "query", "required": true, "type": "string"}, {"name": "date", "in": "query", "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/attendance/statistics": {
            "get": {"tags": ["Attendance"], "summary": "Attendance statistics", "security": [{"BearerAuth": []}], "parameters": [{"name": "subject_id", "in": "query", "type": "string"}, {"name": "range", "in": "query", "type": "string"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/attendance/readiness": {
            "get": {"tags": ["Attendance"], "summary": "Attendance readiness", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/attendance/report": {
            "get": {"tags": ["Attendance"], "summary": "Download the display list", "produces": ["text/csv", "application/pdf"], "security": [{"BearerAuth": []}], "parameters": [{"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}], "responses": {"200": {"description": "File"}}}
        },
        "/attendance/check-ins": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Record a check-in",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "Idempotency-Key", "in": "header", "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordCheckInRequest"}}
                ],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Duplicate submission"}, "412": {"description": "Attendance not ready"}}
            }
        },
        "/attendance/check-ins/bulk": {
            "post": {"tags": ["Attendance"], "summary": "Record check-ins in bulk", "security": [{"BearerAuth": []}], "parameters": [{"name": "Idempotency-Key", "in": "header", "type": "string"}], "responses": {"200": {"description": "OK"}, "412": {"description": "Not enrolled or not ready"}}}
        },
        "/attendance/check-ins/{id}": {
            "delete": {"tags": ["Attendance"], "summary": "Delete a check-in", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"204": {"description": "Deleted"}}}
        },
        "/roster/export": {
            "get": {"tags": ["Roster"], "summary": "Export roster", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "JSON array", "schema": {"type": "array", "items": {"$ref": "#/definitions/RosterRecord"}}}}}
        },
        "/roster/import": {
            "post": {
                "tags": ["Roster"],
                "summary": "Import roster",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "course_id", "in": "query", "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "array", "items": {"$ref": "#/definitions/RosterRecord"}}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Not a JSON array"}}
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "required": ["email", "password", "first_name", "last_name"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string", "minLength": 8},
                "first_name": {"type": "string"},
                "middle_name": {"type": "string"},
                "last_name": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "RecordCheckInRequest": {
            "type": "object",
            "required": ["student_id", "subject_id", "status"],
            "properties": {
                "student_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "date": {"type": "string", "example": "2024-03-06"},
                "time": {"type": "string", "example": "08:15"},
                "status": {"type": "string", "enum": ["PRESENT", "LATE", "EXCUSED"]}
            }
        },
        "RosterRecord": {
            "type": "object",
            "required": ["first_name", "last_name"],
            "properties": {
                "student_id": {"type": "string"},
                "first_name": {"type": "string"},
                "middle_name": {"type": "string"},
                "last_name": {"type": "string"},
                "course_code": {"type": "string"},
                "subject_codes": {"type": "array", "items": {"type": "string"}}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {"page": {"type": "integer"}, "page_size": {"type": "integer"}, "total_count": {"type": "integer"}}
        },
        "APIError": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "message": {"type": "string"}, "status": {"type": "integer"}}
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

// SwaggerInfo holds the values substituted into the document at read time.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Attendance API",
	Description:      "Teacher-scoped rosters, check-ins and attendance statistics",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
