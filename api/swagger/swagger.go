package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Gymkhana Event Approval API",
        "description": "Annual activity calendar, event proposal, expense and amendment workflows",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Calendars", "description": "Annual calendar drafting and approval"},
        {"name": "Proposals", "description": "Per-event proposal workflow"},
        {"name": "Expenses", "description": "Post-event expense reporting"},
        {"name": "Amendments", "description": "Changes to a locked calendar"},
        {"name": "Reports", "description": "Asynchronous report generation"}
    ],
    "paths": {
        "/calendars": {
            "get": {
                "tags": ["Calendars"],
                "summary": "List calendars",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "description": "Comma-separated workflow statuses"},
                    {"name": "academicYear", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Calendars"],
                "summary": "Draft a new annual calendar",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCalendarRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendars/current": {
            "get": {
                "tags": ["Calendars"],
                "summary": "Latest approved calendar",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendars/year/{year}": {
            "get": {
                "tags": ["Calendars"],
                "summary": "Calendar for an academic year",
                "parameters": [
                    {"name": "year", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendars/{id}": {
            "get": {
                "tags": ["Calendars"],
                "summary": "Get calendar",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Calendars"],
                "summary": "Replace the embedded event list",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateCalendarRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendars/{id}/submit": {
            "post": {
                "tags": ["Calendars"],
                "summary": "Submit the calendar for approval",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/SubmitCalendarRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Overlapping event dates", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendars/{id}/approve": {
            "post": {
                "tags": ["Calendars"],
                "summary": "Approve the current stage",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ApproveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Calendar is not pending approval or was decided concurrently", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendars/{id}/reject": {
            "post": {
                "tags": ["Calendars"],
                "summary": "Reject at the current stage",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Calendar is no longer pending; rejecting twice conflicts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendars/{id}/lock": {
            "post": {
                "tags": ["Calendars"],
                "summary": "Lock the calendar against edits",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Calendar is already locked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendars/{id}/unlock": {
            "post": {
                "tags": ["Calendars"],
                "summary": "Unlock the calendar",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Calendar is already unlocked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendars/{id}/history": {
            "get": {
                "tags": ["Calendars"],
                "summary": "Approval trail of a calendar",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/proposals": {
            "post": {
                "tags": ["Proposals"],
                "summary": "Submit an event proposal",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateProposalRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/proposals/pending": {
            "get": {
                "tags": ["Proposals"],
                "summary": "Events awaiting a proposal",
                "parameters": [
                    {"name": "days", "in": "query", "type": "integer", "description": "Look-ahead window in days"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/proposals/for-approval": {
            "get": {
                "tags": ["Proposals"],
                "summary": "Proposals waiting on the caller",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/proposals/event/{eventId}": {
            "get": {
                "tags": ["Proposals"],
                "summary": "Proposal linked to an event",
                "parameters": [
                    {"name": "eventId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/proposals/{id}": {
            "get": {
                "tags": ["Proposals"],
                "summary": "Get proposal",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Proposals"],
                "summary": "Edit or resubmit a proposal",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateProposalRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/proposals/{id}/approve": {
            "post": {
                "tags": ["Proposals"],
                "summary": "Approve the current stage",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ApproveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/proposals/{id}/reject": {
            "post": {
                "tags": ["Proposals"],
                "summary": "Reject the proposal",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/proposals/{id}/request-revision": {
            "post": {
                "tags": ["Proposals"],
                "summary": "Send the proposal back for revision",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RevisionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/expenses": {
            "post": {
                "tags": ["Expenses"],
                "summary": "Submit an expense report",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitExpenseRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/expenses/pending": {
            "get": {
                "tags": ["Expenses"],
                "summary": "Expense reports awaiting approval",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/expenses/event/{eventId}": {
            "get": {
                "tags": ["Expenses"],
                "summary": "Expense report linked to an event",
                "parameters": [
                    {"name": "eventId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/expenses/{id}": {
            "get": {
                "tags": ["Expenses"],
                "summary": "Get expense report",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Expenses"],
                "summary": "Edit a pending expense report",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateExpenseRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/expenses/{id}/approve": {
            "post": {
                "tags": ["Expenses"],
                "summary": "Approve the expense report and complete the event",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ApproveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/amendments": {
            "post": {
                "tags": ["Amendments"],
                "summary": "File an amendment",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAmendmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/amendments/pending": {
            "get": {
                "tags": ["Amendments"],
                "summary": "Amendments awaiting review",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/amendments/calendar/{calendarId}": {
            "get": {
                "tags": ["Amendments"],
                "summary": "Amendments filed against a calendar",
                "parameters": [
                    {"name": "calendarId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/amendments/{id}": {
            "get": {
                "tags": ["Amendments"],
                "summary": "Get amendment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/amendments/{id}/approve": {
            "post": {
                "tags": ["Amendments"],
                "summary": "Approve and apply an amendment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ApproveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/amendments/{id}/reject": {
            "post": {
                "tags": ["Amendments"],
                "summary": "Reject an amendment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ApproveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/generate": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue a report generation job",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Poll a report job",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/export/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a finished report",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"}
                }
            }
        }
    },
    "definitions": {
        "CalendarEventInput": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "category": {"type": "string"},
                "startDate": {"type": "string"},
                "endDate": {"type": "string"},
                "estimatedBudget": {"type": "number"},
                "description": {"type": "string"}
            },
            "required": ["title", "category", "startDate", "endDate"]
        },
        "CreateCalendarRequest": {
            "type": "object",
            "properties": {
                "academicYear": {"type": "string"},
                "events": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/CalendarEventInput"}
                }
            },
            "required": ["academicYear"]
        },
        "UpdateCalendarRequest": {
            "type": "object",
            "properties": {
                "events": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/CalendarEventInput"}
                }
            },
            "required": ["events"]
        },
        "SubmitCalendarRequest": {
            "type": "object",
            "properties": {
                "allowOverlappingDates": {"type": "boolean"}
            }
        },
        "ApproveRequest": {
            "type": "object",
            "properties": {
                "comments": {"type": "string"},
                "nextApprovalStages": {
                    "type": "array",
                    "items": {"type": "string"}
                }
            }
        },
        "RejectRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
            },
            "required": ["reason"]
        },
        "RevisionRequest": {
            "type": "object",
            "properties": {
                "comments": {"type": "string"}
            },
            "required": ["comments"]
        },
        "CreateProposalRequest": {
            "type": "object",
            "properties": {
                "eventId": {"type": "string"},
                "description": {"type": "string"},
                "schedule": {"type": "string"},
                "venue": {"type": "string"},
                "budgetItems": {"type": "array", "items": {"type": "object"}},
                "fundingSources": {"type": "array", "items": {"type": "object"}}
            },
            "required": ["eventId"]
        },
        "UpdateProposalRequest": {
            "type": "object",
            "properties": {
                "description": {"type": "string"},
                "schedule": {"type": "string"},
                "venue": {"type": "string"},
                "budgetItems": {"type": "array", "items": {"type": "object"}},
                "fundingSources": {"type": "array", "items": {"type": "object"}}
            }
        },
        "SubmitExpenseRequest": {
            "type": "object",
            "properties": {
                "eventId": {"type": "string"},
                "items": {"type": "array", "items": {"type": "object"}}
            },
            "required": ["eventId", "items"]
        },
        "UpdateExpenseRequest": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"type": "object"}}
            },
            "required": ["items"]
        },
        "CreateAmendmentRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["EDIT", "NEW_EVENT"]},
                "eventId": {"type": "string"},
                "proposedChanges": {"type": "object"},
                "reason": {"type": "string"}
            },
            "required": ["type", "proposedChanges", "reason"]
        },
        "ReportRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["approval_history", "calendar_summary"]},
                "calendarId": {"type": "string"},
                "format": {"type": "string", "enum": ["csv", "pdf"]}
            },
            "required": ["type", "calendarId", "format"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
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

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
