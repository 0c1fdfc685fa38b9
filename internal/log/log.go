package log

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	LevelInfo  = "info"
	LevelAudit = "audit"
	LevelWarn  = "warn"
	LevelError = "error"
)

type entry struct {
	TS       string         `json:"ts"`
	Level    string         `json:"level"`
	ReqID    string         `json:"req_id,omitempty"`
	IP       string         `json:"ip,omitempty"`
	Method   string         `json:"method,omitempty"`
	Path     string         `json:"path,omitempty"`
	Operator string         `json:"operator,omitempty"`
	Action   string         `json:"action,omitempty"`
	Status   int            `json:"status,omitempty"`
	Err      string         `json:"err,omitempty"`
	Fields   map[string]any `json:"fields,omitempty"`
}

// write emits one JSON line. c may be nil for events outside a request.
func write(level string, c *fiber.Ctx, action string, err error, fields map[string]any) {
	e := entry{Level: level, Action: action}
	if c != nil {
		e.IP = c.IP()
		e.Method = c.Method()
		e.Path = c.Path()
		e.Status = c.Response().StatusCode()
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			e.ReqID = rid
		}
		if op, ok := c.Locals("operator").(string); ok {
			e.Operator = op
		}
	}
	emit(e, err, fields)
}

func emit(e entry, err error, fields map[string]any) {
	e.TS = time.Now().UTC().Format(time.RFC3339)
	if err != nil {
		e.Err = err.Error()
	}
	if len(fields) > 0 {
		e.Fields = fields
	}
	b, _ := json.Marshal(e)
	log.Println(string(b))
}

func Info(c *fiber.Ctx, action string, fields map[string]any) { write(LevelInfo, c, action, nil, fields) }
func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	write(LevelAudit, c, action, nil, fields)
}
func Security(c *fiber.Ctx, action string, fields map[string]any) {
	write(LevelWarn, c, action, nil, fields)
}
func Warn(c *fiber.Ctx, action string, fields map[string]any) { write(LevelWarn, c, action, nil, fields) }
func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	write(LevelError, c, action, err, fields)
}

// Batch logs an event that happens off the request path, such as a
// persistence worker finishing a unit, on behalf of operator.
func Batch(level, operator, action string, err error, fields map[string]any) {
	emit(entry{Level: level, Operator: operator, Action: action}, err, fields)
}
